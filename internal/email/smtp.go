package email

import (
	"fmt"
	"net/smtp"
)

type SMTPConfig struct {
	From     string
	FromName string
	Host     string
	Port     string
	User     string
	Pass     string
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	return smtp.SendMail(s.addr(), s.auth(), s.cfg.From, []string{to}, s.message(to, subject, body))
}

func (s *SMTPSender) addr() string {
	return s.cfg.Host + ":" + s.cfg.Port
}

func (s *SMTPSender) auth() smtp.Auth {
	if s.cfg.User == "" || s.cfg.Pass == "" {
		return nil
	}
	return smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
}

func (s *SMTPSender) message(to, subject, body string) []byte {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/plain; charset=\"utf-8\"\r\n"
	message += "\r\n" + body
	return []byte(message)
}
