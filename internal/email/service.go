package email

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"fitclub/internal/logger"
	"fitclub/internal/metrics"
)

const (
	QueueKey       = "emails"
	FailedQueueKey = "emails:failed"

	maxTries       = 3
	popTimeout     = 2 * time.Second
	defaultRetryIn = 5 * time.Second
)

type EmailJob struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Sender delivers a single message.
type Sender interface {
	Send(to, subject, body string) error
}

// Service queues emails in a Redis list and delivers them from a worker loop.
type Service struct {
	redis   redis.Cmdable
	sender  Sender
	retryIn time.Duration
}

func NewService(rdb redis.Cmdable, sender Sender) *Service {
	return &Service{
		redis:   rdb,
		sender:  sender,
		retryIn: defaultRetryIn,
	}
}

func (s *Service) Send(ctx context.Context, emailType, to, name, subject, body string) error {
	job := EmailJob{
		Type:    emailType,
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, QueueKey, data).Err(); err != nil {
		logger.Error("Failed to queue email", "to", to, "type", emailType, "error", err)
		return err
	}

	logger.Info("Email queued", "type", emailType, "to", to)
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	logger.Info("Email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email worker stopped")
			return nil
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, popTimeout, QueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Warn("Email queue read failed", "error", err)
			s.wait(ctx, popTimeout)
		}
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Debug("Sending email", "to", job.To, "attempt", job.Tries)
	if err := s.sender.Send(job.To, job.Subject, job.Body); err != nil {
		logger.Error("Failed to send email", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			s.wait(ctx, s.retryIn)
			s.requeue(job)
		} else {
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("Email sent", "type", job.Type, "to", job.To)
}

func (s *Service) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// requeue and saveFailed use a fresh context so a job popped just before
// shutdown is not lost.
func (s *Service) requeue(job EmailJob) {
	data, _ := json.Marshal(job)
	if err := s.redis.LPush(context.Background(), QueueKey, data).Err(); err != nil {
		logger.Error("Failed to requeue email", "to", job.To, "error", err)
		return
	}
	logger.Info("Retrying email", "to", job.To, "next_attempt", job.Tries+1)
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), FailedQueueKey, data)
	logger.Error("Email moved to failed queue", "to", job.To, "tries", job.Tries)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, QueueKey).Result()
	metrics.EmailQueueLength.Set(float64(length))
	return length
}
