package support

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fitclub/internal/logger"
)

func Channel(ticketID int) string {
	return fmt.Sprintf("support:ticket:%d", ticketID)
}

// Hub fans ticket messages out over Redis Pub/Sub so every API instance can
// serve live streams.
type Hub struct {
	rdb redis.UniversalClient
}

func NewHub(rdb redis.UniversalClient) *Hub {
	return &Hub{rdb: rdb}
}

func (h *Hub) Publish(ctx context.Context, m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, Channel(m.TicketID), data).Err()
}

// Subscribe streams messages posted to a ticket until ctx is done. The
// returned channel is closed when the subscription ends.
func (h *Hub) Subscribe(ctx context.Context, ticketID int) (<-chan Message, error) {
	sub := h.rdb.Subscribe(ctx, Channel(ticketID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to ticket %d: %w", ticketID, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer sub.Close()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}

				var m Message
				if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
					logger.Warn("Dropping malformed support message", "channel", raw.Channel, "error", err)
					continue
				}

				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
