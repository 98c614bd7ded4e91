// Package notify delivers match events to the notification collaborator.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// KindMatchCreated is sent to both users when a new match row is written.
const KindMatchCreated = "match_created"

// Notifier hands an event for userID to whatever delivers it.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, kind string, payload any) error
}

// MatchCreated is the payload of KindMatchCreated.
type MatchCreated struct {
	MatchID     uint64    `json:"match_id"`
	OtherUserID uint64    `json:"other_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is the envelope published on a user's channel.
type Message struct {
	Kind    string    `json:"kind"`
	UserID  uint64    `json:"user_id"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// ChannelForUser generates the pub/sub channel a user's devices listen on.
func ChannelForUser(userID uint64) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

// RedisNotifier publishes events on per-user Redis channels.
type RedisNotifier struct {
	client redis.Cmdable
}

func NewRedisNotifier(client redis.Cmdable) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, userID uint64, kind string, payload any) error {
	raw, err := json.Marshal(Message{
		Kind:    kind,
		UserID:  userID,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.client.Publish(ctx, ChannelForUser(userID), raw).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// LogNotifier only logs events. Used in development without Redis fan-out.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, userID uint64, kind string, payload any) error {
	n.log.Info("notification", "user_id", userID, "kind", kind, "payload", payload)
	return nil
}
