package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RealtimePublisher publishes in-app notification realtime events.
type RealtimePublisher interface {
	NotifyNew(ctx context.Context, userID uuid.UUID, notification *NotificationResponse, unreadCount int) error
}

// RedisPublisher fans notifications out on a per-user Redis channel. The
// realtime gateway subscribes to these channels and forwards to open sockets.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a Redis-backed realtime publisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Channel returns the pub/sub channel for a user.
func Channel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

func (p *RedisPublisher) NotifyNew(ctx context.Context, userID uuid.UUID, notification *NotificationResponse, unreadCount int) error {
	if p == nil || p.client == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type": "notification:new",
		"data": map[string]interface{}{
			"notification": notification,
			"unread_count": unreadCount,
		},
	})
	if err != nil {
		return fmt.Errorf("encode realtime payload: %w", err)
	}

	return p.client.Publish(ctx, Channel(userID), payload).Err()
}
