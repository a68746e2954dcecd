// Package notifications delivers project events to dashboard websocket subscribers
// through Redis pub/sub, so any API instance can publish and every instance can deliver.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"quotewall/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const projectChannelPrefix = "events:project:"

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// ProjectChannel derives the Redis channel name for a project.
func ProjectChannel(projectID uuid.UUID) string {
	return projectChannelPrefix + projectID.String()
}

// ParseProjectChannel extracts the project id from a channel produced by ProjectChannel.
func ParseProjectChannel(channel string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(channel, projectChannelPrefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Publish sends event to its project's channel. A nil client makes it a no-op.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := event.encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, ProjectChannel(event.ProjectID), payload).Err()
}

// PublishBestEffort publishes and logs failures. Events are advisory; callers never fail on them.
func (n *Notifier) PublishBestEffort(ctx context.Context, event Event) {
	if err := n.Publish(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish project event",
			slog.String("type", event.Type),
			slog.String("project_id", event.ProjectID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// StartProjectSubscriber subscribes to every project channel and calls onMessage for each
// incoming message until ctx is cancelled.
func (n *Notifier) StartProjectSubscriber(
	ctx context.Context, onMessage func(projectID uuid.UUID, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, projectChannelPrefix+"*")
	// Wait for the subscription to be confirmed so no event published right after is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to project events: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				projectID, valid := ParseProjectChannel(msg.Channel)
				if !valid {
					middleware.Logger.Warn("invalid project event channel", slog.String("channel", msg.Channel))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in project event subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(projectID, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
