package service

import (
	"context"

	"github.com/Skotchmaster/community_shop/internal/events"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

// publish is best-effort; failures are only logged.
func publish(ctx context.Context, pub events.Publisher, topic, key, eventType string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(ctx, topic, key, events.New(eventType, payload)); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", eventType, "error", err)
	}
}
