package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"meetup-service/internal/models"
	"meetup-service/internal/observability"
	"meetup-service/internal/rabbitmq"
)

// MessageAlert is the at-most-once-per-increase alert emitted to the broker
// for external consumers (push relays, analytics).
type MessageAlert struct {
	UserID       int                  `json:"user_id"`
	UnreadCount  int                  `json:"unread_count"`
	LatestUnread *models.LatestUnread `json:"latest_unread,omitempty"`
}

// Forwarder bridges the in-process change feed to the broker: it observes
// unread snapshots through a Detector and publishes exactly one alert per
// detected increase.
type Forwarder struct {
	hub       *Hub
	detector  *Detector
	publisher rabbitmq.Publisher
}

// NewForwarder constructs a Forwarder.
func NewForwarder(hub *Hub, publisher rabbitmq.Publisher) *Forwarder {
	return &Forwarder{hub: hub, detector: NewDetector(), publisher: publisher}
}

// Run consumes the feed until the context is cancelled.
func (f *Forwarder) Run(ctx context.Context) {
	ch := f.hub.Subscribe()
	defer f.hub.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if !f.detector.Observe(event.UserID, event.Snapshot.UnreadCount) {
				continue
			}
			observability.IncUnreadAlert()
			alert := MessageAlert{
				UserID:       event.UserID,
				UnreadCount:  event.Snapshot.UnreadCount,
				LatestUnread: event.Snapshot.LatestUnread,
			}
			envelope := observability.EventEnvelope{
				EventType: "notification_events",
				EventName: "message_alert",
				Payload:   alert,
			}
			if err := f.publisher.Publish(ctx, "notifications.message_alert", envelope, nil); err != nil {
				log.Warn().Err(err).Int("user_id", event.UserID).Msg("message alert publish failed")
			}
		}
	}
}
