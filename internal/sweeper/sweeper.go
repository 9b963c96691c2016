package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"meetup-service/internal/models"
	"meetup-service/internal/observability"
	"meetup-service/internal/rabbitmq"
	"meetup-service/internal/repositories"
)

// Sweeper periodically expires pending and accepted meetups older than the
// TTL. Expiry is a bulk conditional update, so overlapping runs or restarts
// never double-expire a row.
type Sweeper struct {
	meetupRepo repositories.MeetupRepository
	notifRepo  repositories.NotificationRepository
	publisher  rabbitmq.Publisher
	ttl        time.Duration
	interval   time.Duration
}

// New constructs a Sweeper.
func New(meetupRepo repositories.MeetupRepository, notifRepo repositories.NotificationRepository, publisher rabbitmq.Publisher, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		meetupRepo: meetupRepo,
		notifRepo:  notifRepo,
		publisher:  publisher,
		ttl:        ttl,
		interval:   interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled. The first
// sweep happens immediately so a restart catches up on anything that lapsed
// while the service was down.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	observability.IncSweepRun()

	expired, err := s.meetupRepo.ExpireStale(ctx, time.Now().Add(-s.ttl))
	if err != nil {
		log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if len(expired) == 0 {
		return
	}

	observability.AddSweepExpired(len(expired))
	log.Info().Int("count", len(expired)).Msg("expired stale meetups")

	for _, meetup := range expired {
		s.notifyParties(ctx, meetup)
		envelope := observability.EventEnvelope{
			EventType: "meetup_events",
			EventName: "expired",
			Payload:   meetup,
		}
		if err := s.publisher.Publish(ctx, "meetups.expired", envelope, nil); err != nil {
			log.Warn().Err(err).Int("meetup_id", meetup.ID).Msg("expiry event publish failed")
		}
		observability.IncMeetupTransition(models.MeetupExpired)
	}
}

func (s *Sweeper) notifyParties(ctx context.Context, meetup models.Meetup) {
	content := fmt.Sprintf("Your meetup for listing %d expired", meetup.ListingID)
	for _, userID := range []int{meetup.RequesterID, meetup.ReceiverID} {
		if _, err := s.notifRepo.Create(ctx, userID, models.NotificationMeetup, content); err != nil {
			log.Warn().Err(err).Int("meetup_id", meetup.ID).Int("user_id", userID).Msg("expiry notification failed")
		}
	}
}
