package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyrooms-api/internal/dto"
)

// EventPublisher delivers realtime notifications to room subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event dto.RealtimeEvent) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, dto.RealtimeEvent) error { return nil }

// emitter stamps events and logs publish failures; a failed publish never fails the write that caused it.
type emitter struct {
	events EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

func newEmitter(events EventPublisher, logger zerolog.Logger) emitter {
	if events == nil {
		events = NopPublisher{}
	}
	return emitter{events: events, logger: logger, now: time.Now}
}

func (e emitter) emit(ctx context.Context, event dto.RealtimeEvent) {
	event.ID = uuid.NewString()
	event.Timestamp = e.now().UTC()
	if err := e.events.Publish(ctx, event); err != nil {
		e.logger.Warn().Err(err).Str("event_type", event.Type).Str("room_id", event.RoomID).Msg("failed to publish realtime event")
	}
}
