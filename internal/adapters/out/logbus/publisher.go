// Package logbus is an EventPublisher that writes events to the log. It is the
// default transport for local development.
package logbus

import (
	"context"

	"dispatch/internal/core/domain/events"

	"github.com/rs/zerolog"
)

type Publisher struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func NewPublisher(logger zerolog.Logger) *Publisher {
	return &Publisher{
		logger: logger.With().Str("component", "event_log").Logger(),
		level:  zerolog.InfoLevel,
	}
}

func (p *Publisher) Publish(_ context.Context, event events.Event) error {
	p.logger.WithLevel(p.level).
		Str("event", event.Name()).
		Str("key", event.Key()).
		Interface("payload", event).
		Msg("event published")
	return nil
}
