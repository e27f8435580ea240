// Package events publishes media status transitions for downstream
// consumers. Publishing is best-effort: a broker outage is logged, never
// surfaced into the pipeline.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"clipstream/server/internal/models"
)

type StatusChanged struct {
	EventID    uuid.UUID          `json:"event_id"`
	MediaID    string             `json:"media_id"`
	TenantID   string             `json:"tenant_id"`
	From       models.MediaStatus `json:"from"`
	To         models.MediaStatus `json:"to"`
	OccurredAt time.Time          `json:"occurred_at"`
}

type Producer struct {
	writer *kafkago.Writer
	log    zerolog.Logger
}

// NewProducer returns nil when no brokers are configured; a nil Producer
// drops events silently.
func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	return &Producer{
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkago.LeastBytes{},
		},
		log: log.With().Str("component", "events").Logger(),
	}
}

func (p *Producer) StatusChanged(ctx context.Context, m models.Media, from, to models.MediaStatus) {
	if p == nil {
		return
	}

	event := StatusChanged{
		EventID:    uuid.New(),
		MediaID:    m.ID,
		TenantID:   m.TenantID,
		From:       from,
		To:         to,
		OccurredAt: time.Now(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("media_id", m.ID).Msg("marshal status event")
		return
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(m.ID),
		Value: value,
	}); err != nil {
		p.log.Error().Err(err).Str("media_id", m.ID).Msg("publish status event")
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
