// Package export streams per-space metric samples to Kafka for the backend
// service that will eventually supersede the mock engine.
package export

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"ems_simulator/internal/model"
)

// Sample is the wire record for one space's metrics at one tick.
type Sample struct {
	SpaceID   string             `json:"spaceId"`
	SpaceType model.SpaceType    `json:"spaceType"`
	Timestamp time.Time          `json:"timestamp"`
	Metrics   model.SpaceMetrics `json:"metrics"`
}

// Publisher writes samples to a Kafka topic, keyed by space id so each
// space's samples stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer

	// OnPublish and OnError, when set, receive accounting callbacks.
	OnPublish func()
	OnError   func()
}

// NewPublisher builds a publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// PublishSpaces writes one sample per space. Failures are logged and
// counted, not propagated; telemetry export must never stall the tick.
func (p *Publisher) PublishSpaces(ctx context.Context, t time.Time, spaces []model.HierarchicalSpace) {
	msgs := make([]kafka.Message, 0, len(spaces))
	for i := range spaces {
		sample := Sample{
			SpaceID:   spaces[i].ID,
			SpaceType: spaces[i].Type,
			Timestamp: t,
			Metrics:   spaces[i].Metrics,
		}
		b, err := json.Marshal(sample)
		if err != nil {
			log.Printf("export: marshal failed for %s: %v", sample.SpaceID, err)
			continue
		}
		msgs = append(msgs, kafka.Message{Key: []byte(sample.SpaceID), Value: b, Time: t})
	}
	if len(msgs) == 0 {
		return
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		log.Printf("export: kafka write failed: %v", err)
		if p.OnError != nil {
			p.OnError()
		}
		return
	}
	if p.OnPublish != nil {
		p.OnPublish()
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
