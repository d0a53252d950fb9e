// Package realtime publishes parsed RT/TS-family rows to Kafka immediately
// after the Ingest Writer commits them, giving realtime/time-series
// consumers a low-latency side channel without making Kafka delivery a
// precondition for the write itself succeeding.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jravan/ingest/internal/jvrecord"
)

// Event is the wire shape of one realtime publish.
type Event struct {
	Table     string            `json:"table"`
	HassoTime string            `json:"hasso_time"`
	Row       map[string]string `json:"row"`
}

// Publisher publishes one Event per parsed RT/TS row. Safe for concurrent use.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a Publisher writing to topic across brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 100 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish emits one event for table/row. Tables outside the RT/TS families
// are silently ignored; the Ingest Writer itself only passes RT_ and TS_
// rows to Publish after a successful flush.
func (p *Publisher) Publish(ctx context.Context, table string, row jvrecord.Row) error {
	if !isRealtimeFamily(table) {
		return nil
	}

	payload, err := json.Marshal(Event{
		Table:     table,
		HassoTime: row["HassoTime"],
		Row:       map[string]string(row),
	})
	if err != nil {
		return fmt.Errorf("realtime: encoding event for %s: %w", table, err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(table), Value: payload}); err != nil {
		return fmt.Errorf("realtime: publishing event for %s: %w", table, err)
	}

	return nil
}

// Close flushes and closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("realtime: closing publisher: %w", err)
	}

	return nil
}

func isRealtimeFamily(table string) bool {
	return strings.HasPrefix(table, "RT_") || strings.HasPrefix(table, "TS_")
}
