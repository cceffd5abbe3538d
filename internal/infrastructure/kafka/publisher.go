// Package kafka publica eventos de stock confirmados.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const eventTypeStockAdjusted = "stock.adjusted"

var _ inventory.EventPublisher = (*Publisher)(nil)

// messageWriter lo cumple *kafkago.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher escribe un mensaje por ajuste, con el id del ítem como llave para conservar el orden por ítem.
type Publisher struct {
	writer messageWriter
	log    *logger.Logger
}

// NewPublisher crea el writer hacia brokers/topic.
func NewPublisher(brokers []string, topic string, log *logger.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafkago.RequireOne,
	}
	return newPublisher(w, log)
}

func newPublisher(w messageWriter, log *logger.Logger) *Publisher {
	return &Publisher{writer: w, log: log.Component("kafka_publisher")}
}

// PublishStockAdjusted ver inventory.EventPublisher.
func (p *Publisher) PublishStockAdjusted(ctx context.Context, events ...inventory.StockAdjustedEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("serializar evento %s: %w", ev.AdjustmentID, err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(ev.ItemID),
			Value: payload,
			Time:  ev.OccurredAt,
			Headers: []kafkago.Header{
				{Key: "event_type", Value: []byte(eventTypeStockAdjusted)},
				{Key: "status", Value: []byte(ev.Status)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publicar %d eventos: %w", len(msgs), err)
	}
	p.log.Debug().Int("events", len(msgs)).Msg("eventos de stock publicados")
	return nil
}

// Close vacía y cierra el writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
