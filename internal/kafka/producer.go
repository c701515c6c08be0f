package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	EventCustomerCreated     = "customer.created"
	EventCustomerUpdated     = "customer.updated"
	EventCustomerDeleted     = "customer.deleted"
	EventTicketCreated       = "ticket.created"
	EventTicketUpdated       = "ticket.updated"
	EventTicketStatusChanged = "ticket.status_changed"
	EventTicketDeleted       = "ticket.deleted"
	// EventOrphanedLead — клиент создан импортом, но тикет не сохранился.
	EventOrphanedLead = "import.orphaned_lead"
)

// EventProducer — интерфейс для отправки доменных событий в Kafka (для подмены моком в тестах).
type EventProducer interface {
	Produce(ctx context.Context, event, key string, payload any)
}

// Producer пишет события клиентов и тикетов в топик Kafka (best-effort, не блокирует API).
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    logrus.FieldLogger
}

// NewProducer создаёт продюсер. Если brokers пустой или topic пустой — методы no-op.
func NewProducer(brokers []string, topic string, log logrus.FieldLogger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{log: log}
	}
	return &Producer{
		topic: topic,
		log:   log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Enabled() bool {
	return p.writer != nil
}

type envelope struct {
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Produce отправляет событие; key (id сущности) задаёт партицию, события одной сущности упорядочены.
func (p *Producer) Produce(ctx context.Context, event, key string, payload any) {
	if p.writer == nil {
		return
	}
	body, err := json.Marshal(envelope{Event: event, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		p.log.WithError(err).WithField("event", event).Error("kafka: marshal event")
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		p.log.WithError(err).WithField("event", event).Warn("kafka: write event")
	}
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Async отправляет событие в фоне: событие должно уйти даже при отмене запроса, но с таймаутом.
func Async(p EventProducer, event, key string, payload any) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p.Produce(ctx, event, key, payload)
	}()
}
