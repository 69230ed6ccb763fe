package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"report-service/internal/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher announces generated reports.
type Publisher interface {
	PublishReportExported(ctx context.Context, event ReportExportedEvent) error
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ExportPublisher publishes export events to a durable RabbitMQ queue.
type ExportPublisher struct {
	ch    amqpChannel
	queue string

	mu                sync.Mutex
	declared          bool
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

func NewExportPublisher(conn *RabbitMQConnection, queue string) *ExportPublisher {
	return newExportPublisher(conn.Channel, queue)
}

func newExportPublisher(ch amqpChannel, queue string) *ExportPublisher {
	if queue == "" {
		queue = DefaultExportQueue
	}
	return &ExportPublisher{ch: ch, queue: queue}
}

func (p *ExportPublisher) PublishReportExported(ctx context.Context, event ReportExportedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.publish(ctx, event); err != nil {
		p.messagesFailed++
		metrics.EventPublishErrorTotal.Inc()
		return err
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()

	slog.Info("Report export event published",
		"queue", p.queue,
		"report_id", event.ReportID,
		"formats", event.Formats)
	return nil
}

func (p *ExportPublisher) publish(ctx context.Context, event ReportExportedEvent) error {
	if !p.declared {
		_, err := p.ch.QueueDeclare(
			p.queue, // queue name
			true,    // durable
			false,   // delete when unused
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue: %w", err)
		}
		p.declared = true
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal export event: %w", err)
	}

	err = p.ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    event.ReportID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish export event: %w", err)
	}
	return nil
}

// GetStats returns published and failed message counts.
func (p *ExportPublisher) GetStats() (published, failed int64, lastPublish time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messagesPublished, p.messagesFailed, p.lastPublishTime
}

// NoopPublisher is used when RabbitMQ is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishReportExported(_ context.Context, event ReportExportedEvent) error {
	slog.Debug("Export event publishing disabled", "report_id", event.ReportID)
	return nil
}
