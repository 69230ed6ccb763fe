package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"report-service/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	declares   []string
	published  []amqp.Publishing
	keys       []string
	declareErr error
	publishErr error
}

func (c *recordingChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.declares = append(c.declares, name)
	return amqp.Queue{Name: name}, c.declareErr
}

func (c *recordingChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func sampleEvent() ReportExportedEvent {
	return ReportExportedEvent{
		ReportID:    "FARM-PB610-MU-20241118",
		FarmName:    "Punjab Mustard Farm #610",
		HealthScore: 68,
		HealthLabel: "MODERATE",
		Formats:     []string{"pdf", "csv"},
		ExportedAt:  "2024-11-18T09:30:00Z",
	}
}

// ============================================================================
// TEST SUITE 1: PUBLISHING
// ============================================================================

func TestPublishReportExported_DeclaresOnceAndPublishesJSON(t *testing.T) {
	ch := &recordingChannel{}
	p := newExportPublisher(ch, "")

	require.NoError(t, p.PublishReportExported(context.Background(), sampleEvent()))
	require.NoError(t, p.PublishReportExported(context.Background(), sampleEvent()))

	assert.Equal(t, []string{DefaultExportQueue}, ch.declares)
	assert.Equal(t, []string{DefaultExportQueue, DefaultExportQueue}, ch.keys)

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "FARM-PB610-MU-20241118", msg.MessageId)

	var decoded ReportExportedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, sampleEvent(), decoded)

	published, failed, _ := p.GetStats()
	assert.Equal(t, int64(2), published)
	assert.Zero(t, failed)
}

func TestPublishReportExported_Failures(t *testing.T) {
	ch := &recordingChannel{declareErr: errors.New("access refused")}
	p := newExportPublisher(ch, "exports")

	err := p.PublishReportExported(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "failed to declare queue")

	ch.declareErr = nil
	ch.publishErr = errors.New("channel closed")
	err = p.PublishReportExported(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "channel closed")

	_, failed, _ := p.GetStats()
	assert.Equal(t, int64(2), failed)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.PublishReportExported(context.Background(), sampleEvent()))
}

// ============================================================================
// TEST SUITE 2: CONNECTION URL
// ============================================================================

func TestConnectionURL(t *testing.T) {
	uri, err := amqp.ParseURI(ConnectionURL(config.RabbitMQConfig{
		Username: "admin",
		Password: "secret",
		Host:     "rabbitmq",
		Port:     "5673",
	}))

	require.NoError(t, err)
	assert.Equal(t, "rabbitmq", uri.Host)
	assert.Equal(t, 5673, uri.Port)
	assert.Equal(t, "admin", uri.Username)
	assert.Equal(t, "secret", uri.Password)

	uri, err = amqp.ParseURI(ConnectionURL(config.RabbitMQConfig{Username: "u", Password: "p", Host: "mq", Port: "bad"}))
	require.NoError(t, err)
	assert.Equal(t, 5672, uri.Port)
}
