package broker

import (
	"strings"
	"time"
	"unicode/utf8"

	amqp "github.com/rabbitmq/amqp091-go"
)

const contentTypeText = "text/plain"

// delivery interface for testing purposes
type delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type amqpDeliveryAdapter struct {
	amqp.Delivery
}

// Message is a single delivery handed to listeners or returned by Receive.
type Message struct {
	ID            string
	CorrelationID string
	ContentType   string
	Queue         string
	ConsumerTag   string
	Body          []byte
	Headers       amqp.Table
	Timestamp     time.Time
	Redelivered   bool

	amqpDelivery delivery
}

func newMessage(d amqp.Delivery, queue string) Message {
	return Message{
		ID:            d.MessageId,
		CorrelationID: d.CorrelationId,
		ContentType:   d.ContentType,
		Queue:         queue,
		ConsumerTag:   d.ConsumerTag,
		Body:          d.Body,
		Headers:       d.Headers,
		Timestamp:     d.Timestamp,
		Redelivered:   d.Redelivered,
		amqpDelivery:  &amqpDeliveryAdapter{Delivery: d},
	}
}

// IsText reports whether the payload is textual: a text/* (or unset) content type and valid UTF-8.
func (m Message) IsText() bool {
	if m.ContentType != "" && !strings.HasPrefix(m.ContentType, "text/") {
		return false
	}

	return utf8.Valid(m.Body)
}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Body)
}

func (m Message) ack() error {
	if m.amqpDelivery == nil {
		return nil
	}

	return m.amqpDelivery.Ack(false)
}

func (m Message) nack(requeue bool) error {
	if m.amqpDelivery == nil {
		return nil
	}

	return m.amqpDelivery.Nack(false, requeue)
}
