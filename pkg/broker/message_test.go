package broker

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestMessage_IsText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        bool
	}{
		{name: "plain text", contentType: "text/plain", body: []byte("hello"), want: true},
		{name: "unset content type", body: []byte("hello"), want: true},
		{name: "binary content type", contentType: "application/octet-stream", body: []byte("hello"), want: false},
		{name: "invalid utf8", contentType: "text/plain", body: []byte{0xff, 0xfe}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := newMessage(amqp.Delivery{ContentType: tt.contentType, Body: tt.body}, "data")
			assert.Equal(t, tt.want, msg.IsText())
		})
	}
}

func TestMessage_FromDelivery(t *testing.T) {
	t.Parallel()

	msg := newMessage(amqp.Delivery{
		MessageId:     "m-1",
		CorrelationId: "c-1",
		ContentType:   "text/plain",
		ConsumerTag:   "reader-1",
		Redelivered:   true,
		Body:          []byte("hello"),
	}, "data")

	assert.Equal(t, "m-1", msg.ID)
	assert.Equal(t, "c-1", msg.CorrelationID)
	assert.Equal(t, "reader-1", msg.ConsumerTag)
	assert.Equal(t, "data", msg.Queue)
	assert.Equal(t, "hello", msg.Text())
	assert.True(t, msg.Redelivered)
}

func TestMessage_AckWithoutDelivery(t *testing.T) {
	t.Parallel()

	var msg Message

	assert.NoError(t, msg.ack())
	assert.NoError(t, msg.nack(true))
}
