package queue

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeAcknowledger records the single ack/nack/reject decision made for a
// delivery.
type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	rejected bool
	requeued bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.rejected = true
	f.requeued = requeue
	return nil
}

func newTestDelivery(body string, redelivered bool) (amqp.Delivery, *fakeAcknowledger) {
	ack := &fakeAcknowledger{}
	return amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(body),
		Redelivered:  redelivered,
	}, ack
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(&RabbitMQ{}, 1, nil)
	d, ack := newTestDelivery(`{"orderId":7,"correlationId":"cid-1"}`, false)

	var got DispatchMessage
	err := c.handleDelivery(context.Background(), d, func(ctx context.Context, msg DispatchMessage) error {
		got = msg
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if got.OrderID != 7 || got.CorrelationID != "cid-1" {
		t.Fatalf("handler got %+v", got)
	}
	if !ack.acked || ack.nacked || ack.rejected {
		t.Fatalf("ack state = %+v, want plain ack", ack)
	}
}

func TestHandleDeliveryDeadLettersBadJSON(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(&RabbitMQ{}, 1, nil)
	d, ack := newTestDelivery(`{not json`, false)

	err := c.handleDelivery(context.Background(), d, func(ctx context.Context, msg DispatchMessage) error {
		t.Fatal("handler must not run for undecodable payloads")
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if !ack.rejected || ack.requeued {
		t.Fatalf("ack state = %+v, want reject without requeue", ack)
	}
}

func TestHandleDeliveryDeadLettersInvalidPayload(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(&RabbitMQ{}, 1, nil)
	d, ack := newTestDelivery(`{"orderId":0}`, false)

	err := c.handleDelivery(context.Background(), d, func(ctx context.Context, msg DispatchMessage) error {
		t.Fatal("handler must not run for invalid payloads")
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if !ack.rejected || ack.requeued {
		t.Fatalf("ack state = %+v, want reject without requeue", ack)
	}
}

func TestHandleDeliveryRequeuesFirstFailure(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(&RabbitMQ{}, 1, nil)
	d, ack := newTestDelivery(`{"orderId":7}`, false)

	err := c.handleDelivery(context.Background(), d, func(ctx context.Context, msg DispatchMessage) error {
		return errors.New("provider unavailable")
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if !ack.nacked || !ack.requeued {
		t.Fatalf("ack state = %+v, want nack with requeue", ack)
	}
	if ack.acked || ack.rejected {
		t.Fatalf("ack state = %+v, only a requeue may happen", ack)
	}
}

func TestHandleDeliveryDeadLettersRedeliveredFailure(t *testing.T) {
	t.Parallel()

	c := NewRabbitMQConsumer(&RabbitMQ{}, 1, nil)
	d, ack := newTestDelivery(`{"orderId":7}`, true)

	err := c.handleDelivery(context.Background(), d, func(ctx context.Context, msg DispatchMessage) error {
		return errors.New("provider unavailable")
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if !ack.rejected || ack.requeued {
		t.Fatalf("ack state = %+v, want dead-letter on second failure", ack)
	}
	if ack.nacked {
		t.Fatalf("ack state = %+v, must not requeue a redelivered failure", ack)
	}
}
