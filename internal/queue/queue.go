package queue

import "context"

// DispatchQueueName is the work queue for order notification dispatch.
const DispatchQueueName = "dispatch.order"

// DispatchDLQName is the dead-letter queue for dispatch messages that
// were rejected as unparseable or invalid.
const DispatchDLQName = "dlq.dispatch.order"

// Publisher publishes dispatch messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DispatchMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg DispatchMessage) error

// Consumer consumes dispatch messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
