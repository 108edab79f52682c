package queue

import "fmt"

// DispatchMessage is the broker payload for a dispatch cycle. The worker
// reloads the order from the database so the payload stays minimal.
type DispatchMessage struct {
	OrderID       int64  `json:"orderId"`
	Resend        bool   `json:"resend,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func (m DispatchMessage) Validate() error {
	if m.OrderID <= 0 {
		return fmt.Errorf("orderId must be positive, got %d", m.OrderID)
	}
	return nil
}
