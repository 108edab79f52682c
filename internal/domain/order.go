package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus represents the fulfillment lifecycle state of an order.
// The lifecycle is strictly forward: PENDING -> TOKEN_ISSUED ->
// PROOF_UPLOADED -> NOTIFIED -> COMPLETED.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "PENDING"
	OrderStatusTokenIssued   OrderStatus = "TOKEN_ISSUED"
	OrderStatusProofUploaded OrderStatus = "PROOF_UPLOADED"
	OrderStatusNotified      OrderStatus = "NOTIFIED"
	OrderStatusCompleted     OrderStatus = "COMPLETED"
)

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusTokenIssued, OrderStatusProofUploaded,
		OrderStatusNotified, OrderStatusCompleted:
		return true
	}
	return false
}

func ParseOrderStatusFromString(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid order status %q", ErrValidation, s)
	}
	return st, nil
}

// next maps each status to its only legal successor.
var orderStatusNext = map[OrderStatus]OrderStatus{
	OrderStatusPending:       OrderStatusTokenIssued,
	OrderStatusTokenIssued:   OrderStatusProofUploaded,
	OrderStatusProofUploaded: OrderStatusNotified,
	OrderStatusNotified:      OrderStatusCompleted,
}

// CanTransitionTo reports whether target is the immediate successor of s.
// Skipping states and moving backwards are both disallowed.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	next, ok := orderStatusNext[s]
	return ok && next == target
}

// Order is the unit of work: one delivery whose proof is tracked end to end.
// Phone numbers are held only in encrypted form.
type Order struct {
	ID                      int64
	OrganizationID          int64
	OrderNumber             string
	Context                 *string
	SenderName              string
	SenderPhoneEncrypted    string
	RecipientName           *string
	RecipientPhoneEncrypted *string
	Status                  OrderStatus
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (o *Order) Validate() error {
	if strings.TrimSpace(o.OrderNumber) == "" {
		return fmt.Errorf("%w: order number is required", ErrValidation)
	}
	if strings.TrimSpace(o.SenderName) == "" {
		return fmt.Errorf("%w: sender name is required", ErrValidation)
	}
	if strings.TrimSpace(o.SenderPhoneEncrypted) == "" {
		return fmt.Errorf("%w: sender phone is required", ErrValidation)
	}
	if !o.Status.IsValid() {
		return fmt.Errorf("%w: invalid order status %q", ErrValidation, o.Status)
	}
	return nil
}

// HasRecipient reports whether the order carries a distinct recipient contact.
func (o *Order) HasRecipient() bool {
	return o.RecipientName != nil && strings.TrimSpace(*o.RecipientName) != "" &&
		o.RecipientPhoneEncrypted != nil && strings.TrimSpace(*o.RecipientPhoneEncrypted) != ""
}

// TransitionTo advances the order to target or fails with
// ErrInvalidStateTransition without mutating the order.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, o.Status, target)
	}
	o.Status = target
	return nil
}
