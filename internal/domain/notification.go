package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType is the send direction relative to the order.
type NotificationType string

const (
	NotificationSender    NotificationType = "SENDER"
	NotificationRecipient NotificationType = "RECIPIENT"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationSender, NotificationRecipient:
		return true
	}
	return false
}

// NotificationChannel is the delivery channel of the final attempt.
type NotificationChannel string

const (
	ChannelAlimtalk NotificationChannel = "ALIMTALK"
	ChannelSMS      NotificationChannel = "SMS"
)

func (c NotificationChannel) String() string { return string(c) }

func (c NotificationChannel) IsValid() bool {
	switch c {
	case ChannelAlimtalk, ChannelSMS:
		return true
	}
	return false
}

func ParseNotificationChannelFromString(s string) (NotificationChannel, error) {
	ch := NotificationChannel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// NotificationStatus is the outcome of one send attempt.
type NotificationStatus string

const (
	NotificationPending      NotificationStatus = "PENDING"
	NotificationSent         NotificationStatus = "SENT"
	NotificationFailed       NotificationStatus = "FAILED"
	NotificationFallbackSent NotificationStatus = "FALLBACK_SENT"
	NotificationMockSent     NotificationStatus = "MOCK_SENT"
)

func (s NotificationStatus) String() string { return string(s) }

func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationPending, NotificationSent, NotificationFailed,
		NotificationFallbackSent, NotificationMockSent:
		return true
	}
	return false
}

// Notification is one persisted send outcome for an (order, direction) pair
// within a dispatch cycle. The destination phone is stored only as a one-way
// hash. Rows are written once by the dispatcher and never updated.
type Notification struct {
	ID                int64
	OrderID           int64
	Type              NotificationType
	Channel           NotificationChannel
	Status            NotificationStatus
	PhoneHash         string
	ProviderRequestID *string
	ProviderResponse  *string
	MessageURL        *string
	ErrorCode         *string
	ErrorMessage      *string
	CreatedAt         time.Time
	SentAt            *time.Time
}

func (n *Notification) Validate() error {
	if n.OrderID == 0 {
		return fmt.Errorf("%w: order id is required", ErrValidation)
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("%w: invalid notification type %q", ErrValidation, n.Type)
	}
	if !n.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, n.Channel)
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, n.Status)
	}
	if strings.TrimSpace(n.PhoneHash) == "" {
		return fmt.Errorf("%w: phone hash is required", ErrValidation)
	}
	return nil
}
