package domain

import "time"

// TokenLength is the fixed length of an opaque QR access token.
const TokenLength = 32

// QRToken is the opaque bearer credential granting upload/view access for
// exactly one order. At most one row exists per order at any time.
type QRToken struct {
	ID        int64
	Token     string
	OrderID   int64
	IsValid   bool
	CreatedAt time.Time
	RevokedAt *time.Time
}
