package domain

import "time"

const (
	// ShortCodeLength is the fixed length of a public short code.
	ShortCodeLength = 8

	// DefaultShortLinkTargetPath is the web path a short link resolves to.
	DefaultShortLinkTargetPath = "/p"
)

// ShortLink maps a public low-entropy code to an order's token-protected
// proof page. One short link exists per order; the click counter only grows.
type ShortLink struct {
	ID            int64
	Code          string
	OrderID       int64
	TargetToken   string
	TargetPath    string
	ClickCount    int
	LastClickedAt *time.Time
	CreatedAt     time.Time
}
