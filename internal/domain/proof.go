package domain

import "time"

// Proof is the uploaded evidence artifact, at most one per order. Rows are
// written by the upload handler; this core only reads them to gate dispatch.
type Proof struct {
	ID         int64
	OrderID    int64
	FilePath   string
	FileSize   *int64
	MimeType   *string
	UploadedAt time.Time
}
