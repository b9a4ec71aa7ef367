package interfaces

import (
	"context"
	"time"
)

// Body holds either an attachment reference or inline base64url data.
type Body struct {
	AttachmentID string
	Data         string
	Size         int64
}

// Payload is one node of a message's MIME structure.
type Payload struct {
	Filename string
	MimeType string
	Body     *Body
	Parts    []*Payload
}

// Part is a flattened Payload node that carried a body.
type Part struct {
	Filename string
	MimeType string
	Body     *Body
}

type Message struct {
	ID      string
	Payload *Payload
}

// SearchQuery describes which statement emails to look for.
type SearchQuery struct {
	From     string
	Subject  string
	FileType string
	After    time.Time
}

type MailClient interface {
	Connect(ctx context.Context) error
	Search(ctx context.Context, q SearchQuery) ([]string, error)
	GetMessage(ctx context.Context, messageID string) (*Message, error)
	// GetAttachment returns the attachment content base64url encoded.
	GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error)
	Close() error
}
