package testutil

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

// Mail is an in-memory mailbox keyed by message ID.
type Mail struct {
	IDs         []string
	Messages    map[string]*interfaces.Payload
	Attachments map[string][]byte
	SearchErr   error
	Queries     []interfaces.SearchQuery
	Fetches     int
	// AttachmentCalls counts GetAttachment requests.
	AttachmentCalls int
}

func NewMail() *Mail {
	return &Mail{
		Messages:    make(map[string]*interfaces.Payload),
		Attachments: make(map[string][]byte),
	}
}

// AddAttachmentMessage registers a message whose single attachment is fetched by ID.
func (m *Mail) AddAttachmentMessage(id, filename, mimeType string, data []byte) {
	attID := "att-" + id
	m.IDs = append(m.IDs, id)
	m.Attachments[attID] = data
	m.Messages[id] = &interfaces.Payload{
		MimeType: "multipart/mixed",
		Parts: []*interfaces.Payload{
			{MimeType: "text/plain", Body: &interfaces.Body{Data: base64.URLEncoding.EncodeToString([]byte("Your statement is attached"))}},
			{Filename: filename, MimeType: mimeType, Body: &interfaces.Body{AttachmentID: attID, Size: int64(len(data))}},
		},
	}
}

func (m *Mail) Connect(context.Context) error { return nil }

func (m *Mail) Search(_ context.Context, q interfaces.SearchQuery) ([]string, error) {
	m.Queries = append(m.Queries, q)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return append([]string(nil), m.IDs...), nil
}

func (m *Mail) GetMessage(_ context.Context, id string) (*interfaces.Message, error) {
	m.Fetches++
	payload, ok := m.Messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return &interfaces.Message{ID: id, Payload: payload}, nil
}

func (m *Mail) GetAttachment(_ context.Context, _, attachmentID string) (string, error) {
	m.AttachmentCalls++
	data, ok := m.Attachments[attachmentID]
	if !ok {
		return "", fmt.Errorf("attachment %s not found", attachmentID)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

func (m *Mail) Close() error { return nil }
