package imapmail

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perarneng/getstatements/pkg/filter"
	"github.com/perarneng/getstatements/pkg/interfaces"
	"github.com/perarneng/getstatements/pkg/logger"
	"github.com/perarneng/getstatements/pkg/parts"
)

const statementEmail = "From: Emailstatements.cards@hdfcbank.net\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Diners Club International Credit Card Statement\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Your statement is attached.\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Your statement is attached.</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/octet-stream; name=\"Statement_Oct.pdf\"\r\n" +
	"Content-Disposition: attachment; filename=\"Statement_Oct.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjcKJeLjz9MK\r\n" +
	"--outer--\r\n"

func TestParsePayload(t *testing.T) {
	root, err := parsePayload([]byte(statementEmail))
	require.NoError(t, err)

	assert.Equal(t, "multipart/mixed", root.MimeType)
	assert.Nil(t, root.Body)
	require.Len(t, root.Parts, 2)

	alt := root.Parts[0]
	assert.Equal(t, "multipart/alternative", alt.MimeType)
	require.Len(t, alt.Parts, 2)
	assert.Equal(t, "text/plain", alt.Parts[0].MimeType)
	assert.Equal(t, "text/html", alt.Parts[1].MimeType)

	att := root.Parts[1]
	assert.Equal(t, "Statement_Oct.pdf", att.Filename)
	assert.Equal(t, "application/octet-stream", att.MimeType)
	require.NotNil(t, att.Body)
	data, err := base64.URLEncoding.DecodeString(att.Body.Data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-1.7"))
	assert.Equal(t, int64(len(data)), att.Body.Size)

	flat := parts.Flatten(root)
	assert.Len(t, flat, 3)
	accepted := 0
	for _, p := range flat {
		if filter.ForBank("hdfc").Accepts(p) {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestParsePayload_SinglePart(t *testing.T) {
	raw := "Subject: hi\r\nContent-Type: text/plain\r\n\r\nhello"

	root, err := parsePayload([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "text/plain", root.MimeType)
	require.NotNil(t, root.Body)
	assert.Equal(t, int64(5), root.Body.Size)
	assert.Empty(t, root.Parts)
}

func TestSearchCriteria(t *testing.T) {
	after := time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC)

	c := searchCriteria(interfaces.SearchQuery{From: "noreply@icicibank.com", Subject: "Statement", FileType: "pdf", After: after})

	assert.Equal(t, after, c.Since)
	require.Len(t, c.Header, 2)
	assert.Equal(t, "From", c.Header[0].Key)
	assert.Equal(t, "noreply@icicibank.com", c.Header[0].Value)
	assert.Equal(t, "Subject", c.Header[1].Key)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Options{Host: "imap.example.com", TLS: true}, logger.Discard()).(*Client)
	assert.Equal(t, 993, c.opts.Port)
	assert.Equal(t, "INBOX", c.opts.Mailbox)

	c = NewClient(Options{Host: "imap.example.com"}, logger.Discard()).(*Client)
	assert.Equal(t, 143, c.opts.Port)
}

func TestNotConnected(t *testing.T) {
	c := NewClient(Options{Host: "imap.example.com"}, logger.Discard())
	ctx := context.Background()

	_, err := c.Search(ctx, interfaces.SearchQuery{})
	assert.Error(t, err)
	_, err = c.GetMessage(ctx, "42")
	assert.Error(t, err)
	_, err = c.GetAttachment(ctx, "42", "x")
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}
