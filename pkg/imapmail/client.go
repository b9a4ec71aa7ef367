// Package imapmail reads statement emails from an IMAP mailbox.
package imapmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

const dialTimeout = 10 * time.Second

// Options describes the IMAP account.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	TLS      bool
}

type Client struct {
	opts   Options
	client *imapclient.Client
	logger interfaces.Logger
}

func NewClient(opts Options, logger interfaces.Logger) interfaces.MailClient {
	if opts.Mailbox == "" {
		opts.Mailbox = "INBOX"
	}
	if opts.Port == 0 {
		opts.Port = 993
		if !opts.TLS {
			opts.Port = 143
		}
	}
	return &Client{opts: opts, logger: logger}
}

func (c *Client) Connect(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port)
	options := &imapclient.Options{Dialer: &net.Dialer{Timeout: dialTimeout}}

	var client *imapclient.Client
	var err error
	if c.opts.TLS {
		client, err = imapclient.DialTLS(addr, options)
	} else {
		client, err = imapclient.DialStartTLS(addr, options)
	}
	if err != nil {
		return fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.opts.Username, c.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return fmt.Errorf("authentication failed for %s: %w", c.opts.Username, err)
	}

	if _, err := client.Select(c.opts.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		_ = client.Logout().Wait()
		return fmt.Errorf("selecting %s: %w", c.opts.Mailbox, err)
	}

	c.logger.Debug(fmt.Sprintf("Connected to %s as %s", addr, c.opts.Username))
	c.client = client
	return nil
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	client := c.client
	c.client = nil
	if err := client.Logout().Wait(); err != nil {
		_ = client.Close()
		return fmt.Errorf("imap logout: %w", err)
	}
	return client.Close()
}

// Search maps the query onto SEARCH FROM/SUBJECT/SINCE. IMAP cannot filter
// by attachment name, so that part is left to the attachment filter.
func (c *Client) Search(_ context.Context, q interfaces.SearchQuery) ([]string, error) {
	if c.client == nil {
		return nil, errors.New("imap client not connected")
	}

	data, err := c.client.UIDSearch(searchCriteria(q), nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	uids := data.AllUIDs()
	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

func (c *Client) GetMessage(_ context.Context, messageID string) (*interfaces.Message, error) {
	if c.client == nil {
		return nil, errors.New("imap client not connected")
	}

	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", messageID, err)
	}

	section := &imap.FetchItemBodySection{Peek: true}
	buffers, err := c.client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch %s: %w", messageID, err)
	}
	if len(buffers) == 0 {
		return nil, fmt.Errorf("message UID %s not found", messageID)
	}

	raw := buffers[0].FindBodySection(section)
	if raw == nil {
		return nil, fmt.Errorf("message UID %s has no body", messageID)
	}

	payload, err := parsePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing message %s: %w", messageID, err)
	}
	return &interfaces.Message{ID: messageID, Payload: payload}, nil
}

// GetAttachment is never needed: parsed payloads carry their data inline.
func (c *Client) GetAttachment(context.Context, string, string) (string, error) {
	return "", errors.New("imap: attachments are delivered inline")
}

func searchCriteria(q interfaces.SearchQuery) *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{Since: q.After}
	if q.From != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{Key: "From", Value: q.From})
	}
	if q.Subject != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{Key: "Subject", Value: q.Subject})
	}
	return criteria
}

// parsePayload turns an RFC 5322 message into a payload tree. Multipart
// readers are kept on an explicit stack and consumed in document order.
func parsePayload(raw []byte) (*interfaces.Payload, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, err
	}

	type frame struct {
		mr   message.MultipartReader
		node *interfaces.Payload
	}

	root := describe(entity)
	var stack []frame
	if mr := entity.MultipartReader(); mr != nil {
		stack = append(stack, frame{mr: mr, node: root})
	} else if err := readBody(entity, root); err != nil {
		return nil, err
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		child, err := top.mr.NextPart()
		if errors.Is(err, io.EOF) {
			stack = stack[:len(stack)-1]
			continue
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return nil, err
		}

		node := describe(child)
		top.node.Parts = append(top.node.Parts, node)

		if mr := child.MultipartReader(); mr != nil {
			stack = append(stack, frame{mr: mr, node: node})
			continue
		}
		if err := readBody(child, node); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func describe(e *message.Entity) *interfaces.Payload {
	mediaType, params, err := e.Header.ContentType()
	if err != nil {
		// keep whatever precedes the broken parameters
		raw := e.Header.Get("Content-Type")
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(raw, ";", 2)[0]))
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}

	h := mail.AttachmentHeader{Header: e.Header}
	filename, err := h.Filename()
	if err != nil || filename == "" {
		filename = params["name"]
	}
	return &interfaces.Payload{Filename: filename, MimeType: mediaType}
}

func readBody(e *message.Entity, node *interfaces.Payload) error {
	data, err := io.ReadAll(e.Body)
	if err != nil {
		return fmt.Errorf("reading part body: %w", err)
	}
	node.Body = &interfaces.Body{
		Data: base64.URLEncoding.EncodeToString(data),
		Size: int64(len(data)),
	}
	return nil
}
