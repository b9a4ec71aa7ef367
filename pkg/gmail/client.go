package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/perarneng/getstatements/pkg/interfaces"
	"github.com/perarneng/getstatements/pkg/query"
)

const (
	pageSize     = 500
	callTimeout  = 45 * time.Second
	retryBackoff = 2 * time.Second
)

type Client struct {
	service         *gmail.Service
	userID          string
	credentialsFile string
	tokenFile       string
	backoff         time.Duration
	logger          interfaces.Logger
}

func NewClient(credentialsFile, tokenFile string, logger interfaces.Logger) interfaces.MailClient {
	return &Client{
		userID:          "me",
		credentialsFile: credentialsFile,
		tokenFile:       tokenFile,
		backoff:         retryBackoff,
		logger:          logger,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	b, err := os.ReadFile(c.credentialsFile)
	if err != nil {
		return fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	tok, err := c.tokenFromFile(c.tokenFile)
	if err != nil {
		// No cached token, run the browser flow
		tok, err = c.getTokenFromWeb(ctx, config)
		if err != nil {
			return fmt.Errorf("unable to get token from web: %w", err)
		}
		if err := c.saveToken(c.tokenFile, tok); err != nil {
			c.logger.Warn(fmt.Sprintf("Unable to cache oauth token: %v", err))
		}
	}

	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}

	// Wrap the HTTP client with OAuth2
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	client := config.Client(ctx, tok)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("unable to retrieve Gmail client: %w", err)
	}

	c.service = srv
	return nil
}

func (c *Client) Close() error {
	c.service = nil
	return nil
}

func (c *Client) tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func (c *Client) saveToken(path string, token *oauth2.Token) error {
	c.logger.Info(fmt.Sprintf("Saving credential file to: %s", path))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Search returns the IDs of all messages matching q, following every page.
func (c *Client) Search(ctx context.Context, q interfaces.SearchQuery) ([]string, error) {
	if c.service == nil {
		return nil, errors.New("gmail service not connected")
	}

	expr := query.Expression(q)
	var ids []string
	pageToken := ""
	for {
		call := c.service.Users.Messages.List(c.userID).Q(expr).MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmail.ListMessagesResponse
		err := c.withRetry(ctx, "listing messages", func(ctx context.Context) error {
			var err error
			resp, err = call.Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (c *Client) GetMessage(ctx context.Context, messageID string) (*interfaces.Message, error) {
	if c.service == nil {
		return nil, errors.New("gmail service not connected")
	}

	var msg *gmail.Message
	err := c.withRetry(ctx, "retrieving message "+messageID, func(ctx context.Context) error {
		var err error
		msg, err = c.service.Users.Messages.Get(c.userID, messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	return &interfaces.Message{ID: msg.Id, Payload: convertPayload(msg.Payload)}, nil
}

func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	if c.service == nil {
		return "", errors.New("gmail service not connected")
	}

	var body *gmail.MessagePartBody
	err := c.withRetry(ctx, "downloading attachment", func(ctx context.Context) error {
		var err error
		body, err = c.service.Users.Messages.Attachments.Get(c.userID, messageID, attachmentID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return body.Data, nil
}

// withRetry runs fn with a per-call timeout and retries once on transient errors.
func (c *Client) withRetry(ctx context.Context, what string, fn func(context.Context) error) error {
	call := func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		return fn(callCtx)
	}

	err := call()
	if err == nil {
		return nil
	}
	if !isRetryableError(err) {
		return fmt.Errorf("%s: %w", what, err)
	}

	c.logger.Debug(fmt.Sprintf("Retrying %s after: %v", what, err))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.backoff):
	}
	if err := call(); err != nil {
		return fmt.Errorf("%s after retry: %w", what, err)
	}
	return nil
}

// convertPayload copies the API's part tree without recursing.
func convertPayload(root *gmail.MessagePart) *interfaces.Payload {
	if root == nil {
		return nil
	}

	type pending struct {
		src *gmail.MessagePart
		dst *interfaces.Payload
	}

	out := &interfaces.Payload{}
	stack := []pending{{src: root, dst: out}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p.dst.Filename = p.src.Filename
		p.dst.MimeType = p.src.MimeType
		if p.src.Body != nil {
			p.dst.Body = &interfaces.Body{
				AttachmentID: p.src.Body.AttachmentId,
				Data:         p.src.Body.Data,
				Size:         p.src.Body.Size,
			}
		}

		p.dst.Parts = make([]*interfaces.Payload, 0, len(p.src.Parts))
		for _, child := range p.src.Parts {
			if child == nil {
				continue
			}
			node := &interfaces.Payload{}
			p.dst.Parts = append(p.dst.Parts, node)
			stack = append(stack, pending{src: child, dst: node})
		}
	}
	return out
}

// isRetryableError checks if an error is retryable
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		// Retry on rate limit or server errors
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "connection reset")
}
