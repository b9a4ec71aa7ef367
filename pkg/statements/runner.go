// Package statements runs the per-bank download and decryption workflow.
package statements

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perarneng/getstatements/pkg/config"
	"github.com/perarneng/getstatements/pkg/decrypt"
	"github.com/perarneng/getstatements/pkg/interfaces"
	"github.com/perarneng/getstatements/pkg/output"
	"github.com/perarneng/getstatements/pkg/parts"
	"github.com/perarneng/getstatements/pkg/query"
	"github.com/perarneng/getstatements/pkg/retry"
	"github.com/perarneng/getstatements/pkg/runlog"
)

// maxAttachmentBytes matches Gmail's attachment limit; larger parts are not fetched.
const maxAttachmentBytes = 25 * 1024 * 1024

// Summary counts the outcomes of one bank-run.
type Summary struct {
	Bank         string
	RunID        string
	Messages     int
	Decrypted    int
	Failed       int
	NoAttachment int
	Aborted      bool
}

func (s *Summary) add(o retry.Outcome) {
	switch o.Kind {
	case retry.Decrypted:
		s.Decrypted++
	case retry.FailedAllAttempts:
		s.Failed++
	case retry.NoValidAttachment:
		s.NoAttachment++
	}
}

type Runner struct {
	cfg       config.Config
	mail      interfaces.MailClient
	codec     interfaces.DocumentCodec
	passwords interfaces.PasswordSource
	shared    interfaces.PasswordSource
	modes     interfaces.ModeSelector
	logger    interfaces.Logger
	now       func() time.Time
	newRunID  func() string
}

func NewRunner(cfg config.Config, mail interfaces.MailClient, codec interfaces.DocumentCodec,
	passwords interfaces.PasswordSource, modes interfaces.ModeSelector, logger interfaces.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		mail:      mail,
		codec:     codec,
		passwords: passwords,
		shared:    passwords,
		modes:     modes,
		logger:    logger,
		now:       time.Now,
		newRunID:  func() string { return uuid.New().String() },
	}
}

// WithSharedPasswords sets the source used to validate a shared batch
// password. It defaults to the per-file source.
func (r *Runner) WithSharedPasswords(source interfaces.PasswordSource) *Runner {
	r.shared = source
	return r
}

// Run processes every enabled bank in order. A failing bank does not stop the
// others; operator aborts and context cancellation do.
func (r *Runner) Run(ctx context.Context) ([]Summary, error) {
	var summaries []Summary
	var errs []error

	for _, bank := range r.cfg.EnabledBanks {
		profile, ok := r.cfg.Profile(bank)
		if !ok {
			r.logger.Warn(fmt.Sprintf("⚠️ Bank profile for '%s' not found. Skipping.", bank))
			continue
		}

		summary, err := r.RunBank(ctx, profile)
		summaries = append(summaries, summary)
		if err == nil {
			continue
		}
		if errors.Is(err, interfaces.ErrOperatorAbort) || ctx.Err() != nil {
			return summaries, err
		}
		r.logger.Error(fmt.Sprintf("%s: %v", bank, err))
		errs = append(errs, fmt.Errorf("%s: %w", bank, err))
	}
	return summaries, errors.Join(errs...)
}

// RunBank searches, downloads and decrypts one bank's statements.
func (r *Runner) RunBank(ctx context.Context, profile config.BankProfile) (Summary, error) {
	summary := Summary{Bank: profile.Name, RunID: r.newRunID()}

	r.logger.Info(fmt.Sprintf("🔍 Searching for %s statements...", strings.ToUpper(profile.Name)))
	q := query.New(profile.Sender, profile.Subject, r.cfg.YearsBack, r.now())
	r.logger.Debug(fmt.Sprintf("Query: %s", query.Expression(q)))

	ids, err := r.mail.Search(ctx, q)
	if err != nil {
		return summary, fmt.Errorf("searching messages: %w", err)
	}
	summary.Messages = len(ids)
	r.logger.Info(fmt.Sprintf("📨 Found %d emails.", len(ids)))

	store := output.NewStore(r.cfg.BaseDir, profile.SaveDir, r.logger)
	if err := store.EnsureDir(); err != nil {
		return summary, err
	}
	log, err := runlog.Open(store.Dir())
	if err != nil {
		return summary, err
	}
	defer func() {
		if err := log.Close(); err != nil {
			r.logger.Warn(fmt.Sprintf("Closing run log: %v", err))
		}
	}()

	shared, err := r.modes.SharedPassword(ctx, profile.Name)
	if err != nil {
		return summary, err
	}

	b := &bankRun{
		Runner:  r,
		profile: profile,
		ids:     ids,
		store:   store,
		log:     log,
		retry:   retry.New(decrypt.NewEngine(r.codec, log, r.logger), r.passwords, store, log, r.logger, r.cfg.MaxAttempts),
	}

	if shared {
		password, found, err := b.validateShared(ctx)
		switch {
		case errors.Is(err, retry.ErrValidationExhausted):
			r.logger.Error("⛔ Failed to validate password. Skipping this bank.")
			log.Started(summary.RunID, profile.Name, "shared")
			log.ValidationAborted(profile.Name)
			summary.Aborted = true
			return summary, nil
		case err != nil:
			return summary, err
		case !found:
			r.logger.Warn("⚠️ No valid attachment found to test password. Skipping password reuse.")
			shared = false
		default:
			b.sharedPassword = password
		}
	}

	mode := "per-file"
	if shared {
		mode = "shared"
	}
	log.Started(summary.RunID, profile.Name, mode)

	for i, id := range ids {
		r.logger.Debug(fmt.Sprintf("Processing message %d/%d (ID: %s)", i+1, len(ids), id))
		if err := b.processMessage(ctx, id, shared, &summary); err != nil {
			return summary, err
		}
	}

	r.logger.Success(fmt.Sprintf("🎉 All %s statements processed. Log saved. Decrypted: %d, Failed: %d, Without attachment: %d",
		strings.ToUpper(profile.Name), summary.Decrypted, summary.Failed, summary.NoAttachment))
	return summary, nil
}

type bankRun struct {
	*Runner
	profile        config.BankProfile
	ids            []string
	store          *output.Store
	log            *runlog.Log
	retry          *retry.Controller
	sharedPassword string
}

// validateShared probes the first valid attachment across all messages.
func (b *bankRun) validateShared(ctx context.Context) (string, bool, error) {
	for _, id := range b.ids {
		msg, err := b.mail.GetMessage(ctx, id)
		if err != nil {
			b.logger.Error(fmt.Sprintf("Failed to get message %s: %v", id, err))
			continue
		}

		for idx, part := range parts.Flatten(msg.Payload) {
			if !b.profile.Filter.Accepts(part) {
				continue
			}
			data, err := b.attachmentData(ctx, id, part)
			if err != nil {
				b.logger.Warn(fmt.Sprintf("⚠️ Skipping password test candidate in message %s: %v", id, err))
				continue
			}
			if len(data) == 0 {
				b.logger.Debug(fmt.Sprintf("Part %d of message %s has no data", idx, id))
				continue
			}

			probe := b.store.ProbePath(id, idx)
			if err := b.store.WriteFile(probe, data); err != nil {
				return "", false, err
			}
			defer func() {
				if err := b.store.Remove(probe); err != nil {
					b.logger.Warn(err.Error())
				}
			}()

			password, err := b.retry.WithSource(b.shared).Validate(ctx, data)
			if err != nil {
				return "", true, err
			}
			return password, true, nil
		}
	}
	return "", false, nil
}

func (b *bankRun) processMessage(ctx context.Context, id string, shared bool, summary *Summary) error {
	msg, err := b.mail.GetMessage(ctx, id)
	if err != nil {
		b.logger.Error(fmt.Sprintf("Failed to get message %s: %v", id, err))
		return nil
	}

	found := false
	for idx, part := range parts.Flatten(msg.Payload) {
		if !b.profile.Filter.Accepts(part) {
			continue
		}
		final := b.store.FinalPath(part.Filename, id, idx)

		data, err := b.attachmentData(ctx, id, part)
		if err != nil {
			found = true
			b.logger.Error(fmt.Sprintf("⚠️ Error: %v", err))
			b.log.DecryptError(final, err)
			summary.Failed++
			continue
		}
		if len(data) == 0 {
			continue
		}
		found = true

		temp := b.store.TempPath(id, idx)
		if err := b.store.WriteFile(temp, data); err != nil {
			b.logger.Error(fmt.Sprintf("⚠️ Error: %v", err))
			b.log.DecryptError(final, err)
			summary.Failed++
			continue
		}

		var outcome retry.Outcome
		if shared {
			outcome = b.retry.WithShared(temp, final, b.sharedPassword)
		} else {
			outcome, err = b.retry.PerFile(ctx, temp, final)
			if err != nil {
				return err
			}
		}
		summary.add(outcome)
	}

	if !found {
		b.logger.Warn(fmt.Sprintf("⚠️ No valid attachment in message %s", id))
		b.log.NoValidAttachment(id)
		summary.add(retry.Outcome{Kind: retry.NoValidAttachment, MessageID: id})
	}
	return nil
}

// attachmentData returns the decoded bytes of part, fetching them when the
// body only references an attachment. A part with neither yields nil.
func (b *bankRun) attachmentData(ctx context.Context, messageID string, part interfaces.Part) ([]byte, error) {
	if part.Body == nil {
		return nil, nil
	}

	if part.Body.Size > maxAttachmentBytes {
		return nil, fmt.Errorf("attachment %q is %d bytes, larger than %d", part.Filename, part.Body.Size, maxAttachmentBytes)
	}

	encoded := part.Body.Data
	if part.Body.AttachmentID != "" {
		var err error
		encoded, err = b.mail.GetAttachment(ctx, messageID, part.Body.AttachmentID)
		if err != nil {
			return nil, fmt.Errorf("downloading attachment %q: %w", part.Filename, err)
		}
	}
	if encoded == "" {
		return nil, nil
	}

	data, err := decodeBase64URL(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding attachment %q: %w", part.Filename, err)
	}
	return data, nil
}

func decodeBase64URL(s string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
