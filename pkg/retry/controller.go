// Package retry drives password attempts against downloaded statements.
package retry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/perarneng/getstatements/pkg/decrypt"
	"github.com/perarneng/getstatements/pkg/interfaces"
	"github.com/perarneng/getstatements/pkg/output"
	"github.com/perarneng/getstatements/pkg/runlog"
)

const DefaultMaxAttempts = 3

// ErrValidationExhausted means no candidate opened the probe document.
var ErrValidationExhausted = errors.New("shared password could not be validated")

type Kind int

const (
	Decrypted Kind = iota
	FailedAllAttempts
	NoValidAttachment
)

func (k Kind) String() string {
	switch k {
	case Decrypted:
		return "decrypted"
	case FailedAllAttempts:
		return "failed"
	default:
		return "no valid attachment"
	}
}

// Outcome is what happened to one attachment (or one message, for NoValidAttachment).
type Outcome struct {
	Kind      Kind
	Path      string
	MessageID string
}

type Controller struct {
	maxAttempts int
	engine      *decrypt.Engine
	source      interfaces.PasswordSource
	store       *output.Store
	log         *runlog.Log
	logger      interfaces.Logger
}

func New(engine *decrypt.Engine, source interfaces.PasswordSource, store *output.Store,
	log *runlog.Log, logger interfaces.Logger, maxAttempts int) *Controller {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Controller{
		maxAttempts: maxAttempts,
		engine:      engine,
		source:      source,
		store:       store,
		log:         log,
		logger:      logger,
	}
}

// WithSource returns a copy of c that asks source for passwords.
func (c *Controller) WithSource(source interfaces.PasswordSource) *Controller {
	cp := *c
	cp.source = source
	return &cp
}

// PerFile asks for a password up to the attempt ceiling and decrypts tempPath
// into finalPath. The temp file is removed on success and kept as the
// _FAILED artifact otherwise. The error is non-nil only when the password
// source itself fails.
func (c *Controller) PerFile(ctx context.Context, tempPath, finalPath string) (Outcome, error) {
	raw, err := os.ReadFile(tempPath)
	if err != nil {
		c.log.DecryptError(finalPath, err)
		return c.giveUp(tempPath, finalPath, 0), nil
	}

	attempts := 0
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		password, err := c.source.Password(ctx, attempt, c.maxAttempts)
		if errors.Is(err, interfaces.ErrNoPassword) {
			break
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("reading password: %w", err)
		}
		attempts++

		if res := c.engine.Decrypt(raw, password, finalPath); res.OK() {
			c.cleanup(tempPath)
			return Outcome{Kind: Decrypted, Path: finalPath}, nil
		}
	}
	return c.giveUp(tempPath, finalPath, attempts), nil
}

// Validate finds the shared password by opening probe without writing output.
func (c *Controller) Validate(ctx context.Context, probe []byte) (string, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		password, err := c.source.Password(ctx, attempt, c.maxAttempts)
		if errors.Is(err, interfaces.ErrNoPassword) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}

		res := c.engine.Check(probe, password)
		switch res.Status {
		case decrypt.Decrypted:
			return password, nil
		case decrypt.WrongPassword:
			c.logger.Warn("❌ Incorrect password.")
		default:
			c.logger.Error(fmt.Sprintf("⚠️ Could not open probe document: %v", res.Err))
		}
	}
	return "", ErrValidationExhausted
}

// WithShared makes exactly one attempt with an already validated password.
func (c *Controller) WithShared(tempPath, finalPath, password string) Outcome {
	raw, err := os.ReadFile(tempPath)
	if err != nil {
		c.log.DecryptError(finalPath, err)
		return c.giveUp(tempPath, finalPath, 0)
	}

	if res := c.engine.Decrypt(raw, password, finalPath); res.OK() {
		c.cleanup(tempPath)
		return Outcome{Kind: Decrypted, Path: finalPath}
	}
	return c.giveUp(tempPath, finalPath, 1)
}

func (c *Controller) giveUp(tempPath, finalPath string, attempts int) Outcome {
	failed, err := c.store.MarkFailed(tempPath, finalPath)
	if err != nil {
		c.logger.Error(err.Error())
		failed = tempPath
	}
	c.logger.Warn(fmt.Sprintf("⏭️ Skipped after %d failed attempts: %s", attempts, failed))
	c.log.Failed(failed)
	return Outcome{Kind: FailedAllAttempts, Path: failed}
}

func (c *Controller) cleanup(tempPath string) {
	if err := c.store.Remove(tempPath); err != nil {
		c.logger.Warn(err.Error())
	}
}
