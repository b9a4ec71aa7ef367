package interfaces

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrWrongPassword is wrapped by codecs when the password does not open the document.
	ErrWrongPassword = errors.New("incorrect password")
	// ErrNoPassword is returned by a PasswordSource that has no further candidates.
	ErrNoPassword = errors.New("no more passwords")
	// ErrOperatorAbort is returned when the operator cancels an interactive prompt.
	ErrOperatorAbort = errors.New("aborted by operator")
)

type DocumentCodec interface {
	// Check opens the document with password without producing output.
	Check(data []byte, password string) error
	// Unlock writes the unprotected document to w.
	Unlock(data []byte, password string, w io.Writer) error
}

type PasswordSource interface {
	Password(ctx context.Context, attempt, maxAttempts int) (string, error)
}

// ModeSelector decides whether one password is shared by a bank's whole batch.
type ModeSelector interface {
	SharedPassword(ctx context.Context, bank string) (bool, error)
}
