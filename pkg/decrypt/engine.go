// Package decrypt removes protection from one downloaded statement.
package decrypt

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/perarneng/getstatements/pkg/interfaces"
	"github.com/perarneng/getstatements/pkg/runlog"
)

type Status int

const (
	Decrypted Status = iota
	WrongPassword
	OtherFailure
)

func (s Status) String() string {
	switch s {
	case Decrypted:
		return "decrypted"
	case WrongPassword:
		return "wrong password"
	default:
		return "failed"
	}
}

// Result is the tagged outcome of one decryption attempt.
type Result struct {
	Status Status
	Path   string
	Err    error
}

func (r Result) OK() bool {
	return r.Status == Decrypted
}

type Engine struct {
	codec  interfaces.DocumentCodec
	log    *runlog.Log
	logger interfaces.Logger
}

func NewEngine(codec interfaces.DocumentCodec, log *runlog.Log, logger interfaces.Logger) *Engine {
	return &Engine{codec: codec, log: log, logger: logger}
}

// Decrypt unlocks raw with password and writes the result to dest.
// It reports every failure through the Result and never panics.
func (e *Engine) Decrypt(raw []byte, password, dest string) (res Result) {
	res.Path = dest
	defer func() {
		if r := recover(); r != nil {
			res = e.otherFailure(dest, fmt.Errorf("codec panic: %v", r))
		}
	}()

	var buf bytes.Buffer
	if err := e.codec.Unlock(raw, password, &buf); err != nil {
		if errors.Is(err, interfaces.ErrWrongPassword) {
			e.logger.Warn("❌ Incorrect password.")
			return Result{Status: WrongPassword, Path: dest, Err: err}
		}
		return e.otherFailure(dest, err)
	}

	if err := os.WriteFile(dest, buf.Bytes(), 0o600); err != nil {
		return e.otherFailure(dest, fmt.Errorf("writing decrypted document: %w", err))
	}

	e.logger.Success(fmt.Sprintf("✅ Decrypted: %s", dest))
	e.log.Decrypted(dest)
	return Result{Status: Decrypted, Path: dest}
}

// Check verifies that password opens raw without writing anything.
func (e *Engine) Check(raw []byte, password string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: OtherFailure, Err: fmt.Errorf("codec panic: %v", r)}
		}
	}()

	if err := e.codec.Check(raw, password); err != nil {
		if errors.Is(err, interfaces.ErrWrongPassword) {
			return Result{Status: WrongPassword, Err: err}
		}
		return Result{Status: OtherFailure, Err: err}
	}
	return Result{Status: Decrypted}
}

func (e *Engine) otherFailure(dest string, err error) Result {
	e.logger.Error(fmt.Sprintf("⚠️ Error: %v", err))
	e.log.DecryptError(dest, err)
	return Result{Status: OtherFailure, Path: dest, Err: err}
}
