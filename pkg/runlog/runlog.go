// Package runlog writes the per-directory download_log.txt.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	FileName        = "download_log.txt"
	timestampLayout = "2006-01-02 15:04:05.000000"
)

const (
	GlyphDecrypted = "✅"
	GlyphWarning   = "⚠️"
	GlyphFailed    = "❌"
	GlyphStarted   = "▶"
	GlyphAborted   = "⛔"
)

// Log appends timestamped records. One Log is held per bank-run.
type Log struct {
	mu  sync.Mutex
	w   io.Writer
	c   io.Closer
	now func() time.Time
}

// Open appends to download_log.txt in dir, creating it if needed.
func Open(dir string) (*Log, error) {
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	return &Log{w: f, c: f, now: time.Now}, nil
}

// New wraps an arbitrary writer; Close is a no-op.
func New(w io.Writer, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{w: w, now: now}
}

func (l *Log) record(glyph, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return
	}
	fmt.Fprintf(l.w, "[%s] %s %s\n", l.now().Format(timestampLayout), glyph, message)
}

func (l *Log) Started(runID, bank, mode string) {
	l.record(GlyphStarted, fmt.Sprintf("Run %s started for %s (mode: %s)", runID, bank, mode))
}

func (l *Log) Decrypted(path string) {
	l.record(GlyphDecrypted, "Decrypted: "+path)
}

func (l *Log) DecryptError(path string, err error) {
	l.record(GlyphWarning, fmt.Sprintf("Error decrypting %s: %v", path, err))
}

func (l *Log) Failed(path string) {
	l.record(GlyphFailed, "Failed: "+path)
}

func (l *Log) NoValidAttachment(messageID string) {
	l.record(GlyphWarning, "No valid attachment in message "+messageID)
}

func (l *Log) ValidationAborted(bank string) {
	l.record(GlyphAborted, fmt.Sprintf("Password validation exhausted for %s, batch not processed", bank))
}

// Close releases the file. Later records are dropped.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = nil
	if l.c == nil {
		return nil
	}
	c := l.c
	l.c = nil
	return c.Close()
}
