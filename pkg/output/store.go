package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

const (
	failedMarker = "_FAILED"
	documentExt  = ".pdf"
)

var (
	invalidChars = regexp.MustCompile(`[^\w\s.-]`)
	whitespace   = regexp.MustCompile(`\s+`)
	dashes       = regexp.MustCompile(`-+`)
)

// Store lays out one bank's statement directory.
type Store struct {
	dir    string
	logger interfaces.Logger
}

func NewStore(baseDir, dirName string, logger interfaces.Logger) *Store {
	return &Store{
		dir:    filepath.Join(baseDir, dirName),
		logger: logger,
	}
}

func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the statement directory if it is missing.
func (s *Store) EnsureDir() error {
	info, err := os.Stat(s.dir)
	if err == nil {
		if !info.IsDir() {
			s.logger.Error(fmt.Sprintf("Output path is not a directory: %s", s.dir))
			return fmt.Errorf("output path is not a directory: %s", s.dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("error checking output directory: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	s.logger.Info(fmt.Sprintf("Created output directory: %s", s.dir))
	return nil
}

func (s *Store) TempPath(messageID string, index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("temp_%s_%d.pdf", sanitizeForFilename(messageID), index))
}

func (s *Store) ProbePath(messageID string, index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("temp_test_%s_%d.pdf", sanitizeForFilename(messageID), index))
}

// FinalPath names the decrypted output after the attachment, or
// <messageID>_<index>.pdf when the attachment has no usable name. The result
// always ends in .pdf, so it can never collide with the run log or other
// non-document files in the directory.
func (s *Store) FinalPath(filename, messageID string, index int) string {
	name := sanitizeForFilename(filename)
	if name == "" || strings.Trim(name, ".") == "" {
		name = fmt.Sprintf("%s_%d", sanitizeForFilename(messageID), index)
	}
	if !strings.EqualFold(filepath.Ext(name), documentExt) {
		name += documentExt
	}
	return filepath.Join(s.dir, name)
}

func (s *Store) WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	s.logger.Debug(fmt.Sprintf("Wrote %s (%d bytes)", path, len(data)))
	return nil
}

func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// MarkFailed moves the raw download next to finalPath with the failure marker
// and returns the new location.
func (s *Store) MarkFailed(tempPath, finalPath string) (string, error) {
	failed := FailedPath(finalPath)
	if err := os.Rename(tempPath, failed); err != nil {
		return "", fmt.Errorf("failed to keep failed artifact: %w", err)
	}
	return failed, nil
}

// FailedPath inserts _FAILED before the extension: statement.pdf -> statement_FAILED.pdf.
func FailedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + failedMarker + ext
}

func sanitizeForFilename(s string) string {
	// Keep dots for extensions
	cleaned := invalidChars.ReplaceAllString(s, "")
	cleaned = whitespace.ReplaceAllString(cleaned, "-")
	cleaned = dashes.ReplaceAllString(cleaned, "-")
	return strings.Trim(cleaned, "-")
}
