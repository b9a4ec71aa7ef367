package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perarneng/getstatements/pkg/logger"
)

func TestFailedPath(t *testing.T) {
	tests := map[string]string{
		"statement.pdf":        "statement_FAILED.pdf",
		"dir/stmt.pdf":         "dir/stmt_FAILED.pdf",
		"archive.zip":          "archive_FAILED.zip",
		"noext":                "noext_FAILED",
		"my.pdf.statement.pdf": "my.pdf.statement_FAILED.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, FailedPath(in), in)
	}
}

func TestStore_FinalPath(t *testing.T) {
	s := NewStore("base", "hdfc_statements", logger.Discard())

	assert.Equal(t, filepath.Join("base", "hdfc_statements", "stmt.pdf"), s.FinalPath("stmt.pdf", "m1", 0))
	assert.Equal(t, filepath.Join("base", "hdfc_statements", "Card-Statement-Oct.pdf"), s.FinalPath("Card Statement (Oct).pdf", "m1", 0))
	assert.Equal(t, filepath.Join("base", "hdfc_statements", "m1_3.pdf"), s.FinalPath("", "m1", 3))
	assert.Equal(t, filepath.Join("base", "hdfc_statements", "m1_2.pdf"), s.FinalPath("..", "m1", 2))
	assert.Equal(t, filepath.Join("base", "hdfc_statements", "etcpasswd.pdf"), s.FinalPath("/etc/passwd", "m1", 0))
	assert.Equal(t, filepath.Join("base", "hdfc_statements", "Statement.PDF"), s.FinalPath("Statement.PDF", "m1", 0))
	assert.Equal(t, filepath.Join("base", "hdfc_statements", "download_log.txt.pdf"), s.FinalPath("download_log.txt", "m1", 0))
	assert.Equal(t, filepath.Join("base", "hdfc_statements", "statement.zip.pdf"), s.FinalPath("statement.zip", "m1", 0))
}

func TestStore_TempAndProbePaths(t *testing.T) {
	s := NewStore("", "icici_statements", logger.Discard())

	assert.Equal(t, filepath.Join("icici_statements", "temp_18c2f_4.pdf"), s.TempPath("18c2f", 4))
	assert.Equal(t, filepath.Join("icici_statements", "temp_test_18c2f_4.pdf"), s.ProbePath("18c2f", 4))
}

func TestStore_EnsureDirIdempotent(t *testing.T) {
	base := t.TempDir()
	s := NewStore(base, "hdfc_statements", logger.Discard())

	require.NoError(t, s.EnsureDir())
	require.NoError(t, s.EnsureDir())

	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_EnsureDirRejectsFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "hdfc_statements"), []byte("x"), 0o600))

	s := NewStore(base, "hdfc_statements", logger.Discard())

	assert.Error(t, s.EnsureDir())
}

func TestStore_MarkFailed(t *testing.T) {
	s := NewStore(t.TempDir(), "hdfc_statements", logger.Discard())
	require.NoError(t, s.EnsureDir())
	temp := s.TempPath("m1", 0)
	require.NoError(t, s.WriteFile(temp, []byte("%PDF-raw")))

	failed, err := s.MarkFailed(temp, s.FinalPath("statement.pdf", "m1", 0))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(s.Dir(), "statement_FAILED.pdf"), failed)
	assert.NoFileExists(t, temp)
	data, err := os.ReadFile(failed)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-raw", string(data))
}

func TestStore_RemoveMissingIsNotAnError(t *testing.T) {
	s := NewStore(t.TempDir(), "x", logger.Discard())

	assert.NoError(t, s.Remove(filepath.Join(s.Dir(), "missing.pdf")))
}
