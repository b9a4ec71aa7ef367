package runlog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 18, 14, 5, 9, 123456000, time.UTC)
}

func TestLog_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, fixedClock)

	l.Decrypted("hdfc_statements/stmt.pdf")
	l.Failed("hdfc_statements/stmt_FAILED.pdf")
	l.DecryptError("hdfc_statements/x.pdf", errors.New("malformed xref"))
	l.NoValidAttachment("18c2f")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[2026-10-18 14:05:09.123456] ✅ Decrypted: hdfc_statements/stmt.pdf", lines[0])
	assert.Equal(t, "[2026-10-18 14:05:09.123456] ❌ Failed: hdfc_statements/stmt_FAILED.pdf", lines[1])
	assert.Equal(t, "[2026-10-18 14:05:09.123456] ⚠️ Error decrypting hdfc_statements/x.pdf: malformed xref", lines[2])
	assert.Equal(t, "[2026-10-18 14:05:09.123456] ⚠️ No valid attachment in message 18c2f", lines[3])
}

func TestLog_OpenAppends(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	require.NoError(t, err)
	l.Decrypted("a.pdf")
	require.NoError(t, l.Close())

	l, err = Open(dir)
	require.NoError(t, err)
	l.Decrypted("b.pdf")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "Decrypted:"))
}

func TestLog_CloseTwiceAndWriteAfterClose(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	l.Failed("late.pdf")

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Empty(t, data)
}
