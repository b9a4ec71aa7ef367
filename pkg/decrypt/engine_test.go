package decrypt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perarneng/getstatements/pkg/interfaces"
	"github.com/perarneng/getstatements/pkg/logger"
	"github.com/perarneng/getstatements/pkg/runlog"
)

// fakeCodec treats documents as "LOCKED:<password>:<content>".
type fakeCodec struct {
	panicOn string
}

func (f *fakeCodec) open(data []byte, password string) (string, error) {
	if f.panicOn != "" && password == f.panicOn {
		panic("boom")
	}
	parts := strings.SplitN(string(data), ":", 3)
	if len(parts) != 3 || parts[0] != "LOCKED" {
		return "", errors.New("not a document")
	}
	if parts[1] != password {
		return "", fmt.Errorf("open: %w", interfaces.ErrWrongPassword)
	}
	return parts[2], nil
}

func (f *fakeCodec) Check(data []byte, password string) error {
	_, err := f.open(data, password)
	return err
}

func (f *fakeCodec) Unlock(data []byte, password string, w io.Writer) error {
	content, err := f.open(data, password)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

func newEngine(codec interfaces.DocumentCodec) (*Engine, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewEngine(codec, runlog.New(&buf, nil), logger.Discard()), &buf
}

func TestEngine_Decrypt_Success(t *testing.T) {
	e, logBuf := newEngine(&fakeCodec{})
	dest := filepath.Join(t.TempDir(), "stmt.pdf")

	res := e.Decrypt([]byte("LOCKED:pan123:statement body"), "pan123", dest)

	require.True(t, res.OK())
	assert.Equal(t, dest, res.Path)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "statement body", string(data))
	assert.Contains(t, logBuf.String(), "✅ Decrypted: "+dest)
}

func TestEngine_Decrypt_Overwrites(t *testing.T) {
	e, _ := newEngine(&fakeCodec{})
	dest := filepath.Join(t.TempDir(), "stmt.pdf")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o600))

	require.True(t, e.Decrypt([]byte("LOCKED:p:new"), "p", dest).OK())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestEngine_Decrypt_WrongPasswordDoesNotLog(t *testing.T) {
	e, logBuf := newEngine(&fakeCodec{})
	dest := filepath.Join(t.TempDir(), "stmt.pdf")

	res := e.Decrypt([]byte("LOCKED:right:x"), "wrong", dest)

	assert.Equal(t, WrongPassword, res.Status)
	assert.Empty(t, logBuf.String())
	assert.NoFileExists(t, dest)
}

func TestEngine_Decrypt_OtherFailureIsLogged(t *testing.T) {
	e, logBuf := newEngine(&fakeCodec{})
	dest := filepath.Join(t.TempDir(), "stmt.pdf")

	res := e.Decrypt([]byte("garbage"), "p", dest)

	assert.Equal(t, OtherFailure, res.Status)
	require.Error(t, res.Err)
	assert.Contains(t, logBuf.String(), "⚠️ Error decrypting "+dest+": not a document")
	assert.NoFileExists(t, dest)
}

func TestEngine_Decrypt_WriteFailureIsOtherFailure(t *testing.T) {
	e, logBuf := newEngine(&fakeCodec{})
	dest := filepath.Join(t.TempDir(), "missing-dir", "stmt.pdf")

	res := e.Decrypt([]byte("LOCKED:p:x"), "p", dest)

	assert.Equal(t, OtherFailure, res.Status)
	assert.Contains(t, logBuf.String(), "Error decrypting")
}

func TestEngine_Decrypt_RecoversCodecPanic(t *testing.T) {
	e, logBuf := newEngine(&fakeCodec{panicOn: "p"})
	dest := filepath.Join(t.TempDir(), "stmt.pdf")

	res := e.Decrypt([]byte("LOCKED:p:x"), "p", dest)

	assert.Equal(t, OtherFailure, res.Status)
	assert.Contains(t, res.Err.Error(), "codec panic")
	assert.Contains(t, logBuf.String(), "codec panic")
}

func TestEngine_Check(t *testing.T) {
	e, logBuf := newEngine(&fakeCodec{})
	raw := []byte("LOCKED:p:x")

	assert.Equal(t, Decrypted, e.Check(raw, "p").Status)
	assert.Equal(t, WrongPassword, e.Check(raw, "q").Status)
	assert.Equal(t, OtherFailure, e.Check([]byte("junk"), "p").Status)
	assert.Empty(t, logBuf.String())
}
