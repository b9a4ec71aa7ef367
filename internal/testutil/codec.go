// Package testutil holds in-memory collaborators for package tests.
package testutil

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

// Locked builds a fake protected document understood by Codec.
func Locked(password, content string) []byte {
	return []byte("LOCKED:" + password + ":" + content)
}

// Codec opens documents produced by Locked and counts calls.
type Codec struct {
	mu          sync.Mutex
	UnlockCalls int
	CheckCalls  int
}

func (c *Codec) open(data []byte, password string) (string, error) {
	parts := strings.SplitN(string(data), ":", 3)
	if len(parts) != 3 || parts[0] != "LOCKED" {
		return "", errors.New("not a protected document")
	}
	if parts[1] != password {
		return "", fmt.Errorf("open: %w", interfaces.ErrWrongPassword)
	}
	return parts[2], nil
}

func (c *Codec) Check(data []byte, password string) error {
	c.mu.Lock()
	c.CheckCalls++
	c.mu.Unlock()
	_, err := c.open(data, password)
	return err
}

func (c *Codec) Unlock(data []byte, password string, w io.Writer) error {
	c.mu.Lock()
	c.UnlockCalls++
	c.mu.Unlock()
	content, err := c.open(data, password)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}
