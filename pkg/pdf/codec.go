// Package pdf removes password protection from PDF documents using pdfcpu.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

type Codec struct{}

func NewCodec() interfaces.DocumentCodec {
	return &Codec{}
}

func configuration(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	return conf
}

func (c *Codec) Check(data []byte, password string) error {
	if _, err := api.ReadContext(bytes.NewReader(data), configuration(password)); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Codec) Unlock(data []byte, password string, w io.Writer) error {
	err := api.Decrypt(bytes.NewReader(data), w, configuration(password))
	if err == nil {
		return nil
	}
	if isNotEncrypted(err) {
		if _, werr := w.Write(data); werr != nil {
			return fmt.Errorf("copying unprotected document: %w", werr)
		}
		return nil
	}
	return classify(err)
}

func classify(err error) error {
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return fmt.Errorf("%w: %v", interfaces.ErrWrongPassword, err)
	}
	return fmt.Errorf("pdf: %w", err)
}

// pdfcpu reports decrypting a plain document as an error rather than a no-op.
func isNotEncrypted(err error) bool {
	return strings.Contains(err.Error(), "not encrypted")
}
