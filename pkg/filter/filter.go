// Package filter decides which message parts are statement attachments.
package filter

import (
	"strings"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

const octetStream = "application/octet-stream"

// Policy is one bank's tolerance for how its statements are labelled.
type Policy struct {
	// Extensions are matched case-insensitively against the end of the filename.
	Extensions []string `mapstructure:"extensions"`
	// MediaTypeTokens are matched as substrings of the declared media type.
	MediaTypeTokens []string `mapstructure:"media_type_tokens"`
	// AcceptOctetStream admits parts declared as generic binary.
	AcceptOctetStream bool `mapstructure:"accept_octet_stream"`
}

var builtin = map[string]Policy{
	"hdfc": {
		Extensions:        []string{".pdf"},
		MediaTypeTokens:   []string{"pdf"},
		AcceptOctetStream: true,
	},
	"icici": {
		Extensions:      []string{".pdf", ".zip"},
		MediaTypeTokens: []string{"pdf"},
	},
}

// Default accepts anything named *.pdf.
func Default() Policy {
	return Policy{Extensions: []string{".pdf"}}
}

// ForBank returns the built-in policy for bank, or Default.
func ForBank(bank string) Policy {
	if p, ok := builtin[strings.ToLower(bank)]; ok {
		return p
	}
	return Default()
}

// IsZero reports whether p admits nothing at all, i.e. was never configured.
func (p Policy) IsZero() bool {
	return len(p.Extensions) == 0 && len(p.MediaTypeTokens) == 0 && !p.AcceptOctetStream
}

func (p Policy) Accepts(part interfaces.Part) bool {
	filename := strings.ToLower(part.Filename)
	for _, ext := range p.Extensions {
		if ext != "" && strings.HasSuffix(filename, strings.ToLower(ext)) {
			return true
		}
	}
	for _, token := range p.MediaTypeTokens {
		if token != "" && strings.Contains(part.MimeType, token) {
			return true
		}
	}
	return p.AcceptOctetStream && part.MimeType == octetStream
}
