package testutil

import (
	"context"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

// Passwords replays answers in order across all cycles and records each request.
type Passwords struct {
	Answers []string
	Calls   int
}

func (p *Passwords) Password(_ context.Context, _, _ int) (string, error) {
	if p.Calls >= len(p.Answers) {
		p.Calls++
		return "", interfaces.ErrNoPassword
	}
	answer := p.Answers[p.Calls]
	p.Calls++
	return answer, nil
}
