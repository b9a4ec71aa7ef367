package parts

import "github.com/perarneng/getstatements/pkg/interfaces"

// Flatten returns every node of the payload tree that carries a body.
// It walks with an explicit stack, so sibling order comes out reversed.
func Flatten(payload *interfaces.Payload) []interfaces.Part {
	if payload == nil {
		return nil
	}

	var out []interfaces.Part
	stack := []*interfaces.Payload{payload}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range current.Parts {
			if child != nil {
				stack = append(stack, child)
			}
		}
		if current.Body != nil {
			out = append(out, interfaces.Part{
				Filename: current.Filename,
				MimeType: current.MimeType,
				Body:     current.Body,
			})
		}
	}
	return out
}
