package parts

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perarneng/getstatements/pkg/interfaces"
)

func names(parts []interfaces.Part) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.Filename)
	}
	sort.Strings(out)
	return out
}

func TestFlatten_Nil(t *testing.T) {
	assert.Empty(t, Flatten(nil))
}

func TestFlatten_CollectsBodyNodesOnly(t *testing.T) {
	payload := &interfaces.Payload{
		Filename: "root",
		MimeType: "multipart/mixed",
		Parts: []*interfaces.Payload{
			{
				Filename: "alt",
				MimeType: "multipart/alternative",
				Parts: []*interfaces.Payload{
					{Filename: "text", MimeType: "text/plain", Body: &interfaces.Body{Data: "aGk="}},
					{Filename: "html", MimeType: "text/html", Body: &interfaces.Body{Data: "PGI+"}},
				},
			},
			{Filename: "stmt.pdf", MimeType: "application/pdf", Body: &interfaces.Body{AttachmentID: "att-1"}},
			nil,
		},
	}

	got := Flatten(payload)

	assert.Equal(t, []string{"html", "stmt.pdf", "text"}, names(got))
}

func TestFlatten_NodeWithBodyAndChildrenIsKept(t *testing.T) {
	payload := &interfaces.Payload{
		Filename: "parent",
		Body:     &interfaces.Body{Size: 0},
		Parts: []*interfaces.Payload{
			{Filename: "child", Body: &interfaces.Body{AttachmentID: "x"}},
		},
	}

	assert.Equal(t, []string{"child", "parent"}, names(Flatten(payload)))
}

func TestFlatten_SiblingsComeOutReversed(t *testing.T) {
	payload := &interfaces.Payload{
		Parts: []*interfaces.Payload{
			{Filename: "a", Body: &interfaces.Body{}},
			{Filename: "b", Body: &interfaces.Body{}},
			{Filename: "c", Body: &interfaces.Body{}},
		},
	}

	got := Flatten(payload)

	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Filename)
	assert.Equal(t, "a", got[2].Filename)
}

func TestFlatten_DeepNesting(t *testing.T) {
	const depth = 100000
	root := &interfaces.Payload{Filename: "n0", Body: &interfaces.Body{}}
	node := root
	for i := 1; i < depth; i++ {
		child := &interfaces.Payload{Filename: fmt.Sprintf("n%d", i)}
		if i%2 == 0 {
			child.Body = &interfaces.Body{}
		}
		node.Parts = []*interfaces.Payload{child}
		node = child
	}

	got := Flatten(root)

	assert.Len(t, got, depth/2)
}

func TestFlatten_WideTreeNoDuplicates(t *testing.T) {
	root := &interfaces.Payload{}
	want := 0
	for i := 0; i < 20; i++ {
		branch := &interfaces.Payload{Filename: fmt.Sprintf("b%d", i)}
		for j := 0; j < 20; j++ {
			branch.Parts = append(branch.Parts, &interfaces.Payload{
				Filename: fmt.Sprintf("b%d-l%d", i, j),
				Body:     &interfaces.Body{AttachmentID: fmt.Sprintf("%d-%d", i, j)},
			})
			want++
		}
		root.Parts = append(root.Parts, branch)
	}

	got := Flatten(root)

	require.Len(t, got, want)
	seen := make(map[string]bool)
	for _, p := range got {
		assert.False(t, seen[p.Filename], "duplicate %s", p.Filename)
		seen[p.Filename] = true
	}
}
