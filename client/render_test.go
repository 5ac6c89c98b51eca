package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderToString(t *testing.T, r *Renderer, forest []Comment) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, r.Render(&sb, forest))
	return sb.String()
}

func sampleForest() []Comment {
	return []Comment{
		{
			ID: "root", Text: "root comment", Upvotes: 2,
			Author: Author{Name: "Ada"},
			Replies: []Comment{
				{ID: "child", Text: "child comment", Author: Author{Name: "Bob"}, ParentID: "root",
					Replies: []Comment{
						{ID: "grandchild", Text: "deep", Author: Author{Name: "Cyd"}, ParentID: "child"},
					}},
			},
		},
		{ID: "other", Text: "other thread", Author: Author{Name: "Dot"}},
	}
}

func TestRenderer_Render_Expanded(t *testing.T) {
	t.Parallel()

	out := renderToString(t, NewRenderer(), sampleForest())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Contains(t, lines[0], "root comment")
	assert.Contains(t, lines[1], "child comment")
	assert.Contains(t, lines[2], "deep")
	assert.Contains(t, lines[3], "other thread")

	// Indentation grows with depth.
	assert.True(t, strings.HasPrefix(lines[1], "  "))
	assert.True(t, strings.HasPrefix(lines[2], "    "))
	assert.False(t, strings.HasPrefix(lines[3], " "))
}

func TestRenderer_Collapse_HidesSubtree(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	r.Collapse("root")

	out := renderToString(t, r, sampleForest())
	assert.Contains(t, out, "root comment")
	assert.NotContains(t, out, "child comment")
	assert.NotContains(t, out, "deep")
	assert.Contains(t, out, "other thread")
	assert.Contains(t, out, "[+]")
	assert.Contains(t, out, "2 replies hidden")
}

func TestRenderer_Toggle(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	assert.False(t, r.Collapsed("root"))
	r.Toggle("root")
	assert.True(t, r.Collapsed("root"))
	r.Toggle("root")
	assert.False(t, r.Collapsed("root"))
}

func TestRenderer_CollapseStateSurvivesNewForest(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	r.Collapse("child")

	// Re-render with a fresh forest value, as after a refresh.
	out := renderToString(t, r, sampleForest())
	assert.Contains(t, out, "child comment")
	assert.NotContains(t, out, "deep")
}

func TestRenderer_ProvisionalMarker(t *testing.T) {
	t.Parallel()

	forest := []Comment{{ID: "tmp-1", Text: "pending", Provisional: true, Author: Author{Name: "Ada"}}}
	out := renderToString(t, NewRenderer(), forest)
	assert.Contains(t, out, "(sending...)")
}
