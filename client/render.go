package client

import (
	"fmt"
	"io"
	"strings"
)

// Renderer writes a text rendering of a comment forest with per-comment
// collapse state. Collapse state survives re-renders and refreshes because it
// is keyed by comment id, not position.
type Renderer struct {
	collapsed map[string]bool
}

// NewRenderer creates a renderer with everything expanded.
func NewRenderer() *Renderer {
	return &Renderer{collapsed: map[string]bool{}}
}

// Collapse hides the replies of the given comment.
func (r *Renderer) Collapse(commentID string) {
	r.collapsed[commentID] = true
}

// Expand shows the replies of the given comment.
func (r *Renderer) Expand(commentID string) {
	delete(r.collapsed, commentID)
}

// Toggle flips the collapse state of the given comment.
func (r *Renderer) Toggle(commentID string) {
	if r.collapsed[commentID] {
		r.Expand(commentID)
	} else {
		r.Collapse(commentID)
	}
}

// Collapsed reports whether the given comment's replies are hidden.
func (r *Renderer) Collapsed(commentID string) bool {
	return r.collapsed[commentID]
}

// Render writes the forest to w, one comment per line, indented by depth.
func (r *Renderer) Render(w io.Writer, forest []Comment) error {
	for i := range forest {
		if err := r.render(w, &forest[i], 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) render(w io.Writer, c *Comment, depth int) error {
	marker := "[-]"
	if len(c.Replies) == 0 {
		marker = "   "
	} else if r.collapsed[c.ID] {
		marker = "[+]"
	}

	vote := " "
	if c.IsUpvoted {
		vote = "^"
	}

	name := c.Author.Name
	if name == "" {
		name = "unknown"
	}

	suffix := ""
	if c.Provisional {
		suffix = " (sending...)"
	} else if r.collapsed[c.ID] {
		suffix = fmt.Sprintf(" (%d replies hidden)", countReplies(c))
	}

	_, err := fmt.Fprintf(w, "%s%s %s%d %s: %s%s\n",
		strings.Repeat("  ", depth), marker, vote, c.Upvotes, name, c.Text, suffix)
	if err != nil {
		return err
	}

	if r.collapsed[c.ID] {
		return nil
	}
	for i := range c.Replies {
		if err := r.render(w, &c.Replies[i], depth+1); err != nil {
			return err
		}
	}
	return nil
}

func countReplies(c *Comment) int {
	total := len(c.Replies)
	for i := range c.Replies {
		total += countReplies(&c.Replies[i])
	}
	return total
}
