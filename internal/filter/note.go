package filter

import (
	"path/filepath"
	"strings"

	"github.com/code-troopers/postits/pkg/board"
)

// Criteria defines filtering criteria for notes.
// All filters are ANDed together - a note must match ALL criteria to pass.
type Criteria struct {
	AuthorID string // Exact match on author id, empty = no filter
	TextGlob string // Case-insensitive glob on the note text, empty = no filter
	MinVotes *int   // Lower bound on votes (inclusive), nil = no filter
}

// Matches returns true if the note matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(n *board.Note) bool {
	if c.AuthorID != "" && (n.Author == nil || n.Author.ID != c.AuthorID) {
		return false
	}

	if c.TextGlob != "" {
		matched, err := filepath.Match(strings.ToLower(c.TextGlob), strings.ToLower(n.TextValue()))
		if err != nil || !matched {
			return false
		}
	}

	if c.MinVotes != nil && n.Votes < *c.MinVotes {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.AuthorID != "" || c.TextGlob != "" || c.MinVotes != nil
}

// Apply returns the notes that match, preserving order.
func (c *Criteria) Apply(notes []board.Note) []board.Note {
	if !c.HasFilters() {
		return notes
	}
	out := make([]board.Note, 0, len(notes))
	for i := range notes {
		if c.Matches(&notes[i]) {
			out = append(out, notes[i])
		}
	}
	return out
}
