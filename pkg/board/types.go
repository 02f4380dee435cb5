package board

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// User is the author of a note. The identity collaborator owns users; the
// replica only keeps the copy embedded in a note.
type User struct {
	ID         string `json:"id"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	Email      string `json:"email,omitempty"`
	Picture    string `json:"picture,omitempty"`
}

// DisplayName returns "Given Family", falling back to the email and then the id.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.GivenName + " " + u.FamilyName)
	if name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// Note is a positioned, authored, votable item on a board.
type Note struct {
	ID      string  `json:"id"`                // Server-assigned, never changes once set
	BoardID string  `json:"boardId,omitempty"` // Back reference to the owning board
	Text    *string `json:"text,omitempty"`    // Nullable content
	PosX    float64 `json:"posX"`              // Canvas X coordinate
	PosY    float64 `json:"posY"`              // Canvas Y coordinate
	Votes   int     `json:"votes"`             // Moved only by ±1 vote events, may go negative
	Show    bool    `json:"show"`              // Local rendering hint
	Weight  float64 `json:"weight"`            // Display ordering key within the board
	Author  *User   `json:"author,omitempty"`  // Weak reference to the author
}

// TextValue returns the note text or "" when the text is null.
func (n *Note) TextValue() string {
	if n.Text == nil {
		return ""
	}
	return *n.Text
}

func (n Note) clone() Note {
	if n.Text != nil {
		t := *n.Text
		n.Text = &t
	}
	if n.Author != nil {
		a := *n.Author
		n.Author = &a
	}
	return n
}

// NoteState describes whether a board's note collection has been hydrated.
type NoteState int

const (
	// NotesUnloaded means the collection has never been fetched or initialised
	NotesUnloaded NoteState = iota

	// NotesLoaded means the collection reflects authority state (possibly empty)
	NotesLoaded
)

// String implements fmt.Stringer.
func (s NoteState) String() string {
	switch s {
	case NotesUnloaded:
		return "unloaded"
	case NotesLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("NoteState(%d)", int(s))
	}
}

// NoteSet is a board's note collection in insertion order. The zero value is
// unloaded. On the wire an absent or null "postits" field is unloaded and an
// empty array is loaded-empty.
type NoteSet struct {
	loaded bool
	notes  []Note
}

// LoadedNotes returns a loaded NoteSet holding notes in the given order.
func LoadedNotes(notes ...Note) NoteSet {
	s := NoteSet{loaded: true, notes: make([]Note, 0, len(notes))}
	for _, n := range notes {
		s.notes = append(s.notes, n.clone())
	}
	return s
}

// State reports the tri-state of the collection together with Len.
func (s NoteSet) State() NoteState {
	if s.loaded {
		return NotesLoaded
	}
	return NotesUnloaded
}

// Loaded reports whether the collection has been initialised.
func (s NoteSet) Loaded() bool { return s.loaded }

// Len returns the number of notes (0 when unloaded).
func (s NoteSet) Len() int { return len(s.notes) }

// All returns a copy of the notes in insertion order.
func (s NoteSet) All() []Note {
	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n.clone())
	}
	return out
}

func (s NoteSet) indexOf(noteID string) int {
	for i := range s.notes {
		if s.notes[i].ID == noteID {
			return i
		}
	}
	return -1
}

func (s NoteSet) clone() NoteSet {
	if !s.loaded {
		return NoteSet{}
	}
	return LoadedNotes(s.notes...)
}

// MarshalJSON encodes an unloaded set as null and a loaded set as an array.
func (s NoteSet) MarshalJSON() ([]byte, error) {
	if !s.loaded {
		return []byte("null"), nil
	}
	if s.notes == nil {
		return []byte("[]"), nil
	}
	return sonic.ConfigStd.Marshal(s.notes)
}

// UnmarshalJSON decodes null as unloaded and any array as loaded.
func (s *NoteSet) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*s = NoteSet{}
		return nil
	}
	var notes []Note
	if err := sonic.ConfigStd.Unmarshal(data, &notes); err != nil {
		return fmt.Errorf("failed to decode notes: %w", err)
	}
	if notes == nil {
		notes = []Note{}
	}
	*s = NoteSet{loaded: true, notes: notes}
	return nil
}

// Board is a named collaborative canvas.
type Board struct {
	ID    string  `json:"id"`      // Server-assigned identifier
	Name  string  `json:"name"`    // Display name
	Notes NoteSet `json:"postits"` // Tri-state note collection
}

func (b *Board) clone() Board {
	return Board{ID: b.ID, Name: b.Name, Notes: b.Notes.clone()}
}

// Validate checks the fields the replica relies on.
func (b *Board) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("board ID cannot be empty")
	}
	for i, n := range b.Notes.notes {
		if n.ID == "" {
			return fmt.Errorf("note at index %d of board %s has no ID", i, b.ID)
		}
	}
	return nil
}
