package board

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Action is the wire discriminator carried by every message.
type Action string

const (
	// ActionNewBoard creates a board (command: text; event: id, text)
	ActionNewBoard Action = "NEW_BOARD"

	// ActionRenameBoard renames a board (command: boardId, text; event: id, text)
	ActionRenameBoard Action = "RENAME_BOARD"

	// ActionDeleteBoard deletes a board and its notes (boardId)
	ActionDeleteBoard Action = "DELETE_BOARD"

	// ActionNewNote creates a note (command: boardId, posX, posY; event adds id, author, weight)
	ActionNewNote Action = "NEW_POSTIT"

	// ActionUpdateContent edits a note's text (boardId, id, text)
	ActionUpdateContent Action = "UPDATE_CONTENT"

	// ActionMoveNote moves a note (boardId, id, posX, posY; event adds weight)
	ActionMoveNote Action = "MOVE_POSTIT"

	// ActionDeleteNote deletes a note (boardId, id)
	ActionDeleteNote Action = "DELETE_POSTIT"

	// ActionAddVote upvotes a note (boardId, id)
	ActionAddVote Action = "ADD_VOTE"

	// ActionRemoveVote downvotes a note (boardId, id)
	ActionRemoveVote Action = "REMOVE_VOTE"

	// ActionShowNotes reveals an author's notes on a board (boardId, authorId)
	ActionShowNotes Action = "SHOW_POSTITS"

	// ActionHideNotes conceals an author's notes on a board (boardId, authorId)
	ActionHideNotes Action = "HIDE_POSTITS"
)

// Actions lists every known discriminator in wire order.
var Actions = []Action{
	ActionNewBoard, ActionRenameBoard, ActionDeleteBoard,
	ActionNewNote, ActionUpdateContent, ActionMoveNote, ActionDeleteNote,
	ActionAddVote, ActionRemoveVote, ActionShowNotes, ActionHideNotes,
}

// Validate checks if the Action is a known discriminator.
func (a Action) Validate() error {
	for _, known := range Actions {
		if a == known {
			return nil
		}
	}
	return fmt.Errorf("unknown action: %q", a)
}

// ErrMalformed is returned when a frame is not a JSON object or lacks a field
// its action requires.
var ErrMalformed = errors.New("malformed message")

// Message is the loosely typed wire object shared by commands and events.
// Every field except Action is optional and interpreted per action.
type Message struct {
	Action   Action   `json:"action"`
	BoardID  string   `json:"boardId,omitempty"`
	AuthorID string   `json:"authorId,omitempty"`
	ID       string   `json:"id,omitempty"`
	Text     *string  `json:"text,omitempty"`
	PosX     *float64 `json:"posX,omitempty"`
	PosY     *float64 `json:"posY,omitempty"`
	Token    string   `json:"token,omitempty"`
	Author   *User    `json:"author,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
}

// Event is a decoded inbound message. The concrete type is one of the
// variants below; Unknown carries actions this client does not understand.
type Event interface {
	Action() Action
	isEvent()
}

// BoardCreated is a NEW_BOARD event.
type BoardCreated struct {
	BoardID string
	Name    string
}

// BoardRenamed is a RENAME_BOARD event. On the wire the board id travels in
// the generic "id" field.
type BoardRenamed struct {
	BoardID string
	Name    string
}

// BoardDeleted is a DELETE_BOARD event.
type BoardDeleted struct {
	BoardID string
}

// NoteCreated is a NEW_POSTIT event.
type NoteCreated struct {
	BoardID string
	NoteID  string
	PosX    float64
	PosY    float64
	Author  *User
	Weight  float64
}

// NoteTextUpdated is an UPDATE_CONTENT event. A nil Text clears the note.
type NoteTextUpdated struct {
	BoardID string
	NoteID  string
	Text    *string
}

// NoteMoved is a MOVE_POSTIT event. Weight is 0 when the frame omits it.
type NoteMoved struct {
	BoardID string
	NoteID  string
	PosX    float64
	PosY    float64
	Weight  float64
}

// NoteDeleted is a DELETE_POSTIT event.
type NoteDeleted struct {
	BoardID string
	NoteID  string
}

// VoteAdded is an ADD_VOTE event.
type VoteAdded struct {
	BoardID string
	NoteID  string
}

// VoteRemoved is a REMOVE_VOTE event.
type VoteRemoved struct {
	BoardID string
	NoteID  string
}

// NotesRevealed is a SHOW_POSTITS event. BoardID may be empty.
type NotesRevealed struct {
	BoardID  string
	AuthorID string
}

// NotesConcealed is a HIDE_POSTITS event. BoardID may be empty.
type NotesConcealed struct {
	BoardID  string
	AuthorID string
}

// Unknown is any event whose action is not recognised.
type Unknown struct {
	Name Action
}

func (BoardCreated) Action() Action    { return ActionNewBoard }
func (BoardRenamed) Action() Action    { return ActionRenameBoard }
func (BoardDeleted) Action() Action    { return ActionDeleteBoard }
func (NoteCreated) Action() Action     { return ActionNewNote }
func (NoteTextUpdated) Action() Action { return ActionUpdateContent }
func (NoteMoved) Action() Action       { return ActionMoveNote }
func (NoteDeleted) Action() Action     { return ActionDeleteNote }
func (VoteAdded) Action() Action       { return ActionAddVote }
func (VoteRemoved) Action() Action     { return ActionRemoveVote }
func (NotesRevealed) Action() Action   { return ActionShowNotes }
func (NotesConcealed) Action() Action  { return ActionHideNotes }
func (u Unknown) Action() Action       { return u.Name }

func (BoardCreated) isEvent()    {}
func (BoardRenamed) isEvent()    {}
func (BoardDeleted) isEvent()    {}
func (NoteCreated) isEvent()     {}
func (NoteTextUpdated) isEvent() {}
func (NoteMoved) isEvent()       {}
func (NoteDeleted) isEvent()     {}
func (VoteAdded) isEvent()       {}
func (VoteRemoved) isEvent()     {}
func (NotesRevealed) isEvent()   {}
func (NotesConcealed) isEvent()  {}
func (Unknown) isEvent()         {}

// DecodeMessage parses one JSON text frame into a Message.
func DecodeMessage(frame []byte) (Message, error) {
	var m Message
	if err := sonic.ConfigStd.Unmarshal(frame, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Action == "" {
		return Message{}, fmt.Errorf("%w: missing action", ErrMalformed)
	}
	return m, nil
}

// DecodeEvent parses a frame and converts it to its Event variant.
func DecodeEvent(frame []byte) (Event, error) {
	m, err := DecodeMessage(frame)
	if err != nil {
		return nil, err
	}
	return m.Event()
}

// Event converts the message to its typed variant, checking the identifiers
// the action requires. Unrecognised actions yield Unknown and no error.
func (m Message) Event() (Event, error) {
	switch m.Action {
	case ActionNewBoard:
		if m.ID == "" {
			return nil, missing(m.Action, "id")
		}
		return BoardCreated{BoardID: m.ID, Name: m.textValue()}, nil

	case ActionRenameBoard:
		// The rename event names its board in "id". Authorities that echo the
		// command verbatim only carry "boardId".
		boardID := m.ID
		if boardID == "" {
			boardID = m.BoardID
		}
		if boardID == "" {
			return nil, missing(m.Action, "id")
		}
		return BoardRenamed{BoardID: boardID, Name: m.textValue()}, nil

	case ActionDeleteBoard:
		if m.BoardID == "" {
			return nil, missing(m.Action, "boardId")
		}
		return BoardDeleted{BoardID: m.BoardID}, nil

	case ActionNewNote:
		if err := m.requireNoteTarget(); err != nil {
			return nil, err
		}
		ev := NoteCreated{
			BoardID: m.BoardID,
			NoteID:  m.ID,
			PosX:    deref(m.PosX),
			PosY:    deref(m.PosY),
			Weight:  deref(m.Weight),
		}
		if m.Author != nil && m.Author.ID != "" {
			a := *m.Author
			ev.Author = &a
		}
		return ev, nil

	case ActionUpdateContent:
		if err := m.requireNoteTarget(); err != nil {
			return nil, err
		}
		return NoteTextUpdated{BoardID: m.BoardID, NoteID: m.ID, Text: copyString(m.Text)}, nil

	case ActionMoveNote:
		if err := m.requireNoteTarget(); err != nil {
			return nil, err
		}
		return NoteMoved{
			BoardID: m.BoardID,
			NoteID:  m.ID,
			PosX:    deref(m.PosX),
			PosY:    deref(m.PosY),
			Weight:  deref(m.Weight),
		}, nil

	case ActionDeleteNote:
		if err := m.requireNoteTarget(); err != nil {
			return nil, err
		}
		return NoteDeleted{BoardID: m.BoardID, NoteID: m.ID}, nil

	case ActionAddVote:
		if err := m.requireNoteTarget(); err != nil {
			return nil, err
		}
		return VoteAdded{BoardID: m.BoardID, NoteID: m.ID}, nil

	case ActionRemoveVote:
		if err := m.requireNoteTarget(); err != nil {
			return nil, err
		}
		return VoteRemoved{BoardID: m.BoardID, NoteID: m.ID}, nil

	case ActionShowNotes:
		return NotesRevealed{BoardID: m.BoardID, AuthorID: m.AuthorID}, nil

	case ActionHideNotes:
		return NotesConcealed{BoardID: m.BoardID, AuthorID: m.AuthorID}, nil

	default:
		return Unknown{Name: m.Action}, nil
	}
}

// EncodeCommand validates the action and serialises the message as one JSON
// text frame.
func EncodeCommand(m Message) ([]byte, error) {
	if err := m.Action.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}
	data, err := sonic.ConfigStd.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	return data, nil
}

func (m Message) requireNoteTarget() error {
	if m.BoardID == "" {
		return missing(m.Action, "boardId")
	}
	if m.ID == "" {
		return missing(m.Action, "id")
	}
	return nil
}

func (m Message) textValue() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

func missing(a Action, field string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMalformed, a, field)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Float returns a pointer to f, for building messages.
func Float(f float64) *float64 { return &f }

// String returns a pointer to s, for building messages.
func String(s string) *string { return &s }
