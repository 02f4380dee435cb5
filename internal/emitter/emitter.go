// Package emitter turns local user intents into outbound commands. It never
// touches the replica: every change waits for the matching event to come
// back from the authority.
package emitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/code-troopers/postits/internal/identity"
	"github.com/code-troopers/postits/pkg/board"
	log "github.com/sirupsen/logrus"
)

// Caller contract violations, returned before any send attempt.
var (
	ErrMissingBoardID  = errors.New("board ID is required")
	ErrMissingNoteID   = errors.New("note ID is required")
	ErrMissingAuthorID = errors.New("author ID is required")
)

// Sender writes one frame to the authority.
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// BoardCounter reports how many boards the replica holds. *board.Replica
// satisfies it.
type BoardCounter interface {
	Len() int
}

// Outcome reports what happened to a well-formed intent. A failed send is
// not retried or queued: the intent is dropped and Err says why.
type Outcome struct {
	Action board.Action
	Sent   bool
	Err    error
}

// Emitter builds and sends commands.
type Emitter struct {
	sender Sender
	boards BoardCounter
	tokens identity.TokenSource
	logger *log.Entry
}

// New creates an emitter. boards is used for default board names and tokens
// for authority-side attribution; either may be nil.
func New(sender Sender, boards BoardCounter, tokens identity.TokenSource) *Emitter {
	return &Emitter{
		sender: sender,
		boards: boards,
		tokens: tokens,
		logger: log.WithField("component", "emitter"),
	}
}

// DefaultBoardName is the name given to a board created without one.
func (e *Emitter) DefaultBoardName() string {
	n := 0
	if e.boards != nil {
		n = e.boards.Len()
	}
	return fmt.Sprintf("Board %d", n+1)
}

// NewBoard requests a board. An empty name becomes "Board N".
func (e *Emitter) NewBoard(ctx context.Context, name string) (Outcome, error) {
	if name == "" {
		name = e.DefaultBoardName()
	}
	return e.send(ctx, board.Message{Action: board.ActionNewBoard, Text: board.String(name)}), nil
}

// RenameBoard requests a board rename.
func (e *Emitter) RenameBoard(ctx context.Context, boardID, name string) (Outcome, error) {
	if boardID == "" {
		return Outcome{}, fmt.Errorf("rename board: %w", ErrMissingBoardID)
	}
	return e.send(ctx, board.Message{Action: board.ActionRenameBoard, BoardID: boardID, Text: board.String(name)}), nil
}

// DeleteBoard requests deletion of a board and its notes.
func (e *Emitter) DeleteBoard(ctx context.Context, boardID string) (Outcome, error) {
	if boardID == "" {
		return Outcome{}, fmt.Errorf("delete board: %w", ErrMissingBoardID)
	}
	return e.send(ctx, board.Message{Action: board.ActionDeleteBoard, BoardID: boardID}), nil
}

// NewNote requests a note at the given position. The authority assigns the
// id, author and weight.
func (e *Emitter) NewNote(ctx context.Context, boardID string, posX, posY float64) (Outcome, error) {
	if boardID == "" {
		return Outcome{}, fmt.Errorf("create note: %w", ErrMissingBoardID)
	}
	return e.send(ctx, board.Message{
		Action:  board.ActionNewNote,
		BoardID: boardID,
		PosX:    board.Float(posX),
		PosY:    board.Float(posY),
	}), nil
}

// UpdateContent requests a text edit.
func (e *Emitter) UpdateContent(ctx context.Context, boardID, noteID, text string) (Outcome, error) {
	if err := requireNote("update content", boardID, noteID); err != nil {
		return Outcome{}, err
	}
	return e.send(ctx, board.Message{
		Action:  board.ActionUpdateContent,
		BoardID: boardID,
		ID:      noteID,
		Text:    board.String(text),
	}), nil
}

// MoveNote requests a move.
func (e *Emitter) MoveNote(ctx context.Context, boardID, noteID string, posX, posY float64) (Outcome, error) {
	if err := requireNote("move note", boardID, noteID); err != nil {
		return Outcome{}, err
	}
	return e.send(ctx, board.Message{
		Action:  board.ActionMoveNote,
		BoardID: boardID,
		ID:      noteID,
		PosX:    board.Float(posX),
		PosY:    board.Float(posY),
	}), nil
}

// DeleteNote requests deletion of a note.
func (e *Emitter) DeleteNote(ctx context.Context, boardID, noteID string) (Outcome, error) {
	if err := requireNote("delete note", boardID, noteID); err != nil {
		return Outcome{}, err
	}
	return e.send(ctx, board.Message{Action: board.ActionDeleteNote, BoardID: boardID, ID: noteID}), nil
}

// AddVote requests an upvote.
func (e *Emitter) AddVote(ctx context.Context, boardID, noteID string) (Outcome, error) {
	if err := requireNote("add vote", boardID, noteID); err != nil {
		return Outcome{}, err
	}
	return e.send(ctx, board.Message{Action: board.ActionAddVote, BoardID: boardID, ID: noteID}), nil
}

// RemoveVote requests a downvote.
func (e *Emitter) RemoveVote(ctx context.Context, boardID, noteID string) (Outcome, error) {
	if err := requireNote("remove vote", boardID, noteID); err != nil {
		return Outcome{}, err
	}
	return e.send(ctx, board.Message{Action: board.ActionRemoveVote, BoardID: boardID, ID: noteID}), nil
}

// ShowNotes requests that authorID's notes on the board be revealed.
func (e *Emitter) ShowNotes(ctx context.Context, boardID, authorID string) (Outcome, error) {
	if err := requireAuthor("show notes", boardID, authorID); err != nil {
		return Outcome{}, err
	}
	return e.send(ctx, board.Message{Action: board.ActionShowNotes, BoardID: boardID, AuthorID: authorID}), nil
}

// HideNotes requests that authorID's notes on the board be concealed.
func (e *Emitter) HideNotes(ctx context.Context, boardID, authorID string) (Outcome, error) {
	if err := requireAuthor("hide notes", boardID, authorID); err != nil {
		return Outcome{}, err
	}
	return e.send(ctx, board.Message{Action: board.ActionHideNotes, BoardID: boardID, AuthorID: authorID}), nil
}

// send attaches the token, encodes and writes the command, reporting rather
// than returning any failure.
func (e *Emitter) send(ctx context.Context, m board.Message) Outcome {
	out := Outcome{Action: m.Action}
	logger := e.logger.WithField("action", m.Action)

	if e.tokens != nil {
		token, err := e.tokens.Token()
		if err != nil {
			logger.WithError(err).Warn("Sending without token")
		} else {
			m.Token = token
		}
	}

	frame, err := board.EncodeCommand(m)
	if err != nil {
		out.Err = err
		logger.WithError(err).Error("Failed to encode command")
		return out
	}

	if e.sender == nil {
		out.Err = errNoSender
		logger.WithError(out.Err).Warn("Dropping command")
		return out
	}
	if err := e.sender.Send(ctx, frame); err != nil {
		out.Err = err
		logger.WithError(err).Warn("Dropping command")
		return out
	}

	out.Sent = true
	logger.Debug("Command sent")
	return out
}

var errNoSender = errors.New("no transport configured")

func requireNote(op, boardID, noteID string) error {
	if boardID == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingBoardID)
	}
	if noteID == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingNoteID)
	}
	return nil
}

func requireAuthor(op, boardID, authorID string) error {
	if boardID == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingBoardID)
	}
	if authorID == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingAuthorID)
	}
	return nil
}
