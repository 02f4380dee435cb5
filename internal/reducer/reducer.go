// Package reducer applies inbound board events to the local replica.
package reducer

import (
	"fmt"

	"github.com/code-troopers/postits/pkg/board"
	log "github.com/sirupsen/logrus"
)

// Effect reports what a single Apply call did to the replica.
type Effect int

const (
	// Ignored means the event changed nothing: unknown action or dangling reference
	Ignored Effect = iota

	// Applied means the replica was mutated
	Applied

	// Refreshing means a note-list refresh was requested from the hydration coordinator
	Refreshing
)

// String implements fmt.Stringer.
func (e Effect) String() string {
	switch e {
	case Ignored:
		return "ignored"
	case Applied:
		return "applied"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("Effect(%d)", int(e))
	}
}

// Refresher re-fetches a board's note list and replaces it wholesale.
// Implementations must not block the caller on the network.
type Refresher interface {
	RefreshNotes(boardID string)
}

// Reducer is the state machine driving the replica from the event stream.
// Apply must be called from a single goroutine, once per event, in arrival order.
type Reducer struct {
	replica   *board.Replica
	refresher Refresher
	logger    *log.Entry
}

// New creates a reducer over replica. refresher may be nil, in which case
// reveal and conceal events are ignored.
func New(replica *board.Replica, refresher Refresher) *Reducer {
	return &Reducer{
		replica:   replica,
		refresher: refresher,
		logger:    log.WithField("component", "reducer"),
	}
}

// Apply applies one event. Events targeting boards or notes that are not in
// the replica are silent no-ops.
func (r *Reducer) Apply(ev board.Event) Effect {
	switch e := ev.(type) {
	case board.BoardCreated:
		if !r.replica.AppendBoard(board.Board{ID: e.BoardID, Name: e.Name}) {
			r.dangling(e, "board already present", e.BoardID, "")
			return Ignored
		}
		return Applied

	case board.BoardRenamed:
		return r.result(r.replica.RenameBoard(e.BoardID, e.Name), e, e.BoardID, "")

	case board.BoardDeleted:
		return r.result(r.replica.RemoveBoard(e.BoardID), e, e.BoardID, "")

	case board.NoteCreated:
		note := board.Note{
			ID:     e.NoteID,
			PosX:   e.PosX,
			PosY:   e.PosY,
			Weight: e.Weight,
			Author: e.Author,
		}
		return r.result(r.replica.AppendNote(e.BoardID, note), e, e.BoardID, e.NoteID)

	case board.NoteTextUpdated:
		ok := r.replica.UpdateNote(e.BoardID, e.NoteID, func(n *board.Note) {
			n.Text = e.Text
		})
		return r.result(ok, e, e.BoardID, e.NoteID)

	case board.NoteMoved:
		ok := r.replica.UpdateNote(e.BoardID, e.NoteID, func(n *board.Note) {
			n.PosX = e.PosX
			n.PosY = e.PosY
			n.Weight = e.Weight
		})
		return r.result(ok, e, e.BoardID, e.NoteID)

	case board.NoteDeleted:
		return r.result(r.replica.RemoveNote(e.BoardID, e.NoteID), e, e.BoardID, e.NoteID)

	case board.VoteAdded:
		ok := r.replica.UpdateNote(e.BoardID, e.NoteID, func(n *board.Note) { n.Votes++ })
		return r.result(ok, e, e.BoardID, e.NoteID)

	case board.VoteRemoved:
		ok := r.replica.UpdateNote(e.BoardID, e.NoteID, func(n *board.Note) { n.Votes-- })
		return r.result(ok, e, e.BoardID, e.NoteID)

	case board.NotesRevealed:
		return r.refresh(e, e.BoardID)

	case board.NotesConcealed:
		return r.refresh(e, e.BoardID)

	case board.Unknown:
		r.logger.WithField("action", e.Name).Debug("Ignoring unknown action")
		return Ignored

	default:
		r.logger.Debugf("Ignoring unsupported event %T", ev)
		return Ignored
	}
}

// refresh hands the board to the hydration coordinator. The authority decides
// which notes the requester may see, so the client simply re-hydrates.
func (r *Reducer) refresh(ev board.Event, boardID string) Effect {
	if boardID == "" || r.refresher == nil {
		r.dangling(ev, "no board to refresh", boardID, "")
		return Ignored
	}
	r.refresher.RefreshNotes(boardID)
	return Refreshing
}

func (r *Reducer) result(ok bool, ev board.Event, boardID, noteID string) Effect {
	if ok {
		return Applied
	}
	r.dangling(ev, "target not in replica", boardID, noteID)
	return Ignored
}

func (r *Reducer) dangling(ev board.Event, reason, boardID, noteID string) {
	fields := log.Fields{"action": ev.Action(), "board_id": boardID}
	if noteID != "" {
		fields["note_id"] = noteID
	}
	r.logger.WithFields(fields).Debug(reason)
}
