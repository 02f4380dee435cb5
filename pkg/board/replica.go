package board

import (
	"sort"
	"sync"
)

// Replica is the local, partial copy of authority state: an ordered sequence
// of boards kept unique by id, each owning a tri-state note collection.
//
// Lookups targeting a missing board or note are reported through the boolean
// results and never as errors. The replica is safe for concurrent use; the
// session still funnels every write through one goroutine so that reducer
// steps and hydration replacements never interleave.
type Replica struct {
	mu     sync.RWMutex
	boards []*Board
	index  map[string]int // board id -> position in boards
}

// NewReplica creates an empty replica.
func NewReplica() *Replica {
	return &Replica{index: make(map[string]int)}
}

func (r *Replica) reindex() {
	r.index = make(map[string]int, len(r.boards))
	for i, b := range r.boards {
		r.index[b.ID] = i
	}
}

func (r *Replica) lookup(id string) *Board {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return r.boards[i]
}

// Len returns the number of boards.
func (r *Replica) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}

// Boards returns a copy of every board in insertion order.
func (r *Replica) Boards() []Board {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Board, 0, len(r.boards))
	for _, b := range r.boards {
		out = append(out, b.clone())
	}
	return out
}

// Board returns a copy of the board with the given id.
func (r *Replica) Board(id string) (Board, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b := r.lookup(id)
	if b == nil {
		return Board{}, false
	}
	return b.clone(), true
}

// Note returns a copy of a note looked up by board id then note id.
func (r *Replica) Note(boardID, noteID string) (Note, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b := r.lookup(boardID)
	if b == nil {
		return Note{}, false
	}
	i := b.Notes.indexOf(noteID)
	if i < 0 {
		return Note{}, false
	}
	return b.Notes.notes[i].clone(), true
}

// AppendBoard adds a board at the end of the collection. A board whose id is
// already present is ignored and false is returned.
func (r *Replica) AppendBoard(b Board) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[b.ID]; exists {
		return false
	}
	nb := b.clone()
	stampBoardID(&nb)
	r.boards = append(r.boards, &nb)
	r.index[nb.ID] = len(r.boards) - 1
	return true
}

// RenameBoard sets the name of an existing board.
func (r *Replica) RenameBoard(id, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.lookup(id)
	if b == nil {
		return false
	}
	b.Name = name
	return true
}

// RemoveBoard deletes a board and, with it, every note it owns.
func (r *Replica) RemoveBoard(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.boards = append(r.boards[:i], r.boards[i+1:]...)
	r.reindex()
	return true
}

// ReplaceBoards swaps the whole collection for a freshly fetched snapshot.
// Later duplicates of an id are dropped so board ids stay unique.
func (r *Replica) ReplaceBoards(boards []Board) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.boards = make([]*Board, 0, len(boards))
	seen := make(map[string]bool, len(boards))
	for _, b := range boards {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		nb := b.clone()
		stampBoardID(&nb)
		r.boards = append(r.boards, &nb)
	}
	r.reindex()
}

// ReplaceNotes swaps one board's note collection for a freshly fetched list,
// marking it loaded. Returns false when the board is not present.
func (r *Replica) ReplaceNotes(boardID string, notes []Note) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.lookup(boardID)
	if b == nil {
		return false
	}
	b.Notes = LoadedNotes(dedupeNotes(notes)...)
	stampBoardID(b)
	return true
}

// AppendNote adds a note at the end of a board's collection, initialising an
// unloaded collection first. Returns false when the board is absent or a note
// with the same id already exists.
func (r *Replica) AppendNote(boardID string, n Note) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.lookup(boardID)
	if b == nil {
		return false
	}
	if !b.Notes.loaded {
		b.Notes = NoteSet{loaded: true, notes: []Note{}}
	}
	if n.ID != "" && b.Notes.indexOf(n.ID) >= 0 {
		return false
	}
	nn := n.clone()
	nn.BoardID = boardID
	b.Notes.notes = append(b.Notes.notes, nn)
	return true
}

// UpdateNote runs fn against the stored note. The note id and its board back
// reference are restored after fn returns.
func (r *Replica) UpdateNote(boardID, noteID string, fn func(*Note)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.lookup(boardID)
	if b == nil {
		return false
	}
	i := b.Notes.indexOf(noteID)
	if i < 0 {
		return false
	}
	n := &b.Notes.notes[i]
	fn(n)
	n.ID = noteID
	n.BoardID = boardID
	return true
}

// RemoveNote deletes a note from its board.
func (r *Replica) RemoveNote(boardID, noteID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.lookup(boardID)
	if b == nil {
		return false
	}
	i := b.Notes.indexOf(noteID)
	if i < 0 {
		return false
	}
	b.Notes.notes = append(b.Notes.notes[:i], b.Notes.notes[i+1:]...)
	return true
}

// NotesForBoard returns the board's notes sorted ascending by weight for
// display. Ties keep insertion order. Unknown or unloaded boards yield an
// empty slice.
func (r *Replica) NotesForBoard(boardID string) []Note {
	r.mu.RLock()
	b := r.lookup(boardID)
	var notes []Note
	if b != nil {
		notes = b.Notes.All()
	}
	r.mu.RUnlock()

	if notes == nil {
		return []Note{}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Weight < notes[j].Weight
	})
	return notes
}

func stampBoardID(b *Board) {
	for i := range b.Notes.notes {
		b.Notes.notes[i].BoardID = b.ID
	}
}

func dedupeNotes(notes []Note) []Note {
	out := make([]Note, 0, len(notes))
	seen := make(map[string]bool, len(notes))
	for _, n := range notes {
		if n.ID != "" {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
		}
		out = append(out, n)
	}
	return out
}
