package hydrate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/code-troopers/postits/internal/reducer"
	"github.com/code-troopers/postits/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned snapshots. When gate is non-nil ListNotes blocks
// until it is closed.
type fakeSource struct {
	mu         sync.Mutex
	boards     []board.Board
	notes      map[string][]board.Note
	err        error
	gate       chan struct{}
	boardCalls int
	noteCalls  int
}

func (f *fakeSource) ListBoards(ctx context.Context) ([]board.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boardCalls++
	return f.boards, f.err
}

func (f *fakeSource) ListNotes(ctx context.Context, boardID string) ([]board.Note, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteCalls++
	return f.notes[boardID], f.err
}

// queue is a Scheduler that holds closures until drained
type queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queue) Do(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

func (q *queue) drain() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func TestFetchBoards(t *testing.T) {
	src := &fakeSource{boards: []board.Board{{ID: "b1", Name: "One"}, {ID: "b2", Name: "Two"}}}
	replica := board.NewReplica()
	replica.AppendBoard(board.Board{ID: "stale"})

	c := New(replica, src, nil)
	require.NoError(t, c.FetchBoards(context.Background()))

	boards := replica.Boards()
	require.Len(t, boards, 2)
	assert.Equal(t, "b1", boards[0].ID)
	_, ok := replica.Board("stale")
	assert.False(t, ok, "hydration replaces, never merges")

	src.err = errors.New("boom")
	err := c.FetchBoards(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, replica.Len(), "failed fetch leaves the replica as it was")
}

func TestFetchNotes(t *testing.T) {
	t.Run("bootstraps the board list when empty", func(t *testing.T) {
		src := &fakeSource{
			boards: []board.Board{{ID: "b1"}},
			notes:  map[string][]board.Note{"b1": {{ID: "n1", Weight: 2}, {ID: "n2", Weight: 1}}},
		}
		replica := board.NewReplica()
		c := New(replica, src, nil)

		require.NoError(t, c.FetchNotes(context.Background(), "b1"))
		assert.Equal(t, 1, src.boardCalls)

		b, _ := replica.Board("b1")
		assert.Equal(t, board.NotesLoaded, b.Notes.State())
		notes := replica.NotesForBoard("b1")
		require.Len(t, notes, 2)
		assert.Equal(t, "n2", notes[0].ID)
	})

	t.Run("does not refetch boards when present", func(t *testing.T) {
		src := &fakeSource{notes: map[string][]board.Note{}}
		replica := board.NewReplica()
		replica.AppendBoard(board.Board{ID: "b1"})
		c := New(replica, src, nil)

		require.NoError(t, c.FetchNotes(context.Background(), "b1"))
		assert.Equal(t, 0, src.boardCalls)

		b, _ := replica.Board("b1")
		assert.Equal(t, board.NotesLoaded, b.Notes.State(), "an empty list still marks the board loaded")
		assert.Equal(t, 0, b.Notes.Len())
	})

	t.Run("unknown board", func(t *testing.T) {
		src := &fakeSource{boards: []board.Board{{ID: "b1"}}}
		c := New(board.NewReplica(), src, nil)

		err := c.FetchNotes(context.Background(), "missing")
		assert.True(t, errors.Is(err, ErrUnknownBoard))
		assert.Equal(t, 0, src.noteCalls)
	})

	t.Run("fetch failure", func(t *testing.T) {
		src := &fakeSource{err: errors.New("boom")}
		replica := board.NewReplica()
		replica.AppendBoard(board.Board{ID: "b1"})
		c := New(replica, src, nil)

		assert.Error(t, c.FetchNotes(context.Background(), "b1"))
		b, _ := replica.Board("b1")
		assert.Equal(t, board.NotesUnloaded, b.Notes.State())
	})
}

func TestRefreshNotesGoesThroughScheduler(t *testing.T) {
	src := &fakeSource{notes: map[string][]board.Note{"b1": {{ID: "n1"}}}}
	replica := board.NewReplica()
	replica.AppendBoard(board.Board{ID: "b1"})
	q := &queue{}
	c := New(replica, src, q)

	c.RefreshNotes("b1")
	c.Wait()

	b, _ := replica.Board("b1")
	assert.Equal(t, board.NotesUnloaded, b.Notes.State(), "nothing is written until the scheduler runs")

	assert.Equal(t, 1, q.drain())
	_, ok := replica.Note("b1", "n1")
	assert.True(t, ok)
}

func TestRefreshOverwritesLiveEventsAppliedWhileInFlight(t *testing.T) {
	src := &fakeSource{
		notes: map[string][]board.Note{"b1": {{ID: "n1", Votes: 0}}},
		gate:  make(chan struct{}),
	}
	replica := board.NewReplica()
	replica.AppendBoard(board.Board{ID: "b1", Notes: board.LoadedNotes(board.Note{ID: "n1"})})
	q := &queue{}
	c := New(replica, src, q)
	r := reducer.New(replica, c)

	assert.Equal(t, reducer.Refreshing, r.Apply(board.NotesRevealed{BoardID: "b1", AuthorID: "u1"}))

	// Live events land on the pre-hydration replica
	r.Apply(board.VoteAdded{BoardID: "b1", NoteID: "n1"})
	r.Apply(board.NoteCreated{BoardID: "b1", NoteID: "n2"})
	n, _ := replica.Note("b1", "n1")
	assert.Equal(t, 1, n.Votes)

	close(src.gate)
	c.Wait()
	q.drain()

	n, _ = replica.Note("b1", "n1")
	assert.Equal(t, 0, n.Votes, "the snapshot wins")
	_, ok := replica.Note("b1", "n2")
	assert.False(t, ok)
}

func TestRefreshLastResolvedWins(t *testing.T) {
	src := &fakeSource{notes: map[string][]board.Note{"b1": {{ID: "first"}}}}
	replica := board.NewReplica()
	replica.AppendBoard(board.Board{ID: "b1"})
	q := &queue{}
	c := New(replica, src, q)

	c.RefreshNotes("b1")
	c.Wait()

	src.mu.Lock()
	src.notes["b1"] = []board.Note{{ID: "second"}}
	src.mu.Unlock()
	c.RefreshNotes("b1")
	c.Wait()

	// Resolution order, not issue order, decides the outcome
	q.mu.Lock()
	q.fns[0], q.fns[1] = q.fns[1], q.fns[0]
	q.mu.Unlock()
	q.drain()

	_, ok := replica.Note("b1", "first")
	assert.True(t, ok)
	_, ok = replica.Note("b1", "second")
	assert.False(t, ok)
}

func TestRefreshFailureLeavesReplicaStale(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	replica := board.NewReplica()
	replica.AppendBoard(board.Board{ID: "b1", Notes: board.LoadedNotes(board.Note{ID: "n1"})})
	q := &queue{}
	c := New(replica, src, q)

	c.RefreshNotes("b1")
	c.Wait()
	assert.Equal(t, 0, q.drain())

	_, ok := replica.Note("b1", "n1")
	assert.True(t, ok)
}

func TestRefreshForDeletedBoardIsDropped(t *testing.T) {
	src := &fakeSource{notes: map[string][]board.Note{"b1": {{ID: "n1"}}}}
	replica := board.NewReplica()
	replica.AppendBoard(board.Board{ID: "b1"})
	c := New(replica, src, nil)

	replica.RemoveBoard("b1")
	c.RefreshNotes("b1")
	c.Wait()
	assert.Equal(t, 0, replica.Len())
}
