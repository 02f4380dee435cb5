// Package hydrate replaces parts of the replica wholesale with snapshots
// fetched from the authority.
package hydrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/code-troopers/postits/pkg/board"
	log "github.com/sirupsen/logrus"
)

// ErrUnknownBoard is returned by FetchNotes when the board is not in the
// replica even after bootstrapping the board list.
var ErrUnknownBoard = errors.New("board is not in the replica")

// Source fetches authoritative snapshots.
type Source interface {
	ListBoards(ctx context.Context) ([]board.Board, error)
	ListNotes(ctx context.Context, boardID string) ([]board.Note, error)
}

// Scheduler runs fn on the goroutine that owns the replica.
type Scheduler interface {
	Do(fn func())
}

// Coordinator performs hydration. Replacements are full, never merges: any
// live event applied while a fetch was in flight is overwritten when the
// fetch resolves. In-flight fetches are never cancelled.
type Coordinator struct {
	replica   *board.Replica
	source    Source
	scheduler Scheduler
	logger    *log.Entry
	wg        sync.WaitGroup

	// RefreshTimeout bounds each asynchronous refresh.
	RefreshTimeout time.Duration
}

// New creates a coordinator. With a nil scheduler asynchronous refreshes
// write to the replica from their own goroutine.
func New(replica *board.Replica, source Source, scheduler Scheduler) *Coordinator {
	return &Coordinator{
		replica:        replica,
		source:         source,
		scheduler:      scheduler,
		logger:         log.WithField("component", "hydrate"),
		RefreshTimeout: 30 * time.Second,
	}
}

// FetchBoards replaces the whole board collection with the authority's list.
func (c *Coordinator) FetchBoards(ctx context.Context) error {
	boards, err := c.source.ListBoards(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch boards: %w", err)
	}
	c.replica.ReplaceBoards(boards)
	c.logger.WithField("boards", len(boards)).Debug("Boards hydrated")
	return nil
}

// FetchNotes replaces one board's note collection. When the replica holds no
// boards at all the board list is fetched first.
func (c *Coordinator) FetchNotes(ctx context.Context, boardID string) error {
	if c.replica.Len() == 0 {
		if err := c.FetchBoards(ctx); err != nil {
			return err
		}
	}
	if _, ok := c.replica.Board(boardID); !ok {
		return fmt.Errorf("failed to fetch notes of %s: %w", boardID, ErrUnknownBoard)
	}

	notes, err := c.source.ListNotes(ctx, boardID)
	if err != nil {
		return fmt.Errorf("failed to fetch notes: %w", err)
	}
	c.replaceNotes(boardID, notes)
	return nil
}

// RefreshNotes re-fetches a board's notes in the background and posts the
// replacement through the scheduler. Failures are logged and leave the
// replica stale.
func (c *Coordinator) RefreshNotes(boardID string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.RefreshTimeout)
		defer cancel()

		notes, err := c.source.ListNotes(ctx, boardID)
		if err != nil {
			c.logger.WithError(err).WithField("board_id", boardID).Warn("Note refresh failed")
			return
		}

		if c.scheduler == nil {
			c.replaceNotes(boardID, notes)
			return
		}
		c.scheduler.Do(func() { c.replaceNotes(boardID, notes) })
	}()
}

// Wait blocks until every in-flight refresh has fetched and been handed to
// the scheduler.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) replaceNotes(boardID string, notes []board.Note) {
	if !c.replica.ReplaceNotes(boardID, notes) {
		c.logger.WithField("board_id", boardID).Debug("Board gone before notes arrived")
		return
	}
	c.logger.WithFields(log.Fields{"board_id": boardID, "notes": len(notes)}).Debug("Notes hydrated")
}
