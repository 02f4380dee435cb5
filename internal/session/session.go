// Package session runs the single event context that owns the replica:
// inbound frames, hydration results and scheduled work all execute on one
// goroutine, so reducer steps and snapshot replacements never interleave.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/code-troopers/postits/internal/emitter"
	"github.com/code-troopers/postits/internal/hydrate"
	"github.com/code-troopers/postits/internal/identity"
	"github.com/code-troopers/postits/internal/reducer"
	"github.com/code-troopers/postits/internal/transport"
	"github.com/code-troopers/postits/pkg/board"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrStopped is returned by Sync once Run has returned.
var ErrStopped = errors.New("session stopped")

// Observer is notified after every applied event, on the session goroutine.
// It must not block.
type Observer func(ev board.Event, effect reducer.Effect)

// Options configures a Session.
type Options struct {
	Replica   *board.Replica       // created when nil
	Transport transport.Transport  // required
	Source    hydrate.Source       // REST snapshots; hydration is disabled when nil
	Tokens    identity.TokenSource // attached to outbound commands when set
	Observer  Observer
}

// Session ties the replica, reducer, emitter and hydration coordinator to
// one transport connection.
type Session struct {
	id        string
	replica   *board.Replica
	transport transport.Transport
	reducer   *reducer.Reducer
	emitter   *emitter.Emitter
	hydrator  *hydrate.Coordinator
	observer  Observer

	tasks  chan func()
	done   chan struct{}
	logger *log.Entry
}

// New wires a session. Call Run to start processing.
func New(opts Options) (*Session, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("session requires a transport")
	}
	replica := opts.Replica
	if replica == nil {
		replica = board.NewReplica()
	}

	s := &Session{
		id:        uuid.New().String(),
		replica:   replica,
		transport: opts.Transport,
		observer:  opts.Observer,
		tasks:     make(chan func(), 64),
		done:      make(chan struct{}),
	}
	s.logger = log.WithFields(log.Fields{"component": "session", "session_id": s.id})

	var refresher reducer.Refresher
	if opts.Source != nil {
		s.hydrator = hydrate.New(replica, opts.Source, s)
		refresher = s.hydrator
	}
	s.reducer = reducer.New(replica, refresher)
	s.emitter = emitter.New(opts.Transport, replica, opts.Tokens)
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Replica returns the replica owned by the session. Reads are safe from any
// goroutine; writes belong to the session goroutine.
func (s *Session) Replica() *board.Replica { return s.replica }

// Emitter returns the command emitter bound to the session's transport.
func (s *Session) Emitter() *emitter.Emitter { return s.emitter }

// Hydrator returns the hydration coordinator, or nil when no source is set.
func (s *Session) Hydrator() *hydrate.Coordinator { return s.hydrator }

// Do schedules fn on the session goroutine. Work scheduled after Run has
// returned is discarded.
func (s *Session) Do(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.done:
	}
}

// Sync runs fn on the session goroutine and waits for it to return.
func (s *Session) Sync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case s.tasks <- task:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		// Run may have picked the task up just before exiting
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run bootstraps the board list when the replica is empty and then applies
// inbound events until ctx is cancelled or the transport closes.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	s.logger.Info("Session started")

	if s.hydrator != nil && s.replica.Len() == 0 {
		if err := s.hydrator.FetchBoards(ctx); err != nil {
			// The replica stays empty until the next hydration
			s.logger.WithError(err).Error("Board bootstrap failed")
		}
	}

	errs := s.transport.Errors()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session shutting down")
			return nil

		case frame, ok := <-s.transport.Frames():
			if !ok {
				s.logger.Info("Transport closed")
				return nil
			}
			s.handleFrame(frame)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.WithError(err).Warn("Transport error")

		case fn := <-s.tasks:
			fn()
		}
	}
}

func (s *Session) handleFrame(frame []byte) {
	ev, err := board.DecodeEvent(frame)
	if err != nil {
		s.logger.WithError(err).Warn("Skipping malformed frame")
		return
	}

	effect := s.reducer.Apply(ev)
	s.logger.WithFields(log.Fields{"action": ev.Action(), "effect": effect}).Debug("Event processed")

	if s.observer != nil {
		s.observer(ev, effect)
	}
}
