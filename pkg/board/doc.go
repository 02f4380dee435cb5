// Package board provides the typed entity model, the local replica and the
// wire message definitions for the postits collaborative board client.
//
// # Overview
//
// A Board is a named canvas owning an ordered collection of Notes (sticky
// notes). The client keeps a partial, lazily hydrated copy of the boards the
// authority knows about in a Replica. The replica is the single owned state
// container: renderers and command builders hold a *Replica, never a copy.
//
// # Core Concepts
//
// Events are inbound wire messages describing a change the authority has
// already committed. They are decoded once, at the boundary, into one of the
// Event variants (BoardCreated, NoteMoved, VoteAdded, ...) so that consumers
// switch on Go types instead of action strings.
//
// Commands are outbound wire messages expressing a local user's requested
// change. They are plain Message values with the action discriminator and the
// fields the action needs.
//
// A board's note collection is tri-state: not yet loaded, loaded and empty,
// or loaded with notes. NoteSet makes the distinction explicit because a
// board created by a live event has no notes until hydration or a NEW_POSTIT
// event initialises the collection.
//
// # Usage Example
//
//	r := board.NewReplica()
//
//	ev, err := board.DecodeEvent(frame)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if created, ok := ev.(board.BoardCreated); ok {
//		r.AppendBoard(board.Board{ID: created.BoardID, Name: created.Name})
//	}
//
//	for _, n := range r.NotesForBoard("b1") {
//		fmt.Println(n.ID, n.Weight)
//	}
//
// # Redis Schema
//
// When events are fanned out through Redis instead of a websocket, channels
// are namespaced by instance name:
//
// Events: postits:{instance_name}:events
// Commands: postits:{instance_name}:commands
package board
