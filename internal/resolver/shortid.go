package resolver

import (
	"fmt"
	"strings"

	"github.com/code-troopers/postits/pkg/board"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 4

// ResolveBoardID resolves a user supplied board reference to a full board id.
//
// The reference is tried, in order, as:
// 1. an exact board id
// 2. a board name (case-insensitive, must be unique)
// 3. an id prefix of at least MinShortIDLength characters (must be unique)
func ResolveBoardID(boards []board.Board, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("board reference cannot be empty")
	}

	for _, b := range boards {
		if b.ID == ref {
			return b.ID, nil
		}
	}

	var byName []string
	for _, b := range boards {
		if strings.EqualFold(b.Name, ref) {
			byName = append(byName, b.ID)
		}
	}
	switch len(byName) {
	case 1:
		return byName[0], nil
	case 0:
	default:
		return "", &AmbiguousError{Kind: "board", ShortID: ref, Matches: byName}
	}

	ids := make([]string, 0, len(boards))
	for _, b := range boards {
		ids = append(ids, b.ID)
	}
	return resolvePrefix("board", ids, ref)
}

// ResolveNoteID resolves a note id or id prefix within one board's notes.
func ResolveNoteID(notes []board.Note, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("note reference cannot be empty")
	}

	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		if n.ID == ref {
			return n.ID, nil
		}
		ids = append(ids, n.ID)
	}
	return resolvePrefix("note", ids, ref)
}

func resolvePrefix(kind string, ids []string, prefix string) (string, error) {
	if len(prefix) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(prefix))
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Kind: kind, ShortID: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Kind: kind, ShortID: prefix, Matches: matches}
	}
}

// NotFoundError indicates nothing matched the reference.
type NotFoundError struct {
	Kind    string
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %ss found matching '%s'", e.Kind, e.ShortID)
}

// AmbiguousError indicates several boards or notes matched the reference.
type AmbiguousError struct {
	Kind    string
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous reference '%s' matches %d %ss", e.ShortID, len(e.Matches), e.Kind)
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous references.
// Lists all matching ids (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	msg := fmt.Sprintf("Error: ambiguous reference '%s' matches %d %ss:\n", err.ShortID, len(err.Matches), err.Kind)

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}

	for i := 0; i < displayCount; i++ {
		msg += fmt.Sprintf("  %s\n", err.Matches[i])
	}

	if len(err.Matches) > 10 {
		msg += fmt.Sprintf("  ...and %d more\n", len(err.Matches)-10)
	}

	msg += fmt.Sprintf("\nUse a longer prefix or the full id to identify the %s.", err.Kind)
	return msg
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
