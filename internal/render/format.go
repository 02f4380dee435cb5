// Package render formats replica contents for the terminal: aligned tables
// for people and JSONL for scripts.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/code-troopers/postits/pkg/board"
)

// FormatBoards writes boards as a table with columns ID, NOTES and NAME.
// Returns the number of boards formatted.
func FormatBoards(w io.Writer, boards []board.Board) int {
	if len(boards) == 0 {
		fmt.Fprintln(w, "No boards found")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-7s %s\n", "ID", "NOTES", "NAME")
	fmt.Fprintf(w, "%-10s %-7s %s\n", "----------", "-------", "------------------------------")

	for _, b := range boards {
		fmt.Fprintf(w, "%-10s %-7s %s\n", formatID(b.ID), formatNoteCount(b.Notes), formatText(b.Name, 60))
	}

	fmt.Fprintf(w, "\n%d %s\n", len(boards), plural(len(boards), "board", "boards"))
	return len(boards)
}

// FormatNotes writes a board's notes as a table in the order given, which is
// expected to be the weight-sorted display order.
// Returns the number of notes formatted.
func FormatNotes(w io.Writer, b board.Board, notes []board.Note) int {
	if len(notes) == 0 {
		fmt.Fprintf(w, "No notes on board '%s'\n", b.Name)
		return 0
	}

	fmt.Fprintf(w, "Notes on board '%s':\n\n", b.Name)
	fmt.Fprintf(w, "%-10s %-6s %-6s %-11s %-18s %s\n",
		"ID", "VOTES", "WEIGHT", "POSITION", "AUTHOR", "TEXT")
	fmt.Fprintf(w, "%-10s %-6s %-6s %-11s %-18s %s\n",
		"----------", "------", "------", "-----------", "------------------", "----------------------------------------")

	for _, n := range notes {
		fmt.Fprintf(w, "%-10s %-6d %-6s %-11s %-18s %s\n",
			formatID(n.ID),
			n.Votes,
			formatNumber(n.Weight),
			formatNumber(n.PosX)+","+formatNumber(n.PosY),
			formatAuthor(n.Author),
			formatText(n.TextValue(), 40),
		)
	}

	fmt.Fprintf(w, "\n%d %s\n", len(notes), plural(len(notes), "note", "notes"))
	return len(notes)
}

// FormatBoardsJSONL writes each board as one JSON object per line.
func FormatBoardsJSONL(w io.Writer, boards []board.Board) error {
	for _, b := range boards {
		if err := writeLine(w, b); err != nil {
			return err
		}
	}
	return nil
}

// FormatNotesJSONL writes each note as one JSON object per line.
func FormatNotesJSONL(w io.Writer, notes []board.Note) error {
	for _, n := range notes {
		if err := writeLine(w, n); err != nil {
			return err
		}
	}
	return nil
}

// DescribeEvent renders an event as a single human readable line.
func DescribeEvent(ev board.Event) string {
	switch e := ev.(type) {
	case board.BoardCreated:
		return fmt.Sprintf("%s %s %q", e.Action(), formatID(e.BoardID), e.Name)
	case board.BoardRenamed:
		return fmt.Sprintf("%s %s %q", e.Action(), formatID(e.BoardID), e.Name)
	case board.BoardDeleted:
		return fmt.Sprintf("%s %s", e.Action(), formatID(e.BoardID))
	case board.NoteCreated:
		return fmt.Sprintf("%s %s/%s at %s,%s by %s", e.Action(), formatID(e.BoardID), formatID(e.NoteID),
			formatNumber(e.PosX), formatNumber(e.PosY), formatAuthor(e.Author))
	case board.NoteTextUpdated:
		text := "-"
		if e.Text != nil {
			text = strconv.Quote(formatText(*e.Text, 40))
		}
		return fmt.Sprintf("%s %s/%s %s", e.Action(), formatID(e.BoardID), formatID(e.NoteID), text)
	case board.NoteMoved:
		return fmt.Sprintf("%s %s/%s to %s,%s weight %s", e.Action(), formatID(e.BoardID), formatID(e.NoteID),
			formatNumber(e.PosX), formatNumber(e.PosY), formatNumber(e.Weight))
	case board.NoteDeleted:
		return fmt.Sprintf("%s %s/%s", e.Action(), formatID(e.BoardID), formatID(e.NoteID))
	case board.VoteAdded:
		return fmt.Sprintf("%s %s/%s", e.Action(), formatID(e.BoardID), formatID(e.NoteID))
	case board.VoteRemoved:
		return fmt.Sprintf("%s %s/%s", e.Action(), formatID(e.BoardID), formatID(e.NoteID))
	case board.NotesRevealed:
		return fmt.Sprintf("%s %s author %s", e.Action(), formatID(e.BoardID), formatID(e.AuthorID))
	case board.NotesConcealed:
		return fmt.Sprintf("%s %s author %s", e.Action(), formatID(e.BoardID), formatID(e.AuthorID))
	default:
		return string(ev.Action())
	}
}

func writeLine(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write JSONL output: %w", err)
	}
	return nil
}

// formatID truncates ids to their first 8 characters.
func formatID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatText keeps the first non-empty line, truncated to max characters.
// Empty text returns "-".
func formatText(text string, max int) string {
	var first string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			first = trimmed
			break
		}
	}
	if first == "" {
		return "-"
	}

	runes := []rune(first)
	if len(runes) > max {
		return string(runes[:max-3]) + "..."
	}
	return first
}

func formatNoteCount(s board.NoteSet) string {
	if !s.Loaded() {
		return "?"
	}
	return strconv.Itoa(s.Len())
}

func formatAuthor(u *board.User) string {
	name := u.DisplayName()
	if name == "" {
		return "-"
	}
	return formatText(name, 18)
}

// formatNumber drops the fractional part of whole numbers.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
