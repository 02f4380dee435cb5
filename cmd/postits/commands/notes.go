package commands

import (
	"errors"
	"fmt"

	"github.com/code-troopers/postits/internal/api"
	"github.com/code-troopers/postits/internal/filter"
	"github.com/code-troopers/postits/internal/hydrate"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/render"
	"github.com/code-troopers/postits/internal/resolver"
	"github.com/code-troopers/postits/pkg/board"
	"github.com/spf13/cobra"
)

var (
	notesOutputFormat string
	notesAuthor       string
	notesText         string
	notesMinVotes     int
)

var notesCmd = &cobra.Command{
	Use:   "notes BOARD",
	Short: "List a board's notes in display order",
	Long: `List the notes of one board, lowest weight first.

BOARD may be a full board ID, a unique ID prefix (at least 4 characters) or
the board's name.

Content Filters:
  --author     - Only notes by this author ID (exact match)
  --text       - Only notes whose text matches a glob ("*retro*")
  --min-votes  - Only notes with at least this many votes

Examples:
  # Notes on the "Sprint 1" board
  postits notes "Sprint 1"

  # Popular notes as JSONL
  postits notes 3f2a --min-votes=3 --output=jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runNotes,
}

func init() {
	notesCmd.Flags().StringVarP(&notesOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	notesCmd.Flags().StringVar(&notesAuthor, "author", "", "Filter by author ID (exact match)")
	notesCmd.Flags().StringVar(&notesText, "text", "", "Filter by note text (glob pattern)")
	notesCmd.Flags().IntVar(&notesMinVotes, "min-votes", 0, "Filter by minimum vote count")
	rootCmd.AddCommand(notesCmd)
}

func runNotes(cmd *cobra.Command, args []string) error {
	if err := checkOutputFormat(notesOutputFormat); err != nil {
		return err
	}
	ctx := cmd.Context()
	ref := args[0]

	replica := board.NewReplica()
	hydrator := hydrate.New(replica, restClient(), nil)
	if err := hydrator.FetchBoards(ctx); err != nil {
		return serverError(err)
	}

	boardID, err := resolver.ResolveBoardID(replica.Boards(), ref)
	if err != nil {
		var ambiguous *resolver.AmbiguousError
		if errors.As(err, &ambiguous) {
			return printer.Error(
				fmt.Sprintf("ambiguous board '%s'", ref),
				resolver.FormatAmbiguousError(ambiguous),
				nil,
			)
		}
		if resolver.IsNotFoundError(err) {
			return printer.Error(
				fmt.Sprintf("board '%s' not found", ref),
				"No board has this ID, ID prefix or name.",
				[]string{"List boards:\n  postits boards"},
			)
		}
		return printer.Error("invalid board reference", err.Error(), []string{"List boards:\n  postits boards"})
	}

	if err := hydrator.FetchNotes(ctx, boardID); err != nil {
		if errors.Is(err, api.ErrBoardNotFound) {
			return printer.Error(
				fmt.Sprintf("board '%s' not found", ref),
				"The board was deleted while its notes were being fetched.",
				[]string{"List boards:\n  postits boards"},
			)
		}
		return serverError(err)
	}

	criteria := filter.Criteria{AuthorID: notesAuthor, TextGlob: notesText}
	if cmd.Flags().Changed("min-votes") {
		criteria.MinVotes = &notesMinVotes
	}
	notes := criteria.Apply(replica.NotesForBoard(boardID))

	if notesOutputFormat == "jsonl" {
		return render.FormatNotesJSONL(cmd.OutOrStdout(), notes)
	}
	b, _ := replica.Board(boardID)
	render.FormatNotes(cmd.OutOrStdout(), b, notes)
	return nil
}
