package commands

import (
	"fmt"

	"github.com/code-troopers/postits/internal/hydrate"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/render"
	"github.com/code-troopers/postits/pkg/board"
	"github.com/spf13/cobra"
)

var boardsOutputFormat string

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List boards",
	Long: `List every board the server knows about.

Output Formats:
  default - Human-readable table with ID, note count and name
  jsonl   - Line-delimited JSON, one board per line

Examples:
  # List boards
  postits boards

  # Board names for scripting
  postits boards --output=jsonl | jq -r .name`,
	Args: cobra.NoArgs,
	RunE: runBoards,
}

func init() {
	boardsCmd.Flags().StringVarP(&boardsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(boardsCmd)
}

func runBoards(cmd *cobra.Command, args []string) error {
	if err := checkOutputFormat(boardsOutputFormat); err != nil {
		return err
	}

	replica := board.NewReplica()
	if err := hydrate.New(replica, restClient(), nil).FetchBoards(cmd.Context()); err != nil {
		return serverError(err)
	}

	if boardsOutputFormat == "jsonl" {
		return render.FormatBoardsJSONL(cmd.OutOrStdout(), replica.Boards())
	}
	render.FormatBoards(cmd.OutOrStdout(), replica.Boards())
	return nil
}

func checkOutputFormat(format string) error {
	switch format {
	case "default", "jsonl":
		return nil
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", format),
			[]string{"Valid formats: default, jsonl"},
		)
	}
}
