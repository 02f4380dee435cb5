package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/reducer"
	"github.com/code-troopers/postits/internal/render"
	"github.com/code-troopers/postits/internal/session"
	"github.com/code-troopers/postits/pkg/board"
	"github.com/spf13/cobra"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live board activity",
	Long: `Connect to the server and print every event as it is applied to the
local replica.

Each line is marked with what the event did locally:
  ●  applied to the replica
  ↻  triggered a re-fetch of a board's notes
  ·  ignored (unknown action or missing board/note)

Output Formats:
  default - Human-readable, colored lines
  jsonl   - Line-delimited JSON with action, effect and description

Examples:
  # Watch everything
  postits watch

  # Record events
  postits watch --output=jsonl > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(watchCmd)
}

type watchLine struct {
	Action      board.Action `json:"action"`
	Effect      string       `json:"effect"`
	Description string       `json:"description"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := checkOutputFormat(watchOutputFormat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchEvents(ctx, cmd.OutOrStdout(), watchOutputFormat)
}

// watchEvents runs a session until ctx is done or the connection drops.
func watchEvents(ctx context.Context, w io.Writer, format string) error {
	tr, err := connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	observer := func(ev board.Event, effect reducer.Effect) {
		if format == "jsonl" {
			data, err := sonic.ConfigStd.Marshal(watchLine{
				Action:      ev.Action(),
				Effect:      effect.String(),
				Description: render.DescribeEvent(ev),
			})
			if err == nil {
				fmt.Fprintln(w, string(data))
			}
			return
		}
		printer.Event(effect.String(), "%s", render.DescribeEvent(ev))
	}

	s, err := session.New(session.Options{
		Transport: tr,
		Source:    restClient(),
		Tokens:    cfg.TokenSource(),
		Observer:  observer,
	})
	if err != nil {
		return err
	}

	if format != "jsonl" {
		printer.Step("Watching %s (Ctrl+C to stop)\n", describeEndpoint())
	}
	return s.Run(ctx)
}

func describeEndpoint() string {
	if cfg.Transport.Kind == "redis" {
		return fmt.Sprintf("redis instance '%s'", cfg.Transport.Instance)
	}
	return cfg.Server.WSURL
}
