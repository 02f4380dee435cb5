package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/reducer"
	"github.com/code-troopers/postits/internal/render"
	"github.com/code-troopers/postits/internal/session"
	"github.com/code-troopers/postits/internal/shell"
	"github.com/code-troopers/postits/pkg/board"
	"github.com/spf13/cobra"
)

var (
	shellHistoryFile string
	shellQuiet       bool
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive board session",
	Long: `Open an interactive prompt connected to the server.

Boards and notes can be referenced by full ID, by a unique ID prefix of at
least 4 characters, or (boards only) by name. Type 'help' at the prompt for
the list of commands.

Changes you type are sent to the server and appear once the server
broadcasts them back; incoming events are printed as they arrive unless
--quiet is set.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().StringVar(&shellHistoryFile, "history", "", "File to persist command history in")
	shellCmd.Flags().BoolVarP(&shellQuiet, "quiet", "q", false, "Do not print incoming events")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	tr, err := connect(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	var observer session.Observer
	if !shellQuiet {
		observer = func(ev board.Event, effect reducer.Effect) {
			if effect != reducer.Ignored {
				printer.Event(effect.String(), "%s", render.DescribeEvent(ev))
			}
		}
	}

	tokens := cfg.TokenSource()
	s, err := session.New(session.Options{
		Transport: tr,
		Source:    restClient(),
		Tokens:    tokens,
		Observer:  observer,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(runCtx) }()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "postits> ",
		HistoryFile:     shellHistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	// Event lines are written above the prompt instead of through it
	printer.SetOutput(rl.Stdout(), rl.Stderr())
	defer printer.SetOutput(nil, nil)

	sh := shell.New(s, tokens)
	sh.Out = rl.Stdout()
	printer.Info("Connected. Type 'help' for commands.\n")
	if err := sh.Run(ctx, rl); err != nil {
		return err
	}

	cancel()
	return <-runErr
}
