// Package shell provides an interactive prompt for browsing boards and issuing
// intents over a running session.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/code-troopers/postits/internal/emitter"
	"github.com/code-troopers/postits/internal/identity"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/render"
	"github.com/code-troopers/postits/internal/resolver"
	"github.com/code-troopers/postits/internal/session"
	"github.com/code-troopers/postits/pkg/board"
	log "github.com/sirupsen/logrus"
)

// ErrExit is returned by Execute when the user asks to leave.
var ErrExit = errors.New("exit requested")

type command struct {
	usage   string
	summary string
	minArgs int
	run     func(ctx context.Context, args []string) error
}

// Shell executes commands against one session. Reads go straight to the
// replica; every change is sent as an intent and shows up once the authority
// echoes it back.
type Shell struct {
	session  *session.Session
	tokens   identity.TokenSource
	current  string
	commands map[string]command
	logger   *log.Entry

	// Out receives tables and listings.
	Out io.Writer
}

// New creates a shell bound to a running session.
func New(sess *session.Session, tokens identity.TokenSource) *Shell {
	sh := &Shell{
		session: sess,
		tokens:  tokens,
		logger:  log.WithField("component", "shell"),
		Out:     os.Stdout,
	}
	sh.commands = map[string]command{
		"help":         {usage: "help", summary: "list commands", run: sh.help},
		"boards":       {usage: "boards", summary: "list boards", run: sh.boards},
		"open":         {usage: "open <board>", summary: "load a board's notes and make it current", minArgs: 1, run: sh.open},
		"notes":        {usage: "notes [board]", summary: "list notes by weight", run: sh.notes},
		"new-board":    {usage: "new-board [name]", summary: "create a board", run: sh.newBoard},
		"rename":       {usage: "rename <board> <name>", summary: "rename a board", minArgs: 2, run: sh.rename},
		"delete-board": {usage: "delete-board <board>", summary: "delete a board and its notes", minArgs: 1, run: sh.deleteBoard},
		"add":          {usage: "add <x> <y>", summary: "add a note to the current board", minArgs: 2, run: sh.add},
		"edit":         {usage: "edit <note> <text>", summary: "replace a note's text", minArgs: 2, run: sh.edit},
		"move":         {usage: "move <note> <x> <y>", summary: "move a note", minArgs: 3, run: sh.move},
		"rm":           {usage: "rm <note>", summary: "delete a note", minArgs: 1, run: sh.remove},
		"up":           {usage: "up <note>", summary: "upvote a note", minArgs: 1, run: sh.upvote},
		"down":         {usage: "down <note>", summary: "downvote a note", minArgs: 1, run: sh.downvote},
		"show":         {usage: "show [author]", summary: "reveal an author's notes (default: you)", run: sh.show},
		"hide":         {usage: "hide [author]", summary: "conceal an author's notes (default: you)", run: sh.hide},
		"whoami":       {usage: "whoami", summary: "print the signed-in user", run: sh.whoami},
		"exit":         {usage: "exit", summary: "leave the shell", run: sh.exit},
		"quit":         {usage: "quit", summary: "leave the shell", run: sh.exit},
	}
	return sh
}

// Current returns the id of the board selected with open, or "".
func (sh *Shell) Current() string { return sh.current }

// Prompt reflects the current board.
func (sh *Shell) Prompt() string {
	if sh.current == "" {
		return "postits> "
	}
	if b, ok := sh.session.Replica().Board(sh.current); ok {
		return fmt.Sprintf("postits:%s> ", b.Name)
	}
	return "postits> "
}

// Run reads lines from rl until EOF, exit or ctx is cancelled.
func (sh *Shell) Run(ctx context.Context, rl *readline.Instance) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		rl.SetPrompt(sh.Prompt())

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				printer.Info("Use 'exit' or 'quit' to leave the shell.\n")
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		err = sh.Execute(ctx, line)
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			printer.Warning("%v\n", err)
		}
	}
}

// Execute parses and runs one command line.
func (sh *Shell) Execute(ctx context.Context, line string) error {
	args, err := ParseArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	cmd, ok := sh.commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
	if len(args)-1 < cmd.minArgs {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(ctx, args[1:])
}

func (sh *Shell) help(ctx context.Context, args []string) error {
	names := make([]string, 0, len(sh.commands))
	for name := range sh.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := sh.commands[name]
		fmt.Fprintf(sh.Out, "  %-22s %s\n", cmd.usage, cmd.summary)
	}
	return nil
}

func (sh *Shell) boards(ctx context.Context, args []string) error {
	boards := sh.session.Replica().Boards()
	if len(boards) == 0 {
		printer.Info("No boards yet. Create one with 'new-board'.\n")
		return nil
	}
	render.FormatBoards(sh.Out, boards)
	return nil
}

func (sh *Shell) open(ctx context.Context, args []string) error {
	boardID, err := sh.resolveBoard(args[0])
	if err != nil {
		return err
	}
	if err := sh.hydrate(ctx, boardID); err != nil {
		return err
	}
	sh.current = boardID
	return sh.printNotes(boardID)
}

func (sh *Shell) notes(ctx context.Context, args []string) error {
	boardID := sh.current
	if len(args) > 0 {
		id, err := sh.resolveBoard(args[0])
		if err != nil {
			return err
		}
		boardID = id
	}
	if boardID == "" {
		return fmt.Errorf("no board selected (use 'open <board>')")
	}

	if b, ok := sh.session.Replica().Board(boardID); ok && !b.Notes.Loaded() {
		if err := sh.hydrate(ctx, boardID); err != nil {
			return err
		}
	}
	return sh.printNotes(boardID)
}

func (sh *Shell) newBoard(ctx context.Context, args []string) error {
	return sh.report(sh.session.Emitter().NewBoard(ctx, strings.Join(args, " ")))
}

func (sh *Shell) rename(ctx context.Context, args []string) error {
	boardID, err := sh.resolveBoard(args[0])
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().RenameBoard(ctx, boardID, strings.Join(args[1:], " ")))
}

func (sh *Shell) deleteBoard(ctx context.Context, args []string) error {
	boardID, err := sh.resolveBoard(args[0])
	if err != nil {
		return err
	}
	if boardID == sh.current {
		sh.current = ""
	}
	return sh.report(sh.session.Emitter().DeleteBoard(ctx, boardID))
}

func (sh *Shell) add(ctx context.Context, args []string) error {
	if sh.current == "" {
		return fmt.Errorf("no board selected (use 'open <board>')")
	}
	x, y, err := parsePosition(args[0], args[1])
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().NewNote(ctx, sh.current, x, y))
}

func (sh *Shell) edit(ctx context.Context, args []string) error {
	noteID, err := sh.resolveNote(args[0])
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().UpdateContent(ctx, sh.current, noteID, strings.Join(args[1:], " ")))
}

func (sh *Shell) move(ctx context.Context, args []string) error {
	noteID, err := sh.resolveNote(args[0])
	if err != nil {
		return err
	}
	x, y, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().MoveNote(ctx, sh.current, noteID, x, y))
}

func (sh *Shell) remove(ctx context.Context, args []string) error {
	noteID, err := sh.resolveNote(args[0])
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().DeleteNote(ctx, sh.current, noteID))
}

func (sh *Shell) upvote(ctx context.Context, args []string) error {
	noteID, err := sh.resolveNote(args[0])
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().AddVote(ctx, sh.current, noteID))
}

func (sh *Shell) downvote(ctx context.Context, args []string) error {
	noteID, err := sh.resolveNote(args[0])
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().RemoveVote(ctx, sh.current, noteID))
}

func (sh *Shell) show(ctx context.Context, args []string) error {
	authorID, err := sh.author(args)
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().ShowNotes(ctx, sh.current, authorID))
}

func (sh *Shell) hide(ctx context.Context, args []string) error {
	authorID, err := sh.author(args)
	if err != nil {
		return err
	}
	return sh.report(sh.session.Emitter().HideNotes(ctx, sh.current, authorID))
}

func (sh *Shell) whoami(ctx context.Context, args []string) error {
	user, err := sh.me()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "%s (%s)\n", user.DisplayName(), user.ID)
	return nil
}

func (sh *Shell) exit(ctx context.Context, args []string) error {
	return ErrExit
}

// hydrate fetches a board's notes on the session goroutine so the
// replacement never interleaves with a reducer step.
func (sh *Shell) hydrate(ctx context.Context, boardID string) error {
	hydrator := sh.session.Hydrator()
	if hydrator == nil {
		return nil
	}

	var fetchErr error
	if err := sh.session.Sync(ctx, func() {
		fetchErr = hydrator.FetchNotes(ctx, boardID)
	}); err != nil {
		return err
	}
	return fetchErr
}

func (sh *Shell) printNotes(boardID string) error {
	b, ok := sh.session.Replica().Board(boardID)
	if !ok {
		return fmt.Errorf("board %s is gone", boardID)
	}
	render.FormatNotes(sh.Out, b, sh.session.Replica().NotesForBoard(boardID))
	return nil
}

// report turns an intent result into user feedback. Contract violations are
// returned; dropped sends are only warned about.
func (sh *Shell) report(out emitter.Outcome, err error) error {
	if err != nil {
		return err
	}
	if !out.Sent {
		printer.Warning("%s dropped: %v\n", out.Action, out.Err)
		return nil
	}
	printer.Step("%s sent\n", out.Action)
	return nil
}

func (sh *Shell) resolveBoard(ref string) (string, error) {
	id, err := resolver.ResolveBoardID(sh.session.Replica().Boards(), ref)
	var ambiguous *resolver.AmbiguousError
	if errors.As(err, &ambiguous) {
		return "", errors.New(resolver.FormatAmbiguousError(ambiguous))
	}
	return id, err
}

func (sh *Shell) resolveNote(ref string) (string, error) {
	if sh.current == "" {
		return "", fmt.Errorf("no board selected (use 'open <board>')")
	}
	id, err := resolver.ResolveNoteID(sh.session.Replica().NotesForBoard(sh.current), ref)
	var ambiguous *resolver.AmbiguousError
	if errors.As(err, &ambiguous) {
		return "", errors.New(resolver.FormatAmbiguousError(ambiguous))
	}
	return id, err
}

func (sh *Shell) author(args []string) (string, error) {
	if sh.current == "" {
		return "", fmt.Errorf("no board selected (use 'open <board>')")
	}
	if len(args) > 0 {
		return args[0], nil
	}
	user, err := sh.me()
	if err != nil {
		return "", fmt.Errorf("cannot tell who you are: %w", err)
	}
	return user.ID, nil
}

func (sh *Shell) me() (board.User, error) {
	if sh.tokens == nil {
		return board.User{}, identity.ErrNoToken
	}
	return identity.CurrentUserFrom(sh.tokens)
}

func parsePosition(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate %q", ys)
	}
	return x, y, nil
}
