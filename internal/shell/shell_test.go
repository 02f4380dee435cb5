package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/code-troopers/postits/internal/api"
	"github.com/code-troopers/postits/internal/identity"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/session"
	"github.com/code-troopers/postits/internal/testutil"
	"github.com/code-troopers/postits/internal/transport"
	"github.com/code-troopers/postits/pkg/board"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	shell     *Shell
	session   *session.Session
	authority *testutil.Authority
	out       *bytes.Buffer
}

func setup(t *testing.T) *fixture {
	t.Helper()

	color.NoColor = true
	out := &bytes.Buffer{}
	printer.SetOutput(out, out)
	t.Cleanup(func() { printer.SetOutput(nil, nil) })

	authority := testutil.NewAuthority(t)
	authority.SeedBoard(board.Board{ID: "b1a2c3d4", Name: "Sprint 1", Notes: board.LoadedNotes(
		board.Note{ID: "n1f00000", Text: board.String("keep standups short"), PosX: 10, PosY: 20, Weight: 2,
			Show: true, Author: &board.User{ID: "u2"}},
		board.Note{ID: "n2f00000", Text: board.String("ship it"), Weight: 1, Show: true, Author: &board.User{ID: "u2"}},
	)})
	authority.SeedBoard(board.Board{ID: "e5f6a7b8", Name: "Retro", Notes: board.LoadedNotes()})

	tokens := identity.StaticToken(authority.Token(board.User{ID: "u1", GivenName: "Ada", FamilyName: "Lovelace"}))
	token, _ := tokens.Token()

	ctx, cancel := context.WithCancel(context.Background())
	ws, err := transport.DialWebSocket(ctx, authority.WSURL(), token)
	require.NoError(t, err)

	s, err := session.New(session.Options{
		Transport: ws,
		Source:    api.New(authority.URL(), tokens),
		Tokens:    tokens,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		ws.Close()
		<-done
	})
	require.Eventually(t, func() bool { return s.Replica().Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	sh := New(s, tokens)
	sh.Out = out
	return &fixture{shell: sh, session: s, authority: authority, out: out}
}

func (f *fixture) run(t *testing.T, line string) string {
	t.Helper()
	f.out.Reset()
	require.NoError(t, f.shell.Execute(context.Background(), line))
	return f.out.String()
}

func TestExecuteBrowsing(t *testing.T) {
	f := setup(t)

	out := f.run(t, "boards")
	assert.Contains(t, out, "Sprint 1")
	assert.Contains(t, out, "Retro")

	err := f.shell.Execute(context.Background(), "notes")
	assert.EqualError(t, err, "no board selected (use 'open <board>')")

	out = f.run(t, "notes retro")
	assert.Contains(t, out, "No notes on board 'Retro'")
	assert.Empty(t, f.shell.Current(), "notes does not change the current board")
	assert.Equal(t, "postits> ", f.shell.Prompt())
}

func TestOpenLoadsNotesInWeightOrder(t *testing.T) {
	f := setup(t)

	out := f.run(t, `open "sprint 1"`)
	assert.Equal(t, "b1a2c3d4", f.shell.Current())
	assert.Equal(t, "postits:Sprint 1> ", f.shell.Prompt())

	first := strings.Index(out, "ship it")
	second := strings.Index(out, "keep standups short")
	require.True(t, first >= 0 && second >= 0, out)
	assert.Less(t, first, second, "lower weight listed first")

	b, ok := f.session.Replica().Board("b1a2c3d4")
	require.True(t, ok)
	assert.Equal(t, 2, b.Notes.Len())
}

func TestIntentsRoundTrip(t *testing.T) {
	f := setup(t)
	replica := f.session.Replica()

	f.run(t, "open b1a2")
	out := f.run(t, "up n1f0")
	assert.Contains(t, out, "ADD_VOTE sent")
	require.Eventually(t, func() bool {
		n, _ := replica.Note("b1a2c3d4", "n1f00000")
		return n.Votes == 1
	}, 5*time.Second, 10*time.Millisecond)

	f.run(t, `edit n2f0 "ship it friday"`)
	require.Eventually(t, func() bool {
		n, _ := replica.Note("b1a2c3d4", "n2f00000")
		return n.TextValue() == "ship it friday"
	}, 5*time.Second, 10*time.Millisecond)

	f.run(t, "move n2f0 5 6.5")
	require.Eventually(t, func() bool {
		n, _ := replica.Note("b1a2c3d4", "n2f00000")
		return n.PosY == 6.5 && n.Weight == 3
	}, 5*time.Second, 10*time.Millisecond)

	f.run(t, "add 1 2")
	require.Eventually(t, func() bool {
		return len(replica.NotesForBoard("b1a2c3d4")) == 3
	}, 5*time.Second, 10*time.Millisecond)

	f.run(t, "rm n1f0")
	require.Eventually(t, func() bool {
		_, ok := replica.Note("b1a2c3d4", "n1f00000")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	f.run(t, "new-board Planning Q3")
	require.Eventually(t, func() bool { return replica.Len() == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Planning Q3", replica.Boards()[2].Name)

	f.run(t, "rename retro Retrospective")
	require.Eventually(t, func() bool {
		b, _ := replica.Board("e5f6a7b8")
		return b.Name == "Retrospective"
	}, 5*time.Second, 10*time.Millisecond)

	f.run(t, "show")
	f.run(t, "delete-board b1a2")
	assert.Empty(t, f.shell.Current())
	require.Eventually(t, func() bool { return replica.Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	cmds := f.authority.WaitForCommands(9)
	assert.Equal(t, board.ActionShowNotes, cmds[7].Action)
	assert.Equal(t, "b1a2c3d4", cmds[7].BoardID)
	assert.Equal(t, "u1", cmds[7].AuthorID)
}

func TestExecuteErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{line: "frobnicate", want: `unknown command "frobnicate"`},
		{line: "rename b1a2", want: "usage: rename <board> <name>"},
		{line: "add 1 2", want: "no board selected"},
		{line: "up n1f0", want: "no board selected"},
		{line: "open nope", want: "no boards found matching 'nope'"},
		{line: `edit "open`, want: "unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := f.shell.Execute(ctx, tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	f.run(t, "open b1a2")
	err := f.shell.Execute(ctx, "move n1f0 left 2")
	assert.EqualError(t, err, `invalid x coordinate "left"`)

	assert.Empty(t, f.authority.Commands(), "failed commands never reach the authority")
}

func TestExecuteMisc(t *testing.T) {
	f := setup(t)

	assert.NoError(t, f.shell.Execute(context.Background(), "   "))
	assert.ErrorIs(t, f.shell.Execute(context.Background(), "exit"), ErrExit)
	assert.ErrorIs(t, f.shell.Execute(context.Background(), "quit"), ErrExit)

	out := f.run(t, "whoami")
	assert.Equal(t, "Ada Lovelace (u1)\n", out)

	out = f.run(t, "help")
	assert.Contains(t, out, "open <board>")
	assert.Less(t, strings.Index(out, "add <x> <y>"), strings.Index(out, "whoami"))
}
