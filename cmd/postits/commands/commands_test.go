package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/code-troopers/postits/internal/config"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/testutil"
	"github.com/code-troopers/postits/pkg/board"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAuthority starts a fake server with two boards and writes a config
// file pointing at it
func setupAuthority(t *testing.T) (*testutil.Authority, string) {
	t.Helper()

	authority := testutil.NewAuthority(t)
	authority.SeedBoard(board.Board{ID: "3f2a9c1e-0000", Name: "Sprint 1", Notes: board.LoadedNotes(
		board.Note{ID: "aaaa1111", Text: board.String("keep standups short"), Votes: 3, Weight: 2, Show: true,
			Author: &board.User{ID: "u1", GivenName: "Ada"}},
		board.Note{ID: "bbbb2222", Text: board.String("fix flaky tests"), Votes: 1, Weight: 1, Show: true,
			Author: &board.User{ID: "u2", GivenName: "Grace"}},
	)})
	authority.SeedBoard(board.Board{ID: "3f2a77b0-0000", Name: "Sprint 2", Notes: board.LoadedNotes()})

	token := authority.Token(board.User{ID: "u1", GivenName: "Ada", FamilyName: "Lovelace", Email: "ada@example.com"})
	path := writeConfig(t, fmt.Sprintf(`version: "1.0"
server:
  api_url: %s
auth:
  token: %s
log:
  level: error
`, authority.URL(), token))
	return authority, path
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postits.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with fresh flag values and returns stdout
// and the printer's stderr output
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	boardsOutputFormat = "default"
	notesOutputFormat = "default"
	notesAuthor, notesText, notesMinVotes = "", "", 0
	notesCmd.Flags().Lookup("min-votes").Changed = false
	logLevel = ""
	configPath = config.DefaultPath

	color.NoColor = true
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	printer.SetOutput(stdout, stderr)
	t.Cleanup(func() { printer.SetOutput(nil, nil) })

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	_, path := setupAuthority(t)
	out, _, err := execute(t, "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "postits")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--goal", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "version: \"2.0\"\nserver:\n  api_url: http://localhost:1\n")
	_, stderr, err := execute(t, "--config", path, "boards")
	require.Error(t, err)
	assert.Equal(t, "invalid configuration", err.Error())
	assert.Contains(t, stderr, "unsupported version: 2.0")
	assert.Contains(t, stderr, "config: "+path)
}

func TestBoardsCommand(t *testing.T) {
	_, path := setupAuthority(t)

	t.Run("table", func(t *testing.T) {
		out, _, err := execute(t, "-c", path, "boards")
		require.NoError(t, err)
		assert.Contains(t, out, "Sprint 1")
		assert.Contains(t, out, "Sprint 2")
		assert.Contains(t, out, "2 boards")
	})

	t.Run("jsonl", func(t *testing.T) {
		out, _, err := execute(t, "-c", path, "boards", "--output=jsonl")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"id":"3f2a9c1e-0000"`)
		assert.Contains(t, lines[0], `"postits":null`, "list endpoint does not hydrate notes")
	})

	t.Run("invalid output format", func(t *testing.T) {
		_, stderr, err := execute(t, "-c", path, "boards", "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, stderr, "Unknown format: xml")
	})
}

func TestBoardsCommand_ServerErrors(t *testing.T) {
	authority, path := setupAuthority(t)

	authority.FailREST(401)
	_, stderr, err := execute(t, "-c", path, "boards")
	require.Error(t, err)
	assert.Equal(t, "authentication failed", err.Error())
	assert.Contains(t, stderr, "POSTITS_TOKEN")

	authority.FailREST(500)
	_, _, err = execute(t, "-c", path, "boards")
	require.Error(t, err)
	assert.Equal(t, "request failed", err.Error())
}

func TestNotesCommand(t *testing.T) {
	_, path := setupAuthority(t)

	t.Run("by name in weight order", func(t *testing.T) {
		out, _, err := execute(t, "-c", path, "notes", "sprint 1")
		require.NoError(t, err)
		first := strings.Index(out, "fix flaky tests")
		second := strings.Index(out, "keep standups short")
		require.True(t, first > 0 && second > 0, out)
		assert.Less(t, first, second)
	})

	t.Run("filters", func(t *testing.T) {
		out, _, err := execute(t, "-c", path, "notes", "3f2a9", "--min-votes=2", "-o", "jsonl")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], `"id":"aaaa1111"`)

		out, _, err = execute(t, "-c", path, "notes", "3f2a9", "--author=u2", "--text=*FLAKY*", "-o", "jsonl")
		require.NoError(t, err)
		assert.Contains(t, out, `"id":"bbbb2222"`)
		assert.NotContains(t, out, "aaaa1111")
	})

	t.Run("empty board", func(t *testing.T) {
		out, _, err := execute(t, "-c", path, "notes", "Sprint 2")
		require.NoError(t, err)
		assert.Contains(t, out, "No notes on board 'Sprint 2'")
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, stderr, err := execute(t, "-c", path, "notes", "3f2a")
		require.Error(t, err)
		assert.Equal(t, "ambiguous board '3f2a'", err.Error())
		assert.Contains(t, stderr, "3f2a9c1e-0000")
		assert.Contains(t, stderr, "3f2a77b0-0000")
	})

	t.Run("unknown board", func(t *testing.T) {
		_, _, err := execute(t, "-c", path, "notes", "nope")
		require.Error(t, err)
		assert.Equal(t, "board 'nope' not found", err.Error())
	})

	t.Run("missing argument", func(t *testing.T) {
		_, _, err := execute(t, "-c", path, "notes")
		assert.Error(t, err)
	})
}

func TestWhoamiCommand(t *testing.T) {
	_, path := setupAuthority(t)

	out, _, err := execute(t, "-c", path, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "ID:    u1\nName:  Ada Lovelace\nEmail: ada@example.com\n", out)

	bare := writeConfig(t, "version: \"1.0\"\nserver:\n  api_url: http://localhost:1\n")
	t.Setenv("POSTITS_TOKEN", "")
	t.Setenv("POSTITS_TOKEN_FILE", "")
	_, _, err = execute(t, "-c", bare, "whoami")
	require.Error(t, err)
	assert.Equal(t, "authentication failed", err.Error())
}

// syncBuffer is written from the session goroutine while the test polls it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchEvents(t *testing.T) {
	authority, path := setupAuthority(t)
	_, _, err := execute(t, "-c", path, "whoami")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- watchEvents(ctx, out, "jsonl") }()

	authority.WaitForClients(1)
	authority.Broadcast(board.Message{Action: board.ActionRenameBoard, ID: "3f2a77b0-0000", Text: board.String("Retro")})
	authority.Broadcast(board.Message{Action: board.ActionAddVote, BoardID: "missing", ID: "n1"})
	authority.BroadcastRaw([]byte(`{"action":"CLEAR_BOARD"}`))

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Contains(t, lines[0], `"action":"RENAME_BOARD","effect":"applied"`)
	assert.Contains(t, lines[0], `Retro`)
	assert.Contains(t, lines[1], `"action":"ADD_VOTE","effect":"ignored"`)
	assert.Contains(t, lines[2], `"action":"CLEAR_BOARD","effect":"ignored"`)
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("POSTITS_API_URL", "")

	forceInit = false
	out, _, err := execute(t, "init", "--api-url", "http://boards.local:8080")
	require.NoError(t, err)
	assert.Contains(t, out, "Created")

	cfg, err := config.Load(filepath.Join(dir, "postits.yml"))
	require.NoError(t, err)
	assert.Equal(t, "http://boards.local:8080", cfg.Server.APIURL)

	_, _, err = execute(t, "init")
	require.Error(t, err)
	assert.Equal(t, "initialization failed", err.Error())

	_, _, err = execute(t, "init", "--force")
	assert.NoError(t, err)
}
