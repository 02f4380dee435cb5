package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/code-troopers/postits/pkg/board"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// Authority is an in-memory stand-in for the board server. It serves the REST
// snapshot endpoints, accepts websocket clients on /ws and rebroadcasts every
// command it receives as the event the real server would emit.
type Authority struct {
	t      *testing.T
	secret []byte
	server *httptest.Server

	mu       sync.Mutex
	boards   []*board.Board
	commands []board.Message
	tokens   []string
	clients  map[*websocket.Conn]bool
	writeMu  sync.Mutex
	failREST int // status to return from REST endpoints when non-zero

	upgrader websocket.Upgrader
}

// NewAuthority starts a fake authority on a random local port. It is shut
// down automatically when the test ends.
func NewAuthority(t *testing.T) *Authority {
	t.Helper()

	a := &Authority{
		t:       t,
		secret:  []byte("test-secret-" + uuid.New().String()),
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api := e.Group("/api", a.requireBearer)
	api.GET("/boards", a.listBoards)
	api.GET("/boards/:id/postits", a.listNotes)
	e.GET("/ws", a.handleWebSocket)

	a.server = httptest.NewServer(e)
	t.Cleanup(a.Close)
	return a
}

// URL returns the http base URL of the REST endpoints.
func (a *Authority) URL() string { return a.server.URL }

// WSURL returns the ws base URL; clients connect to WSURL()+"/ws".
func (a *Authority) WSURL() string {
	return "ws" + strings.TrimPrefix(a.server.URL, "http")
}

// Close disconnects every websocket client and stops the server.
func (a *Authority) Close() {
	a.mu.Lock()
	for c := range a.clients {
		c.Close()
	}
	a.clients = map[*websocket.Conn]bool{}
	a.mu.Unlock()
	a.server.Close()
}

// Token mints an HS256 bearer token for user, signed with the authority's key.
func (a *Authority) Token(user board.User) string {
	a.t.Helper()
	claims := jwt.MapClaims{
		"sub":         user.ID,
		"given_name":  user.GivenName,
		"family_name": user.FamilyName,
		"email":       user.Email,
		"picture":     user.Picture,
		"exp":         time.Now().Add(time.Hour).Unix(),
		"iat":         time.Now().Add(-time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	require.NoError(a.t, err, "failed to sign token")
	return signed
}

// SeedBoard adds a board (and its notes) to the authority's state without
// broadcasting anything.
func (a *Authority) SeedBoard(b board.Board) {
	a.mu.Lock()
	defer a.mu.Unlock()

	nb := board.Board{ID: b.ID, Name: b.Name, Notes: board.LoadedNotes(b.Notes.All()...)}
	a.boards = append(a.boards, &nb)
}

// FailREST makes every REST endpoint answer with status until reset with 0.
func (a *Authority) FailREST(status int) {
	a.mu.Lock()
	a.failREST = status
	a.mu.Unlock()
}

// Commands returns every command received over websockets, in arrival order.
func (a *Authority) Commands() []board.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]board.Message(nil), a.commands...)
}

// ConnectionTokens returns the token query parameter of every websocket
// connection accepted so far.
func (a *Authority) ConnectionTokens() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.tokens...)
}

// WaitForClients blocks until n websocket clients are connected.
func (a *Authority) WaitForClients(n int) {
	a.t.Helper()
	require.Eventually(a.t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.clients) >= n
	}, 5*time.Second, 10*time.Millisecond, "expected %d websocket clients", n)
}

// WaitForCommands blocks until at least n commands have been received.
func (a *Authority) WaitForCommands(n int) []board.Message {
	a.t.Helper()
	require.Eventually(a.t, func() bool {
		return len(a.Commands()) >= n
	}, 5*time.Second, 10*time.Millisecond, "expected %d commands", n)
	return a.Commands()
}

// Broadcast sends m verbatim to every connected client.
func (a *Authority) Broadcast(m board.Message) {
	a.t.Helper()
	data, err := board.EncodeCommand(m)
	if err != nil {
		// Unknown actions are allowed here so clients can be tested against them
		data = []byte(fmt.Sprintf(`{"action":%q}`, m.Action))
	}
	a.BroadcastRaw(data)
}

// BroadcastRaw sends a raw frame to every connected client.
func (a *Authority) BroadcastRaw(frame []byte) {
	a.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(a.clients))
	for c := range a.clients {
		clients = append(clients, c)
	}
	a.mu.Unlock()

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	for _, c := range clients {
		_ = c.WriteMessage(websocket.TextMessage, frame)
	}
}

func (a *Authority) parseToken(raw string) (board.User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}); err != nil {
		return board.User{}, err
	}
	str := func(k string) string {
		s, _ := claims[k].(string)
		return s
	}
	return board.User{
		ID:         str("sub"),
		GivenName:  str("given_name"),
		FamilyName: str("family_name"),
		Email:      str("email"),
		Picture:    str("picture"),
	}, nil
}

func (a *Authority) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		a.mu.Lock()
		status := a.failREST
		a.mu.Unlock()
		if status != 0 {
			return c.String(status, http.StatusText(status))
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			return c.String(http.StatusUnauthorized, "missing token")
		}
		user, err := a.parseToken(raw)
		if err != nil {
			return c.String(http.StatusUnauthorized, "invalid token")
		}
		c.Set("user", user)
		return next(c)
	}
}

func (a *Authority) listBoards(c echo.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// The list endpoint never nests notes
	out := make([]board.Board, 0, len(a.boards))
	for _, b := range a.boards {
		out = append(out, board.Board{ID: b.ID, Name: b.Name})
	}
	return c.JSON(http.StatusOK, out)
}

func (a *Authority) listNotes(c echo.Context) error {
	user, _ := c.Get("user").(board.User)

	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.find(c.Param("id"))
	if b == nil {
		return c.String(http.StatusNotFound, "board not found")
	}

	// Requesters see their own notes plus the ones their authors revealed
	out := make([]board.Note, 0, b.Notes.Len())
	for _, n := range b.Notes.All() {
		if n.Show || (n.Author != nil && n.Author.ID == user.ID) {
			out = append(out, n)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (a *Authority) handleWebSocket(c echo.Context) error {
	raw := c.QueryParam("token")
	user, err := a.parseToken(raw)
	if err != nil {
		return c.String(http.StatusUnauthorized, "invalid token")
	}

	conn, err := a.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.clients[conn] = true
	a.tokens = append(a.tokens, raw)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.clients, conn)
		a.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		m, err := board.DecodeMessage(data)
		if err != nil {
			continue
		}

		a.mu.Lock()
		a.commands = append(a.commands, m)
		a.mu.Unlock()

		if ev, ok := a.handle(m, user); ok {
			a.Broadcast(ev)
		}
	}
}

// handle applies a command to the authority state and returns the event to
// broadcast. Commands naming missing targets are echoed unchanged.
func (a *Authority) handle(m board.Message, user board.User) (board.Message, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ev := m
	ev.Token = ""

	switch m.Action {
	case board.ActionNewBoard:
		nb := &board.Board{ID: uuid.New().String(), Name: valueOf(m.Text), Notes: board.LoadedNotes()}
		a.boards = append(a.boards, nb)
		ev.ID = nb.ID

	case board.ActionRenameBoard:
		if b := a.find(m.BoardID); b != nil {
			b.Name = valueOf(m.Text)
		}
		ev.ID = m.BoardID

	case board.ActionDeleteBoard:
		for i, b := range a.boards {
			if b.ID == m.BoardID {
				a.boards = append(a.boards[:i], a.boards[i+1:]...)
				break
			}
		}

	case board.ActionNewNote:
		b := a.find(m.BoardID)
		if b == nil {
			return board.Message{}, false
		}
		author := user
		n := board.Note{
			ID:     uuid.New().String(),
			Text:   m.Text,
			PosX:   deref(m.PosX),
			PosY:   deref(m.PosY),
			Author: &author,
			Weight: float64(b.Notes.Len()),
		}
		b.Notes = board.LoadedNotes(append(b.Notes.All(), n)...)
		ev.ID = n.ID
		ev.AuthorID = user.ID
		ev.Author = &author
		ev.Weight = board.Float(n.Weight)

	case board.ActionUpdateContent:
		a.updateNote(m.BoardID, m.ID, func(n *board.Note) { n.Text = m.Text })

	case board.ActionMoveNote:
		top := a.maxWeight(m.BoardID) + 1
		a.updateNote(m.BoardID, m.ID, func(n *board.Note) {
			n.PosX, n.PosY, n.Weight = deref(m.PosX), deref(m.PosY), top
		})
		ev.Weight = board.Float(top)

	case board.ActionDeleteNote:
		if b := a.find(m.BoardID); b != nil {
			var kept []board.Note
			for _, n := range b.Notes.All() {
				if n.ID != m.ID {
					kept = append(kept, n)
				}
			}
			b.Notes = board.LoadedNotes(kept...)
		}

	case board.ActionAddVote:
		a.updateNote(m.BoardID, m.ID, func(n *board.Note) { n.Votes++ })

	case board.ActionRemoveVote:
		a.updateNote(m.BoardID, m.ID, func(n *board.Note) { n.Votes-- })

	case board.ActionShowNotes, board.ActionHideNotes:
		show := m.Action == board.ActionShowNotes
		if b := a.find(m.BoardID); b != nil {
			notes := b.Notes.All()
			for i := range notes {
				if notes[i].Author != nil && notes[i].Author.ID == user.ID {
					notes[i].Show = show
				}
			}
			b.Notes = board.LoadedNotes(notes...)
		}
		ev.AuthorID = user.ID
	}
	return ev, true
}

func (a *Authority) find(id string) *board.Board {
	for _, b := range a.boards {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (a *Authority) updateNote(boardID, noteID string, fn func(*board.Note)) {
	b := a.find(boardID)
	if b == nil {
		return
	}
	notes := b.Notes.All()
	for i := range notes {
		if notes[i].ID == noteID {
			fn(&notes[i])
		}
	}
	b.Notes = board.LoadedNotes(notes...)
}

func (a *Authority) maxWeight(boardID string) float64 {
	var top float64
	if b := a.find(boardID); b != nil {
		for _, n := range b.Notes.All() {
			if n.Weight > top {
				top = n.Weight
			}
		}
	}
	return top
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
