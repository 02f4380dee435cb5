// Package api is the client for the authority's REST snapshot endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/code-troopers/postits/internal/identity"
	"github.com/code-troopers/postits/pkg/board"
)

// ErrBoardNotFound is returned by ListNotes when the authority does not know the board.
var ErrBoardNotFound = errors.New("board not found")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client wraps http.Client with the bearer-authenticated JSON requests the
// board client needs.
type Client struct {
	BaseURL string
	Tokens  identity.TokenSource // optional
	HTTP    *http.Client
}

// New creates a Client for baseURL.
func New(baseURL string, tokens identity.TokenSource) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ListBoards fetches GET /api/boards. Boards in the list normally carry no
// notes, so their collections decode as unloaded.
func (c *Client) ListBoards(ctx context.Context) ([]board.Board, error) {
	var boards []board.Board
	if err := c.getJSON(ctx, "/api/boards", &boards); err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	return boards, nil
}

// ListNotes fetches GET /api/boards/{boardID}/postits.
func (c *Client) ListNotes(ctx context.Context, boardID string) ([]board.Note, error) {
	if boardID == "" {
		return nil, fmt.Errorf("board ID cannot be empty")
	}
	var notes []board.Note
	path := "/api/boards/" + url.PathEscape(boardID) + "/postits"
	if err := c.getJSON(ctx, path, &notes); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("failed to list notes of %s: %w", boardID, ErrBoardNotFound)
		}
		return nil, fmt.Errorf("failed to list notes of %s: %w", boardID, err)
	}
	if notes == nil {
		notes = []board.Note{}
	}
	return notes, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.Tokens != nil {
		token, err := c.Tokens.Token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method: req.Method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}
	if err := sonic.ConfigStd.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
