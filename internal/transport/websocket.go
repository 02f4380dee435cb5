package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// WebSocket is a Transport over a gorilla/websocket client connection.
type WebSocket struct {
	conn   *websocket.Conn
	frames chan []byte
	errors chan error
	done   chan struct{}

	mu     sync.Mutex // serialises writes and guards closed
	closed bool
	once   sync.Once
	logger *log.Entry
}

// EndpointURL builds the websocket endpoint for baseURL with the bearer token
// appended as the "token" query parameter.
func EndpointURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid websocket url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	u = u.JoinPath("ws")
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// DialWebSocket opens the connection to {baseURL}/ws?token=... and starts the
// read pump.
func DialWebSocket(ctx context.Context, baseURL, token string) (*WebSocket, error) {
	endpoint, err := EndpointURL(baseURL, token)
	if err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{"component": "transport", "kind": "websocket"})

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		logger.WithError(err).Error("Connection failed")
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}
	logger.Info("Connection opened")

	ws := &WebSocket{
		conn:   conn,
		frames: make(chan []byte, bufferSize),
		errors: make(chan error, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go ws.readPump()
	return ws, nil
}

func (ws *WebSocket) readPump() {
	defer close(ws.frames)
	defer close(ws.errors)
	defer ws.markClosed()

	for {
		kind, data, err := ws.conn.ReadMessage()
		if err != nil {
			select {
			case <-ws.done:
				ws.logger.Info("Connection closed")
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.logger.Info("Connection closed by peer")
				return
			}
			ws.logger.WithError(err).Error("Connection error")
			select {
			case ws.errors <- fmt.Errorf("websocket read failed: %w", err):
			case <-ws.done:
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		select {
		case ws.frames <- data:
		case <-ws.done:
			return
		}
	}
}

func (ws *WebSocket) markClosed() {
	ws.mu.Lock()
	ws.closed = true
	ws.mu.Unlock()
}

// Frames implements Transport.
func (ws *WebSocket) Frames() <-chan []byte { return ws.frames }

// Errors implements Transport.
func (ws *WebSocket) Errors() <-chan error { return ws.errors }

// Send writes frame as a single text message.
func (ws *WebSocket) Send(ctx context.Context, frame []byte) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.closed {
		return ErrNotOpen
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := ws.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	if err := ws.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return ErrNotOpen
		}
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close sends a close frame and releases the connection.
func (ws *WebSocket) Close() error {
	var err error
	ws.once.Do(func() {
		close(ws.done)

		ws.mu.Lock()
		ws.closed = true
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.conn.WriteMessage(websocket.CloseMessage, msg)
		ws.mu.Unlock()

		err = ws.conn.Close()
	})
	return err
}
