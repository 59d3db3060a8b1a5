package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketProvider reaches a tool server over a single WebSocket connection.
// Requests are serialized; each one waits for its response.
type WebSocketProvider struct {
	name   string
	conn   *websocket.Conn
	reqID  int
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

func NewWebSocketProvider(name, url string, logger *slog.Logger) (*WebSocketProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	return &WebSocketProvider{
		name:   name,
		conn:   conn,
		logger: logger,
	}, nil
}

func (c *WebSocketProvider) Name() string {
	return c.name
}

func (c *WebSocketProvider) Initialize(ctx context.Context) error {
	return initialize(ctx, c.name, c.logger, c.send)
}

func (c *WebSocketProvider) ListTools(ctx context.Context) ([]Tool, error) {
	return listTools(ctx, c.name, c.send)
}

func (c *WebSocketProvider) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	return callTool(ctx, name, args, c.send)
}

func (c *WebSocketProvider) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *WebSocketProvider) send(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	c.reqID++
	if err := c.conn.WriteJSON(newRequest(c.reqID, method, params)); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}

	var response rpcResponse
	if err := c.conn.ReadJSON(&response); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return response.decode(result)
}
