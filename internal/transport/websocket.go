package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultMaxMessageSize = 64 * 1024
)

// WebSocketOptions tunes a WebSocketConn. Zero fields take defaults.
type WebSocketOptions struct {
	WriteWait      time.Duration
	MaxMessageSize int64
}

// WebSocketConn adapts a gorilla websocket to Conn.
type WebSocketConn struct {
	ws        *websocket.Conn
	writeWait time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketConn wraps an upgraded websocket
func NewWebSocketConn(ws *websocket.Conn, opts WebSocketOptions) *WebSocketConn {
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	ws.SetReadLimit(opts.MaxMessageSize)
	return &WebSocketConn{ws: ws, writeWait: opts.WriteWait}
}

func (c *WebSocketConn) Receive() (Frame, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
			errors.Is(err, net.ErrClosed) {
			return Frame{}, ErrClosed
		}
		return Frame{}, fmt.Errorf("receive: %w", err)
	}

	switch messageType {
	case websocket.TextMessage:
		return Frame{Type: FrameText, Data: data}, nil
	case websocket.BinaryMessage:
		return Frame{Type: FrameBinary, Data: data}, nil
	}
	return Frame{}, ErrUnexpectedFrame
}

func (c *WebSocketConn) SendText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (c *WebSocketConn) Close() error {
	return c.closeWith(websocket.CloseNormalClosure, "")
}

func (c *WebSocketConn) Reject(reason string) error {
	return c.closeWith(websocket.ClosePolicyViolation, reason)
}

func (c *WebSocketConn) closeWith(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		message := websocket.FormatCloseMessage(code, reason)
		c.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(c.writeWait))
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *WebSocketConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
