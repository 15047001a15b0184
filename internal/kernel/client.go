package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrUnavailable is returned when no kernel connection can be established.
var ErrUnavailable = errors.New("kernel unavailable")

// ErrClosed is returned when executing on a closed client.
var ErrClosed = errors.New("kernel connection closed")

// Client is a Bridge over a Jupyter kernel's websocket channels.
// Safe for concurrent use; replies are dispatched from a single read loop.
type Client struct {
	conn    *websocket.Conn
	session string
	logger  *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]OutputHandlers
	closed  bool
}

// Connect dials the channels websocket for the given kernel and starts the
// reply dispatch loop.
func Connect(ctx context.Context, server Server, kernelID string, logger *slog.Logger) (*Client, error) {
	wsURL, err := server.channelsURL(kernelID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if server.Token != "" {
		header.Set("Authorization", "token "+server.Token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %s", ErrUnavailable, wsURL, resp.Status)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnavailable, wsURL, err)
	}

	c := &Client{
		conn:    conn,
		session: uuid.NewString(),
		logger:  logger,
		pending: make(map[string]OutputHandlers),
	}
	go c.readLoop()
	return c, nil
}

// Execute sends an execute_request and returns immediately. Reply messages
// for the request are routed to h until the kernel reports idle.
func (c *Client) Execute(_ context.Context, code string, h OutputHandlers) error {
	msg, msgID, err := newExecuteMessage(c.session, code)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[msgID] = h
	c.mu.Unlock()

	c.writeMu.Lock()
	err = c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, msgID)
		c.mu.Unlock()
		return fmt.Errorf("send execute_request: %w", err)
	}
	return nil
}

// Close shuts the websocket down. In-flight requests never complete; their
// handlers are dropped without firing OnDone.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = make(map[string]OutputHandlers)
	c.mu.Unlock()
	return c.conn.Close()
}

// readLoop dispatches iopub messages to the handlers registered for their
// parent request. Messages for unknown parents are dropped, which covers
// replies that outlive a redraw.
func (c *Client) readLoop() {
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			alreadyClosed := c.closed
			c.closed = true
			c.pending = make(map[string]OutputHandlers)
			c.mu.Unlock()
			if !alreadyClosed {
				c.logger.Warn("kernel channel closed", "error", err)
			}
			return
		}
		if msg.Channel != channelIOPub {
			continue
		}

		parent := msg.ParentHeader.MsgID
		c.mu.Lock()
		h, ok := c.pending[parent]
		c.mu.Unlock()
		if !ok {
			continue
		}

		switch msg.Header.MsgType {
		case msgTypeStream:
			var content streamContent
			if err := json.Unmarshal(msg.Content, &content); err != nil {
				c.logger.Warn("undecodable stream message", "error", err)
				continue
			}
			if h.OnStream != nil {
				h.OnStream(content.Text)
			}

		case msgTypeDisplayData, msgTypeExecuteResult:
			var content displayDataContent
			if err := json.Unmarshal(msg.Content, &content); err != nil {
				c.logger.Warn("undecodable display_data message", "error", err)
				continue
			}
			if h.OnDisplayData != nil {
				h.OnDisplayData(decodeMimeBundle(content.Data))
			}

		case msgTypeError:
			var content errorContent
			if err := json.Unmarshal(msg.Content, &content); err != nil {
				c.logger.Warn("undecodable error message", "error", err)
				continue
			}
			if h.OnError != nil {
				h.OnError(content.Ename, content.Evalue, content.Traceback)
			}

		case msgTypeStatus:
			var content statusContent
			if err := json.Unmarshal(msg.Content, &content); err != nil {
				continue
			}
			if content.ExecutionState == "idle" {
				c.mu.Lock()
				delete(c.pending, parent)
				c.mu.Unlock()
				if h.OnDone != nil {
					h.OnDone()
				}
			}
		}
	}
}

// decodeMimeBundle flattens a MIME bundle to plain strings. Jupyter encodes
// values either as a string or as a list of line strings.
func decodeMimeBundle(data map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(data))
	for mime, raw := range data {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[mime] = s
			continue
		}
		var lines []string
		if err := json.Unmarshal(raw, &lines); err == nil {
			out[mime] = strings.Join(lines, "")
			continue
		}
		out[mime] = string(raw)
	}
	return out
}

// channelsURL converts the server base URL into the kernel's websocket URL.
func (s Server) channelsURL(kernelID string) (string, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/kernels/" + url.PathEscape(kernelID) + "/channels"
	return u.String(), nil
}
