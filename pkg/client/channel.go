package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned when an outbound event is attempted on a
// channel whose connection is gone. The caller surfaces it as a
// connectivity notice; nothing is queued or retried.
var ErrNotConnected = errors.New("channel: not connected")

// EventHandler is a callback for inbound channel events.
type EventHandler func(Event)

// Channel is the persistent server-pushed event connection. One is opened
// per authenticated run; reconnection is the caller's business, not ours.
type Channel struct {
	conn    *websocket.Conn
	id      string // per-connection id, for handshake and log correlation
	writeMu sync.Mutex
	handler EventHandler
	done    chan struct{}
}

// DialChannel opens the websocket event channel. The token authenticates
// the socket with the server; callers must not dial without one.
func DialChannel(wsURL, token string) (*Channel, error) {
	connID := uuid.NewString()

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("channel: parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("client_id", connID)
	u.RawQuery = q.Encode()

	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.Dial(u.String(), http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("channel: connect (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("channel: connect: %w", err)
	}

	slog.Info("channel connected", "conn_id", connID)
	return &Channel{
		conn: conn,
		id:   connID,
		done: make(chan struct{}),
	}, nil
}

// SetEventHandler sets the callback for inbound events. Set it before
// StartReceiving; events have no buffer to wait in.
func (c *Channel) SetEventHandler(handler EventHandler) {
	c.handler = handler
}

// StartReceiving starts a goroutine that reads inbound frames and
// dispatches them to the event handler, strictly in arrival order.
func (c *Channel) StartReceiving() {
	go func() {
		defer close(c.done)
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("channel closed", "conn_id", c.id)
					return
				}
				slog.Error("channel read error", "conn_id", c.id, "err", err)
				return
			}
			ev, err := decodeEvent(data)
			if err != nil {
				if errors.Is(err, ErrUnknownEvent) {
					slog.Debug("ignoring event", "conn_id", c.id, "err", err)
					continue
				}
				slog.Error("channel decode error", "conn_id", c.id, "err", err)
				continue
			}
			if c.handler != nil {
				c.handler(ev)
			}
		}
	}()
}

// SendMessage emits one outbound send_message event. Fire and forget:
// delivery confirmation only ever arrives as a message_sent echo.
func (c *Channel) SendMessage(receiverID int64, body string) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	frame, err := encodeSendMessage(receiverID, body)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("channel: send: %w", err)
	}
	return nil
}

// Connected reports whether the read loop is still alive. Connection loss
// is only discovered here, at the moment someone asks.
func (c *Channel) Connected() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close closes the connection.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// Done returns a channel that's closed when the connection is lost.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}
