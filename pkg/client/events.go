package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phvlvck/dardasha/pkg/model"
)

// Wire event names shared with the server.
const (
	evReceiveMessage = "receive_message"
	evMessageSent    = "message_sent"
	evUserOnline     = "user_online"
	evUserOffline    = "user_offline"
	evSendMessage    = "send_message"
)

// Event is one inbound channel event. The concrete types below are the
// complete set; the engine dispatches them in arrival order.
type Event interface {
	event()
}

// NewMessage is a message addressed to the local user.
type NewMessage struct {
	Message model.Message
}

// MessageEcho is the server's copy of a message the local user sent,
// which doubles as the delivery confirmation.
type MessageEcho struct {
	Message model.Message
}

// PresenceChanged reports a user going online or offline.
type PresenceChanged struct {
	UserID   int64
	Username string
	Online   bool
}

func (NewMessage) event()      {}
func (MessageEcho) event()     {}
func (PresenceChanged) event() {}

// ErrUnknownEvent marks envelopes whose event name this client does not
// handle. They are logged and dropped, never fatal.
var ErrUnknownEvent = errors.New("channel: unknown event")

// envelope is the wire frame for both directions:
// {"event": <name>, "data": <payload>}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type presencePayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
}

type sendMessagePayload struct {
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
}

// decodeEvent parses one inbound frame into its typed event.
func decodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("channel: bad frame: %w", err)
	}

	switch env.Event {
	case evReceiveMessage:
		var msg model.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, fmt.Errorf("channel: %s payload: %w", env.Event, err)
		}
		return NewMessage{Message: msg}, nil

	case evMessageSent:
		var msg model.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, fmt.Errorf("channel: %s payload: %w", env.Event, err)
		}
		return MessageEcho{Message: msg}, nil

	case evUserOnline, evUserOffline:
		var p presencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("channel: %s payload: %w", env.Event, err)
		}
		return PresenceChanged{
			UserID:   p.UserID,
			Username: p.Username,
			Online:   env.Event == evUserOnline,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// encodeSendMessage builds the outbound send_message frame.
func encodeSendMessage(receiverID int64, body string) ([]byte, error) {
	data, err := json.Marshal(sendMessagePayload{ReceiverID: receiverID, Message: body})
	if err != nil {
		return nil, fmt.Errorf("channel: marshal send payload: %w", err)
	}
	return json.Marshal(envelope{Event: evSendMessage, Data: data})
}
