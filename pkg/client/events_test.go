package client

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			"receive_message",
			`{"event": "receive_message", "data": {"id": 5, "sender_id": 9, "receiver_id": 42, "message": "hi", "sender_name": "ali"}}`,
			NewMessage{},
		},
		{
			"message_sent",
			`{"event": "message_sent", "data": {"id": 6, "sender_id": 42, "receiver_id": 9, "message": "hey"}}`,
			MessageEcho{},
		},
		{
			"user_online",
			`{"event": "user_online", "data": {"user_id": 9, "username": "ali"}}`,
			PresenceChanged{UserID: 9, Username: "ali", Online: true},
		},
		{
			"user_offline",
			`{"event": "user_offline", "data": {"user_id": 9}}`,
			PresenceChanged{UserID: 9, Online: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEvent([]byte(tt.frame))
			if err != nil {
				t.Fatalf("decodeEvent: %v", err)
			}
			switch want := tt.want.(type) {
			case NewMessage:
				nm, ok := got.(NewMessage)
				if !ok {
					t.Fatalf("decoded %T, want NewMessage", got)
				}
				if nm.Message.SenderID != 9 || nm.Message.Body != "hi" || nm.Message.SenderName != "ali" {
					t.Errorf("message = %+v", nm.Message)
				}
			case MessageEcho:
				me, ok := got.(MessageEcho)
				if !ok {
					t.Fatalf("decoded %T, want MessageEcho", got)
				}
				if me.Message.ReceiverID != 9 || me.Message.Body != "hey" {
					t.Errorf("message = %+v", me.Message)
				}
			case PresenceChanged:
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("event mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestDecodeEventUnknown(t *testing.T) {
	_, err := decodeEvent([]byte(`{"event": "typing", "data": {}}`))
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("err = %v, want ErrUnknownEvent", err)
	}
}

func TestDecodeEventMalformed(t *testing.T) {
	for _, frame := range []string{
		`not json`,
		`{"event": "receive_message", "data": "nope"}`,
		`{"event": "user_online", "data": 7}`,
	} {
		if _, err := decodeEvent([]byte(frame)); err == nil {
			t.Errorf("decodeEvent(%q) succeeded", frame)
		}
	}
}

func TestEncodeSendMessage(t *testing.T) {
	frame, err := encodeSendMessage(9, "hello there")
	if err != nil {
		t.Fatalf("encodeSendMessage: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Event != evSendMessage {
		t.Errorf("event = %q, want %q", env.Event, evSendMessage)
	}
	var payload sendMessagePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ReceiverID != 9 || payload.Message != "hello there" {
		t.Errorf("payload = %+v", payload)
	}
}
