package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

// newTestChannelServer upgrades one websocket connection and hands it to
// the test through the returned channel.
func newTestChannelServer(t *testing.T) (*httptest.Server, chan *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "" {
			t.Error("handshake carried no token")
		}
		if r.URL.Query().Get("client_id") == "" {
			t.Error("handshake carried no client_id")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)
	return srv, conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialTestChannel(t *testing.T, srv *httptest.Server, conns chan *websocket.Conn) (*Channel, *websocket.Conn) {
	t.Helper()
	ch, err := DialChannel(wsURL(srv), "42")
	if err != nil {
		t.Fatalf("DialChannel: %v", err)
	}
	t.Cleanup(func() { _ = ch.Close() })

	select {
	case conn := <-conns:
		return ch, conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection")
		return nil, nil
	}
}

func TestChannelDispatchesInArrivalOrder(t *testing.T) {
	srv, conns := newTestChannelServer(t)
	ch, server := dialTestChannel(t, srv, conns)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	ch.SetEventHandler(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		switch ev := ev.(type) {
		case NewMessage:
			got = append(got, ev.Message.Body)
		case PresenceChanged:
			got = append(got, "presence")
		}
		if len(got) == 3 {
			close(done)
		}
	})
	ch.StartReceiving()

	frames := []string{
		`{"event": "receive_message", "data": {"id": 1, "sender_id": 9, "receiver_id": 42, "message": "first"}}`,
		`{"event": "user_online", "data": {"user_id": 9}}`,
		`{"event": "receive_message", "data": {"id": 2, "sender_id": 9, "receiver_id": 42, "message": "second"}}`,
	}
	for _, f := range frames {
		if err := server.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events never arrived")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "presence", "second"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dispatch order (-want +got):\n%s", diff)
	}
}

func TestChannelIgnoresUnknownEvents(t *testing.T) {
	srv, conns := newTestChannelServer(t)
	ch, server := dialTestChannel(t, srv, conns)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	ch.SetEventHandler(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if nm, ok := ev.(NewMessage); ok {
			got = append(got, nm.Message.Body)
			close(done)
		}
	})
	ch.StartReceiving()

	// The unknown event must be skipped without killing the read loop.
	server.WriteMessage(websocket.TextMessage, []byte(`{"event": "typing", "data": {}}`))                                                    //nolint:errcheck
	server.WriteMessage(websocket.TextMessage, []byte(`{"event": "receive_message", "data": {"id": 1, "sender_id": 9, "message": "after"}}`)) //nolint:errcheck

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("the event after the unknown one never arrived")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "after" {
		t.Errorf("got %v, want [after]", got)
	}
}

func TestChannelSendMessage(t *testing.T) {
	srv, conns := newTestChannelServer(t)
	ch, server := dialTestChannel(t, srv, conns)
	ch.StartReceiving()

	if err := ch.SendMessage(9, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	server.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, data, err := server.ReadMessage()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if env.Event != evSendMessage {
		t.Errorf("event = %q, want %q", env.Event, evSendMessage)
	}
	var payload sendMessagePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ReceiverID != 9 || payload.Message != "hello" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestChannelConnectionLoss(t *testing.T) {
	srv, conns := newTestChannelServer(t)
	ch, server := dialTestChannel(t, srv, conns)
	ch.StartReceiving()

	if !ch.Connected() {
		t.Fatal("Connected() = false right after dialing")
	}

	server.Close() //nolint:errcheck

	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() never closed after the server went away")
	}

	if ch.Connected() {
		t.Error("Connected() = true after the connection dropped")
	}
	if err := ch.SendMessage(9, "into the void"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendMessage after loss = %v, want ErrNotConnected", err)
	}
}
