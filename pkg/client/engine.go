package client

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phvlvck/dardasha/pkg/model"
	"github.com/phvlvck/dardasha/pkg/render"
)

// Generic fallback notices. Application failures prefer the server's own
// message; these cover silence and transport failures.
const (
	noticeLoginFailed     = "Could not sign in"
	noticeRegisterFailed  = "Could not create the account"
	noticeConnectivity    = "Could not reach the chat server"
	noticeConnectionLost  = "Connection to the server was lost. Please reconnect."
	noticeNoConversation  = "Choose a conversation first"
	notifyNewMessageTitle = "New message"
)

// API is the HTTP surface the engine needs. *APIClient implements it; tests
// substitute a double.
type API interface {
	Login(ctx context.Context, username, password string) (model.Session, error)
	Register(ctx context.Context, username, email, password string) (model.Session, error)
	Logout(ctx context.Context) error
	SearchUsers(ctx context.Context, query string) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	Messages(ctx context.Context, userID int64) ([]model.Message, error)
}

// EventChannel is the real-time transport the engine needs. *Channel
// implements it; tests substitute a double.
type EventChannel interface {
	SetEventHandler(EventHandler)
	StartReceiving()
	SendMessage(receiverID int64, body string) error
	Connected() bool
	Close() error
	Done() <-chan struct{}
}

// DialFunc opens the event channel for a session.
type DialFunc func(session model.Session) (EventChannel, error)

// Engine wires the session store, HTTP API, and event channel together and
// drives the chat view. All mutable client state — session, channel handle,
// active conversation — lives here, constructed at startup and torn down on
// logout; nothing is package-level.
//
// Every operation is terminal: it either completes its visible effect
// through a callback or ends in a user-visible notice plus a log entry.
// Nothing is retried.
type Engine struct {
	mu sync.RWMutex

	session    model.Session
	active     *model.User
	historyGen uint64

	store   *SessionStore
	api     API
	channel EventChannel
	dial    DialFunc

	// Callbacks for UI updates
	OnAuthenticated func(session model.Session)
	OnSessionEnded  func()
	OnConversations func(items []render.ListItem)
	OnHeader        func(h render.Header)
	OnHistory       func(bubbles []render.Bubble)
	OnMessage       func(b render.Bubble)
	OnPresence      func(userID int64, online bool)
	OnNotify        func(title, body string)
	OnNotice        func(text string)
	OnInputFocus    func()
}

// NewEngine creates an engine. A session already in the store is picked up
// so a restart lands straight in the chat view.
func NewEngine(store *SessionStore, api API, dial DialFunc) *Engine {
	e := &Engine{
		store: store,
		api:   api,
		dial:  dial,
	}
	if sess, ok := store.Get(); ok {
		e.session = sess
	}
	return e
}

// Session returns the current session. A zero Token means signed out.
func (e *Engine) Session() model.Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// ActiveConversation returns the open counterpart, or nil.
func (e *Engine) ActiveConversation() *model.User {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// Login authenticates, persists the session, and signals the UI to move to
// the chat view. Rejections surface the server's message; transport
// failures a generic connectivity notice.
func (e *Engine) Login(username, password string) {
	sess, err := e.api.Login(context.Background(), username, password)
	if err != nil {
		e.fail("login", noticeLoginFailed, err)
		return
	}
	e.adoptSession(sess)
}

// Register validates locally first — a violation never reaches the network —
// then behaves like Login.
func (e *Engine) Register(username, email, password string) {
	if err := model.ValidateRegistration(username, email, password); err != nil {
		e.notice(err.Error())
		return
	}
	sess, err := e.api.Register(context.Background(), username, email, password)
	if err != nil {
		e.fail("register", noticeRegisterFailed, err)
		return
	}
	e.adoptSession(sess)
}

func (e *Engine) adoptSession(sess model.Session) {
	if err := e.store.Set(sess.Token, sess.Username); err != nil {
		slog.Error("persist session", "err", err)
	}
	e.mu.Lock()
	e.session = sess
	e.mu.Unlock()

	slog.Info("signed in", "user", sess.Username)
	if e.OnAuthenticated != nil {
		e.OnAuthenticated(sess)
	}
}

// Logout notifies the server best-effort, then unconditionally clears the
// stored session, drops the channel, and signals the UI back to the entry
// view.
func (e *Engine) Logout() {
	if err := e.api.Logout(context.Background()); err != nil {
		slog.Warn("logout request failed", "err", err)
	}
	if err := e.store.Clear(); err != nil {
		slog.Error("clear session", "err", err)
	}

	e.mu.Lock()
	e.session = model.Session{}
	e.active = nil
	ch := e.channel
	e.channel = nil
	e.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	slog.Info("signed out")
	if e.OnSessionEnded != nil {
		e.OnSessionEnded()
	}
}

// Connect opens the event channel and performs the initial conversation
// list load. Without a session token no connection is attempted.
func (e *Engine) Connect() {
	e.mu.RLock()
	sess := e.session
	e.mu.RUnlock()
	if sess.Token == "" {
		slog.Debug("no session, skipping channel connect")
		return
	}

	ch, err := e.dial(sess)
	if err != nil {
		slog.Error("channel connect failed", "err", err)
		e.notice(noticeConnectivity)
		return
	}
	ch.SetEventHandler(e.handleEvent)
	ch.StartReceiving()

	e.mu.Lock()
	e.channel = ch
	e.mu.Unlock()

	e.LoadConversations()
}

// LoadConversations refreshes the conversation list: an empty-query user
// search, rendered in server order. Runs at connect time and after every
// inbound message event. Errors are logged, never retried.
func (e *Engine) LoadConversations() {
	users, err := e.api.SearchUsers(context.Background(), "")
	if err != nil {
		slog.Error("load conversations", "err", err)
		return
	}
	if e.OnConversations != nil {
		e.OnConversations(render.ConversationList(users))
	}
}

// OpenConversation makes the given user the active conversation, replacing
// any prior one wholesale, then loads the message history. A history result
// arriving after the active conversation changed again is discarded.
func (e *Engine) OpenConversation(userID int64) {
	user, err := e.api.GetUser(context.Background(), userID)
	if err != nil {
		slog.Error("open conversation", "user_id", userID, "err", err)
		return
	}

	e.mu.Lock()
	u := user
	e.active = &u
	e.historyGen++
	gen := e.historyGen
	e.mu.Unlock()

	if e.OnHeader != nil {
		e.OnHeader(render.ConversationHeader(user))
	}

	msgs, err := e.api.Messages(context.Background(), userID)
	if err != nil {
		slog.Error("load history", "user_id", userID, "err", err)
		return
	}

	e.mu.RLock()
	stale := e.historyGen != gen
	self := e.session.UserID()
	e.mu.RUnlock()
	if stale {
		slog.Debug("discarding stale history", "user_id", userID)
		return
	}

	bubbles := make([]render.Bubble, len(msgs))
	for i, m := range msgs {
		bubbles[i] = render.MessageBubble(m, self)
	}
	if e.OnHistory != nil {
		e.OnHistory(bubbles)
	}
	if e.OnInputFocus != nil {
		e.OnInputFocus()
	}
}

// SendMessage trims and emits one outbound event. Returns true when the
// event was emitted and the input should clear; the rendered copy arrives
// back as a message_sent echo.
func (e *Engine) SendMessage(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	e.mu.RLock()
	active := e.active
	ch := e.channel
	e.mu.RUnlock()

	if active == nil {
		e.notice(noticeNoConversation)
		return false
	}
	if ch == nil || !ch.Connected() {
		e.notice(noticeConnectionLost)
		return false
	}
	if err := ch.SendMessage(active.ID, text); err != nil {
		slog.Error("send message", "receiver_id", active.ID, "err", err)
		e.notice(noticeConnectionLost)
		return false
	}
	return true
}

// handleEvent dispatches inbound channel events, in arrival order.
func (e *Engine) handleEvent(ev Event) {
	switch ev := ev.(type) {
	case NewMessage:
		e.onInbound(ev.Message)
	case MessageEcho:
		e.onEcho(ev.Message)
	case PresenceChanged:
		e.onPresenceChanged(ev)
	}
}

func (e *Engine) onInbound(msg model.Message) {
	e.mu.RLock()
	active := e.active
	self := e.session.UserID()
	e.mu.RUnlock()

	if active != nil && msg.SenderID == active.ID {
		// The conversation is on screen, so the message counts as read.
		msg.IsRead = true
		if e.OnMessage != nil {
			e.OnMessage(render.MessageBubble(msg, self))
		}
	} else {
		name := msg.SenderName
		if name == "" {
			name = "someone"
		}
		if e.OnNotify != nil {
			e.OnNotify(notifyNewMessageTitle, "New message from "+name)
		}
	}
	// New activity reorders the list either way.
	e.LoadConversations()
}

func (e *Engine) onEcho(msg model.Message) {
	e.mu.RLock()
	active := e.active
	self := e.session.UserID()
	e.mu.RUnlock()

	if active != nil && msg.ReceiverID == active.ID {
		if e.OnMessage != nil {
			e.OnMessage(render.MessageBubble(msg, self))
		}
	}
}

func (e *Engine) onPresenceChanged(ev PresenceChanged) {
	var header *render.Header
	e.mu.Lock()
	if e.active != nil && e.active.ID == ev.UserID {
		e.active.IsOnline = ev.Online
		if !ev.Online {
			e.active.LastSeen = model.Timestamp{Time: time.Now()}
		}
		h := render.ConversationHeader(*e.active)
		header = &h
	}
	e.mu.Unlock()

	if e.OnPresence != nil {
		e.OnPresence(ev.UserID, ev.Online)
	}
	if header != nil && e.OnHeader != nil {
		e.OnHeader(*header)
	}
}

func (e *Engine) notice(text string) {
	if e.OnNotice != nil {
		e.OnNotice(text)
	}
}

// fail routes an auth-style error to the user: application rejections show
// the server's message (or the fallback), transport failures a generic
// connectivity notice.
func (e *Engine) fail(op, fallback string, err error) {
	if srvErr, ok := asServerError(err); ok {
		msg := srvErr.Message
		if msg == "" {
			msg = fallback
		}
		slog.Warn(op+" rejected", "msg", srvErr.Message)
		e.notice(msg)
		return
	}
	slog.Error(op+" failed", "err", err)
	e.notice(noticeConnectivity)
}
