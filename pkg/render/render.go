// Package render builds display-ready view models from domain state.
// Everything here is a pure function of its inputs, so the message bubble,
// conversation list, and header logic stay testable without a toolkit.
package render

import (
	"time"

	"github.com/phvlvck/dardasha/pkg/model"
)

const (
	bioFallback   = "No bio yet"
	defaultAvatar = "default.png"
)

// Bubble is one rendered message.
type Bubble struct {
	Body        string
	Time        string
	Sent        bool // aligned as sent (local user authored it)
	ReadReceipt bool // sent and read by the counterpart
}

// MessageBubble classifies and formats a message for display. Alignment
// follows the sender id alone; the read receipt only ever appears on sent
// messages.
func MessageBubble(m model.Message, selfID int64) Bubble {
	sent := m.SentBy(selfID)
	return Bubble{
		Body:        m.Body,
		Time:        ClockTime(m.Timestamp.Time),
		Sent:        sent,
		ReadReceipt: sent && m.IsRead,
	}
}

// ListItem is one entry in the conversation list.
type ListItem struct {
	UserID   int64
	Title    string
	Subtitle string
	Avatar   string
	Online   bool
}

// ConversationItem renders a user into a list entry, filling the bio and
// avatar fallbacks.
func ConversationItem(u model.User) ListItem {
	subtitle := u.Bio
	if subtitle == "" {
		subtitle = bioFallback
	}
	avatar := u.ProfilePic
	if avatar == "" {
		avatar = defaultAvatar
	}
	return ListItem{
		UserID:   u.ID,
		Title:    u.Username,
		Subtitle: subtitle,
		Avatar:   avatar,
		Online:   u.IsOnline,
	}
}

// ConversationList renders the user list in the order the server returned.
func ConversationList(users []model.User) []ListItem {
	items := make([]ListItem, len(users))
	for i, u := range users {
		items[i] = ConversationItem(u)
	}
	return items
}

// Header is the open conversation's title area.
type Header struct {
	Title  string
	Status string
	Online bool
}

// ConversationHeader renders the counterpart's name and presence line.
func ConversationHeader(u model.User) Header {
	h := Header{Title: u.Username, Online: u.IsOnline}
	switch {
	case u.IsOnline:
		h.Status = "Online now"
	case u.LastSeen.IsZero():
		h.Status = "Offline"
	default:
		h.Status = "Last seen " + DayTime(u.LastSeen.Time)
	}
	return h
}

// ClockTime formats a message timestamp for display: wall-clock time for
// today's messages, day-prefixed for older ones, empty for the zero time.
func ClockTime(t time.Time) string {
	return MessageTime(t, time.Now())
}

// MessageTime is ClockTime with an explicit reference time.
func MessageTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t, now = t.Local(), now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return DayTime(t)
}

// DayTime formats a timestamp with its day, for last-seen lines.
func DayTime(t time.Time) string {
	return t.Local().Format("Jan 2, 15:04")
}
