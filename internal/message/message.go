package message

import (
	"strings"
	"time"

	"github.com/john/tmichat/internal/irc"
)

// Message is the flat record kept for one chat event
type Message struct {
	Kind        string   `json:"kind"`                   // Event kind: "privmsg", "join", "part", ...
	Timestamp   string   `json:"timestamp"`              // Receive time in RFC3339 format (UTC)
	Channel     string   `json:"channel,omitempty"`      // Channel name without '#'
	Username    string   `json:"username,omitempty"`     // Login name (join/part)
	DisplayName string   `json:"display_name,omitempty"` // Display name (privmsg/userstate)
	Color       string   `json:"color,omitempty"`        // Name color as #RRGGBB
	Message     string   `json:"message,omitempty"`      // Chat message content
	Badges      []string `json:"badges,omitempty"`       // name/version badge signatures
	Raw         string   `json:"raw,omitempty"`          // Original line, kept for unknown kinds
}

// FromEvent copies whatever fields the event's kind carries
func FromEvent(ev *irc.Event, at time.Time) Message {
	msg := Message{
		Kind:      ev.Kind().String(),
		Timestamp: at.UTC().Format(time.RFC3339),
	}

	switch ev.Kind() {
	case irc.PrivateMessage, irc.UserStateUpdate:
		msg.DisplayName, _ = ev.DisplayName()
		msg.Color, _ = ev.Color()
		msg.Message, _ = ev.Body()
		msg.Badges = ev.BadgeSignatures()
		msg.Channel = privmsgChannel(ev.Raw())
	case irc.UserJoin, irc.UserLeave:
		msg.Username, _ = ev.UserName()
		if ch, ok := ev.Channel(); ok {
			msg.Channel = strings.TrimPrefix(ch, "#")
		}
	default:
		msg.Raw = ev.Raw()
	}

	return msg
}

// Recordable reports whether the recorder keeps events of this kind
func Recordable(kind irc.Kind) bool {
	switch kind {
	case irc.PrivateMessage, irc.UserJoin, irc.UserLeave:
		return true
	}
	return false
}

// privmsgChannel takes the "#name" argument that follows the verb
func privmsgChannel(line string) string {
	for _, verb := range []string{" PRIVMSG ", " USERSTATE "} {
		i := strings.Index(line, verb)
		if i < 0 {
			continue
		}
		target := line[i+len(verb):]
		if j := strings.IndexByte(target, ' '); j >= 0 {
			target = target[:j]
		}
		return strings.TrimPrefix(target, "#")
	}
	return ""
}
