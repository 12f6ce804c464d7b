package twitch

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/john/tmichat/internal/irc"
)

// Session holds the facts about one connection that outlive a single line:
// the joined channel, the client's own look in chat, and the emote table.
type Session struct {
	id string

	mu          sync.RWMutex
	channel     string
	color       string
	displayName string
	badges      []irc.Badge
	emotes      map[string]string
}

// NewSession creates an empty session with a fresh id
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id
}

// Channel returns the joined channel, if any
func (s *Session) Channel() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel, s.channel != ""
}

// SetChannel records the joined channel
func (s *Session) SetChannel(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = channel
}

// ClearChannel forgets the joined channel
func (s *Session) ClearChannel() {
	s.SetChannel("")
}

// ClientColor returns the client's own name color, if known
func (s *Session) ClientColor() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color, s.color != ""
}

// ClientDisplayName returns the client's own display name, if known
func (s *Session) ClientDisplayName() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName, s.displayName != ""
}

// BadgeSignatures returns the client's own badges as name/version strings.
// ok is false until a user-state update has been seen.
func (s *Session) BadgeSignatures() ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.badges == nil {
		return nil, false
	}
	sigs := make([]string, 0, len(s.badges))
	for _, b := range s.badges {
		sigs = append(sigs, b.Signature())
	}
	return sigs, true
}

// Badges returns a copy of the client's own badges
func (s *Session) Badges() []irc.Badge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.badges == nil {
		return nil
	}
	return append([]irc.Badge(nil), s.badges...)
}

// ApplyUserState copies the client's color, display name and badges out of
// a user-state update. Other kinds are ignored.
func (s *Session) ApplyUserState(ev *irc.Event) {
	if ev.Kind() != irc.UserStateUpdate {
		return
	}

	color, _ := ev.Color()
	name, _ := ev.DisplayName()
	badges := ev.Badges()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = color
	s.displayName = name
	s.badges = append([]irc.Badge{}, badges...)
}

// SetEmoteTable installs the emote code to id table. Only the first call
// has any effect; it reports whether the table was installed.
func (s *Session) SetEmoteTable(table map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emotes != nil {
		return false
	}
	s.emotes = make(map[string]string, len(table))
	for code, id := range table {
		s.emotes[code] = id
	}
	return true
}

// EmoteID looks up an emote code
func (s *Session) EmoteID(code string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emotes[code]
	return id, ok
}

// Reset clears the channel and the client facts. The emote table is kept
// for the life of the session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ""
	s.color = ""
	s.displayName = ""
	s.badges = nil
}

// normalizeChannel returns "#name" in lower case
func normalizeChannel(channel string) string {
	channel = strings.ToLower(strings.TrimSpace(channel))
	return "#" + strings.TrimPrefix(channel, "#")
}
