// Package irc turns raw Twitch chat protocol lines into typed events.
//
// An Event is classified once when it is created. Its fields are decoded on
// first access and cached, so repeated lookups are cheap and always agree.
// Lookups on malformed lines report the field as unavailable instead of
// failing.
package irc

import (
	"strings"
	"sync"
)

// Event is one protocol line plus its lazily decoded fields
type Event struct {
	raw  string
	kind Kind

	bodyOnce sync.Once
	body     string
	hasBody  bool

	colorOnce sync.Once
	color     string
	hasColor  bool

	nameOnce    sync.Once
	displayName string
	hasName     bool

	badgeOnce sync.Once
	badges    []Badge

	userOnce sync.Once
	user     string
	hasUser  bool

	chanOnce   sync.Once
	channel    string
	hasChannel bool

	tagsOnce sync.Once
	tags     map[string]string
}

// NewEvent strips trailing line terminators and classifies the line
func NewEvent(line string) *Event {
	line = strings.TrimRight(line, "\r\n")
	return &Event{
		raw:  line,
		kind: Classify(line),
	}
}

// Raw returns the line without its terminator
func (e *Event) Raw() string {
	return e.raw
}

// Kind returns the classification fixed at construction
func (e *Event) Kind() Kind {
	return e.kind
}

// Body returns the chat text after "PRIVMSG <target> :".
// Only private messages and user-state updates carry a body.
func (e *Event) Body() (string, bool) {
	e.bodyOnce.Do(func() {
		if e.kind != PrivateMessage && e.kind != UserStateUpdate {
			return
		}
		verb := strings.Index(e.raw, "PRIVMSG")
		if verb < 0 {
			return
		}
		colon := strings.IndexByte(e.raw[verb:], ':')
		if colon < 0 {
			return
		}
		e.body = e.raw[verb+colon+1:]
		e.hasBody = true
	})
	return e.body, e.hasBody
}

// Color returns the sender's name color (#RRGGBB). An absent tag and an
// empty one both mean no color.
func (e *Event) Color() (string, bool) {
	e.colorOnce.Do(func() {
		value, ok := tagValue(e.raw, "color")
		if !ok || value == "" {
			return
		}
		e.color = value
		e.hasColor = true
	})
	return e.color, e.hasColor
}

// DisplayName returns the display-name tag
func (e *Event) DisplayName() (string, bool) {
	e.nameOnce.Do(func() {
		e.displayName, e.hasName = tagValue(e.raw, "display-name")
	})
	return e.displayName, e.hasName
}

// Badges returns the validated badges in wire order; no badges is an empty slice
func (e *Event) Badges() []Badge {
	e.badgeOnce.Do(func() {
		value, ok := tagValue(e.raw, "badges")
		if !ok || value == "" {
			e.badges = []Badge{}
			return
		}
		e.badges = decodeBadges(value)
	})
	return e.badges
}

// BadgeSignatures returns the name/version strings of Badges
func (e *Event) BadgeSignatures() []string {
	badges := e.Badges()
	sigs := make([]string, 0, len(badges))
	for _, b := range badges {
		sigs = append(sigs, b.Signature())
	}
	return sigs
}

// UserName returns the nick from the ":nick!user@host" prefix of join/part lines
func (e *Event) UserName() (string, bool) {
	e.userOnce.Do(func() {
		if e.kind != UserJoin && e.kind != UserLeave {
			return
		}
		rest := afterTags(e.raw)
		start := strings.IndexByte(rest, ':')
		if start < 0 {
			return
		}
		end := strings.IndexByte(rest[start+1:], '!')
		if end < 0 {
			return
		}
		e.user = rest[start+1 : start+1+end]
		e.hasUser = true
	})
	return e.user, e.hasUser
}

// Channel returns "#name" from join/part lines
func (e *Event) Channel() (string, bool) {
	e.chanOnce.Do(func() {
		if e.kind != UserJoin && e.kind != UserLeave {
			return
		}
		rest := afterTags(e.raw)
		start := strings.IndexByte(rest, '#')
		if start < 0 {
			return
		}
		e.channel = rest[start:]
		e.hasChannel = true
	})
	return e.channel, e.hasChannel
}

// Tags returns every key of the tag section. Callers must not modify the map.
func (e *Event) Tags() map[string]string {
	e.tagsOnce.Do(func() {
		e.tags = parseTags(e.raw)
	})
	return e.tags
}
