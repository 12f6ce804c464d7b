package message

import (
	"reflect"
	"testing"
	"time"

	"github.com/john/tmichat/internal/irc"
)

var at = time.Date(2025, 12, 30, 10, 30, 0, 0, time.UTC)

func TestFromEventPrivateMessage(t *testing.T) {
	ev := irc.NewEvent("@badges=subscriber/12;color=#1E90FF;display-name=Foo :foo!foo@foo.tmi.twitch.tv PRIVMSG #chan :hello there")
	got := FromEvent(ev, at)

	want := Message{
		Kind:        "privmsg",
		Timestamp:   "2025-12-30T10:30:00Z",
		Channel:     "chan",
		DisplayName: "Foo",
		Color:       "#1E90FF",
		Message:     "hello there",
		Badges:      []string{"subscriber/12"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromEvent() = %+v, want %+v", got, want)
	}
}

func TestFromEventJoin(t *testing.T) {
	got := FromEvent(irc.NewEvent(":bar!bar@bar.tmi.twitch.tv JOIN #chan"), at)
	if got.Kind != "join" || got.Username != "bar" || got.Channel != "chan" {
		t.Errorf("FromEvent() = %+v", got)
	}
}

func TestFromEventUnknownKeepsRaw(t *testing.T) {
	line := ":tmi.twitch.tv NOTICE * :Login authentication failed"
	got := FromEvent(irc.NewEvent(line), at)
	if got.Kind != "unknown" || got.Raw != line {
		t.Errorf("FromEvent() = %+v", got)
	}
}

func TestRecordable(t *testing.T) {
	for kind, want := range map[irc.Kind]bool{
		irc.PrivateMessage:  true,
		irc.UserJoin:        true,
		irc.UserLeave:       true,
		irc.ConnectAck:      false,
		irc.UserStateUpdate: false,
		irc.Unknown:         false,
	} {
		if got := Recordable(kind); got != want {
			t.Errorf("Recordable(%v) = %v, want %v", kind, got, want)
		}
	}
}
