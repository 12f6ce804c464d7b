package irc

import "strings"

// Kind identifies what a raw protocol line carries
type Kind int

// Message kinds, assigned once per line by Classify
const (
	Unknown Kind = iota
	PrivateMessage
	UserStateUpdate
	ConnectAck
	LocalError
	RoomState
	UserJoin
	UserLeave
)

// LocalErrorPrefix marks lines generated locally to report a client-side failure
const LocalErrorPrefix = "EEE"

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	PrivateMessage:  "privmsg",
	UserStateUpdate: "userstate",
	ConnectAck:      "connect_ack",
	LocalError:      "local_error",
	RoomState:       "roomstate",
	UserJoin:        "join",
	UserLeave:       "part",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets kinds appear by name in JSON output
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classify determines the kind of a line from substring markers.
// PRIVMSG wins over everything; the remaining checks run in a fixed
// order and the first hit is taken.
func Classify(line string) Kind {
	if strings.Contains(line, "PRIVMSG") {
		return PrivateMessage
	}

	switch {
	case strings.Contains(line, "JOIN"):
		return UserJoin
	case strings.Contains(line, "PART"):
		return UserLeave
	case strings.Contains(line, "001"):
		return ConnectAck
	case strings.Contains(line, "USERSTATE"):
		return UserStateUpdate
	case strings.Contains(line, "ROOMSTATE"):
		return RoomState
	case len(line) >= 4 && strings.Contains(line[:4], LocalErrorPrefix):
		return LocalError
	}

	return Unknown
}
