package twitch

import (
	"errors"
	"fmt"
	"strings"
)

// TokenLength is the exact length of a Twitch chat OAuth token
const TokenLength = 30

var (
	ErrInvalidToken = errors.New("invalid oauth token")
	ErrInvalidNick  = errors.New("invalid nick")
)

// Credentials is a validated login pair
type Credentials struct {
	Token string
	Nick  string
}

// NewCredentials trims and checks a token/nick pair before any socket
// activity. The nick is lower-cased.
func NewCredentials(token, nick string) (Credentials, error) {
	token = strings.TrimSpace(token)
	if len(token) != TokenLength {
		return Credentials{}, fmt.Errorf("%w: length %d, want %d", ErrInvalidToken, len(token), TokenLength)
	}

	nick = strings.ToLower(strings.TrimSpace(nick))
	if nick == "" || strings.ContainsAny(nick, " \r\n") {
		return Credentials{}, fmt.Errorf("%w: %q", ErrInvalidNick, nick)
	}

	return Credentials{Token: token, Nick: nick}, nil
}

// loginCommands returns the handshake sent ahead of anything else
func (c Credentials) loginCommands() []string {
	return []string{
		"PASS oauth:" + c.Token,
		"NICK " + c.Nick,
	}
}
