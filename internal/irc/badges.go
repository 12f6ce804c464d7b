package irc

import (
	"log"
	"strings"
)

// Badge is a named chat entitlement with its version, e.g. subscriber/12
type Badge struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Signature returns the name/version form used to key badge images
func (b Badge) Signature() string {
	return b.Name + "/" + b.Version
}

func (b Badge) String() string {
	return b.Signature()
}

// knownBadges is the closed badge vocabulary; anything else is dropped
var knownBadges = map[string]bool{
	"admin":       true,
	"bits":        true,
	"broadcaster": true,
	"global_mod":  true,
	"moderator":   true,
	"subscriber":  true,
	"staff":       true,
	"premium":     true,
}

// IsKnownBadge reports whether name belongs to the badge vocabulary
func IsKnownBadge(name string) bool {
	return knownBadges[name]
}

// decodeBadges walks a badges= tag value one character at a time.
// Names are validated when their '/' is reached; an unknown name skips
// ahead to the next ',' or ';'. A repeated name keeps its first version.
func decodeBadges(span string) []Badge {
	badges := []Badge{}
	seen := make(map[string]bool)

	var name, version strings.Builder
	inVersion := false
	skipping := false

	flush := func() {
		if inVersion && !skipping && !seen[name.String()] {
			seen[name.String()] = true
			badges = append(badges, Badge{Name: name.String(), Version: version.String()})
		}
		name.Reset()
		version.Reset()
		inVersion = false
		skipping = false
	}

	for i := 0; i < len(span); i++ {
		c := span[i]

		if c == ';' || c == ' ' {
			break
		}
		if c == ',' {
			flush()
			continue
		}
		if skipping {
			continue
		}

		switch {
		case c == '/' && !inVersion:
			if !IsKnownBadge(name.String()) {
				log.Printf("Ignoring unknown badge %q", name.String())
				skipping = true
				continue
			}
			inVersion = true
		case inVersion:
			version.WriteByte(c)
		default:
			name.WriteByte(c)
		}
	}
	flush()

	return badges
}
