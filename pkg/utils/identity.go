package utils

import (
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// ValidDID reports whether s is a syntactically valid DID.
func ValidDID(s string) bool {
	_, err := syntax.ParseDID(s)
	return err == nil
}

// ValidATURI reports whether s is a syntactically valid AT-URI.
func ValidATURI(s string) bool {
	_, err := syntax.ParseATURI(s)
	return err == nil
}

// PDSHostFromHandle derives the hosting-service hostname from a handle's domain
// suffix: "alice.bsky.social" yields "bsky.social". Handles that do not parse
// or have fewer than two labels yield false.
func PDSHostFromHandle(handle string) (string, bool) {
	h, err := syntax.ParseHandle(strings.TrimPrefix(handle, "@"))
	if err != nil {
		return "", false
	}

	labels := strings.Split(h.Normalize().String(), ".")
	if len(labels) < 2 {
		return "", false
	}

	return strings.Join(labels[len(labels)-2:], "."), true
}

// NormalizeHost lowercases a hosting-service hostname and reports whether it
// is a valid domain name.
func NormalizeHost(host string) (string, bool) {
	h, err := syntax.ParseHandle(strings.TrimSpace(host))
	if err != nil {
		return "", false
	}
	return h.Normalize().String(), true
}
