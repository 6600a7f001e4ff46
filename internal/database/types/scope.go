package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bytedance/sonic"
)

// Scope is either the global scope or a single community.
// It is stored as NULL for global and the community DID otherwise.
type Scope struct {
	community string
}

// Global returns the global scope.
func Global() Scope {
	return Scope{}
}

// Community returns the scope of a single community.
func Community(did string) Scope {
	return Scope{community: did}
}

// ParseScope converts a DID or the empty string into a scope.
func ParseScope(s string) (Scope, error) {
	if s == "" || s == "global" {
		return Global(), nil
	}
	if _, err := syntax.ParseDID(s); err != nil {
		return Scope{}, fmt.Errorf("%w: %s", ErrInvalidDID, s)
	}
	return Community(s), nil
}

// IsGlobal reports whether the scope covers all communities.
func (s Scope) IsGlobal() bool {
	return s.community == ""
}

// CommunityDID returns the community DID, or empty for the global scope.
func (s Scope) CommunityDID() string {
	return s.community
}

// Key returns a stable identifier suitable for cache keys and URLs.
func (s Scope) Key() string {
	if s.IsGlobal() {
		return "global"
	}
	return s.community
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	return s.Key()
}

// Value implements driver.Valuer.
func (s Scope) Value() (driver.Value, error) {
	if s.IsGlobal() {
		return nil, nil
	}
	return s.community, nil
}

// Scan implements sql.Scanner.
func (s *Scope) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		s.community = ""
	case string:
		s.community = v
	case []byte:
		s.community = string(v)
	default:
		return fmt.Errorf("unsupported scope type %T", src)
	}
	return nil
}

// MarshalJSON encodes the global scope as null and a community as its DID.
func (s Scope) MarshalJSON() ([]byte, error) {
	if s.IsGlobal() {
		return []byte("null"), nil
	}
	return sonic.Marshal(s.community)
}

// UnmarshalJSON accepts null, "global" or a community DID.
func (s *Scope) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Global()
		return nil
	}

	var raw string
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseScope(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
