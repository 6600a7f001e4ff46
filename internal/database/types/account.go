package types

import (
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
)

// Account is the read model of a forum account as populated by the ingester.
type Account struct {
	DID         string           `bun:",pk"                     json:"did"`
	Handle      string           `bun:",notnull"                json:"handle"`
	Role        enum.AccountRole `bun:",notnull,default:'user'" json:"role"`
	FirstSeenAt time.Time        `bun:",notnull"                json:"firstSeenAt"`
	IsBanned    bool             `bun:",notnull,default:false"  json:"isBanned"`
	BannedAt    time.Time        `bun:",nullzero"               json:"bannedAt,omitzero"`
}

// IsStaff reports whether the account holds a moderator or admin role.
func (a *Account) IsStaff() bool {
	return a != nil && a.Role.IsStaff()
}

// ActivityCounts summarises an account's contributions across all communities.
type ActivityCounts struct {
	Topics            int `json:"topics"`
	Replies           int `json:"replies"`
	ReactionsReceived int `json:"reactionsReceived"`
}
