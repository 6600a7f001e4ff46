package types

import "time"

// TrustSeed is an explicit seed of inherent trust for the graph service.
type TrustSeed struct {
	ID           int64     `bun:",pk,autoincrement"                           json:"id"`
	DID          string    `bun:",notnull"                                    json:"did"`
	CommunityDID Scope     `bun:"community_did,type:text"                     json:"communityDid"`
	AddedBy      string    `bun:",notnull"                                    json:"addedBy"`
	Reason       string    `bun:",notnull,default:''"                         json:"reason"`
	Implicit     bool      `bun:"-"                                           json:"implicit"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// AccountTrust is the approved-post ledger of an account within one community.
// ApprovedPostCount never decreases and TrustedAt is set once, on promotion.
type AccountTrust struct {
	DID               string    `bun:",pk"                    json:"did"`
	CommunityDID      string    `bun:",pk"                    json:"communityDid"`
	ApprovedPostCount int       `bun:",notnull,default:0"     json:"approvedPostCount"`
	IsTrusted         bool      `bun:",notnull,default:false" json:"isTrusted"`
	TrustedAt         time.Time `bun:",nullzero"              json:"trustedAt,omitzero"`
}
