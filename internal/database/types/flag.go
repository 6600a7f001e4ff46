package types

import (
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
)

// BehavioralFlag is a heuristic finding awaiting staff review.
type BehavioralFlag struct {
	ID           int64           `bun:",pk,autoincrement"                           json:"id"`
	FlagType     enum.FlagType   `bun:",notnull"                                    json:"flagType"`
	AffectedDIDs []string        `bun:"affected_dids,type:text[],array"             json:"affectedDids"`
	Details      string          `bun:",notnull,default:''"                         json:"details"`
	CommunityDID Scope           `bun:"community_did,type:text"                     json:"communityDid"`
	Status       enum.FlagStatus `bun:",notnull,default:'pending'"                  json:"status"`
	DetectedAt   time.Time       `bun:",nullzero,notnull,default:current_timestamp" json:"detectedAt"`
}

// FlagFilter narrows a behavioral flag listing.
type FlagFilter struct {
	Status   enum.FlagStatus
	FlagType enum.FlagType
	Limit    int
	Offset   int
}
