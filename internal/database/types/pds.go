package types

import "time"

// PDSTrustFactor is the reputation multiplier attached to a hosting service.
type PDSTrustFactor struct {
	PDSHost     string    `bun:"pds_host,pk"                                 json:"pdsHost"`
	TrustFactor float64   `bun:",notnull"                                    json:"trustFactor"`
	IsDefault   bool      `bun:",notnull,default:false"                      json:"isDefault"`
	UpdatedAt   time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}
