package types

import (
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
)

// SybilCluster is a group of accounts with a self-contained interaction pattern.
type SybilCluster struct {
	ID                int64                 `bun:",pk,autoincrement"                           json:"id"`
	ClusterHash       string                `bun:",notnull,unique"                             json:"clusterHash"`
	InternalEdgeCount int                   `bun:",notnull,default:0"                          json:"internalEdgeCount"`
	ExternalEdgeCount int                   `bun:",notnull,default:0"                          json:"externalEdgeCount"`
	MemberCount       int                   `bun:",notnull,default:0"                          json:"memberCount"`
	Status            enum.ClusterStatus    `bun:",notnull,default:'flagged'"                  json:"status"`
	ReviewedBy        string                `bun:",nullzero"                                   json:"reviewedBy,omitempty"`
	ReviewedAt        time.Time             `bun:",nullzero"                                   json:"reviewedAt,omitzero"`
	DetectedAt        time.Time             `bun:",nullzero,notnull,default:current_timestamp" json:"detectedAt"`
	UpdatedAt         time.Time             `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
	Members           []*SybilClusterMember `bun:"rel:has-many,join:id=cluster_id"             json:"members,omitempty"`
}

// SuspicionRatio is the internal share of the cluster's edges, 0 when it has none.
func (c *SybilCluster) SuspicionRatio() float64 {
	total := c.InternalEdgeCount + c.ExternalEdgeCount
	if total == 0 {
		return 0
	}
	return float64(c.InternalEdgeCount) / float64(total)
}

// SybilClusterMember links an account to a cluster. An account may belong to
// several clusters at once.
type SybilClusterMember struct {
	ClusterID     int64                  `bun:",pk"                                         json:"clusterId"`
	DID           string                 `bun:",pk"                                         json:"did"`
	RoleInCluster enum.ClusterMemberRole `bun:",notnull,default:'core'"                     json:"roleInCluster"`
	JoinedAt      time.Time              `bun:",nullzero,notnull,default:current_timestamp" json:"joinedAt"`
}

// ClusterListOptions controls cluster listing.
type ClusterListOptions struct {
	Status enum.ClusterStatus
	SortBy enum.ClusterSortBy
	Desc   bool
	Limit  int
	Offset int
}
