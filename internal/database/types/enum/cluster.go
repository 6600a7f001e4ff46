package enum

// ClusterStatus is the review state of a sybil cluster.
type ClusterStatus string

const (
	ClusterStatusFlagged    ClusterStatus = "flagged"
	ClusterStatusDismissed  ClusterStatus = "dismissed"
	ClusterStatusMonitoring ClusterStatus = "monitoring"
	ClusterStatusBanned     ClusterStatus = "banned"
)

// Valid reports whether the status is a known value.
func (s ClusterStatus) Valid() bool {
	switch s {
	case ClusterStatusFlagged, ClusterStatusDismissed, ClusterStatusMonitoring, ClusterStatusBanned:
		return true
	}
	return false
}

// CanTransitionTo reports whether a reviewer may move a cluster from s to next.
// Flagged and monitoring clusters are open for review; dismissed and banned are final.
func (s ClusterStatus) CanTransitionTo(next ClusterStatus) bool {
	if s != ClusterStatusFlagged && s != ClusterStatusMonitoring {
		return false
	}
	switch next {
	case ClusterStatusDismissed, ClusterStatusMonitoring, ClusterStatusBanned:
		return next != s
	}
	return false
}

// ClusterSortBy selects the ordering of cluster listings.
type ClusterSortBy string

const (
	ClusterSortByDetectedAt     ClusterSortBy = "detected_at"
	ClusterSortByMemberCount    ClusterSortBy = "member_count"
	ClusterSortBySuspicionRatio ClusterSortBy = "suspicion_ratio"
)

// Valid reports whether the sort key is a known value.
func (s ClusterSortBy) Valid() bool {
	switch s {
	case ClusterSortByDetectedAt, ClusterSortByMemberCount, ClusterSortBySuspicionRatio:
		return true
	}
	return false
}

// ClusterMemberRole describes a member's position within a cluster.
type ClusterMemberRole string

const (
	ClusterMemberRoleCore      ClusterMemberRole = "core"
	ClusterMemberRolePeriphery ClusterMemberRole = "periphery"
)
