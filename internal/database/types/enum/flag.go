package enum

// FlagType identifies which heuristic produced a behavioral flag.
type FlagType string

const (
	FlagTypeBurstVoting       FlagType = "burst_voting"
	FlagTypeContentSimilarity FlagType = "content_similarity"
	FlagTypeLowDiversity      FlagType = "low_diversity"
)

// Valid reports whether the type is a known detector.
func (t FlagType) Valid() bool {
	return t == FlagTypeBurstVoting || t == FlagTypeContentSimilarity || t == FlagTypeLowDiversity
}

// FlagStatus is the review state of a behavioral flag.
type FlagStatus string

const (
	FlagStatusPending     FlagStatus = "pending"
	FlagStatusDismissed   FlagStatus = "dismissed"
	FlagStatusActionTaken FlagStatus = "action_taken"
)

// Valid reports whether the status is a known value.
func (s FlagStatus) Valid() bool {
	return s == FlagStatusPending || s == FlagStatusDismissed || s == FlagStatusActionTaken
}

// IsResolution reports whether the status closes a flag.
func (s FlagStatus) IsResolution() bool {
	return s == FlagStatusDismissed || s == FlagStatusActionTaken
}
