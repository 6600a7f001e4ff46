package enum

// InteractionType labels an edge in the interaction graph.
type InteractionType string

const (
	InteractionTypeReply    InteractionType = "reply"
	InteractionTypeReaction InteractionType = "reaction"
	InteractionTypeMention  InteractionType = "mention"
)
