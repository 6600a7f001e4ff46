package types

import (
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
)

// Topic is the read model of a forum topic.
type Topic struct {
	URI              string                `bun:",pk"                         json:"uri"`
	AuthorDID        string                `bun:",notnull"                    json:"authorDid"`
	CommunityDID     string                `bun:",notnull"                    json:"communityDid"`
	Title            string                `bun:",notnull,default:''"         json:"title"`
	Content          string                `bun:",notnull,default:''"         json:"content"`
	ModerationStatus enum.ModerationStatus `bun:",notnull,default:'approved'" json:"moderationStatus"`
	CreatedAt        time.Time             `bun:",notnull"                    json:"createdAt"`
}

// Reply is the read model of a reply within a topic.
type Reply struct {
	URI              string                `bun:",pk"                         json:"uri"`
	TopicURI         string                `bun:",notnull"                    json:"topicUri"`
	AuthorDID        string                `bun:",notnull"                    json:"authorDid"`
	CommunityDID     string                `bun:",notnull"                    json:"communityDid"`
	Content          string                `bun:",notnull,default:''"         json:"content"`
	ModerationStatus enum.ModerationStatus `bun:",notnull,default:'approved'" json:"moderationStatus"`
	CreatedAt        time.Time             `bun:",notnull"                    json:"createdAt"`
}

// Reaction is the read model of a reaction on a topic or reply.
type Reaction struct {
	URI              string    `bun:",pk"      json:"uri"`
	AuthorDID        string    `bun:",notnull" json:"authorDid"`
	SubjectURI       string    `bun:",notnull" json:"subjectUri"`
	SubjectAuthorDID string    `bun:",notnull" json:"subjectAuthorDid"`
	CommunityDID     string    `bun:",notnull" json:"communityDid"`
	CreatedAt        time.Time `bun:",notnull" json:"createdAt"`
}

// InteractionEdge is a directed edge of the interaction graph.
type InteractionEdge struct {
	ID              int64                `bun:",pk,autoincrement"  json:"id"`
	SourceDID       string               `bun:",notnull"           json:"sourceDid"`
	TargetDID       string               `bun:",notnull"           json:"targetDid"`
	InteractionType enum.InteractionType `bun:",notnull"           json:"interactionType"`
	Weight          int                  `bun:",notnull,default:1" json:"weight"`
	CommunityDID    string               `bun:",notnull"           json:"communityDid"`
	CreatedAt       time.Time            `bun:",notnull"           json:"createdAt"`
}

// ContentItem is a topic or reply reduced to what the similarity detector needs.
type ContentItem struct {
	URI       string `bun:"uri"`
	AuthorDID string `bun:"author_did"`
	Content   string `bun:"content"`
}

// ReactionCount is the number of reactions an author made within a window.
type ReactionCount struct {
	AuthorDID string `bun:"author_did"`
	Count     int    `bun:"count"`
}

// InteractionSummary is an account's outgoing interaction volume within a window.
type InteractionSummary struct {
	SourceDID       string `bun:"source_did"`
	Total           int    `bun:"total"`
	DistinctTargets int    `bun:"distinct_targets"`
}
