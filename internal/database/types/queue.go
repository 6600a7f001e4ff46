package types

import (
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
)

// ModerationQueueItem is one reason a piece of content is held for review.
// Several items may reference the same ContentURI.
type ModerationQueueItem struct {
	ID           int64            `bun:",pk,autoincrement"                           json:"id"`
	ContentURI   string           `bun:",notnull"                                    json:"contentUri"`
	ContentType  enum.ContentType `bun:",notnull"                                    json:"contentType"`
	AuthorDID    string           `bun:",notnull"                                    json:"authorDid"`
	CommunityDID string           `bun:",notnull"                                    json:"communityDid"`
	QueueReason  enum.QueueReason `bun:",notnull"                                    json:"queueReason"`
	MatchedWords []string         `bun:"matched_words,type:text[],array"             json:"matchedWords,omitempty"`
	Status       enum.QueueStatus `bun:",notnull,default:'pending'"                  json:"status"`
	ReviewedBy   string           `bun:",nullzero"                                   json:"reviewedBy,omitempty"`
	ReviewedAt   time.Time        `bun:",nullzero"                                   json:"reviewedAt,omitzero"`
	CreatedAt    time.Time        `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// QueueFilter narrows a moderation queue listing.
type QueueFilter struct {
	Status       enum.QueueStatus
	CommunityDID string
	Reason       enum.QueueReason
	Limit        int
	Offset       int
}
