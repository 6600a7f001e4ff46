package enum

// ContentType distinguishes topics from replies.
type ContentType string

const (
	ContentTypeTopic ContentType = "topic"
	ContentTypeReply ContentType = "reply"
)

// Valid reports whether the content type is a known value.
func (c ContentType) Valid() bool {
	return c == ContentTypeTopic || c == ContentTypeReply
}

// ModerationStatus is the visibility state of a topic or reply.
type ModerationStatus string

const (
	ModerationStatusApproved ModerationStatus = "approved"
	ModerationStatusHeld     ModerationStatus = "held"
	ModerationStatusRejected ModerationStatus = "rejected"
)
