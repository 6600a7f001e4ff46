package enum

// QueueReason is why a piece of content was held for review.
type QueueReason string

const (
	QueueReasonWordFilter QueueReason = "word_filter"
	QueueReasonFirstPost  QueueReason = "first_post"
	QueueReasonLinkHold   QueueReason = "link_hold"
	QueueReasonBurst      QueueReason = "burst"
	QueueReasonTopicDelay QueueReason = "topic_delay"
)

// Valid reports whether the reason is a known value.
func (r QueueReason) Valid() bool {
	switch r {
	case QueueReasonWordFilter, QueueReasonFirstPost, QueueReasonLinkHold,
		QueueReasonBurst, QueueReasonTopicDelay:
		return true
	}
	return false
}

// QueueStatus is the review state of a queue item.
type QueueStatus string

const (
	QueueStatusPending  QueueStatus = "pending"
	QueueStatusApproved QueueStatus = "approved"
	QueueStatusRejected QueueStatus = "rejected"
)

// Valid reports whether the status is a known value.
func (s QueueStatus) Valid() bool {
	return s == QueueStatusPending || s == QueueStatusApproved || s == QueueStatusRejected
}
