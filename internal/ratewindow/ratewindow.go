// Package ratewindow implements a sliding-time-window counter on Redis sorted sets.
package ratewindow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// expiryPadding keeps a window key alive slightly longer than its window.
const expiryPadding = time.Second

// checkAndRecordScript trims, counts and conditionally records in one step so
// concurrent callers on the same key behave as if serialized.
//
// KEYS[1] window key
// ARGV[1] cutoff score (exclusive), ARGV[2] now, ARGV[3] limit,
// ARGV[4] member, ARGV[5] expiry in milliseconds.
const checkAndRecordScript = `
	redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
	local count = redis.call('ZCARD', KEYS[1])
	if count >= tonumber(ARGV[3]) then
		return 1
	end
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	return 0
`

// Window counts events per key over a sliding time window.
type Window struct {
	client rueidis.Client
	logger *zap.Logger
}

// New creates a Window backed by the given Redis client.
func New(client rueidis.Client, logger *zap.Logger) *Window {
	return &Window{
		client: client,
		logger: logger.Named("ratewindow"),
	}
}

// CheckAndRecord reports whether the key already holds limit or more events
// within (now - window, now]. When it does not, an event at now is recorded.
// Cache failures fail open and report false.
func (w *Window) CheckAndRecord(ctx context.Context, key string, now time.Time, window time.Duration, limit int) bool {
	if limit <= 0 || window <= 0 {
		return false
	}

	nowMillis := now.UnixMilli()
	cutoff := nowMillis - window.Milliseconds()
	member := fmt.Sprintf("%d-%s", nowMillis, uuid.NewString())

	resp := w.client.Do(ctx, w.client.B().Eval().
		Script(checkAndRecordScript).
		Numkeys(1).
		Key(key).
		Arg(strconv.FormatInt(cutoff, 10)).
		Arg(strconv.FormatInt(nowMillis, 10)).
		Arg(strconv.Itoa(limit)).
		Arg(member).
		Arg(strconv.FormatInt((window + expiryPadding).Milliseconds(), 10)).
		Build())

	exceeded, err := resp.AsInt64()
	if err != nil {
		failOpenTotal.Inc()
		w.logger.Warn("Rate window check failed, allowing request",
			zap.String("key", key),
			zap.Error(err))
		return false
	}

	return exceeded == 1
}

// BurstKey is the window key for burst detection of an author in a community.
func BurstKey(communityDID, authorDID string) string {
	return fmt.Sprintf("ratewindow:burst:%s:%s", communityDID, authorDID)
}

// WriteKey is the window key for an author's write-rate budget.
func WriteKey(authorDID string) string {
	return "ratewindow:write:" + authorDID
}
