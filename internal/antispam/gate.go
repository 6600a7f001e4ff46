// Package antispam decides, per submission, whether content is published or held for review.
package antispam

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/internal/ratewindow"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// linkPattern finds bare URLs.
var linkPattern = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)

// SettingsSource resolves a community's effective settings.
type SettingsSource interface {
	Load(ctx context.Context, communityDID string) types.AntiSpamSettings
}

// AccountStore reads account metadata.
type AccountStore interface {
	GetAccount(ctx context.Context, did string) (*types.Account, error)
}

// TrustStore reads the approved-post ledger.
type TrustStore interface {
	GetAccountTrust(ctx context.Context, did, communityDID string) (*types.AccountTrust, error)
}

// QueueStore persists held content.
type QueueStore interface {
	EnqueueHeld(ctx context.Context, items []*types.ModerationQueueItem) error
}

// RateLimiter is a sliding-window counter.
type RateLimiter interface {
	CheckAndRecord(ctx context.Context, key string, now time.Time, window time.Duration, limit int) bool
}

// Submission is a piece of content about to be published.
type Submission struct {
	AuthorDID    string
	CommunityDID string
	ContentType  enum.ContentType
	Title        string
	Content      string
}

// HoldReason is one reason a submission is held.
type HoldReason struct {
	Reason       enum.QueueReason `json:"reason"`
	MatchedWords []string         `json:"matchedWords,omitempty"`
}

// Result is the gate's decision for a submission.
type Result struct {
	Held    bool         `json:"held"`
	Reasons []HoldReason `json:"reasons"`
}

// Gate runs the anti-spam checks.
type Gate struct {
	settings SettingsSource
	accounts AccountStore
	trust    TrustStore
	queue    QueueStore
	limiter  RateLimiter
	logger   *zap.Logger
	now      func() time.Time
}

// NewGate creates a Gate.
func NewGate(
	settings SettingsSource, accounts AccountStore, trust TrustStore, queue QueueStore,
	limiter RateLimiter, logger *zap.Logger,
) *Gate {
	return &Gate{
		settings: settings,
		accounts: accounts,
		trust:    trust,
		queue:    queue,
		limiter:  limiter,
		logger:   logger.Named("antispam"),
		now:      time.Now,
	}
}

// Check decides whether a submission is held. Staff and trusted accounts are
// never held and consume no rate budget. Store failures are returned; cache
// failures are absorbed.
func (g *Gate) Check(ctx context.Context, sub Submission) (*Result, error) {
	ctx, span := otel.Tracer("trustgate/antispam").Start(ctx, "antispam.Check")
	defer span.End()

	if err := sub.validate(); err != nil {
		return nil, err
	}

	settings := g.settings.Load(ctx, sub.CommunityDID)

	account, trust, err := g.lookup(ctx, sub.AuthorDID, sub.CommunityDID)
	if err != nil {
		return nil, err
	}

	result := &Result{Reasons: []HoldReason{}}
	if account.IsStaff() || (trust != nil && trust.IsTrusted) {
		decisionsTotal.WithLabelValues("bypass").Inc()
		span.SetAttributes(attribute.Bool("antispam.bypass", true))
		return result, nil
	}

	now := g.now()
	isNew := isNewAccount(settings, account, trust, now)

	if matched := matchWordFilter(settings.WordFilter, sub.Title+" "+sub.Content); len(matched) > 0 {
		result.Reasons = append(result.Reasons, HoldReason{Reason: enum.QueueReasonWordFilter, MatchedWords: matched})
	}

	if isNew {
		approved := 0
		if trust != nil {
			approved = trust.ApprovedPostCount
		}

		firstPost := approved < settings.FirstPostQueueCount
		if firstPost {
			result.Reasons = append(result.Reasons, HoldReason{Reason: enum.QueueReasonFirstPost})
		}
		if settings.LinkHoldEnabled && linkPattern.MatchString(sub.Title+" "+sub.Content) {
			result.Reasons = append(result.Reasons, HoldReason{Reason: enum.QueueReasonLinkHold})
		}
		if settings.TopicCreationDelayEnabled && sub.ContentType == enum.ContentTypeTopic && !firstPost {
			result.Reasons = append(result.Reasons, HoldReason{Reason: enum.QueueReasonTopicDelay})
		}
	}

	window := time.Duration(settings.BurstWindowMinutes) * time.Minute
	if g.limiter.CheckAndRecord(ctx, ratewindow.BurstKey(sub.CommunityDID, sub.AuthorDID), now, window, settings.BurstPostCount) {
		result.Reasons = append(result.Reasons, HoldReason{Reason: enum.QueueReasonBurst})
	}

	result.Held = len(result.Reasons) > 0
	if result.Held {
		decisionsTotal.WithLabelValues("held").Inc()
		for _, r := range result.Reasons {
			holdReasonsTotal.WithLabelValues(string(r.Reason)).Inc()
		}
		g.logger.Debug("Submission held",
			zap.String("author", sub.AuthorDID),
			zap.String("community", sub.CommunityDID),
			zap.Int("reasons", len(result.Reasons)))
	} else {
		decisionsTotal.WithLabelValues("published").Inc()
	}

	span.SetAttributes(attribute.Bool("antispam.held", result.Held), attribute.Bool("antispam.new_account", isNew))
	return result, nil
}

// Enqueue records one pending queue item per hold reason and marks the content held.
func (g *Gate) Enqueue(ctx context.Context, contentURI string, sub Submission, result *Result) error {
	if result == nil || !result.Held {
		return nil
	}
	if !utils.ValidATURI(contentURI) {
		return fmt.Errorf("%w: %q", types.ErrInvalidURI, contentURI)
	}
	if err := sub.validate(); err != nil {
		return err
	}

	items := make([]*types.ModerationQueueItem, 0, len(result.Reasons))
	for _, r := range result.Reasons {
		items = append(items, &types.ModerationQueueItem{
			ContentURI:   contentURI,
			ContentType:  sub.ContentType,
			AuthorDID:    sub.AuthorDID,
			CommunityDID: sub.CommunityDID,
			QueueReason:  r.Reason,
			MatchedWords: r.MatchedWords,
			Status:       enum.QueueStatusPending,
		})
	}

	if err := g.queue.EnqueueHeld(ctx, items); err != nil {
		return fmt.Errorf("failed to enqueue held content: %w", err)
	}

	g.logger.Info("Held content queued for review",
		zap.String("uri", contentURI),
		zap.Int("items", len(items)))

	return nil
}

// CheckWriteRate consumes one unit of the author's per-minute write budget and
// returns ErrRateLimited when it is exhausted. Staff are not limited.
func (g *Gate) CheckWriteRate(ctx context.Context, authorDID, communityDID string) error {
	if !utils.ValidDID(authorDID) {
		return fmt.Errorf("%w: author %q", types.ErrInvalidDID, authorDID)
	}
	if !utils.ValidDID(communityDID) {
		return fmt.Errorf("%w: community %q", types.ErrInvalidDID, communityDID)
	}

	settings := g.settings.Load(ctx, communityDID)

	account, trust, err := g.lookup(ctx, authorDID, communityDID)
	if err != nil {
		return err
	}
	if account.IsStaff() {
		return nil
	}

	now := g.now()
	limit := settings.EstablishedWriteRatePerMin
	if isNewAccount(settings, account, trust, now) {
		limit = settings.NewAccountWriteRatePerMin
	}

	if g.limiter.CheckAndRecord(ctx, ratewindow.WriteKey(authorDID), now, time.Minute, limit) {
		decisionsTotal.WithLabelValues("rate_limited").Inc()
		return fmt.Errorf("%w: %d writes per minute", types.ErrRateLimited, limit)
	}

	return nil
}

func (g *Gate) lookup(ctx context.Context, did, communityDID string) (*types.Account, *types.AccountTrust, error) {
	account, err := g.accounts.GetAccount(ctx, did)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load account: %w", err)
	}

	trust, err := g.trust.GetAccountTrust(ctx, did, communityDID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load account trust: %w", err)
	}

	return account, trust, nil
}

func (s *Submission) validate() error {
	if !utils.ValidDID(s.AuthorDID) {
		return fmt.Errorf("%w: author %q", types.ErrInvalidDID, s.AuthorDID)
	}
	if !utils.ValidDID(s.CommunityDID) {
		return fmt.Errorf("%w: community %q", types.ErrInvalidDID, s.CommunityDID)
	}
	if !s.ContentType.Valid() {
		return fmt.Errorf("%w: content type %q", types.ErrInvalidInput, s.ContentType)
	}
	if s.Content == "" && s.Title == "" {
		return fmt.Errorf("%w: empty submission", types.ErrInvalidInput)
	}
	return nil
}

// isNewAccount treats an account as established only once it has an approved
// post and was first seen more than newAccountDays ago. First-seen is global
// while the ledger is per community.
func isNewAccount(settings types.AntiSpamSettings, account *types.Account, trust *types.AccountTrust, now time.Time) bool {
	if settings.NewAccountDays <= 0 {
		return false
	}
	if trust == nil || trust.ApprovedPostCount < 1 || account == nil {
		return true
	}

	cutoff := now.AddDate(0, 0, -settings.NewAccountDays)
	return !account.FirstSeenAt.Before(cutoff)
}

// matchWordFilter returns the filter entries found in text, in filter order.
func matchWordFilter(filter []string, text string) []string {
	if len(filter) == 0 {
		return nil
	}

	normalizer := utils.NewTextNormalizer()
	normalized := normalizer.Normalize(text)
	if normalized == "" {
		return nil
	}

	var matched []string
	for _, phrase := range filter {
		re, ok := normalizer.WordPattern(phrase)
		if !ok || slices.Contains(matched, phrase) {
			continue
		}
		if re.MatchString(normalized) {
			matched = append(matched, phrase)
		}
	}

	return matched
}
