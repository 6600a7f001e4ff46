// Package moderation implements the review state machine over held content.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/models"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Store is the durable queue storage.
type Store interface {
	ListItems(ctx context.Context, filter types.QueueFilter) ([]*types.ModerationQueueItem, error)
	GetItem(ctx context.Context, id int64) (*types.ModerationQueueItem, error)
	RunReview(ctx context.Context, fn func(ctx context.Context, tx models.ReviewTx) error) error
}

// SettingsSource resolves a community's effective settings.
type SettingsSource interface {
	Load(ctx context.Context, communityDID string) types.AntiSpamSettings
}

// Resolution describes the effects of a review.
type Resolution struct {
	Item             *types.ModerationQueueItem `json:"item"`
	SiblingsResolved int                        `json:"siblingsResolved"`
	Trust            *types.AccountTrust        `json:"trust,omitempty"`
	Promoted         bool                       `json:"promoted"`
}

// Queue resolves moderation queue items.
type Queue struct {
	store    Store
	settings SettingsSource
	logger   *zap.Logger
	now      func() time.Time
}

// NewQueue creates a Queue.
func NewQueue(store Store, settings SettingsSource, logger *zap.Logger) *Queue {
	return &Queue{
		store:    store,
		settings: settings,
		logger:   logger.Named("moderation"),
		now:      time.Now,
	}
}

// List returns queue items matching the filter, newest first.
func (q *Queue) List(ctx context.Context, filter types.QueueFilter) ([]*types.ModerationQueueItem, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: queue status %q", types.ErrInvalidStatus, filter.Status)
	}
	if filter.Reason != "" && !filter.Reason.Valid() {
		return nil, fmt.Errorf("%w: queue reason %q", types.ErrInvalidInput, filter.Reason)
	}
	if filter.CommunityDID != "" && !utils.ValidDID(filter.CommunityDID) {
		return nil, fmt.Errorf("%w: community %q", types.ErrInvalidDID, filter.CommunityDID)
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", types.ErrInvalidInput)
	}

	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPageSize
	case filter.Limit > maxPageSize:
		filter.Limit = maxPageSize
	}

	return q.store.ListItems(ctx, filter)
}

// Get returns a single queue item.
func (q *Queue) Get(ctx context.Context, id int64) (*types.ModerationQueueItem, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: queue item id %d", types.ErrInvalidInput, id)
	}
	return q.store.GetItem(ctx, id)
}

// Approve publishes the held content, resolves every pending sibling item and
// credits the author with one approved post, promoting the account to trusted
// once the community threshold is reached. All effects commit together.
func (q *Queue) Approve(ctx context.Context, id int64, reviewerDID string) (*Resolution, error) {
	ctx, span := otel.Tracer("trustgate/moderation").Start(ctx, "moderation.Approve")
	defer span.End()

	item, err := q.prepare(ctx, id, reviewerDID)
	if err != nil {
		return nil, err
	}

	threshold := q.settings.Load(ctx, item.CommunityDID).TrustedPostThreshold
	now := q.now()
	resolution := &Resolution{}

	err = q.store.RunReview(ctx, func(ctx context.Context, tx models.ReviewTx) error {
		locked, err := lockPending(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := tx.MarkReviewed(ctx, id, enum.QueueStatusApproved, reviewerDID, now); err != nil {
			return err
		}

		siblings, err := tx.ApprovePendingSiblings(ctx, locked.ContentURI, id, reviewerDID, now)
		if err != nil {
			return err
		}

		if err := tx.RestoreContent(ctx, locked.ContentType, locked.ContentURI); err != nil {
			return err
		}

		trust, err := tx.IncrementApproved(ctx, locked.AuthorDID, locked.CommunityDID)
		if err != nil {
			return err
		}

		promoted := false
		if !trust.IsTrusted && trust.ApprovedPostCount >= threshold {
			updated, ok, err := tx.PromoteTrusted(ctx, locked.AuthorDID, locked.CommunityDID, now)
			if err != nil {
				return err
			}
			if ok {
				trust, promoted = updated, true
			}
		}

		locked.Status = enum.QueueStatusApproved
		locked.ReviewedBy = reviewerDID
		locked.ReviewedAt = now

		*resolution = Resolution{
			Item:             locked,
			SiblingsResolved: siblings,
			Trust:            trust,
			Promoted:         promoted,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to approve queue item %d: %w", id, err)
	}

	reviewsTotal.WithLabelValues(string(enum.QueueStatusApproved)).Inc()
	if resolution.Promoted {
		promotionsTotal.Inc()
		q.logger.Info("Account promoted to trusted",
			zap.String("did", resolution.Item.AuthorDID),
			zap.String("community", resolution.Item.CommunityDID),
			zap.Int("approvedPosts", resolution.Trust.ApprovedPostCount))
	}

	span.SetAttributes(
		attribute.Int64("moderation.item_id", id),
		attribute.Int("moderation.siblings", resolution.SiblingsResolved),
		attribute.Bool("moderation.promoted", resolution.Promoted),
	)

	q.logger.Info("Queue item approved",
		zap.Int64("id", id),
		zap.String("reviewer", reviewerDID),
		zap.Int("siblings", resolution.SiblingsResolved))

	return resolution, nil
}

// Reject marks the item rejected. Content, siblings and trust are untouched.
func (q *Queue) Reject(ctx context.Context, id int64, reviewerDID string) (*Resolution, error) {
	ctx, span := otel.Tracer("trustgate/moderation").Start(ctx, "moderation.Reject")
	defer span.End()

	if _, err := q.prepare(ctx, id, reviewerDID); err != nil {
		return nil, err
	}

	now := q.now()
	resolution := &Resolution{}

	err := q.store.RunReview(ctx, func(ctx context.Context, tx models.ReviewTx) error {
		locked, err := lockPending(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := tx.MarkReviewed(ctx, id, enum.QueueStatusRejected, reviewerDID, now); err != nil {
			return err
		}

		locked.Status = enum.QueueStatusRejected
		locked.ReviewedBy = reviewerDID
		locked.ReviewedAt = now
		resolution.Item = locked
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reject queue item %d: %w", id, err)
	}

	reviewsTotal.WithLabelValues(string(enum.QueueStatusRejected)).Inc()
	q.logger.Info("Queue item rejected", zap.Int64("id", id), zap.String("reviewer", reviewerDID))

	return resolution, nil
}

// prepare validates a review request and loads the item it targets.
func (q *Queue) prepare(ctx context.Context, id int64, reviewerDID string) (*types.ModerationQueueItem, error) {
	if !utils.ValidDID(reviewerDID) {
		return nil, fmt.Errorf("%w: reviewer %q", types.ErrInvalidDID, reviewerDID)
	}

	item, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != enum.QueueStatusPending {
		return nil, fmt.Errorf("%w: id %d is %s", types.ErrAlreadyReviewed, id, item.Status)
	}

	return item, nil
}

func lockPending(ctx context.Context, tx models.ReviewTx, id int64) (*types.ModerationQueueItem, error) {
	item, err := tx.LockItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != enum.QueueStatusPending {
		return nil, fmt.Errorf("%w: id %d is %s", types.ErrAlreadyReviewed, id, item.Status)
	}
	return item, nil
}
