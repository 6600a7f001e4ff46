package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/dbretry"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ReviewTx is the unit of work a moderator review runs in.
type ReviewTx interface {
	// LockItem loads a queue item and holds its row lock until the transaction ends.
	LockItem(ctx context.Context, id int64) (*types.ModerationQueueItem, error)
	// MarkReviewed moves a pending item to a terminal status.
	MarkReviewed(ctx context.Context, id int64, status enum.QueueStatus, reviewer string, at time.Time) error
	// ApprovePendingSiblings approves every other pending item for the same content.
	ApprovePendingSiblings(ctx context.Context, contentURI string, excludeID int64, reviewer string, at time.Time) (int, error)
	// RestoreContent makes held content visible again.
	RestoreContent(ctx context.Context, contentType enum.ContentType, uri string) error
	// IncrementApproved adds one approved post to the account's ledger, creating it if absent.
	IncrementApproved(ctx context.Context, did, communityDID string) (*types.AccountTrust, error)
	// PromoteTrusted marks the account trusted unless it already is.
	PromoteTrusted(ctx context.Context, did, communityDID string, at time.Time) (*types.AccountTrust, bool, error)
}

// QueueModel handles database operations for the moderation queue.
type QueueModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewQueue creates a QueueModel with database access.
func NewQueue(db *bun.DB, logger *zap.Logger) *QueueModel {
	return &QueueModel{
		db:     db,
		logger: logger.Named("db_queue"),
	}
}

// ListItems returns queue items matching the filter, newest first.
func (m *QueueModel) ListItems(ctx context.Context, filter types.QueueFilter) ([]*types.ModerationQueueItem, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ModerationQueueItem, error) {
		var items []*types.ModerationQueueItem
		query := m.db.NewSelect().
			Model(&items).
			Order("created_at DESC", "id DESC")

		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.CommunityDID != "" {
			query = query.Where("community_did = ?", filter.CommunityDID)
		}
		if filter.Reason != "" {
			query = query.Where("queue_reason = ?", filter.Reason)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}

		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list queue items: %w", err)
		}

		return items, nil
	})
}

// GetItem retrieves a queue item by id.
func (m *QueueModel) GetItem(ctx context.Context, id int64) (*types.ModerationQueueItem, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ModerationQueueItem, error) {
		return getItem(ctx, m.db, id, false)
	})
}

// CountPending returns the number of items awaiting review.
func (m *QueueModel) CountPending(ctx context.Context) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.ModerationQueueItem)(nil)).
			Where("status = ?", enum.QueueStatusPending).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count pending queue items: %w", err)
		}
		return count, nil
	})
}

// EnqueueHeld inserts one queue item per hold reason and hides the content, atomically.
func (m *QueueModel) EnqueueHeld(ctx context.Context, items []*types.ModerationQueueItem) error {
	if len(items) == 0 {
		return nil
	}

	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&items).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert queue items: %w", err)
		}

		first := items[0]
		return setModerationStatus(ctx, tx, first.ContentType, first.ContentURI, enum.ModerationStatusHeld)
	})
}

// RunReview runs fn inside a single transaction.
func (m *QueueModel) RunReview(ctx context.Context, fn func(ctx context.Context, tx ReviewTx) error) error {
	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &reviewTx{tx: tx})
	})
}

func getItem(ctx context.Context, db bun.IDB, id int64, lock bool) (*types.ModerationQueueItem, error) {
	var item types.ModerationQueueItem
	query := db.NewSelect().
		Model(&item).
		Where("id = ?", id)
	if lock {
		query = query.For("UPDATE")
	}

	if err := query.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", types.ErrQueueItemNotFound, id)
		}
		return nil, fmt.Errorf("failed to get queue item: %w (id=%d)", err, id)
	}

	return &item, nil
}

// reviewTx implements ReviewTx on a bun transaction.
type reviewTx struct {
	tx bun.Tx
}

func (r *reviewTx) LockItem(ctx context.Context, id int64) (*types.ModerationQueueItem, error) {
	return getItem(ctx, r.tx, id, true)
}

func (r *reviewTx) MarkReviewed(
	ctx context.Context, id int64, status enum.QueueStatus, reviewer string, at time.Time,
) error {
	result, err := r.tx.NewUpdate().
		Model((*types.ModerationQueueItem)(nil)).
		Set("status = ?", status).
		Set("reviewed_by = ?", reviewer).
		Set("reviewed_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", enum.QueueStatusPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w (id=%d)", err, id)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", types.ErrAlreadyReviewed, id)
	}

	return nil
}

func (r *reviewTx) ApprovePendingSiblings(
	ctx context.Context, contentURI string, excludeID int64, reviewer string, at time.Time,
) (int, error) {
	result, err := r.tx.NewUpdate().
		Model((*types.ModerationQueueItem)(nil)).
		Set("status = ?", enum.QueueStatusApproved).
		Set("reviewed_by = ?", reviewer).
		Set("reviewed_at = ?", at).
		Where("content_uri = ?", contentURI).
		Where("id <> ?", excludeID).
		Where("status = ?", enum.QueueStatusPending).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to approve sibling queue items: %w (uri=%s)", err, contentURI)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(affected), nil
}

func (r *reviewTx) RestoreContent(ctx context.Context, contentType enum.ContentType, uri string) error {
	return setModerationStatus(ctx, r.tx, contentType, uri, enum.ModerationStatusApproved)
}

func (r *reviewTx) IncrementApproved(ctx context.Context, did, communityDID string) (*types.AccountTrust, error) {
	trust := &types.AccountTrust{
		DID:               did,
		CommunityDID:      communityDID,
		ApprovedPostCount: 1,
	}

	// The increment happens inside the upsert so concurrent approvals cannot lose updates
	_, err := r.tx.NewInsert().
		Model(trust).
		On("CONFLICT (did, community_did) DO UPDATE").
		Set("approved_post_count = account_trust.approved_post_count + 1").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to increment approved posts: %w (did=%s)", err, did)
	}

	return trust, nil
}

func (r *reviewTx) PromoteTrusted(
	ctx context.Context, did, communityDID string, at time.Time,
) (*types.AccountTrust, bool, error) {
	var trust types.AccountTrust
	_, err := r.tx.NewUpdate().
		Model(&trust).
		Set("is_trusted = TRUE").
		Set("trusted_at = ?", at).
		Where("did = ?", did).
		Where("community_did = ?", communityDID).
		Where("NOT is_trusted").
		Returning("*").
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to promote account: %w (did=%s)", err, did)
	}

	if trust.DID == "" {
		return nil, false, nil
	}

	return &trust, true, nil
}
