package models

import (
	"context"
	"fmt"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/dbretry"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// FlagModel handles database operations for behavioral flags.
type FlagModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewFlag creates a FlagModel with database access.
func NewFlag(db *bun.DB, logger *zap.Logger) *FlagModel {
	return &FlagModel{
		db:     db,
		logger: logger.Named("db_flag"),
	}
}

// CreateFlag persists a new behavioral flag.
func (m *FlagModel) CreateFlag(ctx context.Context, flag *types.BehavioralFlag) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(flag).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create behavioral flag: %w (type=%s)", err, flag.FlagType)
		}
		return nil
	})
}

// ListFlags returns flags matching the filter, newest first.
func (m *FlagModel) ListFlags(ctx context.Context, filter types.FlagFilter) ([]*types.BehavioralFlag, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.BehavioralFlag, error) {
		var flags []*types.BehavioralFlag
		query := m.db.NewSelect().
			Model(&flags).
			Order("detected_at DESC", "id DESC")

		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.FlagType != "" {
			query = query.Where("flag_type = ?", filter.FlagType)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}

		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list behavioral flags: %w", err)
		}
		return flags, nil
	})
}

// UpdateFlagStatus sets the review status of a flag.
func (m *FlagModel) UpdateFlagStatus(ctx context.Context, id int64, status enum.FlagStatus) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewUpdate().
			Model((*types.BehavioralFlag)(nil)).
			Set("status = ?", status).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update behavioral flag: %w (id=%d)", err, id)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: id %d", types.ErrFlagNotFound, id)
		}
		return nil
	})
}

// CountPending returns the number of flags awaiting review.
func (m *FlagModel) CountPending(ctx context.Context) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.BehavioralFlag)(nil)).
			Where("status = ?", enum.FlagStatusPending).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count pending flags: %w", err)
		}
		return count, nil
	})
}
