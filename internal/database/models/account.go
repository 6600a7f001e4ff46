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

// AccountModel handles database operations for forum accounts.
type AccountModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAccount creates an AccountModel with database access.
func NewAccount(db *bun.DB, logger *zap.Logger) *AccountModel {
	return &AccountModel{
		db:     db,
		logger: logger.Named("db_account"),
	}
}

// GetAccount retrieves an account by DID. It returns nil without error when
// the account has not been ingested yet.
func (m *AccountModel) GetAccount(ctx context.Context, did string) (*types.Account, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Account, error) {
		var account types.Account
		err := m.db.NewSelect().
			Model(&account).
			Where("did = ?", did).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get account: %w (did=%s)", err, did)
		}

		return &account, nil
	})
}

// ListStaff returns every account holding a moderator or admin role.
func (m *AccountModel) ListStaff(ctx context.Context) ([]*types.Account, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Account, error) {
		var accounts []*types.Account
		err := m.db.NewSelect().
			Model(&accounts).
			Where("role IN (?)", bun.In([]enum.AccountRole{enum.AccountRoleModerator, enum.AccountRoleAdmin})).
			Order("did ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list staff accounts: %w", err)
		}

		return accounts, nil
	})
}

// BanAccount marks an account as banned. Banning an already banned account
// keeps its original ban time.
func (m *AccountModel) BanAccount(ctx context.Context, did string, at time.Time) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewUpdate().
			Model((*types.Account)(nil)).
			Set("is_banned = TRUE").
			Set("banned_at = COALESCE(banned_at, ?)", at).
			Where("did = ?", did).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to ban account: %w (did=%s)", err, did)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", types.ErrAccountNotFound, did)
		}

		return nil
	})
}

// GetActivityCounts counts an account's approved topics, approved replies and
// the reactions other accounts left on its content.
func (m *AccountModel) GetActivityCounts(ctx context.Context, did string) (*types.ActivityCounts, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ActivityCounts, error) {
		var counts types.ActivityCounts
		err := m.db.NewSelect().
			ColumnExpr("(SELECT count(*) FROM topics WHERE author_did = ? AND moderation_status = ?) AS topics",
				did, enum.ModerationStatusApproved).
			ColumnExpr("(SELECT count(*) FROM replies WHERE author_did = ? AND moderation_status = ?) AS replies",
				did, enum.ModerationStatusApproved).
			ColumnExpr("(SELECT count(*) FROM reactions WHERE subject_author_did = ? AND author_did <> ?) AS reactions_received",
				did, did).
			Scan(ctx, &counts.Topics, &counts.Replies, &counts.ReactionsReceived)
		if err != nil {
			return nil, fmt.Errorf("failed to count activity: %w (did=%s)", err, did)
		}

		return &counts, nil
	})
}
