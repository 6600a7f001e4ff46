package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/dbretry"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TrustModel handles database operations for trust seeds and the per-community
// approved-post ledger.
type TrustModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewTrust creates a TrustModel with database access.
func NewTrust(db *bun.DB, logger *zap.Logger) *TrustModel {
	return &TrustModel{
		db:     db,
		logger: logger.Named("db_trust"),
	}
}

// GetAccountTrust retrieves the ledger of an account in a community. It returns
// nil without error when the account has no approved history there.
func (m *TrustModel) GetAccountTrust(ctx context.Context, did, communityDID string) (*types.AccountTrust, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.AccountTrust, error) {
		var trust types.AccountTrust
		err := m.db.NewSelect().
			Model(&trust).
			Where("did = ?", did).
			Where("community_did = ?", communityDID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get account trust: %w (did=%s)", err, did)
		}

		return &trust, nil
	})
}

// CountTrusted returns the number of (account, community) pairs marked trusted.
func (m *TrustModel) CountTrusted(ctx context.Context) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.AccountTrust)(nil)).
			Where("is_trusted").
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count trusted accounts: %w", err)
		}
		return count, nil
	})
}

// ListSeeds returns explicit trust seeds. A nil scope lists every seed.
func (m *TrustModel) ListSeeds(ctx context.Context, scope *types.Scope) ([]*types.TrustSeed, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.TrustSeed, error) {
		var seeds []*types.TrustSeed
		query := m.db.NewSelect().
			Model(&seeds).
			Order("created_at ASC", "id ASC")

		switch {
		case scope == nil:
		case scope.IsGlobal():
			query = query.Where("community_did IS NULL")
		default:
			query = query.Where("community_did = ?", scope.CommunityDID())
		}

		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list trust seeds: %w", err)
		}

		return seeds, nil
	})
}

// CreateSeed inserts an explicit trust seed.
func (m *TrustModel) CreateSeed(ctx context.Context, seed *types.TrustSeed) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(seed).
			Returning("*").
			Exec(ctx)
		if err != nil {
			if dbretry.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s in %s", types.ErrDuplicateSeed, seed.DID, seed.CommunityDID)
			}
			return fmt.Errorf("failed to create trust seed: %w (did=%s)", err, seed.DID)
		}

		return nil
	})
}

// DeleteSeed removes an explicit trust seed by id.
func (m *TrustModel) DeleteSeed(ctx context.Context, id int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewDelete().
			Model((*types.TrustSeed)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete trust seed: %w (id=%d)", err, id)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: id %d", types.ErrSeedNotFound, id)
		}

		return nil
	})
}

// IsSeed reports whether the account is an explicit seed globally or in the community.
func (m *TrustModel) IsSeed(ctx context.Context, did, communityDID string) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.TrustSeed)(nil)).
			Where("did = ?", did).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("community_did IS NULL").WhereOr("community_did = ?", communityDID)
			}).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check trust seed: %w (did=%s)", err, did)
		}
		return exists, nil
	})
}

// CountSeeds returns the number of explicit trust seeds.
func (m *TrustModel) CountSeeds(ctx context.Context) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.TrustSeed)(nil)).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count trust seeds: %w", err)
		}
		return count, nil
	})
}
