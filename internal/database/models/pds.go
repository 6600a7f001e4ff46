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

// PDSModel handles database operations for hosting-service trust factors.
type PDSModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPDS creates a PDSModel with database access.
func NewPDS(db *bun.DB, logger *zap.Logger) *PDSModel {
	return &PDSModel{
		db:     db,
		logger: logger.Named("db_pds"),
	}
}

// ListFactors returns every stored trust factor ordered by host.
func (m *PDSModel) ListFactors(ctx context.Context) ([]*types.PDSTrustFactor, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.PDSTrustFactor, error) {
		var factors []*types.PDSTrustFactor
		err := m.db.NewSelect().
			Model(&factors).
			Order("pds_host ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list pds trust factors: %w", err)
		}
		return factors, nil
	})
}

// GetFactor retrieves the trust factor of a host.
func (m *PDSModel) GetFactor(ctx context.Context, host string) (*types.PDSTrustFactor, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.PDSTrustFactor, error) {
		var factor types.PDSTrustFactor
		err := m.db.NewSelect().
			Model(&factor).
			Where("pds_host = ?", host).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", types.ErrPDSFactorNotFound, host)
			}
			return nil, fmt.Errorf("failed to get pds trust factor: %w (host=%s)", err, host)
		}
		return &factor, nil
	})
}

// SaveFactor creates or updates the trust factor of a host.
func (m *PDSModel) SaveFactor(ctx context.Context, factor *types.PDSTrustFactor) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(factor).
			On("CONFLICT (pds_host) DO UPDATE").
			Set("trust_factor = EXCLUDED.trust_factor").
			Set("is_default = EXCLUDED.is_default").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save pds trust factor: %w (host=%s)", err, factor.PDSHost)
		}
		return nil
	})
}
