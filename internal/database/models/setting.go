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

// SettingModel handles database operations for per-community anti-spam settings.
type SettingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSetting creates a SettingModel with database access.
func NewSetting(db *bun.DB, logger *zap.Logger) *SettingModel {
	return &SettingModel{
		db:     db,
		logger: logger.Named("db_setting"),
	}
}

// GetCommunitySetting retrieves a community's stored overrides. It returns nil
// without error when the community never changed its settings.
func (m *SettingModel) GetCommunitySetting(ctx context.Context, communityDID string) (*types.CommunitySetting, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.CommunitySetting, error) {
		var setting types.CommunitySetting
		err := m.db.NewSelect().
			Model(&setting).
			Where("community_did = ?", communityDID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get community settings: %w (community=%s)", err, communityDID)
		}
		return &setting, nil
	})
}

// SaveCommunitySetting creates or replaces a community's overrides.
func (m *SettingModel) SaveCommunitySetting(ctx context.Context, setting *types.CommunitySetting) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(setting).
			On("CONFLICT (community_did) DO UPDATE").
			Set("overrides = EXCLUDED.overrides").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save community settings: %w (community=%s)", err, setting.CommunityDID)
		}
		return nil
	})
}
