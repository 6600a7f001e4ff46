package antispam

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SettingsStore is the durable home of per-community overrides.
type SettingsStore interface {
	GetCommunitySetting(ctx context.Context, communityDID string) (*types.CommunitySetting, error)
	SaveCommunitySetting(ctx context.Context, setting *types.CommunitySetting) error
}

// SettingsLoader resolves a community's effective anti-spam settings, reading
// the cache first and falling back to the durable store.
type SettingsLoader struct {
	store    SettingsStore
	client   rueidis.Client
	ttl      time.Duration
	defaults types.AntiSpamSettings
	group    singleflight.Group
	logger   *zap.Logger
}

// NewSettingsLoader creates a SettingsLoader caching entries for ttl.
func NewSettingsLoader(store SettingsStore, client rueidis.Client, ttl time.Duration, logger *zap.Logger) *SettingsLoader {
	return &SettingsLoader{
		store:    store,
		client:   client,
		ttl:      ttl,
		defaults: types.DefaultAntiSpamSettings(),
		logger:   logger.Named("antispam_settings"),
	}
}

// WithBaseWordFilter sets the word filter used by communities that do not
// override it.
func (l *SettingsLoader) WithBaseWordFilter(words []string) *SettingsLoader {
	l.defaults.WordFilter = append([]string{}, words...)
	return l
}

func (l *SettingsLoader) baseSettings() types.AntiSpamSettings {
	base := l.defaults
	base.WordFilter = slices.Clone(l.defaults.WordFilter)
	return base
}

// Load returns the effective settings for a community. It never fails: cache
// errors fall through to the store, and store errors yield the defaults.
func (l *SettingsLoader) Load(ctx context.Context, communityDID string) types.AntiSpamSettings {
	key := settingsKey(communityDID)

	if settings, ok := l.fromCache(ctx, key); ok {
		settingsLookups.WithLabelValues("cache").Inc()
		return settings
	}

	v, _, _ := l.group.Do(key, func() (any, error) {
		return l.fromStore(ctx, communityDID, key), nil
	})

	settings := v.(types.AntiSpamSettings)
	settings.WordFilter = slices.Clone(settings.WordFilter)
	return settings
}

// Save stores new overrides for a community and drops the cached copy.
func (l *SettingsLoader) Save(
	ctx context.Context, communityDID string, overrides *types.AntiSpamOverrides,
) (types.AntiSpamSettings, error) {
	if !utils.ValidDID(communityDID) {
		return types.AntiSpamSettings{}, fmt.Errorf("%w: community %q", types.ErrInvalidDID, communityDID)
	}
	if err := validateOverrides(overrides); err != nil {
		return types.AntiSpamSettings{}, err
	}

	err := l.store.SaveCommunitySetting(ctx, &types.CommunitySetting{
		CommunityDID: communityDID,
		Overrides:    overrides,
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		return types.AntiSpamSettings{}, err
	}

	key := settingsKey(communityDID)
	if err := l.client.Do(ctx, l.client.B().Del().Key(key).Build()).Error(); err != nil {
		l.logger.Warn("Failed to invalidate cached anti-spam settings",
			zap.String("community", communityDID),
			zap.Error(err))
	}

	return overrides.ApplyTo(l.baseSettings()), nil
}

func (l *SettingsLoader) fromCache(ctx context.Context, key string) (types.AntiSpamSettings, bool) {
	data, err := l.client.Do(ctx, l.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			l.logger.Warn("Failed to read cached anti-spam settings", zap.String("key", key), zap.Error(err))
		}
		return types.AntiSpamSettings{}, false
	}

	var settings types.AntiSpamSettings
	if err := sonic.Unmarshal(data, &settings); err != nil {
		l.logger.Warn("Discarding malformed cached anti-spam settings", zap.String("key", key), zap.Error(err))
		return types.AntiSpamSettings{}, false
	}

	return settings, true
}

func (l *SettingsLoader) fromStore(ctx context.Context, communityDID, key string) types.AntiSpamSettings {
	row, err := l.store.GetCommunitySetting(ctx, communityDID)
	if err != nil {
		settingsLookups.WithLabelValues("default").Inc()
		l.logger.Error("Failed to load anti-spam settings, using defaults",
			zap.String("community", communityDID),
			zap.Error(err))
		return l.baseSettings()
	}
	settingsLookups.WithLabelValues("store").Inc()

	settings := l.baseSettings()
	if row != nil {
		settings = row.Overrides.ApplyTo(settings)
	}

	data, err := sonic.Marshal(settings)
	if err != nil {
		l.logger.Warn("Failed to encode anti-spam settings", zap.Error(err))
		return settings
	}

	if err := l.client.Do(ctx, l.client.B().Set().Key(key).Value(string(data)).Ex(l.ttl).Build()).Error(); err != nil {
		l.logger.Warn("Failed to cache anti-spam settings", zap.String("key", key), zap.Error(err))
	}

	return settings
}

func validateOverrides(o *types.AntiSpamOverrides) error {
	if o == nil {
		return nil
	}

	for name, v := range map[string]*int{
		"firstPostQueueCount":        o.FirstPostQueueCount,
		"newAccountDays":             o.NewAccountDays,
		"newAccountWriteRatePerMin":  o.NewAccountWriteRatePerMin,
		"establishedWriteRatePerMin": o.EstablishedWriteRatePerMin,
		"burstPostCount":             o.BurstPostCount,
		"burstWindowMinutes":         o.BurstWindowMinutes,
		"trustedPostThreshold":       o.TrustedPostThreshold,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must not be negative", types.ErrInvalidInput, name)
		}
	}

	for _, word := range o.WordFilter {
		if utils.CompressAllWhitespace(word) == "" {
			return fmt.Errorf("%w: word filter entries must not be blank", types.ErrInvalidInput)
		}
	}

	return nil
}

func settingsKey(communityDID string) string {
	return "settings:antispam:" + communityDID
}
