// Package heuristics runs batch detectors over recent activity and records
// their findings as behavioral flags for staff review.
package heuristics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ContentStore reads the recent activity the detectors inspect.
type ContentStore interface {
	GetRecentContent(ctx context.Context, scope types.Scope, since time.Time, limit int) ([]*types.ContentItem, error)
	GetReactionCounts(ctx context.Context, scope types.Scope, since time.Time, threshold int) ([]*types.ReactionCount, error)
	GetLowDiversityInteractions(
		ctx context.Context, scope types.Scope, since time.Time, minTotal, maxTargets int,
	) ([]*types.InteractionSummary, error)
}

// FlagStore persists and reviews behavioral flags.
type FlagStore interface {
	CreateFlag(ctx context.Context, flag *types.BehavioralFlag) error
	ListFlags(ctx context.Context, filter types.FlagFilter) ([]*types.BehavioralFlag, error)
	UpdateFlagStatus(ctx context.Context, id int64, status enum.FlagStatus) error
}

// Engine runs the behavioral detectors.
type Engine struct {
	content    ContentStore
	flags      FlagStore
	thresholds Thresholds
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(content ContentStore, flags FlagStore, thresholds Thresholds, logger *zap.Logger) *Engine {
	return &Engine{
		content:    content,
		flags:      flags,
		thresholds: thresholds,
		logger:     logger.Named("heuristics"),
		now:        time.Now,
	}
}

// RunAll executes every detector concurrently and persists the resulting flags
// in burst voting, content similarity, low diversity order. A flag that fails
// to persist is logged and left out of the returned slice.
func (e *Engine) RunAll(ctx context.Context, scope types.Scope) []*types.BehavioralFlag {
	ctx, span := otel.Tracer("trustgate/heuristics").Start(ctx, "heuristics.RunAll")
	defer span.End()

	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	detectors := []func(context.Context, types.Scope) []*types.BehavioralFlag{
		e.BurstVoting,
		e.ContentSimilarity,
		e.LowDiversity,
	}

	results := make([][]*types.BehavioralFlag, len(detectors))
	p := pool.New().WithContext(ctx)
	for i, detect := range detectors {
		p.Go(func(ctx context.Context) error {
			results[i] = detect(ctx, scope)
			return nil
		})
	}
	_ = p.Wait()

	persisted := make([]*types.BehavioralFlag, 0)
	for _, flags := range results {
		for _, flag := range flags {
			if err := e.flags.CreateFlag(ctx, flag); err != nil {
				e.logger.Error("Failed to persist behavioral flag",
					zap.Error(err),
					zap.String("type", string(flag.FlagType)),
					zap.Strings("dids", flag.AffectedDIDs))
				continue
			}
			flagsDetected.WithLabelValues(string(flag.FlagType)).Inc()
			persisted = append(persisted, flag)
		}
	}

	span.SetAttributes(
		attribute.String("heuristics.scope", scope.String()),
		attribute.Int("heuristics.flags", len(persisted)),
	)

	return persisted
}

// BurstVoting flags every author whose reactions within the window meet the threshold.
func (e *Engine) BurstVoting(ctx context.Context, scope types.Scope) []*types.BehavioralFlag {
	now := e.now()
	counts, err := e.content.GetReactionCounts(
		ctx, scope, now.Add(-e.thresholds.BurstVotingWindow), e.thresholds.BurstVotingThreshold,
	)
	if err != nil {
		e.detectorFailed(enum.FlagTypeBurstVoting, scope, err)
		return nil
	}

	flags := make([]*types.BehavioralFlag, 0, len(counts))
	for _, c := range counts {
		if c.Count < e.thresholds.BurstVotingThreshold {
			continue
		}
		flags = append(flags, e.newFlag(enum.FlagTypeBurstVoting, scope, []string{c.AuthorDID}, map[string]any{
			"reactions":     c.Count,
			"threshold":     e.thresholds.BurstVotingThreshold,
			"windowMinutes": int(e.thresholds.BurstVotingWindow.Minutes()),
		}, now))
	}

	return flags
}

// ContentSimilarity groups near-identical items written by different authors.
// Each group reaching the minimum author count yields one flag.
func (e *Engine) ContentSimilarity(ctx context.Context, scope types.Scope) []*types.BehavioralFlag {
	now := e.now()
	items, err := e.content.GetRecentContent(
		ctx, scope, now.Add(-e.thresholds.SimilarityWindow), e.thresholds.SimilarityMaxItems,
	)
	if err != nil {
		e.detectorFailed(enum.FlagTypeContentSimilarity, scope, err)
		return nil
	}

	groups := groupSimilar(items, e.thresholds.SimilarityThreshold, e.thresholds.SimilarityMinTextLength)

	flags := make([]*types.BehavioralFlag, 0, len(groups))
	for _, group := range groups {
		authors := make([]string, 0, len(group))
		uris := make([]string, 0, len(group))
		for _, item := range group {
			authors = append(authors, item.AuthorDID)
			uris = append(uris, item.URI)
		}
		slices.Sort(authors)
		authors = slices.Compact(authors)

		if len(authors) < e.thresholds.SimilarityMinAuthors {
			continue
		}

		flags = append(flags, e.newFlag(enum.FlagTypeContentSimilarity, scope, authors, map[string]any{
			"uris":      uris,
			"threshold": e.thresholds.SimilarityThreshold,
		}, now))
	}

	return flags
}

// LowDiversity flags accounts that interact heavily with very few targets.
func (e *Engine) LowDiversity(ctx context.Context, scope types.Scope) []*types.BehavioralFlag {
	now := e.now()
	summaries, err := e.content.GetLowDiversityInteractions(
		ctx, scope, now.Add(-e.thresholds.LowDiversityWindow),
		e.thresholds.LowDiversityMinInteractions, e.thresholds.LowDiversityMaxTargets,
	)
	if err != nil {
		e.detectorFailed(enum.FlagTypeLowDiversity, scope, err)
		return nil
	}

	flags := make([]*types.BehavioralFlag, 0, len(summaries))
	for _, s := range summaries {
		if s.Total < e.thresholds.LowDiversityMinInteractions || s.DistinctTargets > e.thresholds.LowDiversityMaxTargets {
			continue
		}
		flags = append(flags, e.newFlag(enum.FlagTypeLowDiversity, scope, []string{s.SourceDID}, map[string]any{
			"interactions":    s.Total,
			"distinctTargets": s.DistinctTargets,
		}, now))
	}

	return flags
}

// ListFlags returns flags matching the filter, newest first.
func (e *Engine) ListFlags(ctx context.Context, filter types.FlagFilter) ([]*types.BehavioralFlag, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: flag status %q", types.ErrInvalidStatus, filter.Status)
	}
	if filter.FlagType != "" && !filter.FlagType.Valid() {
		return nil, fmt.Errorf("%w: flag type %q", types.ErrInvalidInput, filter.FlagType)
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

	return e.flags.ListFlags(ctx, filter)
}

// UpdateFlagStatus resolves a flag as dismissed or action taken.
func (e *Engine) UpdateFlagStatus(ctx context.Context, id int64, status enum.FlagStatus) error {
	if id <= 0 {
		return fmt.Errorf("%w: flag id %d", types.ErrInvalidInput, id)
	}
	if !status.IsResolution() {
		return fmt.Errorf("%w: flag status %q", types.ErrInvalidStatus, status)
	}

	if err := e.flags.UpdateFlagStatus(ctx, id, status); err != nil {
		return err
	}

	e.logger.Info("Behavioral flag reviewed",
		zap.Int64("id", id),
		zap.String("status", string(status)))
	return nil
}

func (e *Engine) newFlag(
	flagType enum.FlagType, scope types.Scope, dids []string, details map[string]any, now time.Time,
) *types.BehavioralFlag {
	encoded, err := sonic.MarshalString(details)
	if err != nil {
		e.logger.Warn("Failed to encode flag details", zap.Error(err), zap.String("type", string(flagType)))
		encoded = ""
	}

	return &types.BehavioralFlag{
		FlagType:     flagType,
		AffectedDIDs: dids,
		Details:      encoded,
		CommunityDID: scope,
		Status:       enum.FlagStatusPending,
		DetectedAt:   now,
	}
}

func (e *Engine) detectorFailed(flagType enum.FlagType, scope types.Scope, err error) {
	detectorFailures.WithLabelValues(string(flagType)).Inc()
	e.logger.Error("Detector failed",
		zap.Error(err),
		zap.String("type", string(flagType)),
		zap.String("scope", scope.String()))
}
