package heuristics_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/internal/heuristics"
	"github.com/barazo-forum/barazo-api-sub002/internal/setup/config"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	communityDID = "did:plc:community0000000000000"
	aliceDID     = "did:plc:alice000000000000000000"
	bobDID       = "did:plc:bob00000000000000000000"
	carolDID     = "did:plc:carol000000000000000000"
	daveDID      = "did:plc:dave0000000000000000000"
)

const spamText = "Follow my channel for free crypto giveaways every single day"

var errStore = errors.New("store unavailable")

type fakeContent struct {
	items        []*types.ContentItem
	reactions    []*types.ReactionCount
	interactions []*types.InteractionSummary

	contentErr     error
	reactionsErr   error
	interactionErr error
}

func (f *fakeContent) GetRecentContent(context.Context, types.Scope, time.Time, int) ([]*types.ContentItem, error) {
	return f.items, f.contentErr
}

func (f *fakeContent) GetReactionCounts(context.Context, types.Scope, time.Time, int) ([]*types.ReactionCount, error) {
	return f.reactions, f.reactionsErr
}

func (f *fakeContent) GetLowDiversityInteractions(
	context.Context, types.Scope, time.Time, int, int,
) ([]*types.InteractionSummary, error) {
	return f.interactions, f.interactionErr
}

type fakeFlags struct {
	created   []*types.BehavioralFlag
	failType  enum.FlagType
	lastQuery types.FlagFilter
	statuses  map[int64]enum.FlagStatus
}

func (f *fakeFlags) CreateFlag(_ context.Context, flag *types.BehavioralFlag) error {
	if flag.FlagType == f.failType {
		return errStore
	}
	flag.ID = int64(len(f.created) + 1)
	f.created = append(f.created, flag)
	return nil
}

func (f *fakeFlags) ListFlags(_ context.Context, filter types.FlagFilter) ([]*types.BehavioralFlag, error) {
	f.lastQuery = filter
	return f.created, nil
}

func (f *fakeFlags) UpdateFlagStatus(_ context.Context, id int64, status enum.FlagStatus) error {
	if _, ok := f.statuses[id]; !ok {
		return fmt.Errorf("%w: id %d", types.ErrFlagNotFound, id)
	}
	f.statuses[id] = status
	return nil
}

func newEngine(t *testing.T, content *fakeContent, flags *fakeFlags) *heuristics.Engine {
	t.Helper()
	return heuristics.NewEngine(content, flags, heuristics.DefaultThresholds(), zaptest.NewLogger(t))
}

func item(uri, author, text string) *types.ContentItem {
	return &types.ContentItem{URI: "at://" + author + "/forum.barazo.topic.post/" + uri, AuthorDID: author, Content: text}
}

func TestContentSimilarityDistinctAuthors(t *testing.T) {
	t.Parallel()

	content := &fakeContent{items: []*types.ContentItem{
		item("1", aliceDID, spamText),
		item("2", bobDID, spamText+"!"),
		item("3", carolDID, "FOLLOW my channel, for free crypto giveaways every single day"),
		item("4", daveDID, "A thoughtful reply about moderation policies and community norms"),
	}}
	engine := newEngine(t, content, &fakeFlags{})

	flags := engine.ContentSimilarity(context.Background(), types.Community(communityDID))
	require.Len(t, flags, 1)

	flag := flags[0]
	assert.Equal(t, enum.FlagTypeContentSimilarity, flag.FlagType)
	assert.Equal(t, []string{aliceDID, bobDID, carolDID}, flag.AffectedDIDs)
	assert.Equal(t, enum.FlagStatusPending, flag.Status)
	assert.Equal(t, types.Community(communityDID), flag.CommunityDID)

	var details struct {
		URIs []string `json:"uris"`
	}
	require.NoError(t, sonic.UnmarshalString(flag.Details, &details))
	assert.Len(t, details.URIs, 3)
}

func TestContentSimilaritySameAuthor(t *testing.T) {
	t.Parallel()

	content := &fakeContent{items: []*types.ContentItem{
		item("1", aliceDID, spamText),
		item("2", aliceDID, spamText),
		item("3", aliceDID, spamText),
	}}
	engine := newEngine(t, content, &fakeFlags{})

	assert.Empty(t, engine.ContentSimilarity(context.Background(), types.Global()))
}

func TestContentSimilarityBelowMinAuthors(t *testing.T) {
	t.Parallel()

	content := &fakeContent{items: []*types.ContentItem{
		item("1", aliceDID, spamText),
		item("2", bobDID, spamText),
		item("3", bobDID, spamText),
	}}
	engine := newEngine(t, content, &fakeFlags{})

	assert.Empty(t, engine.ContentSimilarity(context.Background(), types.Global()))
}

func TestContentSimilaritySkipsShortText(t *testing.T) {
	t.Parallel()

	content := &fakeContent{items: []*types.ContentItem{
		item("1", aliceDID, "+1 agreed"),
		item("2", bobDID, "+1 agreed"),
		item("3", carolDID, "+1 agreed"),
	}}
	engine := newEngine(t, content, &fakeFlags{})

	assert.Empty(t, engine.ContentSimilarity(context.Background(), types.Global()))
}

func TestBurstVoting(t *testing.T) {
	t.Parallel()

	content := &fakeContent{reactions: []*types.ReactionCount{
		{AuthorDID: aliceDID, Count: 50},
		{AuthorDID: bobDID, Count: 49},
		{AuthorDID: carolDID, Count: 120},
	}}
	engine := newEngine(t, content, &fakeFlags{})

	flags := engine.BurstVoting(context.Background(), types.Global())
	require.Len(t, flags, 2)
	assert.Equal(t, []string{aliceDID}, flags[0].AffectedDIDs)
	assert.Equal(t, []string{carolDID}, flags[1].AffectedDIDs)
	assert.True(t, flags[0].CommunityDID.IsGlobal())
}

func TestLowDiversity(t *testing.T) {
	t.Parallel()

	content := &fakeContent{interactions: []*types.InteractionSummary{
		{SourceDID: aliceDID, Total: 40, DistinctTargets: 1},
		{SourceDID: bobDID, Total: 19, DistinctTargets: 1},
		{SourceDID: carolDID, Total: 60, DistinctTargets: 3},
		{SourceDID: daveDID, Total: 20, DistinctTargets: 2},
	}}
	engine := newEngine(t, content, &fakeFlags{})

	flags := engine.LowDiversity(context.Background(), types.Global())
	require.Len(t, flags, 2)
	assert.Equal(t, []string{aliceDID}, flags[0].AffectedDIDs)
	assert.Equal(t, []string{daveDID}, flags[1].AffectedDIDs)
}

func TestDetectorFailureYieldsNoFlags(t *testing.T) {
	t.Parallel()

	content := &fakeContent{
		contentErr:     errStore,
		reactionsErr:   errStore,
		interactionErr: errStore,
	}
	engine := newEngine(t, content, &fakeFlags{})

	assert.Empty(t, engine.BurstVoting(context.Background(), types.Global()))
	assert.Empty(t, engine.ContentSimilarity(context.Background(), types.Global()))
	assert.Empty(t, engine.LowDiversity(context.Background(), types.Global()))
}

func TestRunAll(t *testing.T) {
	t.Parallel()

	newContent := func() *fakeContent {
		return &fakeContent{
			items: []*types.ContentItem{
				item("1", aliceDID, spamText),
				item("2", bobDID, spamText),
				item("3", carolDID, spamText),
			},
			reactions:    []*types.ReactionCount{{AuthorDID: daveDID, Count: 80}},
			interactions: []*types.InteractionSummary{{SourceDID: bobDID, Total: 25, DistinctTargets: 1}},
		}
	}

	t.Run("concatenates in detector order", func(t *testing.T) {
		t.Parallel()

		store := &fakeFlags{}
		flags := newEngine(t, newContent(), store).RunAll(context.Background(), types.Global())

		require.Len(t, flags, 3)
		assert.Equal(t, enum.FlagTypeBurstVoting, flags[0].FlagType)
		assert.Equal(t, enum.FlagTypeContentSimilarity, flags[1].FlagType)
		assert.Equal(t, enum.FlagTypeLowDiversity, flags[2].FlagType)
		assert.Equal(t, flags, store.created)
	})

	t.Run("one failing detector does not suppress others", func(t *testing.T) {
		t.Parallel()

		content := newContent()
		content.reactionsErr = errStore

		flags := newEngine(t, content, &fakeFlags{}).RunAll(context.Background(), types.Global())
		require.Len(t, flags, 2)
		assert.Equal(t, enum.FlagTypeContentSimilarity, flags[0].FlagType)
		assert.Equal(t, enum.FlagTypeLowDiversity, flags[1].FlagType)
	})

	t.Run("persist failure skips only that flag", func(t *testing.T) {
		t.Parallel()

		store := &fakeFlags{failType: enum.FlagTypeContentSimilarity}
		flags := newEngine(t, newContent(), store).RunAll(context.Background(), types.Global())

		require.Len(t, flags, 2)
		assert.Equal(t, enum.FlagTypeBurstVoting, flags[0].FlagType)
		assert.Equal(t, enum.FlagTypeLowDiversity, flags[1].FlagType)
	})
}

func TestFlagReview(t *testing.T) {
	t.Parallel()

	store := &fakeFlags{statuses: map[int64]enum.FlagStatus{1: enum.FlagStatusPending}}
	engine := newEngine(t, &fakeContent{}, store)
	ctx := context.Background()

	require.NoError(t, engine.UpdateFlagStatus(ctx, 1, enum.FlagStatusDismissed))
	assert.Equal(t, enum.FlagStatusDismissed, store.statuses[1])

	require.NoError(t, engine.UpdateFlagStatus(ctx, 1, enum.FlagStatusActionTaken))
	assert.Equal(t, enum.FlagStatusActionTaken, store.statuses[1])

	err := engine.UpdateFlagStatus(ctx, 1, enum.FlagStatusPending)
	require.ErrorIs(t, err, types.ErrInvalidStatus)
	assert.Equal(t, types.ErrorKindValidation, types.Classify(err))

	err = engine.UpdateFlagStatus(ctx, 99, enum.FlagStatusDismissed)
	assert.Equal(t, types.ErrorKindNotFound, types.Classify(err))

	_, err = engine.ListFlags(ctx, types.FlagFilter{FlagType: "spam"})
	require.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = engine.ListFlags(ctx, types.FlagFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 200, store.lastQuery.Limit)

	_, err = engine.ListFlags(ctx, types.FlagFilter{Status: enum.FlagStatusPending})
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastQuery.Limit)
}

func TestThresholdsFromConfig(t *testing.T) {
	t.Parallel()

	th := heuristics.ThresholdsFromConfig(&config.Heuristics{
		BurstVotingThreshold: 10,
		SimilarityThreshold:  1.5,
		LowDiversityWindow:   60,
	})

	assert.Equal(t, 10, th.BurstVotingThreshold)
	assert.Equal(t, time.Hour, th.BurstVotingWindow)
	assert.InDelta(t, 0.8, th.SimilarityThreshold, 1e-9)
	assert.Equal(t, time.Hour, th.LowDiversityWindow)
	assert.Equal(t, heuristics.DefaultThresholds(), heuristics.ThresholdsFromConfig(nil))
}
