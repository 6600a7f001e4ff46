package moderation_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/models"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
)

// memoryStore keeps queue state in maps and rolls a review back when it fails.
type memoryStore struct {
	mu      sync.Mutex
	items   map[int64]*types.ModerationQueueItem
	trust   map[string]*types.AccountTrust
	content map[string]enum.ModerationStatus

	failIncrement error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		items:   make(map[int64]*types.ModerationQueueItem),
		trust:   make(map[string]*types.AccountTrust),
		content: make(map[string]enum.ModerationStatus),
	}
}

func (s *memoryStore) add(item *types.ModerationQueueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.Status == "" {
		item.Status = enum.QueueStatusPending
	}
	s.items[item.ID] = item
	s.content[item.ContentURI] = enum.ModerationStatusHeld
}

func (s *memoryStore) item(id int64) types.ModerationQueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.items[id]
}

func (s *memoryStore) ListItems(_ context.Context, filter types.QueueFilter) ([]*types.ModerationQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.ModerationQueueItem
	for _, item := range s.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.CommunityDID != "" && item.CommunityDID != filter.CommunityDID {
			continue
		}
		if filter.Reason != "" && item.QueueReason != filter.Reason {
			continue
		}
		c := *item
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memoryStore) GetItem(_ context.Context, id int64) (*types.ModerationQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", types.ErrQueueItemNotFound, id)
	}
	c := *item
	return &c, nil
}

func (s *memoryStore) RunReview(ctx context.Context, fn func(ctx context.Context, tx models.ReviewTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[int64]*types.ModerationQueueItem, len(s.items))
	for id, item := range s.items {
		c := *item
		items[id] = &c
	}
	trust := make(map[string]*types.AccountTrust, len(s.trust))
	for k, v := range s.trust {
		c := *v
		trust[k] = &c
	}
	content := maps.Clone(s.content)

	if err := fn(ctx, &memoryTx{s: s}); err != nil {
		s.items, s.trust, s.content = items, trust, content
		return err
	}
	return nil
}

type memoryTx struct {
	s *memoryStore
}

func (t *memoryTx) LockItem(_ context.Context, id int64) (*types.ModerationQueueItem, error) {
	item, ok := t.s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", types.ErrQueueItemNotFound, id)
	}
	c := *item
	return &c, nil
}

func (t *memoryTx) MarkReviewed(_ context.Context, id int64, status enum.QueueStatus, reviewer string, at time.Time) error {
	item := t.s.items[id]
	if item.Status != enum.QueueStatusPending {
		return types.ErrAlreadyReviewed
	}
	item.Status, item.ReviewedBy, item.ReviewedAt = status, reviewer, at
	return nil
}

func (t *memoryTx) ApprovePendingSiblings(_ context.Context, uri string, excludeID int64, reviewer string, at time.Time) (int, error) {
	n := 0
	for id, item := range t.s.items {
		if id == excludeID || item.ContentURI != uri || item.Status != enum.QueueStatusPending {
			continue
		}
		item.Status, item.ReviewedBy, item.ReviewedAt = enum.QueueStatusApproved, reviewer, at
		n++
	}
	return n, nil
}

func (t *memoryTx) RestoreContent(_ context.Context, _ enum.ContentType, uri string) error {
	t.s.content[uri] = enum.ModerationStatusApproved
	return nil
}

func (t *memoryTx) IncrementApproved(_ context.Context, did, communityDID string) (*types.AccountTrust, error) {
	if t.s.failIncrement != nil {
		return nil, t.s.failIncrement
	}

	key := did + "|" + communityDID
	record, ok := t.s.trust[key]
	if !ok {
		record = &types.AccountTrust{DID: did, CommunityDID: communityDID}
		t.s.trust[key] = record
	}
	record.ApprovedPostCount++
	c := *record
	return &c, nil
}

func (t *memoryTx) PromoteTrusted(_ context.Context, did, communityDID string, at time.Time) (*types.AccountTrust, bool, error) {
	record, ok := t.s.trust[did+"|"+communityDID]
	if !ok {
		return nil, false, errors.New("promoting missing ledger")
	}
	if record.IsTrusted {
		return nil, false, nil
	}
	record.IsTrusted, record.TrustedAt = true, at
	c := *record
	return &c, true, nil
}
