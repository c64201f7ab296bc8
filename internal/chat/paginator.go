package chat

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nikhil-31/rapidconsult-sub000/internal/model"
	"github.com/nikhil-31/rapidconsult-sub000/internal/rest"
	"github.com/nikhil-31/rapidconsult-sub000/pkg/logger"
)

// Paginator drives "load older messages" against the REST history endpoint.
// The API returns pages newest-first; the paginator reverses them into
// chronological order before they touch the store. A loading flag guards
// re-entrancy from overlapping scroll events, and a generation counter makes
// responses that arrive after a conversation switch inert.
type Paginator struct {
	rest     *rest.Client
	store    *Store
	log      *logger.Logger
	pageSize int

	mu             sync.Mutex
	conversationID string
	organizationID string
	locationID     string
	page           int
	hasMore        bool
	loading        bool
	generation     uint64
}

// NewPaginator creates a paginator bound to a store.
func NewPaginator(rc *rest.Client, store *Store, pageSize int, log *logger.Logger) *Paginator {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Paginator{
		rest:     rc,
		store:    store,
		log:      log,
		pageSize: pageSize,
		hasMore:  true,
	}
}

// Reset points the paginator at a conversation and invalidates any in-flight
// load for the previous one.
func (p *Paginator) Reset(conversationID, organizationID, locationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversationID = conversationID
	p.organizationID = organizationID
	p.locationID = locationID
	p.page = 0
	p.hasMore = true
	p.loading = false
	p.generation++
}

// HasMore reports whether older pages remain.
func (p *Paginator) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Page returns the last loaded page number (1-based; 0 before any load).
func (p *Paginator) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// RefreshHasMore overwrites the has-more flag, e.g. from a reconnect
// snapshot.
func (p *Paginator) RefreshHasMore(hasMore bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasMore = hasMore
}

// LoadFirstPage fetches the newest page and replaces the store with it in
// chronological order.
func (p *Paginator) LoadFirstPage(ctx context.Context) error {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil
	}
	p.loading = true
	gen := p.generation
	convID, orgID, locID := p.conversationID, p.organizationID, p.locationID
	p.mu.Unlock()

	res, err := p.rest.GetMessages(ctx, convID, orgID, locID, 1, p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if gen != p.generation {
		// The conversation changed while the request was in flight; the
		// response belongs to the old one and must not be applied.
		p.log.Debug("discarding stale first page", zap.String("conversation_id", convID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load first page: %w", err)
	}

	p.store.Replace(reverseChronological(res.Results))
	p.page = 1
	p.hasMore = res.Next != nil
	return nil
}

// LoadOlder fetches the next older page and prepends it. Duplicate
// invocation while a load is in flight, or with no pages left, is a no-op.
// Returns the number of messages prepended.
func (p *Paginator) LoadOlder(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.loading || !p.hasMore {
		p.mu.Unlock()
		return 0, nil
	}
	p.loading = true
	gen := p.generation
	next := p.page + 1
	convID, orgID, locID := p.conversationID, p.organizationID, p.locationID
	p.mu.Unlock()

	res, err := p.rest.GetMessages(ctx, convID, orgID, locID, next, p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if gen != p.generation {
		p.log.Debug("discarding stale page",
			zap.String("conversation_id", convID), zap.Int("page", next))
		return 0, nil
	}
	if err != nil {
		// Retryable; already-loaded messages stay intact.
		return 0, fmt.Errorf("load page %d: %w", next, err)
	}

	n := p.store.Prepend(reverseChronological(res.Results))
	p.page = next
	p.hasMore = res.Next != nil
	return n, nil
}

// reverseChronological flips a newest-first API page into display order.
func reverseChronological(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}
