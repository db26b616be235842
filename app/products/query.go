package products

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const listKey = "products"

// ListQuery caches the ordered product list. The cache is refreshed when
// it is invalidated or older than maxAge; concurrent refreshes share one
// remote call. Rows are returned in the order the service returned them.
type ListQuery struct {
	svc    Service
	maxAge time.Duration
	group  singleflight.Group
	now    func() time.Time
	logger *zap.Logger

	mu        sync.RWMutex
	items     []Product
	fetched   bool
	stale     bool
	fetchedAt time.Time
	version   uint64
}

// NewListQuery returns an empty query. A zero maxAge keeps the list fresh
// until it is invalidated.
func NewListQuery(svc Service, maxAge time.Duration) *ListQuery {
	return &ListQuery{
		svc:    svc,
		maxAge: maxAge,
		now:    time.Now,
		logger: zap.L().Named("products.query"),
	}
}

// Watch invalidates the list whenever TopicChanged is published on bus.
func (q *ListQuery) Watch(bus EventBus.Bus) error {
	return errors.Wrap(bus.Subscribe(TopicChanged, q.Invalidate), "watch product changes")
}

// Invalidate marks the cached list stale. The next Fetch refetches, and a
// fetch already in flight does not mark the list fresh again.
func (q *ListQuery) Invalidate() {
	q.mu.Lock()
	q.stale = true
	q.version++
	q.mu.Unlock()
	q.logger.Debug("product list invalidated")
}

// Fetch returns the cached list when fresh and refetches otherwise.
func (q *ListQuery) Fetch(ctx context.Context) ([]Product, error) {
	if items, ok := q.cached(); ok {
		return items, nil
	}

	ch := q.group.DoChan(listKey, func() (any, error) {
		return q.refetch(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Product), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns whatever is cached without blocking. When the list is
// missing or stale, a background refetch is started and loading is true.
// items is nil only when nothing was ever fetched.
func (q *ListQuery) Peek() (items []Product, loading bool) {
	items, ok := q.cached()
	if ok {
		return items, false
	}
	q.group.DoChan(listKey, func() (any, error) {
		return q.refetch(context.Background())
	})
	return q.snapshot(), true
}

// Find looks id up in the current list.
func (q *ListQuery) Find(ctx context.Context, id uint) (Product, error) {
	items, err := q.Fetch(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range items {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (q *ListQuery) cached() ([]Product, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.fetched || q.stale {
		return nil, false
	}
	if q.maxAge > 0 && q.now().Sub(q.fetchedAt) > q.maxAge {
		return nil, false
	}
	return q.copyItems(), true
}

func (q *ListQuery) snapshot() []Product {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.fetched {
		return nil
	}
	return q.copyItems()
}

func (q *ListQuery) copyItems() []Product {
	out := make([]Product, len(q.items))
	copy(out, q.items)
	return out
}

func (q *ListQuery) refetch(ctx context.Context) ([]Product, error) {
	q.mu.RLock()
	version := q.version
	q.mu.RUnlock()

	items, err := q.svc.List(ctx)
	if err != nil {
		q.logger.Warn("product list fetch failed", zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []Product{}
	}

	q.mu.Lock()
	q.items = items
	q.fetched = true
	q.fetchedAt = q.now()
	q.stale = version != q.version
	out := q.copyItems()
	q.mu.Unlock()

	q.logger.Debug("product list fetched", zap.Int("count", len(items)))
	return out, nil
}
