// Package refdata holds a virtual user's lazily fetched units and categories.
package refdata

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/metrics"
)

// Lister is the part of the archive client the cache needs.
type Lister interface {
	ListUnits(ctx context.Context, page, pageSize int) ([]archive.ReferenceItem, error)
	ListCategories(ctx context.Context, page, pageSize int) ([]archive.ReferenceItem, error)
}

// PageSizes bounds the single first-page fetch of each list.
type PageSizes struct {
	Units      int
	Categories int
}

var (
	ReaderPageSizes      = PageSizes{Units: 50, Categories: 50}
	ContributorPageSizes = PageSizes{Units: 20, Categories: 10}
)

// list is one lazily populated reference list. A nil items slice with
// fetched false is the unfetched state.
type list struct {
	fetched bool
	items   []archive.ReferenceItem
}

// Cache is scoped to one virtual user and lives across its iterations. A
// successful fetch is kept for the cache's lifetime, even when it yields no
// eligible items. A failed fetch leaves the list unfetched.
type Cache struct {
	mu         sync.Mutex
	lister     Lister
	sizes      PageSizes
	rec        *metrics.Recorder
	logger     *zap.Logger
	units      list
	categories list
}

// New creates an empty cache. rec may be nil.
func New(lister Lister, sizes PageSizes, rec *metrics.Recorder, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{lister: lister, sizes: sizes, rec: rec, logger: logger.Named("refdata")}
}

// Units returns the eligible units. On a fetch failure it returns an empty
// slice and the error; callers skip whatever needed a unit.
func (c *Cache) Units(ctx context.Context) ([]archive.ReferenceItem, error) {
	return c.get(ctx, "units", &c.units, func(ctx context.Context) ([]archive.ReferenceItem, error) {
		return c.lister.ListUnits(ctx, 1, c.sizes.Units)
	})
}

// Categories returns the eligible categories, with the same failure policy
// as Units.
func (c *Cache) Categories(ctx context.Context) ([]archive.ReferenceItem, error) {
	return c.get(ctx, "categories", &c.categories, func(ctx context.Context) ([]archive.ReferenceItem, error) {
		return c.lister.ListCategories(ctx, 1, c.sizes.Categories)
	})
}

func (c *Cache) get(ctx context.Context, kind string, l *list,
	fetch func(context.Context) ([]archive.ReferenceItem, error)) ([]archive.ReferenceItem, error) {

	c.mu.Lock()
	defer c.mu.Unlock()
	if l.fetched {
		return l.items, nil
	}

	var done func(error)
	if c.rec != nil {
		done = c.rec.Op("api_fetch").Start(ctx)
	}
	raw, err := fetch(ctx)
	if done != nil {
		done(err)
	}
	if err != nil {
		c.logger.Warn("reference fetch failed", zap.String("list", kind), zap.Error(err))
		return []archive.ReferenceItem{}, err
	}

	l.items = Eligible(raw)
	l.fetched = true
	c.logger.Debug("reference list cached", zap.String("list", kind), zap.Int("active", len(l.items)))
	return l.items, nil
}

// Eligible keeps the items that are active and not deleted.
func Eligible(items []archive.ReferenceItem) []archive.ReferenceItem {
	out := make([]archive.ReferenceItem, 0, len(items))
	for _, it := range items {
		if it.Eligible() {
			out = append(out, it)
		}
	}
	return out
}
