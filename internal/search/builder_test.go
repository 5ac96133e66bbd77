package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
)

type staticRefs struct {
	units      []archive.ReferenceItem
	categories []archive.ReferenceItem
}

func (s staticRefs) Units(context.Context) ([]archive.ReferenceItem, error) { return s.units, nil }
func (s staticRefs) Categories(context.Context) ([]archive.ReferenceItem, error) {
	return s.categories, nil
}

// replay returns the given draws in order.
type replay struct {
	draws []float64
	i     int
}

func (r *replay) Float64() float64 {
	d := r.draws[r.i]
	r.i++
	return d
}

var fullRefs = staticRefs{
	units:      []archive.ReferenceItem{{ID: "u1", IsActive: true}, {ID: "u2", IsActive: true}},
	categories: []archive.ReferenceItem{{ID: "c1", IsActive: true}, {ID: "c2", IsActive: true}},
}

func TestFilter_Encode(t *testing.T) {
	assert.Equal(t, "", Filter{}.Encode())
	f := Filter{
		Page: 1, PageSize: 20, Search: "Riset", Sort: "-view_count", Types: 3,
		Unit: "u1", Category: "c1", StartDate: "2023-01-02", EndDate: "2023-01-10",
	}
	assert.Equal(t,
		"page=1&pageSize=20&search=Riset&sort=-view_count&types=3&unit=u1&category=c1&startDate=2023-01-02&endDate=2023-01-10",
		f.Encode())
}

func TestBuilder_DrawSequence(t *testing.T) {
	ctx := context.Background()

	t.Run("low first filter draw forces a single filter", func(t *testing.T) {
		src := &replay{draws: []float64{0.8, 0.9, 0.9, 0.9, 0.3, 0.99, 0.1, 0.6}}
		b := NewBuilder(chance.New(src), fullRefs)
		assert.Equal(t, "page=1&pageSize=50&unit=u2", b.Build(ctx).Encode())
		assert.Equal(t, len(src.draws), src.i)
	})

	t.Run("low second draw forces a single filter", func(t *testing.T) {
		src := &replay{draws: []float64{0.1, 0.9, 0.9, 0.9, 0.5, 0.2, 0.5, 0.0}}
		b := NewBuilder(chance.New(src), fullRefs)
		assert.Equal(t, "page=1&pageSize=20&category=c1", b.Build(ctx).Encode())
	})

	t.Run("compound filter without dates", func(t *testing.T) {
		src := &replay{draws: []float64{0.1, 0.9, 0.9, 0.9, 0.5, 0.5, 0.0, 0.9, 0.7}}
		b := NewBuilder(chance.New(src), fullRefs)
		assert.Equal(t, "page=1&pageSize=20&unit=u1&category=c2", b.Build(ctx).Encode())
		assert.Equal(t, len(src.draws), src.i)
	})

	t.Run("every field", func(t *testing.T) {
		now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		src := &replay{draws: []float64{
			// pageSize 20
			0.1,
			// search "Dokumentasi"
			0.1, 0.0,
			// sort -upvote_count
			0.1, 0.5,
			// types=2
			0.1, 0.95,
			// compound
			0.5, 0.5,
			// unit u1, category c1
			0.0, 0.0,
			// date range
			0.1,
			// start = now-5y, +1 day
			0.0, 0.0,
		}}
		b := NewBuilder(chance.New(src), fullRefs)
		b.now = func() time.Time { return now }
		assert.Equal(t,
			"page=1&pageSize=20&search=Dokumentasi&sort=-upvote_count&types=2&unit=u1&category=c1&startDate=2020-05-01&endDate=2020-05-02",
			b.Build(ctx).Encode())
	})

	t.Run("compound filter needs a category for dates", func(t *testing.T) {
		src := &replay{draws: []float64{0.1, 0.9, 0.9, 0.9, 0.5, 0.5, 0.0}}
		b := NewBuilder(chance.New(src), staticRefs{units: fullRefs.units})
		assert.Equal(t, "page=1&pageSize=20&unit=u1", b.Build(ctx).Encode())
		assert.Equal(t, len(src.draws), src.i)
	})
}

func TestBuilder_Frequencies(t *testing.T) {
	const trials = 10000
	b := NewBuilder(chance.Seeded(42), fullRefs)
	ctx := context.Background()

	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		f := b.Build(ctx)
		if f.PageSize == 20 {
			counts["pageSize20"]++
		}
		if f.Search != "" {
			counts["search"]++
		}
		if f.Sort != "" {
			counts["sort:"+f.Sort]++
		}
		if f.Types != 0 {
			counts["types:"+string(rune('0'+f.Types))]++
		}
		if f.Unit != "" {
			counts["unit"]++
		}
		if f.Category != "" {
			counts["category"]++
		}
		if f.StartDate != "" {
			counts["dates"]++
		}
	}

	want := map[string]float64{
		"pageSize20":         0.7,
		"search":             0.6,
		"sort:-view_count":   0.6 * 0.42,
		"sort:-upvote_count": 0.6 * 0.33,
		"sort:-event_date":   0.6 * 0.25,
		"types:1":            0.5 * 0.6,
		"types:3":            0.5 * 0.3,
		"types:2":            0.5 * 0.1,
		// single = 0.4 + 0.2*0.4, compound = 0.2*0.6
		"unit":     0.48*0.33 + 0.12,
		"category": 0.48*0.33 + 0.12,
		"dates":    0.48*0.34 + 0.12*0.5,
	}
	for k, p := range want {
		assert.InDelta(t, p, float64(counts[k])/trials, 0.02, k)
	}
}

func TestBuilder_EmptyCategories(t *testing.T) {
	b := NewBuilder(chance.Seeded(7), staticRefs{units: fullRefs.units})
	ctx := context.Background()
	for i := 0; i < 2000; i++ {
		f := b.Build(ctx)
		assert.Empty(t, f.Category)
		// Dates in the compound branch depend on a category.
		if f.StartDate != "" {
			assert.Empty(t, f.Unit)
		}
	}
}

func TestBuilder_DateRange(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewBuilder(chance.Seeded(3), fullRefs)
	b.now = func() time.Time { return now }

	for i := 0; i < 500; i++ {
		start, end := b.dateRange()
		s, err := time.Parse(dateLayout, start)
		require.NoError(t, err)
		e, err := time.Parse(dateLayout, end)
		require.NoError(t, err)

		days := e.Sub(s).Hours() / 24
		assert.GreaterOrEqual(t, days, 1.0)
		assert.LessOrEqual(t, days, 30.0)
		assert.False(t, s.Before(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)))
		assert.False(t, s.After(now))
		assert.False(t, strings.Contains(start, "T"))
	}
}
