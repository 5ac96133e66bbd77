// Package search builds the randomized query strings the reader scenario
// sends to GET /media-items.
package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
)

// Terms is the search vocabulary.
var Terms = []string{
	"Dokumentasi", "Sejarah", "Perkembangan", "Kegiatan", "Peristiwa", "Acara", "Pertemuan",
	"Seminar", "Workshop", "Riset", "Penelitian", "Inovasi", "Prestasi", "Pencapaian", "Karya",
	"Kolaborasi", "Mahasiswa", "Fakultas", "Universitas", "Dosen", "Akademik", "Kampus",
	"Pendidikan", "Pembelajaran", "Kebudayaan", "Ilmiah",
}

const dateLayout = "2006-01-02"

type filterKind int

const (
	filterUnit filterKind = iota
	filterCategory
	filterDateRange
)

var (
	sortTable   = chance.MustThresholds([]string{"-view_count", "-upvote_count", "-event_date"}, []float64{0.42, 0.75})
	typeTable   = chance.MustThresholds([]int{1, 3, 2}, []float64{0.6, 0.9})
	filterTable = chance.MustThresholds([]filterKind{filterUnit, filterCategory, filterDateRange}, []float64{0.33, 0.66})
)

// Refs supplies the reference lists a filter may draw from. An error or an
// empty list skips that filter.
type Refs interface {
	Units(ctx context.Context) ([]archive.ReferenceItem, error)
	Categories(ctx context.Context) ([]archive.ReferenceItem, error)
}

// Filter is one search request's parameters. Zero values are omitted.
type Filter struct {
	Page      int
	PageSize  int
	Search    string
	Sort      string
	Types     int
	Unit      archive.ID
	Category  archive.ID
	StartDate string
	EndDate   string
}

// Encode joins the chosen fields with "&" in a fixed order. It returns ""
// when nothing was chosen.
func (f Filter) Encode() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	if f.Page > 0 {
		add("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		add("pageSize", strconv.Itoa(f.PageSize))
	}
	add("search", f.Search)
	add("sort", f.Sort)
	if f.Types > 0 {
		add("types", strconv.Itoa(f.Types))
	}
	add("unit", string(f.Unit))
	add("category", string(f.Category))
	add("startDate", f.StartDate)
	add("endDate", f.EndDate)
	return strings.Join(parts, "&")
}

// Builder draws filters. It belongs to one virtual user.
type Builder struct {
	rand *chance.Rand
	refs Refs
	now  func() time.Time
}

// NewBuilder creates a builder over the user's random source and cache.
func NewBuilder(r *chance.Rand, refs Refs) *Builder {
	return &Builder{rand: r, refs: refs, now: time.Now}
}

// Build draws one filter. Every decision takes its draw in a fixed order so
// a seeded source replays the same sequence.
func (b *Builder) Build(ctx context.Context) Filter {
	f := Filter{Page: 1, PageSize: 50}
	if b.rand.Chance(0.7) {
		f.PageSize = 20
	}
	if b.rand.Chance(0.6) {
		f.Search = chance.Pick(b.rand, Terms)
	}
	if b.rand.Chance(0.6) {
		f.Sort = sortTable.Choose(b.rand)
	}
	if b.rand.Chance(0.5) {
		f.Types = typeTable.Choose(b.rand)
	}

	d := b.rand.Float64()
	if d >= 0.6 {
		return f
	}
	// Either draw below 0.4 selects a single filter.
	if b.rand.Float64() < 0.4 || d < 0.4 {
		switch filterTable.Choose(b.rand) {
		case filterUnit:
			f.Unit = b.pickUnit(ctx)
		case filterCategory:
			f.Category = b.pickCategory(ctx)
		default:
			f.StartDate, f.EndDate = b.dateRange()
		}
		return f
	}

	f.Unit = b.pickUnit(ctx)
	f.Category = b.pickCategory(ctx)
	if f.Category != "" && b.rand.Chance(0.5) {
		f.StartDate, f.EndDate = b.dateRange()
	}
	return f
}

func (b *Builder) pickUnit(ctx context.Context) archive.ID {
	units, _ := b.refs.Units(ctx) // empty on failure: skip the filter
	if len(units) == 0 {
		return ""
	}
	return chance.Pick(b.rand, units).ID
}

func (b *Builder) pickCategory(ctx context.Context) archive.ID {
	cats, _ := b.refs.Categories(ctx) // empty on failure: skip the filter
	if len(cats) == 0 {
		return ""
	}
	return chance.Pick(b.rand, cats).ID
}

// dateRange draws a start day uniformly over the last five years and an end
// day 1 to 30 days later.
func (b *Builder) dateRange() (string, string) {
	end := b.now()
	start := end.AddDate(-5, 0, 0)
	at := start.Add(time.Duration(b.rand.Float64() * float64(end.Sub(start))))

	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	last := day.AddDate(0, 0, b.rand.IntBetween(1, 30))
	return day.Format(dateLayout), last.Format(dateLayout)
}
