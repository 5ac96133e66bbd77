// internal/scenario/reader.go
package scenario

import (
	"context"

	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
	"github.com/FairForge/heritageload/internal/metrics"
	"github.com/FairForge/heritageload/internal/pace"
	"github.com/FairForge/heritageload/internal/refdata"
	"github.com/FairForge/heritageload/internal/search"
)

// ReaderAPI is what the reader journey calls.
type ReaderAPI interface {
	refdata.Lister
	SearchMediaItems(ctx context.Context, query string) ([]archive.MediaItem, error)
	GetMediaItem(ctx context.Context, id archive.ID) (*archive.MediaItem, error)
	IncrementView(ctx context.Context, id archive.ID) error
}

// Reader step metrics.
const (
	OpCategories    = "categories"
	OpUnits         = "units"
	OpSearch        = "media_items_search"
	OpDetail        = "media_item_detail"
	OpViewIncrement = "view_increment"
)

// listPageSize is the page the reader's browsing steps request; the cache
// fetches its own larger page.
const listPageSize = 20

// Cooldown is the pause closing every iteration of both journeys.
var Cooldown = pace.R(3, 8)

type readerState struct {
	mediaItemID archive.ID
}

// Deps are the shared pieces every virtual user is built from.
type Deps struct {
	Metrics *metrics.Recorder
	Pacer   pace.Pacer
	Logger  *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = metrics.NewRecorder()
	}
	if d.Pacer == nil {
		d.Pacer = pace.Real{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// Reader is one virtual user browsing the archive. Its reference cache
// outlives iterations.
type Reader struct {
	api     ReaderAPI
	rand    *chance.Rand
	refs    *refdata.Cache
	builder *search.Builder
	rec     *metrics.Recorder
	seq     *Sequencer[readerState]
}

// NewReader builds a reader virtual user.
func NewReader(api ReaderAPI, rnd *chance.Rand, deps Deps) *Reader {
	deps = deps.withDefaults()
	logger := deps.Logger.Named("reader")
	refs := refdata.New(api, refdata.ReaderPageSizes, deps.Metrics, logger)
	r := &Reader{
		api:     api,
		rand:    rnd,
		refs:    refs,
		builder: search.NewBuilder(rnd, refs),
		rec:     deps.Metrics,
	}
	r.seq = &Sequencer[readerState]{
		Steps: []Step[readerState]{
			{Name: "Get Categories", Run: r.getCategories, Pause: pace.R(1, 3)},
			{Name: "Get Units", Run: r.getUnits, Pause: pace.R(1, 3)},
			{Name: "Search Media Items", Run: r.searchMediaItems, Pause: pace.R(2, 5)},
			{Name: "Get Media Item Detail", Run: r.getDetail, Pause: pace.R(5, 15), Skip: noMediaItem},
			{Name: "Increment View Count", Run: r.incrementView, Skip: noMediaItem},
		},
		Cooldown: Cooldown,
		Pacer:    deps.Pacer,
		Rand:     rnd,
		Logger:   logger,
	}
	return r
}

// Refs exposes the user's reference cache.
func (r *Reader) Refs() *refdata.Cache { return r.refs }

// Iterate runs one reader journey.
func (r *Reader) Iterate(ctx context.Context) error {
	_, err := r.seq.Run(ctx, &readerState{})
	return err
}

func noMediaItem(s *readerState) bool { return s.mediaItemID == "" }

func (r *Reader) getCategories(ctx context.Context, _ *readerState) error {
	err := r.rec.Op(OpCategories).Track(ctx, func(ctx context.Context) error {
		_, err := r.api.ListCategories(ctx, 1, listPageSize)
		return err
	})
	_, _ = r.refs.Categories(ctx) // warm the cache; failures were logged there
	return err
}

func (r *Reader) getUnits(ctx context.Context, _ *readerState) error {
	err := r.rec.Op(OpUnits).Track(ctx, func(ctx context.Context) error {
		_, err := r.api.ListUnits(ctx, 1, listPageSize)
		return err
	})
	_, _ = r.refs.Units(ctx)
	return err
}

func (r *Reader) searchMediaItems(ctx context.Context, s *readerState) error {
	query := r.builder.Build(ctx).Encode()
	var items []archive.MediaItem
	err := r.rec.Op(OpSearch).Track(ctx, func(ctx context.Context) error {
		var err error
		items, err = r.api.SearchMediaItems(ctx, query)
		return err
	})
	if err == nil && len(items) > 0 {
		s.mediaItemID = chance.Pick(r.rand, items).ID
	}
	return err
}

func (r *Reader) getDetail(ctx context.Context, s *readerState) error {
	return r.rec.Op(OpDetail).Track(ctx, func(ctx context.Context) error {
		_, err := r.api.GetMediaItem(ctx, s.mediaItemID)
		return err
	})
}

func (r *Reader) incrementView(ctx context.Context, s *readerState) error {
	return r.rec.Op(OpViewIncrement).Track(ctx, func(ctx context.Context) error {
		return r.api.IncrementView(ctx, s.mediaItemID)
	})
}
