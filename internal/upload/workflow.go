// internal/upload/workflow.go
package upload

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
	"github.com/FairForge/heritageload/internal/content"
	"github.com/FairForge/heritageload/internal/fixtures"
	"github.com/FairForge/heritageload/internal/metrics"
	"github.com/FairForge/heritageload/internal/pace"
)

// API is the part of the archive client the workflow drives.
type API interface {
	UploadFile(ctx context.Context, token string, up archive.Upload) (*archive.UploadedFile, error)
	InitiateUpload(ctx context.Context, token string, req archive.InitiateRequest) (*archive.UploadSession, error)
	UploadChunk(ctx context.Context, token, uploadID string, n int, data []byte) error
	CompleteUpload(ctx context.Context, token, uploadID string) (*archive.UploadedFile, error)
	CreateMediaItem(ctx context.Context, token string, draft archive.MediaItemDraft) (*archive.MediaItem, error)
}

// Refs supplies the reference data a draft draws from.
type Refs interface {
	Units(ctx context.Context) ([]archive.ReferenceItem, error)
	Categories(ctx context.Context) ([]archive.ReferenceItem, error)
}

// Operation metric names.
const (
	OpSmallUpload = "small_file_upload"
	OpLargeInit   = "large_file_upload_init"
	OpChunkUpload = "chunk_upload"
	OpComplete    = "complete_upload"
	OpCreateItem  = "media_item_create"
)

const videoMediaType = "video/mp4"

// Think-time between the calls of one upload plan.
var (
	PauseBeforeFirstChunk = pace.R(0.8, 1.5)
	PauseAfterChunk       = pace.R(0.5, 1)
	PauseBeforeComplete   = pace.R(1, 2)
	PauseAfterSmall       = pace.R(1, 2.5)
	PauseBeforeGalleryVid = pace.R(2, 4)
)

// mediaTypes keeps the entry order the load profiles were tuned with:
// article, video, gallery, each bound compared inclusively.
var mediaTypes = chance.MustWeighted(
	chance.Outcome[archive.MediaType]{Value: archive.MediaArtikel, Weight: 0.6},
	chance.Outcome[archive.MediaType]{Value: archive.MediaVideo, Weight: 0.1},
	chance.Outcome[archive.MediaType]{Value: archive.MediaGaleri, Weight: 0.3},
).Inclusive(archive.MediaArtikel)

// Constant archival fields sent with every draft.
const (
	archivalHistory = "Dokumen ini merupakan arsip yang dikumpulkan dari kegiatan universitas"
	archivalSource  = "Dokumentasi internal Universitas Indonesia"
	archivalLang    = "Indonesia"
	archivalNote    = "Dokumen ini merupakan bagian dari koleksi UI Heritage"
)

// Workflow runs one contributor's uploads. It is owned by one virtual user.
type Workflow struct {
	api     API
	payload *fixtures.Payload
	rand    *chance.Rand
	content *content.Synthesizer
	pacer   pace.Pacer
	rec     *metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// Config wires a Workflow.
type Config struct {
	API     API
	Payload *fixtures.Payload
	Rand    *chance.Rand
	Pacer   pace.Pacer
	Metrics *metrics.Recorder
	Logger  *zap.Logger
	Now     func() time.Time
}

// New creates a workflow.
func New(cfg Config) *Workflow {
	if cfg.Pacer == nil {
		cfg.Pacer = pace.Real{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewRecorder()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = chance.New(nil)
	}
	return &Workflow{
		api:     cfg.API,
		payload: cfg.Payload,
		rand:    cfg.Rand,
		content: content.New(cfg.Rand),
		pacer:   cfg.Pacer,
		rec:     cfg.Metrics,
		logger:  cfg.Logger.Named("upload"),
		now:     cfg.Now,
	}
}

// SelectMediaType draws the media type for one iteration.
func (w *Workflow) SelectMediaType() archive.MediaType {
	return mediaTypes.Choose(w.rand)
}

func (w *Workflow) pause(ctx context.Context, r pace.Range) error {
	return w.pacer.Pause(ctx, r.Draw(w.rand))
}

// UploadFiles runs the upload plan for t and returns the files that made it.
// Individual failures are recorded and skipped; only a cancelled ctx stops
// the plan early.
func (w *Workflow) UploadFiles(ctx context.Context, token string, t archive.MediaType) []archive.UploadedFile {
	var files []archive.UploadedFile
	keep := func(f *archive.UploadedFile, err error) {
		if err == nil {
			files = append(files, *f)
		}
	}

	switch t {
	case archive.MediaArtikel:
		w.smallBatch(ctx, token, w.rand.IntBetween(1, 2), keep)
	case archive.MediaVideo:
		keep(w.UploadLarge(ctx, token))
	case archive.MediaGaleri:
		if !w.smallBatch(ctx, token, w.rand.IntBetween(3, 5), keep) {
			return files
		}
		if w.rand.Chance(0.5) {
			w.logger.Debug("adding video to gallery")
			if w.pause(ctx, PauseBeforeGalleryVid) != nil {
				return files
			}
			keep(w.UploadLarge(ctx, token))
		}
	}
	return files
}

func (w *Workflow) smallBatch(ctx context.Context, token string, n int,
	keep func(*archive.UploadedFile, error)) bool {

	for i := 0; i < n; i++ {
		keep(w.UploadSmall(ctx, token))
		if w.pause(ctx, PauseAfterSmall) != nil {
			return false
		}
	}
	return true
}

// UploadSmall sends the image fixture through the direct upload path.
func (w *Workflow) UploadSmall(ctx context.Context, token string) (*archive.UploadedFile, error) {
	var tr Transfer
	if err := tr.StartSmall(); err != nil {
		return nil, err
	}

	done := w.rec.Op(OpSmallUpload).Start(ctx)
	f, err := w.api.UploadFile(ctx, token, archive.Upload{
		FileName:    fixtures.ImageFile,
		ContentType: "image/png",
		Data:        w.payload.Image,
		Date:        archive.NewEventDate(w.now()),
	})
	done(err)
	if err != nil {
		w.logger.Warn("small file upload failed", zap.Error(err))
		_ = tr.Fail()
		return nil, err
	}
	if err := tr.Complete(f, 0); err != nil {
		return nil, err
	}
	return tr.File(), nil
}

// UploadLarge runs initiate, every chunk in order, then complete. The first
// failing chunk stops the transfer: no later chunk and no complete is sent.
func (w *Workflow) UploadLarge(ctx context.Context, token string) (*archive.UploadedFile, error) {
	tr, err := w.transferLarge(ctx, token)
	if err != nil {
		return nil, err
	}
	return tr.File(), nil
}

func (w *Workflow) transferLarge(ctx context.Context, token string) (*Transfer, error) {
	tr := &Transfer{}

	done := w.rec.Op(OpLargeInit).Start(ctx)
	sess, err := w.api.InitiateUpload(ctx, token, archive.InitiateRequest{
		FileName: fixtures.VideoUploadName,
		FileSize: int64(len(w.payload.Video)),
		FileType: videoMediaType,
		Date:     archive.NewEventDate(w.now()),
	})
	done(err)
	if err != nil {
		w.logger.Warn("large file upload initiation failed", zap.Error(err))
		_ = tr.Fail()
		return tr, err
	}
	if err := tr.Initiated(sess); err != nil {
		return tr, err
	}
	if err := w.pause(ctx, PauseBeforeFirstChunk); err != nil {
		_ = tr.Fail()
		return tr, err
	}

	total := len(w.payload.Chunks)
	w.logger.Debug("uploading chunks", zap.String("upload_id", sess.UploadID), zap.Int("chunks", total))
	for n, chunk := range w.payload.Chunks {
		done := w.rec.Op(OpChunkUpload).Start(ctx)
		err := w.api.UploadChunk(ctx, token, sess.UploadID, n, chunk)
		done(err)
		if err != nil {
			w.logger.Warn("chunk upload failed",
				zap.String("upload_id", sess.UploadID),
				zap.Int("chunk", n),
				zap.Error(err))
			_ = tr.Fail()
			return tr, fmt.Errorf("%w: chunk %d of %d: %w", ErrChunkFailed, n, total, err)
		}
		if err := tr.ChunkDone(n); err != nil {
			return tr, err
		}
		if err := w.pause(ctx, PauseAfterChunk); err != nil {
			_ = tr.Fail()
			return tr, err
		}
	}

	if err := w.pause(ctx, PauseBeforeComplete); err != nil {
		_ = tr.Fail()
		return tr, err
	}
	done = w.rec.Op(OpComplete).Start(ctx)
	f, err := w.api.CompleteUpload(ctx, token, sess.UploadID)
	done(err)
	if err != nil {
		w.logger.Warn("complete upload failed", zap.String("upload_id", sess.UploadID), zap.Error(err))
		_ = tr.Fail()
		return tr, err
	}
	if err := tr.Complete(f, total); err != nil {
		return tr, err
	}
	return tr, nil
}

// BuildDraft assembles the creation payload. It fails with ErrNoCategory
// when no category is available; it takes no draws in that case.
func (w *Workflow) BuildDraft(ctx context.Context, refs Refs, t archive.MediaType,
	files []archive.UploadedFile) (archive.MediaItemDraft, error) {

	cats, _ := refs.Categories(ctx) // empty on failure: creation is aborted below
	units, _ := refs.Units(ctx)     // empty on failure: no units are attached
	if len(cats) == 0 {
		return archive.MediaItemDraft{}, ErrNoCategory
	}
	category := chance.Pick(w.rand, cats).ID

	picked := chance.Sample(w.rand, units, w.rand.IntBetween(1, float64(min(3, len(units)))))
	unitIDs := make([]archive.ID, 0, len(picked))
	for _, u := range picked {
		unitIDs = append(unitIDs, u.ID)
	}
	tags := w.content.Tags(w.rand.IntBetween(1, 5))

	now := w.now()
	date := archive.NewEventDate(now)
	entries := make([]archive.FileEntry, 0, len(files))
	for i, f := range files {
		entries = append(entries, archive.FileEntry{
			FileID:    f.ID,
			Caption:   fmt.Sprintf("File %d - %s", i+1, f.FileName),
			Copyright: fmt.Sprintf("© Universitas Indonesia %d", now.Year()),
			Order:     i + 1,
		})
	}

	draft := archive.MediaItemDraft{
		Title:           w.content.Title(t),
		Type:            t,
		CategoryID:      category,
		EventYear:       date.Year,
		EventMonth:      date.Month,
		EventDay:        date.Day,
		ArchivalHistory: archivalHistory,
		Source:          archivalSource,
		Language:        archivalLang,
		Note:            archivalNote,
		Files:           entries,
		Tags:            tags,
		UnitIDs:         unitIDs,
	}
	if t == archive.MediaArtikel || t == archive.MediaGaleri {
		draft.Description = w.content.Description(w.rand.IntBetween(2, 5))
	}
	return draft, nil
}

// CreateMediaItem builds a draft from files and posts it once. Without a
// category nothing is sent and no request is recorded.
func (w *Workflow) CreateMediaItem(ctx context.Context, token string, refs Refs, t archive.MediaType,
	files []archive.UploadedFile) (*archive.MediaItem, error) {

	draft, err := w.BuildDraft(ctx, refs, t, files)
	if err != nil {
		w.logger.Warn("media item creation aborted", zap.Error(err))
		return nil, err
	}

	w.logger.Debug("creating media item", zap.Int("files", len(files)), zap.Stringer("type", t))
	done := w.rec.Op(OpCreateItem).Start(ctx)
	item, err := w.api.CreateMediaItem(ctx, token, draft)
	done(err)
	if err != nil {
		w.logger.Warn("media item creation failed", zap.Error(err))
		return nil, err
	}
	return item, nil
}
