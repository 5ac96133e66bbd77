// internal/scenario/contributor.go
package scenario

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
	"github.com/FairForge/heritageload/internal/fixtures"
	"github.com/FairForge/heritageload/internal/metrics"
	"github.com/FairForge/heritageload/internal/pace"
	"github.com/FairForge/heritageload/internal/refdata"
	"github.com/FairForge/heritageload/internal/upload"
)

// ContributorAPI is what the contributor journey calls.
type ContributorAPI interface {
	refdata.Lister
	upload.API
	Login(ctx context.Context, who archive.Contributor) (*archive.Session, error)
}

// Contributor metrics outside the upload workflow.
const (
	OpLogin                     = "login"
	ContributorWorkflowDuration = "contributor_workflow_duration"
)

var errNoFiles = errors.New("no files uploaded")

type contributorState struct {
	who       archive.Contributor
	session   *archive.Session
	mediaType archive.MediaType
	files     []archive.UploadedFile
	started   time.Time
}

// Contributor is one virtual user logging in and publishing media items.
type Contributor struct {
	api          ContributorAPI
	contributors []archive.Contributor
	rand         *chance.Rand
	refs         *refdata.Cache
	flow         *upload.Workflow
	rec          *metrics.Recorder
	logger       *zap.Logger
	now          func() time.Time
	selectType   func() archive.MediaType
	seq          *Sequencer[contributorState]
}

// NewContributor builds a contributor virtual user. contributors must not
// be empty.
func NewContributor(api ContributorAPI, contributors []archive.Contributor, payload *fixtures.Payload,
	rnd *chance.Rand, deps Deps) *Contributor {

	deps = deps.withDefaults()
	logger := deps.Logger.Named("contributor")
	c := &Contributor{
		api:          api,
		contributors: contributors,
		rand:         rnd,
		refs:         refdata.New(api, refdata.ContributorPageSizes, deps.Metrics, logger),
		rec:          deps.Metrics,
		logger:       logger,
		now:          time.Now,
	}
	c.flow = upload.New(upload.Config{
		API:     api,
		Payload: payload,
		Rand:    rnd,
		Pacer:   deps.Pacer,
		Metrics: deps.Metrics,
		Logger:  logger,
	})
	c.selectType = c.flow.SelectMediaType
	c.seq = &Sequencer[contributorState]{
		Steps: []Step[contributorState]{
			{Name: "SSO Login", Run: c.login, Pause: pace.R(1, 3), Critical: true},
			{Name: "Upload Files", Run: c.uploadFiles, Pause: pace.R(2, 4), Nested: true},
			{Name: "Create Media Item", Run: c.createMediaItem, Skip: noFiles, Nested: true},
		},
		Cooldown: Cooldown,
		Finish:   c.finish,
		Pacer:    deps.Pacer,
		Rand:     rnd,
		Logger:   logger,
	}
	return c
}

// Refs exposes the user's reference cache.
func (c *Contributor) Refs() *refdata.Cache { return c.refs }

// Iterate runs one contributor journey.
func (c *Contributor) Iterate(ctx context.Context) error {
	// Warm both lists before the clock starts; failures are retried on
	// the next need.
	_, _ = c.refs.Categories(ctx)
	_, _ = c.refs.Units(ctx)

	s := &contributorState{
		who:     chance.Pick(c.rand, c.contributors),
		started: c.now(),
	}
	_, err := c.seq.Run(ctx, s)
	return err
}

func noFiles(s *contributorState) bool { return len(s.files) == 0 }

func (c *Contributor) login(ctx context.Context, s *contributorState) error {
	return c.rec.Op(OpLogin).Track(ctx, func(ctx context.Context) error {
		sess, err := c.api.Login(ctx, s.who)
		if err != nil {
			return err
		}
		s.session = sess
		c.logger.Debug("logged in",
			zap.String("user", s.who.User),
			zap.String("subject", sess.Subject),
			zap.Time("expires_at", sess.ExpiresAt))
		return nil
	})
}

func (c *Contributor) uploadFiles(ctx context.Context, s *contributorState) error {
	s.mediaType = c.selectType()
	c.logger.Debug("uploading files", zap.Stringer("type", s.mediaType))
	s.files = c.flow.UploadFiles(ctx, s.session.AccessToken, s.mediaType)
	if len(s.files) == 0 {
		return errNoFiles
	}
	return nil
}

func (c *Contributor) createMediaItem(ctx context.Context, s *contributorState) error {
	item, err := c.flow.CreateMediaItem(ctx, s.session.AccessToken, c.refs, s.mediaType, s.files)
	if err != nil {
		return err
	}
	c.logger.Debug("media item created", zap.String("id", string(item.ID)))
	return nil
}

func (c *Contributor) finish(ctx context.Context, s *contributorState) {
	c.rec.AddTrend(ctx, ContributorWorkflowDuration, c.now().Sub(s.started), nil)
}
