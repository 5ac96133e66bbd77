package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/chance"
	"github.com/FairForge/heritageload/internal/fixtures"
	"github.com/FairForge/heritageload/internal/loadtest"
	"github.com/FairForge/heritageload/internal/metrics"
	"github.com/FairForge/heritageload/internal/results"
	"github.com/FairForge/heritageload/internal/scenario"
)

type runFlags struct {
	vus         int
	iterations  int
	maxVUs      int
	thresholds  []string
	metricsAddr string
	out         string
	baseURL     string
	apiKey      string
}

// Run a reader or contributor scenario with its fixed load profile, or a
// fixed number of iterations per VU when --iterations is given.
func runCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:       "run reader|contributor",
		Short:     "Run a load scenario against the archive API.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{loadtest.ScenarioReader, loadtest.ScenarioContributor},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			sum, err := a.run(ctx, args[0], f)
			if err != nil {
				return err
			}
			if err := sum.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}
			return sum.Err()
		},
	}

	cmd.Flags().IntVar(&f.vus, "vus", 1, "VUs in iterations mode.")
	cmd.Flags().IntVar(&f.iterations, "iterations", 0, "Iterations per VU; replaces the staged profile when set.")
	cmd.Flags().IntVar(&f.maxVUs, "max-vus", 0, "Cap every stage target (0 = profile targets).")
	cmd.Flags().StringArrayVar(&f.thresholds, "threshold", nil, "Extra threshold as metric=expr, e.g. 'login_duration=p(95)<3000'.")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address.")
	cmd.Flags().StringVar(&f.out, "out", "", "Write the results stream to this path (.zst compresses).")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Override target.base_url.")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Override target.api_key.")

	return cmd
}

func (a *app) run(ctx context.Context, name string, f *runFlags) (*loadtest.Summary, error) {
	opts, err := loadtest.Profile(name)
	if err != nil {
		return nil, err
	}
	extra, err := loadtest.ParseThresholds(f.thresholds)
	if err != nil {
		return nil, err
	}
	opts.Thresholds = append(opts.Thresholds, extra...)
	opts.MaxVUs = f.maxVUs
	if f.iterations > 0 {
		opts.VUs = f.vus
		opts.Iterations = f.iterations
	}

	metricsAddr := f.metricsAddr
	if metricsAddr == "" {
		metricsAddr = a.cfg.Metrics.Addr
	}
	out := f.out
	if out == "" {
		out = a.cfg.Results.Path
	}

	recOpts := []metrics.Option{metrics.WithLogger(a.logger)}
	if out != "" {
		w, err := results.Create(out)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := w.Close(); err != nil {
				a.logger.Error("failed to close results", zap.String("path", out), zap.Error(err))
			}
		}()
		recOpts = append(recOpts, metrics.WithSink(w))
		a.logger.Info("writing results", zap.String("path", out), zap.Bool("compressed", results.Compressed(out)))
	}
	rec := metrics.NewRecorder(recOpts...)

	if metricsAddr != "" {
		stop := serveMetrics(metricsAddr, rec, a.logger)
		defer stop()
	}

	clientCfg := a.cfg.Client()
	if f.baseURL != "" {
		clientCfg.BaseURL = f.baseURL
	}
	if f.apiKey != "" {
		clientCfg.APIKey = f.apiKey
	}
	clientCfg.Observer = archive.RecorderObserver(rec)
	clientCfg.Logger = a.logger
	client := archive.New(clientCfg)

	factory, err := a.factory(name, client, rec)
	if err != nil {
		return nil, err
	}

	a.logger.Info("starting run",
		zap.String("scenario", name),
		zap.String("base_url", client.BaseURL()),
		zap.Duration("planned", opts.Duration()),
		zap.Int("iterations", opts.Iterations))
	return loadtest.New(opts, factory, rec, a.logger).Run(ctx)
}

// factory builds VUs that share the client, the recorder and the fixtures
// but own their randomness and reference cache.
func (a *app) factory(name string, client *archive.Client, rec *metrics.Recorder) (loadtest.Factory, error) {
	deps := func(id int) scenario.Deps {
		return scenario.Deps{Metrics: rec, Logger: a.logger.With(zap.Int("vu", id))}
	}

	switch name {
	case loadtest.ScenarioReader:
		return func(id int) loadtest.VU {
			return scenario.NewReader(client, chance.New(nil), deps(id))
		}, nil

	case loadtest.ScenarioContributor:
		contributors, err := fixtures.LoadContributors(a.cfg.Fixtures.Contributors)
		if err != nil {
			return nil, err
		}
		payload, err := fixtures.LoadPayload(a.cfg.Fixtures.Dir)
		if err != nil {
			return nil, err
		}
		a.logger.Info("fixtures loaded",
			zap.Int("contributors", len(contributors)),
			zap.Int("chunks", len(payload.Chunks)))
		return func(id int) loadtest.VU {
			return scenario.NewContributor(client, contributors, payload, chance.New(nil), deps(id))
		}, nil
	}
	return nil, fmt.Errorf("unknown scenario %q", name)
}

func serveMetrics(addr string, rec *metrics.Recorder, logger *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
