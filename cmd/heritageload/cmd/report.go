package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/loadtest"
	"github.com/FairForge/heritageload/internal/report"
	"github.com/FairForge/heritageload/internal/results"
)

// Turn a results stream into the step table, write it as CSV and aligned
// text, and optionally publish both files to the report bucket.
func reportCmd(a *app) *cobra.Command {
	var (
		name    string
		outDir  string
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "report <results.ndjson[.zst]>",
		Short: "Build the per-step performance table from a results stream.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := results.Load(args[0], a.logger)
			if err != nil {
				return err
			}
			if stream.Skipped > 0 {
				a.logger.Warn("skipped malformed lines", zap.Int("count", stream.Skipped))
			}
			tbl, err := report.Build(name, stream)
			if err != nil {
				return err
			}
			if err := tbl.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}

			dir := outDir
			if dir == "" {
				dir = a.cfg.Report.OutDir
			}
			files, err := tbl.Save(dir, time.Now())
			if err != nil {
				return err
			}
			a.logger.Info("report written",
				zap.String("csv", files.CSV),
				zap.String("text", files.Text),
				zap.Duration("test_duration", tbl.Duration))

			if !publish {
				return nil
			}
			pub, err := report.NewPublisher(cmd.Context(), a.cfg.Report.S3, a.logger)
			if err != nil {
				return err
			}
			_, err = pub.Publish(cmd.Context(), files.CSV, files.Text)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "scenario", loadtest.ScenarioReader, "Scenario the stream came from (reader or contributor).")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for the report files (default report.out_dir).")
	cmd.Flags().BoolVar(&publish, "publish", false, "Upload the report files to report.s3.")

	return cmd
}
