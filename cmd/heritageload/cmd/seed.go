package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/heritageload/internal/chance"
	"github.com/FairForge/heritageload/internal/seed"
)

func seedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate seed data for the archive database.",
	}
	cmd.AddCommand(seedContributorsCmd(a), seedMediaItemsCmd(a))
	return cmd
}

// Generate contributor accounts: SQL to insert and delete them, and the
// login fixture used by the contributor scenario.
func seedContributorsCmd(a *app) *cobra.Command {
	var (
		unitsPath string
		count     int
		outDir    string
		seedValue uint64
	)
	cmd := &cobra.Command{
		Use:   "contributors",
		Short: "Generate contributor users, SQL scripts and contributor_logins.json.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := seed.LoadUnits(unitsPath)
			if err != nil {
				return err
			}
			cs, err := seed.New(seededRand(seedValue)).Generate(units, count)
			if err != nil {
				return err
			}
			files, err := seed.WriteAll(outDir, cs, time.Now())
			if err != nil {
				return err
			}
			a.logger.Info("contributors generated",
				zap.Int("count", len(cs)),
				zap.Int("active_units", len(seed.ActiveUnits(units))),
				zap.String("insert", files.Insert),
				zap.String("delete", files.Delete),
				zap.String("logins", files.Logins))
			return nil
		},
	}

	cmd.Flags().StringVar(&unitsPath, "units", "units.json", "Units export (JSON array with id and deleted_at).")
	cmd.Flags().IntVar(&count, "count", seed.DefaultCount, "Number of contributors.")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Output directory.")
	cmd.Flags().Uint64Var(&seedValue, "seed", 0, "Random seed for reproducible output (0 = time-seeded).")

	return cmd
}

// Generate approved media items with their files, approvals and tags so a
// reader run has content to browse.
func seedMediaItemsCmd(a *app) *cobra.Command {
	var (
		unitsPath      string
		categoriesPath string
		count          int
		outDir         string
		contributorID  string
		seedValue      uint64
	)
	cmd := &cobra.Command{
		Use:   "media-items",
		Short: "Generate tags and approved media items as SQL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := seed.LoadUnits(unitsPath)
			if err != nil {
				return err
			}
			cats, err := seed.LoadCategories(categoriesPath)
			if err != nil {
				return err
			}
			now := time.Now()
			g := seed.New(seededRand(seedValue))
			tags := g.Tags()
			items, err := g.MediaItems(units, cats, tags, count, now)
			if err != nil {
				return err
			}
			path, err := seed.WriteMediaItems(outDir, tags, items, contributorID, now)
			if err != nil {
				return err
			}

			byType := map[string]int{}
			for _, it := range items {
				byType[it.Type.DisplayName()]++
			}
			a.logger.Info("media items generated",
				zap.Int("count", len(items)),
				zap.Int("tags", len(tags)),
				zap.Any("by_type", byType),
				zap.String("sql", path))
			return nil
		},
	}

	cmd.Flags().StringVar(&unitsPath, "units", "units.json", "Units export (JSON array with id, order, reference_code, is_active and deleted_at).")
	cmd.Flags().StringVar(&categoriesPath, "categories", "categories.json", "Categories export (JSON array with id, is_active and deleted_at).")
	cmd.Flags().IntVar(&count, "count", seed.DefaultMediaItems, "Number of media items.")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Output directory.")
	cmd.Flags().StringVar(&contributorID, "contributor-id", seed.DefaultContributorID, "User id recorded as the contributor of every item.")
	cmd.Flags().Uint64Var(&seedValue, "seed", 0, "Random seed for reproducible output (0 = time-seeded).")

	return cmd
}

func seededRand(seed uint64) *chance.Rand {
	if seed == 0 {
		return chance.New(nil)
	}
	return chance.Seeded(seed)
}
