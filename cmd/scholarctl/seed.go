package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/catalog/file"
	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert a YAML scholarship catalog into Postgres",
	Long:  "Reads a catalog file (a list, or a mapping with a scholarships key) and upserts every row by id into the scholarships table, creating the schema when missing.",
	RunE:  runSeed,
}

var (
	seedFile  string
	seedDBURL string
	seedDry   bool
)

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to catalog YAML file (required)")
	seedCmd.Flags().StringVar(&seedDBURL, "db-url", "", "Database URL (defaults to DB_URL)")
	seedCmd.Flags().BoolVar(&seedDry, "dry-run", false, "Validate the file without writing")
	_ = seedCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(seedCmd)
}

type upserter interface {
	Upsert(ctx domain.Context, s domain.CatalogScholarship) error
}

// seedCatalog upserts every row and reports how many were written. It keeps
// going after a failed row so one report lists every bad id.
func seedCatalog(ctx context.Context, up upserter, rows []domain.CatalogScholarship) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, s := range rows {
		if err := up.Upsert(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.ID, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rows, err := file.Load(seedFile)
	if err != nil {
		return err
	}
	if seedDry {
		fmt.Fprintf(cmd.OutOrStdout(), "%d scholarships valid\n", len(rows))
		return nil
	}
	dsn := seedDBURL
	if dsn == "" {
		dsn = cfg.DBURL
	}
	if dsn == "" {
		return fmt.Errorf("%w: --db-url or DB_URL is required", domain.ErrConfiguration)
	}

	ctx := cmd.Context()
	pool, err := postgres.ConnectWithRetry(ctx, dsn, cfg.DBConnectMaxElapsed)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	n, err := seedCatalog(ctx, postgres.NewScholarshipRepo(pool), rows)
	slog.Info("catalog seeded", slog.String("file", seedFile), slog.Int("written", n), slog.Int("rows", len(rows)))
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d scholarships written\n", n, len(rows))
	return err
}
