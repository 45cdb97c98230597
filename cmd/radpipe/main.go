package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/radpipe/radpipe/internal/config"
	"github.com/radpipe/radpipe/internal/domain/analytics"
	"github.com/radpipe/radpipe/internal/domain/ingest"
	"github.com/radpipe/radpipe/internal/domain/pipeline"
	"github.com/radpipe/radpipe/internal/domain/qa"
	"github.com/radpipe/radpipe/internal/domain/warehouse"
	"github.com/radpipe/radpipe/internal/feed"
	"github.com/radpipe/radpipe/internal/platform/auth"
	"github.com/radpipe/radpipe/internal/platform/db"
	"github.com/radpipe/radpipe/internal/platform/middleware"
	"github.com/radpipe/radpipe/internal/platform/telemetry"
	"github.com/radpipe/radpipe/internal/seed"
)

// defaultFacilityCount sizes the seeded facility roster. Types cycle, so
// one third of the roster comes out as hospitals.
const defaultFacilityCount = 20

// qaSummaryFile is the QA report written under REPORT_DIR.
const qaSummaryFile = "warehouse_qa_summary.md"

func main() {
	rootCmd := &cobra.Command{
		Use:   "radpipe",
		Short: "Clinical imaging ETL and warehouse pipeline",
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(transformCmd())
	rootCmd.AddCommand(qaCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, builds the root logger, and connects the pool.
// Every subcommand that touches the database boots through here.
func setup(ctx context.Context) (*config.Config, zerolog.Logger, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	logger := newLogger(cfg)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, logger, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, logger, pool, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}
	return logger
}

// engines bundles the pipeline services one boot constructs.
type engines struct {
	seeder    *seed.Seeder
	loader    *ingest.Service
	builder   *warehouse.Service
	checker   *qa.Service
	analyzer  *analytics.Service
	pipeline  *pipeline.Service
	feedPath  string
	reportDir string
}

func buildEngines(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *engines {
	synth := feed.NewSynthesizer(cfg.Seed)
	e := &engines{
		seeder:    seed.NewSeeder(pool, logger),
		loader:    ingest.NewService(pool, ingest.NewRepo(pool), synth, cfg.BatchSize, cfg.Seed, logger),
		builder:   warehouse.NewService(pool, warehouse.NewRepo(pool), logger),
		checker:   qa.NewService(qa.NewRepo(pool), logger),
		analyzer:  analytics.NewService(analytics.NewRepo(pool), logger),
		feedPath:  cfg.FeedPath,
		reportDir: cfg.ReportDir,
	}
	e.pipeline = pipeline.NewService(pipeline.NewRepo(pool), e.stageFuncs(cfg, logger), logger)
	return e
}

// stageFuncs adapts each engine entry point to the pipeline service's stage
// signature. Counters come back as the run's detail document.
func (e *engines) stageFuncs(cfg *config.Config, logger zerolog.Logger) map[string]pipeline.StageFunc {
	return map[string]pipeline.StageFunc{
		pipeline.StageSeed: func(ctx context.Context) (map[string]interface{}, error) {
			res, err := e.seeder.Seed(ctx, defaultFacilityCount, cfg.Seed)
			return asDetail(res), err
		},
		pipeline.StageFetch: func(ctx context.Context) (map[string]interface{}, error) {
			if e.feedPath == "" {
				return nil, fmt.Errorf("FEED_PATH must be set to fetch the feed")
			}
			n, err := feed.Fetch(ctx, cfg.FeedURL, e.feedPath, logger)
			return map[string]interface{}{"bytes": n, "path": e.feedPath}, err
		},
		pipeline.StageLoad: func(ctx context.Context) (map[string]interface{}, error) {
			stats, err := e.runLoad(ctx, e.feedPath, cfg.FeedSample, logger)
			return asDetail(stats), err
		},
		pipeline.StageTransform: func(ctx context.Context) (map[string]interface{}, error) {
			stats, err := e.builder.Rebuild(ctx)
			return asDetail(stats), err
		},
		pipeline.StageQA: func(ctx context.Context) (map[string]interface{}, error) {
			report, path, err := e.runQA(ctx, filepath.Join(e.reportDir, qaSummaryFile))
			detail := map[string]interface{}{
				"passed":  report.Passed,
				"failed":  report.Failed,
				"errored": report.Errored,
				"path":    path,
			}
			return detail, err
		},
		pipeline.StageAnalytics: func(ctx context.Context) (map[string]interface{}, error) {
			results, err := e.analyzer.Run(ctx, e.reportDir)
			return map[string]interface{}{"queries": asDetailSlice(results)}, err
		},
	}
}

// runLoad reads the feed file and drives the batch load engine.
func (e *engines) runLoad(ctx context.Context, feedPath string, sample int, logger zerolog.Logger) (*ingest.LoadStats, error) {
	if feedPath == "" {
		return nil, fmt.Errorf("FEED_PATH must be set (or pass --feed)")
	}
	res, err := feed.ReadFile(feedPath, sample)
	if err != nil {
		return nil, err
	}
	if res.Malformed > 0 {
		logger.Warn().Int("rows", res.Malformed).Msg("malformed feed rows skipped")
	}
	logger.Info().Str("path", feedPath).Int("records", len(res.Records)).Msg("feed decoded")

	return e.loader.Load(ctx, res.Records)
}

// runQA executes the battery and writes the markdown summary. Failing checks
// are report content, never errors; only infrastructure trouble returns one.
func (e *engines) runQA(ctx context.Context, outPath string) (*qa.Report, string, error) {
	report := e.checker.Run(ctx)

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, "", fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, []byte(report.Markdown()), 0o644); err != nil {
		return report, "", fmt.Errorf("write qa summary: %w", err)
	}
	return report, outPath, nil
}

// asDetail flattens a counters struct into the JSON object shape the
// pipeline_runs detail column stores.
func asDetail(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func asDetailSlice(v interface{}) []interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetBool("status")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			migrator := db.NewMigrator(pool, dir)

			if status {
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return fmt.Errorf("migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					state := "pending"
					appliedAt := ""
					if s.Applied {
						state = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, state, appliedAt)
				}
				return nil
			}

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info().Int("applied", count).Msg("migrations complete")
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "List migrations instead of applying them")
	cmd.Flags().String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Install the diagnosis catalog and facility roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			facilities, _ := cmd.Flags().GetInt("facilities")

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			seeder := seed.NewSeeder(pool, logger)
			if _, err := seeder.Seed(ctx, facilities, cfg.Seed); err != nil {
				return fmt.Errorf("seed reference data: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Int("facilities", defaultFacilityCount, "Number of facilities to generate")
	return cmd
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the imaging feed CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			out, _ := cmd.Flags().GetString("out")

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if url == "" {
				url = cfg.FeedURL
			}
			if out == "" {
				out = cfg.FeedPath
			}
			if out == "" {
				return fmt.Errorf("FEED_PATH must be set (or pass --out)")
			}

			if _, err := feed.Fetch(ctx, url, out, logger); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("url", "", "Feed URL (defaults to FEED_URL)")
	cmd.Flags().String("out", "", "Destination path (defaults to FEED_PATH)")
	return cmd
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Run the incremental batch load into the operational store",
		RunE: func(cmd *cobra.Command, args []string) error {
			feedPath, _ := cmd.Flags().GetString("feed")
			batchSize, _ := cmd.Flags().GetInt("batch-size")
			sample, _ := cmd.Flags().GetInt("sample")

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if feedPath != "" {
				cfg.FeedPath = feedPath
			}
			if batchSize > 0 {
				cfg.BatchSize = batchSize
			}
			if cmd.Flags().Changed("sample") {
				cfg.FeedSample = sample
			}

			eng := buildEngines(cfg, pool, logger)
			if _, err := eng.runLoad(ctx, cfg.FeedPath, cfg.FeedSample, logger); err != nil {
				return fmt.Errorf("load: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("feed", "", "Feed CSV path (defaults to FEED_PATH)")
	cmd.Flags().Int("batch-size", 0, "Records per transaction (defaults to BATCH_SIZE)")
	cmd.Flags().Int("sample", 0, "Max feed rows to read, 0 for all (defaults to FEED_SAMPLE)")
	return cmd
}

func transformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Rebuild the dimensional warehouse from the operational store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			eng := buildEngines(cfg, pool, logger)
			if _, err := eng.builder.Rebuild(ctx); err != nil {
				return fmt.Errorf("transform: %w", err)
			}
			return nil
		},
	}
}

func qaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qa",
		Short: "Run the warehouse integrity battery and write the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if out == "" {
				out = filepath.Join(cfg.ReportDir, qaSummaryFile)
			}

			eng := buildEngines(cfg, pool, logger)
			report, path, err := eng.runQA(ctx, out)
			if err != nil {
				return err
			}
			logger.Info().Str("path", path).
				Int("passed", report.Passed).
				Int("failed", report.Failed).
				Int("errored", report.Errored).
				Msg("qa summary written")
			return nil
		},
	}
	cmd.Flags().String("out", "", "Summary path (defaults to REPORT_DIR/"+qaSummaryFile+")")
	return cmd
}

func analyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Run the canned warehouse analytics queries to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out-dir")

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if outDir == "" {
				outDir = cfg.ReportDir
			}

			eng := buildEngines(cfg, pool, logger)
			results, err := eng.analyzer.Run(ctx, outDir)
			if err != nil {
				return fmt.Errorf("analytics: %w", err)
			}
			for _, res := range results {
				if !res.Ok() {
					return fmt.Errorf("analytics query %s: %s", res.Name, res.Err)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("out-dir", "", "Output directory (defaults to REPORT_DIR)")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: seed, fetch, load, transform, qa, analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			skips, _ := cmd.Flags().GetStringArray("skip")

			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			skip := make(map[string]bool, len(skips))
			for _, s := range skips {
				skip[s] = true
			}

			eng := buildEngines(cfg, pool, logger)
			var stages []string
			for _, stage := range eng.pipeline.Stages() {
				if !skip[stage] {
					stages = append(stages, stage)
				}
			}

			runs, err := eng.pipeline.Sequence(ctx, stages)
			if err != nil {
				return err
			}
			logger.Info().Int("stages", len(runs)).Msg("pipeline complete")
			return nil
		},
	}
	cmd.Flags().StringArray("skip", nil, "Stage to skip (repeatable): seed, fetch, load, transform, qa, analytics")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an ops API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET must be set to mint tokens")
			}

			token, err := auth.Mint(auth.Config{SigningKey: []byte(cfg.JWTSecret)}, subject, ttl)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("subject", "ops", "Token subject")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ops server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			logger.Info().Msg("connected to database")

			signingKey := []byte(cfg.JWTSecret)
			if len(signingKey) == 0 {
				// Dev fallback; minted tokens die with the process.
				signingKey = make([]byte, 32)
				if _, err := crypto_rand.Read(signingKey); err != nil {
					return fmt.Errorf("generate signing key: %w", err)
				}
				logger.Warn().Msg("JWT_SECRET not set; using random key (tokens will not survive restart)")
			}

			eng := buildEngines(cfg, pool, logger)
			handler := pipeline.NewHandler(eng.pipeline)

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true

			e.Use(middleware.Recovery(logger))
			e.Use(middleware.RequestID())
			e.Use(middleware.Logger(logger))
			e.Use(telemetry.Middleware())

			e.GET("/healthz", db.HealthHandler())
			e.GET("/readyz", db.ReadyHandler(pool))
			e.GET("/metrics", telemetry.Handler())

			apiV1 := e.Group("/api/v1", auth.Middleware(auth.Config{SigningKey: signingKey}))
			handler.RegisterRoutes(apiV1)

			go func() {
				addr := ":" + cfg.Port
				logger.Info().Str("addr", addr).Msg("starting ops server")
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server error")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.Fatal().Err(err).Msg("server shutdown failed")
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}
