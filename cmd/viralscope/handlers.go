package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/emilyfeng/viralscope/internal/config"
	"github.com/emilyfeng/viralscope/internal/pipeline"
	"github.com/emilyfeng/viralscope/internal/scheduler"
	"github.com/emilyfeng/viralscope/internal/store"
	"github.com/emilyfeng/viralscope/pkg/engine"
	"github.com/emilyfeng/viralscope/pkg/ingest"
	"github.com/emilyfeng/viralscope/pkg/notify"
	"github.com/emilyfeng/viralscope/pkg/server"
	"github.com/emilyfeng/viralscope/pkg/warehouse"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Logging.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

func buildSources(cfg *config.Config) []ingest.Source {
	var sources []ingest.Source

	for _, f := range cfg.Sources.Files {
		sources = append(sources, ingest.NewFile(f.Path, f.Dataset))
	}
	if cfg.Sources.Apify.Enabled && cfg.Sources.Apify.Token != "" {
		a := cfg.Sources.Apify
		sources = append(sources, ingest.NewApify(a.BaseURL, a.Token, a.DatasetID, a.Dataset))
	}
	if cfg.Sources.Feeds.Enabled && cfg.Sources.Feeds.BridgeURL != "" {
		f := cfg.Sources.Feeds
		sources = append(sources, ingest.NewFeed(f.BridgeURL, f.Accounts, f.Dataset))
	}

	return sources
}

func buildNotifyManager(cfg *config.Config) *notify.Manager {
	var notifiers []notify.Notifier

	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Notify.Slack.WebhookURL))
	}
	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscord(cfg.Notify.Discord.WebhookURL))
	}
	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Secret))
	}

	return notify.NewManager(notifiers)
}

func buildRunner(cfg *config.Config, db store.Store, log zerolog.Logger) *pipeline.Runner {
	return pipeline.New(db, cfg.Engine.EngineSettings(), cfg.Engine.TopFraction, buildNotifyManager(cfg), log)
}

// datasetTags returns every dataset tag the config mentions, for daemon
// relabeling.
func datasetTags(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	for _, f := range cfg.Sources.Files {
		add(f.Dataset)
	}
	if cfg.Sources.Apify.Enabled {
		add(cfg.Sources.Apify.Dataset)
	}
	if cfg.Sources.Feeds.Enabled {
		add(cfg.Sources.Feeds.Dataset)
	}
	if len(tags) == 0 {
		tags = []string{"organic"}
	}
	return tags
}

func runIngest(extraFiles []string, extraDataset string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := buildLogger(cfg)

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	sources := buildSources(cfg)
	for _, path := range extraFiles {
		sources = append(sources, ingest.NewFile(path, extraDataset))
	}
	if len(sources) == 0 {
		return fmt.Errorf("no sources configured (add sources to config.yaml or pass --file)")
	}

	runner := buildRunner(cfg, db, log)
	total, err := runner.Ingest(context.Background(), sources)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "total: %d posts from %d sources\n", total, len(sources))
	return nil
}

func runLabel(dataset string, jsonOutput bool, window int, multiplier float64, fallback bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := buildLogger(cfg)

	if window > 0 {
		cfg.Engine.Window = window
	}
	if multiplier > 0 {
		cfg.Engine.Multiplier = multiplier
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	engCfg := cfg.Engine.EngineSettings()

	if fallback || cfg.Engine.UsePercentileFallback {
		th, err := db.LatestThreshold(ctx, dataset, "likes")
		if err != nil {
			return fmt.Errorf("load threshold: %w", err)
		}
		if th == nil {
			fmt.Fprintln(os.Stderr, "no calibrated cutoff yet, run calibrate first; labeling without fallback")
		} else {
			engCfg.FallbackThreshold = th.Value
		}
	}

	runner := pipeline.New(db, engCfg, cfg.Engine.TopFraction, buildNotifyManager(cfg), log)
	run, labeled, err := runner.LabelDataset(ctx, dataset)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(labeled)
	}

	fmt.Printf("run %s: %d posts labeled, %d viral\n", run.ID, run.Total, run.ViralCount)
	if run.ViralCount == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tPOST\tLIKES\tBASELINE\tPOSTED")
	for i := range labeled {
		p := &labeled[i]
		if !p.Viral {
			continue
		}
		baseline := math.NaN()
		if p.AvgLast50 != nil {
			baseline = *p.AvgLast50
		}
		fmt.Fprintf(w, "%s\t#%d\t%.0f\t%.1f\t%s\n",
			p.AccountID, p.PostNumber, p.Likes, baseline,
			p.PostedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func runCalibrate(adDataset, organicDataset string, fraction float64) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := buildLogger(cfg)

	if fraction <= 0 {
		fraction = cfg.Engine.TopFraction
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	runner := pipeline.New(db, cfg.Engine.EngineSettings(), fraction, nil, log)
	pair, err := runner.Calibrate(context.Background(), adDataset, organicDataset)
	if err != nil {
		return err
	}

	printCutoff := func(name string, th engine.Threshold) {
		if th.OK {
			fmt.Printf("%s: top %.0f%% cutoff = %.1f likes (n=%d)\n", name, fraction*100, th.Value, th.SampleSize)
		} else {
			fmt.Printf("%s: no data, no cutoff\n", name)
		}
	}
	printCutoff(adDataset, pair.Ad)
	printCutoff(organicDataset, pair.Organic)
	return nil
}

func runExport(dataset string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.Warehouse.Enabled || cfg.Warehouse.DSN == "" {
		return fmt.Errorf("warehouse not configured (set warehouse.dsn or WAREHOUSE_DSN)")
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	runs, err := db.ListRuns(ctx, 50)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	var latest *store.LabelRun
	for i := range runs {
		if runs[i].Dataset == dataset {
			latest = &runs[i]
			break
		}
	}
	if latest == nil {
		return fmt.Errorf("no labeling runs for dataset %s (run label first)", dataset)
	}

	rows, err := db.ListPosts(ctx, store.ListOpts{Dataset: dataset})
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	posts := make([]engine.Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].Post
	}

	wh, err := warehouse.New(cfg.Warehouse.DSN, cfg.Warehouse.Table)
	if err != nil {
		return fmt.Errorf("connect warehouse: %w", err)
	}
	defer wh.Close()

	if err := wh.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure table: %w", err)
	}
	if err := wh.UploadRun(ctx, latest.ID, dataset, posts); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	fmt.Fprintf(os.Stderr, "exported %d posts from run %s\n", len(posts), latest.ID)
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := buildLogger(cfg)

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	runner := buildRunner(cfg, db, log)
	srv := server.New(db, runner, port, log)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := buildLogger(cfg)

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	runner := buildRunner(cfg, db, log)
	sources := buildSources(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(runner, sources, datasetTags(cfg),
		cfg.Schedule.ParseIngestInterval(),
		cfg.Schedule.ParseLabelInterval(),
		log,
	)

	// Scheduler runs in the background, the server in the foreground.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
	}()

	srv := server.New(db, runner, port, log)
	return srv.ListenAndServe()
}
