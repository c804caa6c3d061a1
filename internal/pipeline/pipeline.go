// Package pipeline wires ingestion, the labeling engine, persistence and
// notifications into the operations the CLI, scheduler and HTTP API
// share.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emilyfeng/viralscope/internal/store"
	"github.com/emilyfeng/viralscope/pkg/engine"
	"github.com/emilyfeng/viralscope/pkg/ingest"
	"github.com/emilyfeng/viralscope/pkg/notify"
)

// Runner executes ingest, label and calibrate operations.
type Runner struct {
	store    store.Store
	cfg      engine.Config
	fraction float64
	notify   *notify.Manager
	log      zerolog.Logger
}

// New creates a pipeline runner. notifyMgr may be nil.
func New(s store.Store, cfg engine.Config, fraction float64, notifyMgr *notify.Manager, log zerolog.Logger) *Runner {
	if fraction <= 0 {
		fraction = 0.2
	}
	if notifyMgr == nil {
		notifyMgr = notify.NewManager(nil)
	}
	return &Runner{store: s, cfg: cfg, fraction: fraction, notify: notifyMgr, log: log}
}

// EngineConfig returns the labeling constants in use.
func (r *Runner) EngineConfig() engine.Config { return r.cfg }

// Ingest fetches every source and upserts the normalized posts under the
// source's dataset tag. One failing source does not abort the others.
func (r *Runner) Ingest(ctx context.Context, sources []ingest.Source) (int, error) {
	total := 0
	for _, src := range sources {
		log := r.log.With().Str("source", string(src.Name())).Str("dataset", src.Dataset()).Logger()

		raws, err := src.Fetch(ctx)
		if err != nil {
			log.Error().Err(err).Msg("fetch failed")
			continue
		}

		posts := engine.Normalize(rawMaps(raws))
		if err := r.store.UpsertPosts(ctx, src.Dataset(), posts); err != nil {
			log.Error().Err(err).Msg("store failed")
			continue
		}

		log.Info().Int("posts", len(posts)).Msg("ingested")
		total += len(posts)
	}
	return total, nil
}

// LabelDataset loads a dataset, runs the classification engine and
// persists labels plus a run record. Notifiers, if any, get the summary.
func (r *Runner) LabelDataset(ctx context.Context, dataset string) (*store.LabelRun, []engine.Post, error) {
	started := time.Now().UTC()

	rows, err := r.store.ListPosts(ctx, store.ListOpts{Dataset: dataset})
	if err != nil {
		return nil, nil, fmt.Errorf("load dataset %s: %w", dataset, err)
	}

	posts := make([]engine.Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].Post
	}

	labeled := engine.Label(posts, r.cfg)
	if err := r.store.SaveLabels(ctx, dataset, labeled); err != nil {
		return nil, nil, fmt.Errorf("save labels %s: %w", dataset, err)
	}

	viral := 0
	for i := range labeled {
		if labeled[i].Viral {
			viral++
		}
	}

	run := &store.LabelRun{
		ID:         uuid.NewString(),
		Dataset:    dataset,
		Window:     r.cfg.Window,
		Multiplier: r.cfg.Multiplier,
		MaxPosts:   r.cfg.MaxPosts,
		MinPosts:   r.cfg.MinPosts,
		Total:      len(labeled),
		ViralCount: viral,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if err := r.store.RecordRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("record run: %w", err)
	}

	r.log.Info().
		Str("dataset", dataset).
		Str("run", run.ID).
		Int("total", run.Total).
		Int("viral", run.ViralCount).
		Msg("labeling run finished")

	if r.notify.HasNotifiers() {
		summary := &notify.RunSummary{
			RunID:      run.ID,
			Dataset:    dataset,
			Total:      run.Total,
			Viral:      run.ViralCount,
			Window:     r.cfg.Window,
			Multiplier: r.cfg.Multiplier,
			FinishedAt: run.FinishedAt,
		}
		if err := r.notify.Broadcast(ctx, summary); err != nil {
			r.log.Warn().Err(err).Msg("run notification failed")
		}
	}

	return run, labeled, nil
}

// Calibrate derives top-fraction engagement cutoffs for the ad and
// organic datasets independently and persists the defined ones.
func (r *Runner) Calibrate(ctx context.Context, adDataset, organicDataset string) (engine.ThresholdPair, error) {
	ad, err := r.likes(ctx, adDataset)
	if err != nil {
		return engine.ThresholdPair{}, err
	}
	organic, err := r.likes(ctx, organicDataset)
	if err != nil {
		return engine.ThresholdPair{}, err
	}

	pair := engine.CalibrateDatasets(ad, organic, r.fraction)
	now := time.Now().UTC()

	for dataset, th := range map[string]engine.Threshold{adDataset: pair.Ad, organicDataset: pair.Organic} {
		if !th.OK {
			r.log.Warn().Str("dataset", dataset).Msg("empty dataset, no threshold")
			continue
		}
		row := &store.ThresholdRow{
			Dataset:    dataset,
			Metric:     "likes",
			Fraction:   r.fraction,
			Value:      th.Value,
			SampleSize: th.SampleSize,
			ComputedAt: now,
		}
		if err := r.store.SaveThreshold(ctx, row); err != nil {
			return pair, fmt.Errorf("save threshold %s: %w", dataset, err)
		}
		r.log.Info().Str("dataset", dataset).Float64("value", th.Value).Int("n", th.SampleSize).Msg("threshold calibrated")
	}

	return pair, nil
}

func (r *Runner) likes(ctx context.Context, dataset string) ([]float64, error) {
	rows, err := r.store.ListPosts(ctx, store.ListOpts{Dataset: dataset})
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", dataset, err)
	}
	values := make([]float64, len(rows))
	for i := range rows {
		values[i] = rows[i].Likes
	}
	return values, nil
}

func rawMaps(raws []ingest.RawPost) []map[string]any {
	out := make([]map[string]any, len(raws))
	for i := range raws {
		out[i] = raws[i]
	}
	return out
}
