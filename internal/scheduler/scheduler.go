package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/emilyfeng/viralscope/internal/pipeline"
	"github.com/emilyfeng/viralscope/pkg/ingest"
)

// Scheduler runs periodic ingestion and relabeling.
type Scheduler struct {
	runner    *pipeline.Runner
	sources   []ingest.Source
	datasets  []string
	ingestInt time.Duration
	labelInt  time.Duration
	log       zerolog.Logger
}

// New creates a new scheduler. datasets lists the dataset tags to
// relabel on each labeling tick.
func New(
	runner *pipeline.Runner,
	sources []ingest.Source,
	datasets []string,
	ingestInt, labelInt time.Duration,
	log zerolog.Logger,
) *Scheduler {
	if ingestInt == 0 {
		ingestInt = 6 * time.Hour
	}
	if labelInt == 0 {
		labelInt = 12 * time.Hour
	}
	return &Scheduler{
		runner:    runner,
		sources:   sources,
		datasets:  datasets,
		ingestInt: ingestInt,
		labelInt:  labelInt,
		log:       log,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ingestTicker := time.NewTicker(s.ingestInt)
	labelTicker := time.NewTicker(s.labelInt)
	defer ingestTicker.Stop()
	defer labelTicker.Stop()

	// Run immediately on start.
	s.log.Info().Msg("scheduler: initial ingest")
	s.ingestAll(ctx)
	s.log.Info().Msg("scheduler: initial labeling")
	s.labelAll(ctx)

	s.log.Info().
		Dur("ingest_every", s.ingestInt).
		Dur("label_every", s.labelInt).
		Msg("scheduler running")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ingestTicker.C:
			s.ingestAll(ctx)
		case <-labelTicker.C:
			s.labelAll(ctx)
		}
	}
}

func (s *Scheduler) ingestAll(ctx context.Context) {
	total, err := s.runner.Ingest(ctx, s.sources)
	if err != nil {
		s.log.Error().Err(err).Msg("ingest failed")
		return
	}
	s.log.Info().Int("posts", total).Msg("ingest complete")
}

func (s *Scheduler) labelAll(ctx context.Context) {
	for _, dataset := range s.datasets {
		if _, _, err := s.runner.LabelDataset(ctx, dataset); err != nil {
			s.log.Error().Err(err).Str("dataset", dataset).Msg("labeling failed")
		}
	}
}
