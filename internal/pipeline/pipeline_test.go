package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilyfeng/viralscope/internal/store"
	"github.com/emilyfeng/viralscope/pkg/engine"
	"github.com/emilyfeng/viralscope/pkg/ingest"
)

type fakeSource struct {
	dataset string
	posts   []ingest.RawPost
	err     error
}

func (f *fakeSource) Name() ingest.SourceType { return ingest.SourceFile }
func (f *fakeSource) Dataset() string         { return f.dataset }
func (f *fakeSource) Fetch(ctx context.Context) ([]ingest.RawPost, error) {
	return f.posts, f.err
}

func newTestRunner(t *testing.T, cfg engine.Config) (*Runner, *store.SQLiteStore) {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, cfg, 0.2, nil, zerolog.Nop()), s
}

func rawPost(account, id string, day int, likes float64) ingest.RawPost {
	posted := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return ingest.RawPost{
		"account_id": account,
		"post_id":    id,
		"posted_at":  posted.Format(time.RFC3339),
		"likes":      likes,
	}
}

func TestIngestStoresNormalizedPosts(t *testing.T) {
	runner, s := newTestRunner(t, engine.DefaultConfig())
	ctx := context.Background()

	src := &fakeSource{dataset: "organic", posts: []ingest.RawPost{
		rawPost("alice", "a1", 0, 100),
		rawPost("alice", "a2", 1, 120),
	}}

	total, err := runner.Ingest(ctx, []ingest.Source{src})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	rows, err := s.ListPosts(ctx, store.ListOpts{Dataset: "organic"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].AccountID)
}

func TestIngestSkipsFailingSource(t *testing.T) {
	runner, s := newTestRunner(t, engine.DefaultConfig())
	ctx := context.Background()

	broken := &fakeSource{dataset: "organic", err: errors.New("boom")}
	good := &fakeSource{dataset: "organic", posts: []ingest.RawPost{rawPost("bob", "b1", 0, 10)}}

	total, err := runner.Ingest(ctx, []ingest.Source{broken, good})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	rows, err := s.ListPosts(ctx, store.ListOpts{Dataset: "organic"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLabelDatasetEndToEnd(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Window = 3
	runner, s := newTestRunner(t, cfg)
	ctx := context.Background()

	// Steady account with one clear spike on the most recent post.
	var raws []ingest.RawPost
	for day := 0; day < 6; day++ {
		raws = append(raws, rawPost("carol", "", day, 100))
	}
	raws = append(raws, rawPost("carol", "spike", 6, 500))

	src := &fakeSource{dataset: "organic", posts: raws}
	_, err := runner.Ingest(ctx, []ingest.Source{src})
	require.NoError(t, err)

	run, labeled, err := runner.LabelDataset(ctx, "organic")
	require.NoError(t, err)
	assert.Equal(t, 7, run.Total)
	assert.Equal(t, 1, run.ViralCount)
	assert.NotEmpty(t, run.ID)

	for i := range labeled {
		if labeled[i].PostID == "spike" {
			assert.True(t, labeled[i].Viral)
			assert.Equal(t, 1, labeled[i].PostNumber)
		} else {
			assert.False(t, labeled[i].Viral)
		}
	}

	// Labels persisted and the run recorded.
	viral := true
	rows, err := s.ListPosts(ctx, store.ListOpts{Dataset: "organic", Viral: &viral})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "spike", rows[0].PostID)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestLabelDatasetEmpty(t *testing.T) {
	runner, _ := newTestRunner(t, engine.DefaultConfig())

	run, labeled, err := runner.LabelDataset(context.Background(), "organic")
	require.NoError(t, err)
	assert.Zero(t, run.Total)
	assert.Empty(t, labeled)
}

func TestCalibratePersistsThresholds(t *testing.T) {
	runner, s := newTestRunner(t, engine.DefaultConfig())
	ctx := context.Background()

	var ad, organic []ingest.RawPost
	for i, likes := range []float64{10, 20, 30, 40, 50} {
		ad = append(ad, rawPost("brand", "", i, likes))
		organic = append(organic, rawPost("creator", "", i, likes*2))
	}

	_, err := runner.Ingest(ctx, []ingest.Source{
		&fakeSource{dataset: "ad", posts: ad},
		&fakeSource{dataset: "organic", posts: organic},
	})
	require.NoError(t, err)

	pair, err := runner.Calibrate(ctx, "ad", "organic")
	require.NoError(t, err)
	require.True(t, pair.Ad.OK)
	require.True(t, pair.Organic.OK)
	assert.Equal(t, 50.0, pair.Ad.Value)
	assert.Equal(t, 100.0, pair.Organic.Value)

	th, err := s.LatestThreshold(ctx, "ad", "likes")
	require.NoError(t, err)
	require.NotNil(t, th)
	assert.Equal(t, 50.0, th.Value)
	assert.Equal(t, 5, th.SampleSize)
}

func TestCalibrateEmptyDatasetSkipsSave(t *testing.T) {
	runner, s := newTestRunner(t, engine.DefaultConfig())
	ctx := context.Background()

	pair, err := runner.Calibrate(ctx, "ad", "organic")
	require.NoError(t, err)
	assert.False(t, pair.Ad.OK)
	assert.False(t, pair.Organic.OK)

	th, err := s.LatestThreshold(ctx, "ad", "likes")
	require.NoError(t, err)
	assert.Nil(t, th)
}
