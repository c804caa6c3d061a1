package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelIdenticalLikesNeverViral(t *testing.T) {
	// Baseline equals likes exactly, and 100 > 100*1.15 is false.
	posts := postsForAccount("alice", 60, flatLikes(100))
	labeled := Label(posts, Config{Window: 50, Multiplier: 1.15, MaxPosts: 60, MinPosts: 1, FallbackThreshold: math.NaN()})

	require.Len(t, labeled, 60)
	for _, p := range labeled {
		assert.False(t, p.Viral, "post_number %d", p.PostNumber)
	}
}

func TestLabelSpikeAboveBaselineIsViral(t *testing.T) {
	likes := func(day int) float64 {
		if day == 4 {
			return 500 // spike well above the 100-like baseline
		}
		return 100
	}
	labeled := Label(postsForAccount("alice", 4, likes), Config{Window: 3, Multiplier: 1.15, MaxPosts: 50, MinPosts: 1, FallbackThreshold: math.NaN()})

	byNum := byNumber(labeled)
	require.NotNil(t, byNum[1].AvgLast50)
	assert.Equal(t, 100.0, *byNum[1].AvgLast50)
	assert.True(t, byNum[1].Viral)
	for pn := 2; pn <= 4; pn++ {
		assert.False(t, byNum[pn].Viral)
	}
}

func TestLabelSinglePostColdStart(t *testing.T) {
	// A million likes with no sibling history still cannot be labeled
	// viral: there is no baseline to compare against.
	labeled := Label(postsForAccount("solo", 1, flatLikes(1_000_000)), DefaultConfig())

	require.Len(t, labeled, 1)
	assert.Nil(t, labeled[0].AvgLast50)
	assert.False(t, labeled[0].Viral)
}

func TestLabelFallbackThresholdAppliesWithoutBaseline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FallbackThreshold = 500_000

	labeled := Label(postsForAccount("solo", 1, flatLikes(1_000_000)), cfg)
	require.Len(t, labeled, 1)
	assert.Nil(t, labeled[0].AvgLast50)
	assert.True(t, labeled[0].Viral)

	labeled = Label(postsForAccount("solo", 1, flatLikes(400_000)), cfg)
	assert.False(t, labeled[0].Viral)
}

func TestLabelFallbackNeverOverridesBaseline(t *testing.T) {
	// An absurdly low fallback must not rescue a post whose baseline
	// rule says non-viral.
	cfg := Config{Window: 2, Multiplier: 1.15, MaxPosts: 50, MinPosts: 1, FallbackThreshold: 1}
	labeled := Label(postsForAccount("alice", 5, flatLikes(100)), cfg)

	for _, p := range labeled {
		if p.AvgLast50 != nil {
			assert.False(t, p.Viral, "post_number %d", p.PostNumber)
		}
	}
}

func TestLabelMultiplierMonotonicity(t *testing.T) {
	likes := func(day int) float64 { return float64((day*37)%13) * 10 }
	posts := postsForAccount("alice", 40, likes)
	posts = append(posts, postsForAccount("bob", 25, func(day int) float64 { return float64(day % 7) })...)

	prev := math.MaxInt
	for _, mult := range []float64{1.0, 1.15, 1.5, 2.0, 5.0} {
		cfg := Config{Window: 10, Multiplier: mult, MaxPosts: 100, MinPosts: 1, FallbackThreshold: math.NaN()}
		labeled := Label(posts, cfg)

		viral := 0
		for _, p := range labeled {
			if p.Viral {
				viral++
			}
		}
		assert.LessOrEqual(t, viral, prev, "multiplier %.2f", mult)
		prev = viral
	}
}
