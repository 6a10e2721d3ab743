package simrank

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seeded(base int64) Option {
	return WithSource(func(worker int) rand.Source {
		return rand.NewSource(base + int64(worker))
	})
}

func checkPartition(t *testing.T, p Partition, n1, n2 int, uTarget float64) {
	t.Helper()

	require.Len(t, p.Group1, n1)
	require.Len(t, p.Group2, n2)
	assert.IsIncreasing(t, p.Group1)
	assert.Equal(t, float64(TargetRankSum(n1, uTarget)), p.RankSum())
	assert.Equal(t, uTarget, p.U)

	seen := make(map[int]bool, n1+n2)
	for _, r := range append(append([]int{}, p.Group1...), p.Group2...) {
		assert.False(t, seen[r], "rank %d appears twice", r)
		assert.GreaterOrEqual(t, r, 1)
		assert.LessOrEqual(t, r, n1+n2)
		seen[r] = true
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		n1      int
		n2      int
		u       float64
		length  int
		maxIter int
		workers int
	}{
		{"Single worker", 5, 5, 12, 3, 20000, 1},
		{"Half integer target", 5, 5, 12.5, 3, 20000, 4},
		{"Unequal groups", 3, 8, 4, 5, 20000, 2},
		{"Many workers", 6, 6, 18, 10, 50000, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(WithWorkers(tt.workers), seeded(7), WithLogger(zap.NewNop()))
			found, err := s.Run(context.Background(), tt.n1, tt.n2, tt.u, tt.length, tt.maxIter)
			require.NoError(t, err)

			assert.NotEmpty(t, found)
			assert.LessOrEqual(t, len(found), tt.length)

			keys := make(map[string]bool, len(found))
			for _, p := range found {
				checkPartition(t, p, tt.n1, tt.n2, tt.u)
				assert.False(t, keys[p.key()], "duplicate partition %v", p.Group1)
				keys[p.key()] = true
			}
		})
	}
}

func TestRunStopsAtDistinctPartitions(t *testing.T) {
	s := NewSampler(WithWorkers(4), seeded(1))

	found, err := s.Run(context.Background(), 1, 3, 0, 5, 5000)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []int{1}, found[0].Group1)
	assert.Equal(t, []int{2, 3, 4}, found[0].Group2)
}

func TestRunWithoutBudget(t *testing.T) {
	s := NewSampler(seeded(3))

	found, err := s.Run(context.Background(), 4, 4, 8, 2, 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		n1      int
		n2      int
		u       float64
		length  int
		maxIter int
		wantErr error
	}{
		{"Empty first group", 0, 5, 0, 1, 10, ErrInvalidGroupSize},
		{"Empty second group", 5, 0, 0, 1, 10, ErrInvalidGroupSize},
		{"Negative target", 3, 3, -1, 1, 10, ErrTargetOutOfRange},
		{"Target above maximum", 3, 3, 9.5, 1, 10, ErrTargetOutOfRange},
		{"No results wanted", 3, 3, 4, 0, 10, ErrInvalidBudget},
		{"Negative budget", 3, 3, 4, 1, -1, ErrInvalidBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSampler(seeded(1)).Run(context.Background(), tt.n1, tt.n2, tt.u, tt.length, tt.maxIter)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	found, err := NewSampler(WithWorkers(2), seeded(5)).Run(ctx, 10, 10, 50, 3, 1000000)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, found)
}

func TestSingle(t *testing.T) {
	s := NewSampler(WithWorkers(2), seeded(11))

	p, ok, err := s.Single(context.Background(), 4, 6, 10, 10000)
	require.NoError(t, err)
	require.True(t, ok)
	checkPartition(t, p, 4, 6, 10)

	_, ok, err = s.Single(context.Background(), 4, 6, 10, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTargetRankSum(t *testing.T) {
	assert.Equal(t, 15, TargetRankSum(5, 0))
	assert.Equal(t, 28, TargetRankSum(5, 12.5))
	assert.Equal(t, 40, TargetRankSum(5, 25))
}

func TestDraw(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	swaps := make(map[int]int)
	group := make([]int, 4)

	for i := 0; i < 100; i++ {
		sum := draw(rng, swaps, 10, group)

		total := 0
		seen := make(map[int]bool)
		for _, r := range group {
			assert.False(t, seen[r])
			assert.GreaterOrEqual(t, r, 1)
			assert.LessOrEqual(t, r, 10)
			seen[r] = true
			total += r
		}
		assert.Equal(t, total, sum)
	}
}

func TestDrawWholePool(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	group := make([]int, 6)

	sum := draw(rng, make(map[int]int), 6, group)
	assert.Equal(t, 21, sum)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, group)
}

func TestDrawLargePool(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	swaps := make(map[int]int)
	group := make([]int, 3)

	for i := 0; i < 1000; i++ {
		draw(rng, swaps, 2000000000, group)
		assert.LessOrEqual(t, len(swaps), len(group))
		for _, r := range group {
			assert.GreaterOrEqual(t, r, 1)
			assert.LessOrEqual(t, r, 2000000000)
		}
	}
}

func TestRunLargeSecondGroup(t *testing.T) {
	s := NewSampler(WithWorkers(2), seeded(13))

	found, err := s.Run(context.Background(), 1, 5000000, 0, 1, 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(found), 1)
}
