// Package simrank samples rank partitions that reproduce a reported
// Mann-Whitney U statistic. Finding at least one partition shows the
// statistic is attainable for the two group sizes.
package simrank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidGroupSize is returned when either group is empty.
	ErrInvalidGroupSize = errors.New("group sizes must be positive")

	// ErrTargetOutOfRange is returned when U lies outside [0, n1*n2].
	ErrTargetOutOfRange = errors.New("target U out of range")

	// ErrInvalidBudget is returned for a non-positive result count or a
	// negative trial budget.
	ErrInvalidBudget = errors.New("invalid sampling budget")
)

// Partition splits the ranks 1..n1+n2 into two groups. Group1 is sorted.
type Partition struct {
	Group1 []int   `json:"group1"`
	Group2 []int   `json:"group2"`
	U      float64 `json:"u"`
}

// RankSum returns the sum of the ranks in Group1.
func (p Partition) RankSum() float64 {
	data := make(stats.Float64Data, len(p.Group1))
	for i, r := range p.Group1 {
		data[i] = float64(r)
	}
	sum, err := stats.Sum(data)
	if err != nil {
		return 0
	}
	return sum
}

func (p Partition) key() string {
	var b strings.Builder
	for i, r := range p.Group1 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(r))
	}
	return b.String()
}

// Sampler draws random rank partitions over a pool of workers.
type Sampler struct {
	workers int
	source  func(worker int) rand.Source
	logger  *zap.Logger
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithWorkers sets the number of concurrent workers. Values below one fall
// back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSource sets the random source factory. Each worker calls it once with
// its own index.
func WithSource(source func(worker int) rand.Source) Option {
	return func(s *Sampler) {
		if source != nil {
			s.source = source
		}
	}
}

// WithLogger sets the logger used for run summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sampler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSampler creates a sampler with one worker per available CPU and a
// time-seeded source unless configured otherwise.
func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		workers: runtime.GOMAXPROCS(0),
		source: func(worker int) rand.Source {
			return rand.NewSource(time.Now().UnixNano() + int64(worker))
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TargetRankSum returns the Group1 rank sum that corresponds to uTarget.
func TargetRankSum(n1 int, uTarget float64) int {
	return int(math.Round(uTarget + float64(n1*(n1+1))/2))
}

func validate(n1, n2 int, uTarget float64) error {
	if n1 < 1 || n2 < 1 {
		return fmt.Errorf("n1=%d n2=%d: %w", n1, n2, ErrInvalidGroupSize)
	}
	if math.IsNaN(uTarget) || uTarget < 0 || uTarget > float64(n1*n2) {
		return fmt.Errorf("u=%g with n1=%d n2=%d: %w", uTarget, n1, n2, ErrTargetOutOfRange)
	}
	return nil
}

// Run spends at most maxIter trials looking for up to length distinct
// partitions whose Group1 rank sum matches uTarget. It never returns more
// than length partitions. If ctx is cancelled the partitions found so far
// are returned together with the context error.
func (s *Sampler) Run(ctx context.Context, n1, n2 int, uTarget float64, length, maxIter int) ([]Partition, error) {
	if err := validate(n1, n2, uTarget); err != nil {
		return nil, err
	}
	if length < 1 || maxIter < 0 {
		return nil, fmt.Errorf("length=%d maxIter=%d: %w", length, maxIter, ErrInvalidBudget)
	}

	target := TargetRankSum(n1, uTarget)
	total := n1 + n2

	var (
		budget atomic.Int64
		full   atomic.Bool
		mu     sync.Mutex
		found  = make([]Partition, 0, length)
		seen   = make(map[string]struct{}, length)
	)
	budget.Store(int64(maxIter))

	commit := func(p Partition) {
		mu.Lock()
		defer mu.Unlock()
		if len(found) >= length {
			return
		}
		k := p.key()
		if _, dup := seen[k]; dup {
			return
		}
		if p.RankSum() != float64(target) {
			return
		}
		seen[k] = struct{}{}
		found = append(found, p)
		if len(found) == length {
			full.Store(true)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.workers; w++ {
		rng := rand.New(s.source(w))
		g.Go(func() error {
			swaps := make(map[int]int, n1)
			group1 := make([]int, n1)
			for {
				if full.Load() {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				if budget.Add(-1) < 0 {
					return nil
				}

				if sum := draw(rng, swaps, total, group1); sum != target {
					continue
				}
				commit(newPartition(group1, total, uTarget))
			}
		})
	}
	err := g.Wait()

	mu.Lock()
	result := found
	mu.Unlock()

	used := int64(maxIter) - budget.Load()
	if used > int64(maxIter) {
		used = int64(maxIter)
	}
	s.logger.Debug("rank sampling finished",
		zap.String("op", "simrank.Run"),
		zap.Int("n1", n1),
		zap.Int("n2", n2),
		zap.Int("targetRankSum", target),
		zap.Int64("trials", used),
		zap.Int("found", len(result)),
	)

	return result, err
}

// Single looks for one partition matching uTarget. The boolean is false when
// the trial budget ran out first.
func (s *Sampler) Single(ctx context.Context, n1, n2 int, uTarget float64, maxIter int) (Partition, bool, error) {
	found, err := s.Run(ctx, n1, n2, uTarget, 1, maxIter)
	if err != nil {
		return Partition{}, false, err
	}
	if len(found) == 0 {
		return Partition{}, false, nil
	}
	return found[0], true, nil
}

// draw fills group with len(group) distinct ranks from 1..total and returns
// their sum. It runs a partial Fisher-Yates shuffle over a virtual pool, so
// only displaced positions are kept in swaps and a draw costs O(len(group)).
func draw(rng *rand.Rand, swaps map[int]int, total int, group []int) int {
	clear(swaps)
	at := func(pos int) int {
		if v, ok := swaps[pos]; ok {
			return v
		}
		return pos + 1
	}

	sum := 0
	for i := range group {
		j := i + rng.Intn(total-i)
		picked := at(j)
		swaps[j] = at(i)
		group[i] = picked
		sum += picked
	}
	return sum
}

func newPartition(group1 []int, total int, u float64) Partition {
	g1 := append([]int(nil), group1...)
	sort.Ints(g1)

	g2 := make([]int, 0, total-len(g1))
	next := 0
	for r := 1; r <= total; r++ {
		if next < len(g1) && g1[next] == r {
			next++
			continue
		}
		g2 = append(g2, r)
	}
	return Partition{Group1: g1, Group2: g2, U: u}
}
