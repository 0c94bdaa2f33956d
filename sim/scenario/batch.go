package scenario

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// RunBatch runs n independent realizations of cfg with at most parallelism
// running at once (0 = unlimited). Each realization builds its own state
// and draws weather from its own RNG partition, so results do not depend
// on parallelism. Results are ordered by realization.
//
// opts apply to every realization, so they must not carry per-run mutable
// state: a WithSource source would be shared across goroutines.
func RunBatch(ctx context.Context, cfg Config, n, parallelism int, opts ...Option) ([]*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("realizations must be > 0, got %d", n)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]*Result, n)
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			runOpts := append(append([]Option(nil), opts...), WithRealization(i))
			s, err := NewSimulator(cfg, runOpts...)
			if err != nil {
				return fmt.Errorf("realization %d: %w", i, err)
			}
			res, err := s.Run(ctx)
			if err != nil {
				return fmt.Errorf("realization %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logrus.Infof("batch complete: %d realizations", n)
	return results, nil
}

// BatchSummary describes the spread of outcomes across realizations.
type BatchSummary struct {
	Realizations int

	MeanFinalVolume float64
	P10FinalVolume  float64
	P50FinalVolume  float64
	P90FinalVolume  float64

	MeanTotalSpill   float64
	SpillProbability float64 // share of realizations with any weir discharge
	MaxPeakLevel     float64
}

// SummarizeBatch aggregates results. Safe for an empty slice.
func SummarizeBatch(results []*Result) BatchSummary {
	bs := BatchSummary{Realizations: len(results)}
	if len(results) == 0 {
		return bs
	}

	finals := make([]float64, 0, len(results))
	spills := make([]float64, 0, len(results))
	spilled := 0
	for i, r := range results {
		finals = append(finals, r.FinalVolume)
		spills = append(spills, r.Summary.TotalSpill)
		if r.Summary.TotalSpill > 0 {
			spilled++
		}
		if i == 0 || r.Summary.PeakLevel > bs.MaxPeakLevel {
			bs.MaxPeakLevel = r.Summary.PeakLevel
		}
	}

	bs.MeanFinalVolume = stat.Mean(finals, nil)
	bs.MeanTotalSpill = stat.Mean(spills, nil)
	bs.SpillProbability = float64(spilled) / float64(len(results))

	sort.Float64s(finals)
	bs.P10FinalVolume = stat.Quantile(0.1, stat.Empirical, finals, nil)
	bs.P50FinalVolume = stat.Quantile(0.5, stat.Empirical, finals, nil)
	bs.P90FinalVolume = stat.Quantile(0.9, stat.Empirical, finals, nil)
	return bs
}
