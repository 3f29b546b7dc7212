package proof

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rankproof/rankproof/internal/models"
	"github.com/rankproof/rankproof/internal/serp"
)

// JointDeadline bounds the whole fan-out. If it fires before all three
// source calls settle, the request fails as a timeout; no partial score is
// ever produced from a timed-out aggregation.
const JointDeadline = 24 * time.Second

// SignalFetcher is the slice of the SERP client the aggregator needs.
type SignalFetcher interface {
	FetchOrganic(ctx context.Context, keyword string) (*serp.OrganicResult, error)
	FetchRankHistory(ctx context.Context, keyword string) ([]serp.RankObservation, error)
	FetchFeatures(ctx context.Context, keyword string) (*serp.FeatureScan, error)
	Available() bool
}

// Signals is the settled output of one aggregation. Fields left at their
// zero value are the documented neutral defaults for a failed source call.
type Signals struct {
	Ranking  models.RankingSnapshot
	Trend    models.TrendSnapshot
	Features models.FeatureSnapshot
	// CostUnits counts the source calls that succeeded.
	CostUnits int
}

// settleTask is one bounded fan-out participant. run either fills its
// signal or fails; failure is absorbed into the neutral default unless the
// joint deadline already fired.
type settleTask struct {
	name string
	run  func(ctx context.Context) error
}

// settleAll runs every task concurrently under one deadline and waits for
// all of them to settle. It returns the number of tasks that succeeded,
// and a non-nil error only when the joint deadline cut the group short.
func settleAll(ctx context.Context, deadline time.Duration, tasks []settleTask) (int, error) {
	aggCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	g, gctx := errgroup.WithContext(aggCtx)

	var mu sync.Mutex
	succeeded := 0

	for _, t := range tasks {
		t := t
		g.Go(func() error {
			err := t.run(gctx)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			log.Warn().Str("source", t.name).Err(err).Msg("Source call failed, using neutral default")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return succeeded, err
	}
	return succeeded, nil
}

// aggregate fans out the three signal fetches and joins them. Per-call
// retries and timeouts live inside the fetcher; only the joint deadline
// can fail the aggregation as a whole.
func (e *Engine) aggregate(ctx context.Context, domain, keyword string) (*Signals, error) {
	signals := &Signals{}

	tasks := []settleTask{
		{
			name: "ranking",
			run: func(ctx context.Context) error {
				result, err := e.serp.FetchOrganic(ctx, keyword)
				if err != nil {
					return err
				}
				signals.Ranking = serp.ExtractRanking(domain, result)
				return nil
			},
		},
		{
			name: "trend",
			run: func(ctx context.Context) error {
				observations, err := e.serp.FetchRankHistory(ctx, keyword)
				if err != nil {
					return err
				}
				signals.Trend = serp.ExtractTrend(domain, observations)
				return nil
			},
		},
		{
			name: "features",
			run: func(ctx context.Context) error {
				scan, err := e.serp.FetchFeatures(ctx, keyword)
				if err != nil {
					return err
				}
				signals.Features = serp.ExtractFeatures(scan)
				return nil
			},
		},
	}

	succeeded, err := settleAll(ctx, e.jointDeadline, tasks)
	signals.CostUnits = succeeded
	if err != nil {
		return nil, err
	}
	return signals, nil
}
