package backfill

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimit is the default bound on in-flight validator-balances
// fetches during a backfill run, overridable per Job.
const ConcurrencyLimit = 32

// Job backfills validator-balances snapshots for slots matching a
// granularity boundary, starting at a given slot, up to the highest
// currently stored state.
type Job struct {
	client           beaconapi.Client
	pool             *db.Pool
	granularity      Granularity
	concurrencyLimit int64
}

// NewJob builds a backfill Job with the default concurrency limit.
func NewJob(client beaconapi.Client, pool *db.Pool, granularity Granularity) *Job {
	return &Job{client: client, pool: pool, granularity: granularity, concurrencyLimit: ConcurrencyLimit}
}

// WithConcurrencyLimit overrides the default fan-out cap, e.g. from the
// GET_BALANCES_CONCURRENCY_LIMIT flag.
func (j *Job) WithConcurrencyLimit(n int) *Job {
	if n > 0 {
		j.concurrencyLimit = int64(n)
	}
	return j
}

// Run processes every slot from start through the highest stored state
// whose balances snapshot is missing and which matches the job's
// granularity, fetching and writing each with fan-out capped at the job's
// concurrency limit (ConcurrencyLimit unless overridden). It returns the
// number of snapshots successfully written.
func (j *Job) Run(ctx context.Context, start slots.Slot) (int, error) {
	last, err := db.GetLastState(ctx, j.pool)
	if err != nil {
		return 0, fmt.Errorf("backfill: determining ceiling: %w", err)
	}
	if last == nil {
		log.Info("backfill: no stored states, nothing to do")
		return 0, nil
	}

	missing, err := db.MissingBalancesSlots(ctx, j.pool, start, last.Slot)
	if err != nil {
		return 0, fmt.Errorf("backfill: listing missing balances slots: %w", err)
	}

	var targets []slots.Slot
	for _, s := range missing {
		if j.granularity.Matches(s) {
			targets = append(targets, s)
		}
	}
	log.WithFields(log.Fields{
		"granularity": j.granularity,
		"start":       start,
		"candidates":  len(missing),
		"targets":     len(targets),
	}).Info("backfill: starting run")

	sem := semaphore.NewWeighted(j.concurrencyLimit)
	group, gctx := errgroup.WithContext(ctx)
	var written int64

	for _, slot := range targets {
		slot := slot
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		group.Go(func() error {
			defer sem.Release(1)
			if err := j.backfillSlot(gctx, slot); err != nil {
				return fmt.Errorf("backfill: slot %s: %w", slot, err)
			}
			n := atomic.AddInt64(&written, 1)
			log.WithFields(log.Fields{"slot": slot, "progress": n, "of": len(targets)}).
				Info("backfill: wrote balances snapshot")
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return int(atomic.LoadInt64(&written)), err
	}
	return int(atomic.LoadInt64(&written)), nil
}

func (j *Job) backfillSlot(ctx context.Context, slot slots.Slot) error {
	stateRoot, err := db.GetStateRootBySlot(ctx, j.pool, slot)
	if err != nil {
		return err
	}
	if stateRoot == nil {
		return fmt.Errorf("no stored state at slot %s", slot)
	}

	balances, err := j.client.GetValidatorBalances(ctx, *stateRoot)
	if err != nil {
		return err
	}

	var sum beaconapi.Gwei
	for _, b := range balances {
		sum += b.Balance
	}

	return db.StoreBalances(ctx, j.pool, *stateRoot, slot.DateTime(), sum)
}
