package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	log "github.com/sirupsen/logrus"
)

// progressLogEvery controls how often the loop emits an info-level progress
// line while steadily ingesting, so a long-running process doesn't go
// silent without also spamming the log on every single slot.
const progressLogEvery = 100

// Loop is the sole writer driving slot ingestion: it pulls slots off the
// stream and a FIFO re-enqueue queue, checks the parent-agreement guard,
// and dispatches to either the slot synchronizer or the rollback path.
type Loop struct {
	client       beaconapi.Client
	pool         *db.Pool
	synchronizer *Synchronizer
	queue        []slots.Slot
}

// NewLoop builds a Loop reading from client and writing to pool.
func NewLoop(client beaconapi.Client, pool *db.Pool) *Loop {
	return &Loop{
		client:       client,
		pool:         pool,
		synchronizer: NewSynchronizer(client, pool),
	}
}

// WithBlockLagLimit overrides the synchronizer's balances-skip threshold,
// e.g. from the BLOCK_LAG_LIMIT flag.
func (l *Loop) WithBlockLagLimit(d time.Duration) *Loop {
	l.synchronizer.WithBlockLagLimit(d)
	return l
}

// StartSlot returns the next slot to sync: one past the highest stored
// state, or genesis if the store is empty.
func (l *Loop) StartSlot(ctx context.Context) (slots.Slot, error) {
	last, err := db.GetLastState(ctx, l.pool)
	if err != nil {
		return 0, fmt.Errorf("sync loop: determining start slot: %w", err)
	}
	if last == nil {
		return slots.GenesisSlot, nil
	}
	return last.Slot.Add(1), nil
}

// Run drives the loop until ctx is cancelled, the slot stream closes, or a
// fatal error occurs. A clean cancellation or a closed stream returns nil;
// anything else is a fatal error the caller
// should treat as a reason to exit non-zero (an outer orchestrator restarts
// the process, resuming from the durable last-stored checkpoint).
func (l *Loop) Run(ctx context.Context) error {
	start, err := l.StartSlot(ctx)
	if err != nil {
		return err
	}

	stream := NewSlotStream(l.client)
	slotCh, streamErrs := stream.Start(ctx, start)

	processed := 0
	for {
		if len(l.queue) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case err, ok := <-streamErrs:
				if !ok {
					// a nil channel blocks forever, so once the error
					// side closes cleanly, disable this case and rely on
					// slotCh closing to end the loop.
					streamErrs = nil
					continue
				}
				if err != nil {
					return fmt.Errorf("sync loop: %w", err)
				}
			case slot, ok := <-slotCh:
				if !ok {
					log.Warn("sync loop: slot stream closed, exiting")
					return nil
				}
				l.queue = append(l.queue, slot)
			}
			continue
		}

		slot := l.queue[0]
		l.queue = l.queue[1:]

		if err := l.step(ctx, slot); err != nil {
			return err
		}

		processed++
		if processed%progressLogEvery == 0 {
			log.WithField("slot", slot).Info("sync loop: progress")
		}
	}
}

// step processes a single popped slot: the guard-and-dispatch logic of
// §4.9 step 2 onward.
func (l *Loop) step(ctx context.Context, slot slots.Slot) error {
	liveRoot, err := l.client.GetStateRootBySlot(ctx, slot)
	if err != nil {
		return fmt.Errorf("sync loop: fetching live state root@%s: %w", slot, err)
	}
	if liveRoot == nil {
		return fmt.Errorf("sync loop: %w: %s", ErrLiveStateRootMissing, slot)
	}

	storedRoot, err := db.GetStateRootBySlot(ctx, l.pool, slot)
	if err != nil {
		return fmt.Errorf("sync loop: fetching stored state root@%s: %w", slot, err)
	}

	okParent, err := l.parentAgrees(ctx, slot)
	if err != nil {
		return err
	}

	if storedRoot == nil && okParent {
		err := l.synchronizer.Sync(ctx, *liveRoot, slot)
		var reorged *ReorgedDuringGather
		if errors.As(err, &reorged) {
			log.WithField("slot", slot).Warn("sync loop: reorged during gather, rolling back")
			return l.rollbackAndReenqueue(ctx, slot)
		}
		return err
	}

	log.WithFields(log.Fields{"slot": slot, "stored_known": storedRoot != nil, "ok_parent": okParent}).
		Warn("sync loop: guard failed, rolling back")
	return l.rollbackAndReenqueue(ctx, slot)
}

// parentAgrees implements the ok_parent guard: true at genesis, otherwise
// true iff the stored and live state roots at S-1 both exist and agree.
func (l *Loop) parentAgrees(ctx context.Context, slot slots.Slot) (bool, error) {
	if slot == slots.GenesisSlot {
		return true, nil
	}
	prior := slot.Sub(1)
	stored, err := db.GetStateRootBySlot(ctx, l.pool, prior)
	if err != nil {
		return false, fmt.Errorf("sync loop: fetching stored state root@%s: %w", prior, err)
	}
	live, err := l.client.GetStateRootBySlot(ctx, prior)
	if err != nil {
		return false, fmt.Errorf("sync loop: fetching live state root@%s: %w", prior, err)
	}
	return stored != nil && live != nil && *stored == *live, nil
}

// rollbackAndReenqueue finds the common ancestor below slot, rolls back
// everything stored after it, and pushes the ancestor's successor through
// slot onto the front of the queue for immediate retry.
func (l *Loop) rollbackAndReenqueue(ctx context.Context, slot slots.Slot) error {
	ancestor, err := FindAncestor(ctx, l.pool, l.client, slot.Sub(1))
	if err != nil {
		return fmt.Errorf("sync loop: %w", err)
	}

	floor := ancestor.Add(1)
	if err := RollbackSlots(ctx, l.pool, floor); err != nil {
		return fmt.Errorf("sync loop: rollback_slots(%s): %w", floor, err)
	}

	reenqueued := make([]slots.Slot, 0, int(slot-floor)+1)
	for s := floor; s <= slot; s++ {
		reenqueued = append(reenqueued, s)
	}
	l.queue = append(reenqueued, l.queue...)

	log.WithFields(log.Fields{"ancestor": ancestor, "floor": floor, "through": slot}).
		Info("sync loop: rolled back and re-enqueued")
	return nil
}
