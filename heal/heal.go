// Package heal drives the auxiliary block_hash backfill job: it scans
// blocks whose block_hash is still NULL (pre-merge blocks have none, and a
// node may omit it transiently), re-fetches each by its stored block_root,
// and fills in the execution payload's block_hash.
package heal

import (
	"context"
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	log "github.com/sirupsen/logrus"
)

// JobName identifies this job's checkpoint in the key_value_store table.
const JobName = "heal-block-hashes"

// checkpointEvery controls how often progress is persisted, trading a
// small amount of redone work on crash against not writing on every row.
const checkpointEvery = 100

// batchSize is how many NULL-block_hash rows are pulled per round trip.
const batchSize = 500

// Job fills in NULL block_hash rows, resuming from its last checkpoint.
type Job struct {
	client beaconapi.Client
	pool   *db.Pool
}

// NewJob builds a heal Job.
func NewJob(client beaconapi.Client, pool *db.Pool) *Job {
	return &Job{client: client, pool: pool}
}

// Run scans forward from the job's last checkpoint (or genesis, on a first
// run) until no NULL block_hash rows remain past its scan position, and
// returns the number of rows healed. A row whose block still has no
// block_hash upstream is passed over; the checkpoint advances past it, so
// later runs do not revisit it.
func (j *Job) Run(ctx context.Context) (int, error) {
	floor, err := j.startSlot(ctx)
	if err != nil {
		return 0, err
	}

	healed := 0
	for {
		rows, err := db.BlockHashNullSlots(ctx, j.pool, floor, batchSize)
		if err != nil {
			return healed, fmt.Errorf("heal: listing null block_hash rows: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			block, err := j.client.GetBlockByBlockRoot(ctx, row.BlockRoot)
			if err != nil {
				return healed, fmt.Errorf("heal: fetching block %s: %w", row.BlockRoot, err)
			}
			if block == nil || block.BlockHash == nil {
				log.WithFields(log.Fields{"slot": row.Slot, "block_root": row.BlockRoot}).
					Debug("heal: block still has no block_hash upstream, skipping")
				floor = row.Slot.Add(1)
				continue
			}

			if err := db.UpdateBlockHash(ctx, j.pool, row.BlockRoot, *block.BlockHash); err != nil {
				return healed, fmt.Errorf("heal: updating block_hash for %s: %w", row.BlockRoot, err)
			}
			healed++
			floor = row.Slot.Add(1)

			if healed%checkpointEvery == 0 {
				if err := db.SetJobProgress(ctx, j.pool, JobName, floor); err != nil {
					return healed, fmt.Errorf("heal: checkpointing: %w", err)
				}
				log.WithField("healed", healed).Info("heal: checkpoint")
			}
		}
	}

	if err := db.SetJobProgress(ctx, j.pool, JobName, floor); err != nil {
		return healed, fmt.Errorf("heal: final checkpoint: %w", err)
	}
	log.WithField("healed", healed).Info("heal: run complete")
	return healed, nil
}

func (j *Job) startSlot(ctx context.Context) (slots.Slot, error) {
	progress, err := db.GetJobProgress(ctx, j.pool, JobName)
	if err != nil {
		return 0, fmt.Errorf("heal: reading checkpoint: %w", err)
	}
	if progress == nil {
		return slots.GenesisSlot, nil
	}
	return *progress, nil
}
