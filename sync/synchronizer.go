package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/Rurutia1027/eth-analysis-backend/aggregate"
	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// BlockLagLimit is the tuning constant from §4.8: once the wall-clock gap
// between the live head and the slot being ingested exceeds this, the
// synchronizer skips the (expensive) validator balances fetch for that slot.
const BlockLagLimit = 5 * time.Minute

// Synchronizer commits a single slot's derived rows in one transaction,
// given the live state root already observed for it.
type Synchronizer struct {
	client        beaconapi.Client
	pool          *db.Pool
	blockLagLimit time.Duration
}

// NewSynchronizer builds a Synchronizer reading from client and writing to
// pool, using the default BlockLagLimit.
func NewSynchronizer(client beaconapi.Client, pool *db.Pool) *Synchronizer {
	return &Synchronizer{client: client, pool: pool, blockLagLimit: BlockLagLimit}
}

// WithBlockLagLimit overrides the default balances-skip threshold, e.g.
// from the BLOCK_LAG_LIMIT flag.
func (s *Synchronizer) WithBlockLagLimit(d time.Duration) *Synchronizer {
	if d > 0 {
		s.blockLagLimit = d
	}
	return s
}

// Sync commits one of: an anchor-only row (missed proposal), or an anchor
// plus block plus optional balances snapshot plus optional issuance row,
// for the slot S whose live state root was already observed as liveRoot.
func (s *Synchronizer) Sync(ctx context.Context, liveRoot string, slot slots.Slot) error {
	ctx, span := trace.StartSpan(ctx, "sync.Synchronizer.Sync")
	defer span.End()

	header, err := s.client.GetHeaderBySlot(ctx, slot)
	if err != nil {
		return fmt.Errorf("slot synchronizer: fetching header@%s: %w", slot, err)
	}

	recheck, err := s.client.GetStateRootBySlot(ctx, slot)
	if err != nil {
		return fmt.Errorf("slot synchronizer: rechecking live state root@%s: %w", slot, err)
	}
	if recheck == nil || *recheck != liveRoot {
		return &ReorgedDuringGather{Slot: slot.String()}
	}

	var block *beaconapi.Block
	if header != nil {
		block, err = s.client.GetBlockByBlockRoot(ctx, header.Root)
		if err != nil {
			return fmt.Errorf("slot synchronizer: fetching block@%s: %w", slot, err)
		}
		if block == nil {
			log.WithFields(log.Fields{"slot": slot, "block_root": header.Root}).
				Error("beacon node reported a header but no matching block")
			return fmt.Errorf("slot synchronizer: block %s@%s: %w", header.Root, slot, errBlockNotFound)
		}
	}

	fetchBalances := true
	lastHeader, err := s.client.GetLastHeader(ctx)
	if err != nil {
		return fmt.Errorf("slot synchronizer: fetching last header: %w", err)
	}
	lag := lastHeader.Header.Message.Slot.DateTime().Sub(slot.DateTime())
	if lag > s.blockLagLimit {
		fetchBalances = false
	}

	var balances []beaconapi.ValidatorBalance
	if fetchBalances {
		balances, err = s.client.GetValidatorBalances(ctx, liveRoot)
		if err != nil {
			return fmt.Errorf("slot synchronizer: fetching balances@%s: %w", slot, err)
		}
	}

	err = db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		if block == nil {
			return db.StoreState(ctx, tx, liveRoot, slot)
		}

		known, err := db.GetIsHashKnown(ctx, tx, block.ParentRoot)
		if err != nil {
			return err
		}
		if !known {
			return &MissingParent{ParentRoot: block.ParentRoot}
		}

		if err := db.StoreState(ctx, tx, liveRoot, slot); err != nil {
			return err
		}

		depositSum := aggregate.DepositSum(block)
		depositSumAggregated, err := aggregate.DepositSumAggregated(ctx, block, func(ctx context.Context, parentRoot string) (beaconapi.Gwei, error) {
			return db.GetDepositSumFromBlockRoot(ctx, tx, parentRoot)
		})
		if err != nil {
			return err
		}
		withdrawalSum := aggregate.WithdrawalSum(block)
		withdrawalSumAggregated, err := aggregate.WithdrawalSumAggregated(ctx, block, func(ctx context.Context, parentRoot string) (beaconapi.Gwei, error) {
			return db.GetWithdrawalSumFromBlockRoot(ctx, tx, parentRoot)
		})
		if err != nil {
			return err
		}

		if err := db.StoreBlock(ctx, tx, db.Block{
			BlockRoot:               block.BlockRoot,
			StateRoot:               liveRoot,
			ParentRoot:              block.ParentRoot,
			BlockHash:               block.BlockHash,
			DepositSum:              depositSum,
			DepositSumAggregated:    depositSumAggregated,
			WithdrawalSum:           withdrawalSum,
			WithdrawalSumAggregated: withdrawalSumAggregated,
		}); err != nil {
			return err
		}

		if fetchBalances {
			var balanceSum beaconapi.Gwei
			for _, b := range balances {
				balanceSum += b.Balance
			}
			timestamp := slot.DateTime()
			if err := db.StoreBalances(ctx, tx, liveRoot, timestamp, balanceSum); err != nil {
				return err
			}
			issuance := aggregate.Issuance(balanceSum, withdrawalSumAggregated, depositSumAggregated)
			if err := db.StoreIssuance(ctx, tx, liveRoot, timestamp, issuance); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"slot": slot, "state_root": liveRoot, "has_block": block != nil}).
		Info("slot synchronizer: committed slot")
	return nil
}
