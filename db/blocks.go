package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/jackc/pgx/v5"
)

// Block is a single row of beacon_blocks. BlockHash is nil until either the
// beacon node supplied one at insert time or the heal job backfilled it.
type Block struct {
	BlockRoot               string
	StateRoot               string
	ParentRoot              string
	BlockHash               *string
	DepositSum              beaconapi.Gwei
	DepositSumAggregated    beaconapi.Gwei
	WithdrawalSum           beaconapi.Gwei
	WithdrawalSumAggregated beaconapi.Gwei
}

// StoreBlock inserts a new beacon_blocks row. The caller has already
// computed the aggregated sums via the aggregate package.
func StoreBlock(ctx context.Context, e Executor, b Block) error {
	_, err := e.Exec(ctx, `
		INSERT INTO beacon_blocks
			(block_root, state_root, parent_root, block_hash,
			 deposit_sum, deposit_sum_aggregated,
			 withdrawal_sum, withdrawal_sum_aggregated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.BlockRoot, b.StateRoot, b.ParentRoot, b.BlockHash,
		b.DepositSum, b.DepositSumAggregated, b.WithdrawalSum, b.WithdrawalSumAggregated)
	if err != nil {
		return fmt.Errorf("store_block: %w", err)
	}
	return nil
}

// GetDepositSumFromBlockRoot returns the aggregated deposit sum stored on
// the block identified by blockRoot; used to seed a child block's
// aggregate from its parent.
func GetDepositSumFromBlockRoot(ctx context.Context, e Executor, blockRoot string) (beaconapi.Gwei, error) {
	row := e.QueryRow(ctx, `
		SELECT deposit_sum_aggregated FROM beacon_blocks WHERE block_root = $1
	`, blockRoot)
	var sum beaconapi.Gwei
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("get_deposit_sum_from_block_root: %w", err)
	}
	return sum, nil
}

// GetWithdrawalSumFromBlockRoot returns the aggregated withdrawal sum
// stored on the block identified by blockRoot.
func GetWithdrawalSumFromBlockRoot(ctx context.Context, e Executor, blockRoot string) (beaconapi.Gwei, error) {
	row := e.QueryRow(ctx, `
		SELECT withdrawal_sum_aggregated FROM beacon_blocks WHERE block_root = $1
	`, blockRoot)
	var sum beaconapi.Gwei
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("get_withdrawal_sum_from_block_root: %w", err)
	}
	return sum, nil
}

// UpdateBlockHash fills in a previously-NULL block_hash. Used by the heal
// job only; every other field is immutable after insert.
func UpdateBlockHash(ctx context.Context, e Executor, blockRoot, blockHash string) error {
	_, err := e.Exec(ctx, `
		UPDATE beacon_blocks SET block_hash = $1 WHERE block_root = $2
	`, blockHash, blockRoot)
	if err != nil {
		return fmt.Errorf("update_block_hash: %w", err)
	}
	return nil
}

// GetBlockBySlot is an analytics read joining beacon_states to
// beacon_blocks by slot. Returns nil if the slot has no block (missed
// proposal or not yet synced).
func GetBlockBySlot(ctx context.Context, e Executor, slot slots.Slot) (*Block, error) {
	row := e.QueryRow(ctx, `
		SELECT b.block_root, b.state_root, b.parent_root, b.block_hash,
		       b.deposit_sum, b.deposit_sum_aggregated,
		       b.withdrawal_sum, b.withdrawal_sum_aggregated
		FROM beacon_blocks b
		JOIN beacon_states s ON s.state_root = b.state_root
		WHERE s.slot = $1
	`, slot)
	var b Block
	if err := row.Scan(&b.BlockRoot, &b.StateRoot, &b.ParentRoot, &b.BlockHash,
		&b.DepositSum, &b.DepositSumAggregated, &b.WithdrawalSum, &b.WithdrawalSumAggregated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get_block_by_slot: %w", err)
	}
	return &b, nil
}

// GetBlockBeforeSlot returns the most recent block strictly before slot.
func GetBlockBeforeSlot(ctx context.Context, e Executor, slot slots.Slot) (*Block, error) {
	row := e.QueryRow(ctx, `
		SELECT b.block_root, b.state_root, b.parent_root, b.block_hash,
		       b.deposit_sum, b.deposit_sum_aggregated,
		       b.withdrawal_sum, b.withdrawal_sum_aggregated
		FROM beacon_blocks b
		JOIN beacon_states s ON s.state_root = b.state_root
		WHERE s.slot < $1
		ORDER BY s.slot DESC
		LIMIT 1
	`, slot)
	var b Block
	if err := row.Scan(&b.BlockRoot, &b.StateRoot, &b.ParentRoot, &b.BlockHash,
		&b.DepositSum, &b.DepositSumAggregated, &b.WithdrawalSum, &b.WithdrawalSumAggregated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get_block_before_slot: %w", err)
	}
	return &b, nil
}

// DeleteBlock removes the beacon_blocks row anchored at slot, if any.
func DeleteBlock(ctx context.Context, e Executor, slot slots.Slot) error {
	_, err := e.Exec(ctx, `
		DELETE FROM beacon_blocks b
		USING beacon_states s
		WHERE b.state_root = s.state_root AND s.slot = $1
	`, slot)
	if err != nil {
		return fmt.Errorf("delete_block: %w", err)
	}
	return nil
}

// DeleteBlocks removes every beacon_blocks row anchored at slot >= floor.
func DeleteBlocks(ctx context.Context, e Executor, floor slots.Slot) error {
	_, err := e.Exec(ctx, `
		DELETE FROM beacon_blocks b
		USING beacon_states s
		WHERE b.state_root = s.state_root AND s.slot >= $1
	`, floor)
	if err != nil {
		return fmt.Errorf("delete_blocks: %w", err)
	}
	return nil
}

// BlockHashNullSlots returns up to limit slots whose block_hash is still
// NULL, ordered by slot ascending, starting at or after floor. Used by the
// heal job.
func BlockHashNullSlots(ctx context.Context, e Executor, floor slots.Slot, limit int) ([]struct {
	Slot      slots.Slot
	BlockRoot string
}, error) {
	rows, err := e.Query(ctx, `
		SELECT s.slot, b.block_root
		FROM beacon_blocks b
		JOIN beacon_states s ON s.state_root = b.state_root
		WHERE b.block_hash IS NULL AND s.slot >= $1
		ORDER BY s.slot ASC
		LIMIT $2
	`, floor, limit)
	if err != nil {
		return nil, fmt.Errorf("block_hash_null_slots: %w", err)
	}
	defer rows.Close()

	var out []struct {
		Slot      slots.Slot
		BlockRoot string
	}
	for rows.Next() {
		var item struct {
			Slot      slots.Slot
			BlockRoot string
		}
		if err := rows.Scan(&item.Slot, &item.BlockRoot); err != nil {
			return nil, fmt.Errorf("block_hash_null_slots scan: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
