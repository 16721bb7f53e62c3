package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/jackc/pgx/v5"
)

// State is a single row of beacon_states: the anchor entity every other
// table references by state_root.
type State struct {
	StateRoot string
	Slot      slots.Slot
}

// GetLastState returns the highest-slot stored state, or nil if the table
// is empty (a fresh indexer about to start from genesis).
func GetLastState(ctx context.Context, e Executor) (*State, error) {
	row := e.QueryRow(ctx, `
		SELECT state_root, slot
		FROM beacon_states
		ORDER BY slot DESC
		LIMIT 1
	`)
	var s State
	if err := row.Scan(&s.StateRoot, &s.Slot); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get_last_state: %w", err)
	}
	return &s, nil
}

// GetStateRootBySlot returns the stored state_root for slot, or nil if no
// state row exists for it yet.
func GetStateRootBySlot(ctx context.Context, e Executor, slot slots.Slot) (*string, error) {
	row := e.QueryRow(ctx, `
		SELECT state_root FROM beacon_states WHERE slot = $1
	`, slot)
	var root string
	if err := row.Scan(&root); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get_state_root_by_slot: %w", err)
	}
	return &root, nil
}

// GetIsHashKnown reports whether blockRoot is either the genesis sentinel
// or the block_root of some already-stored block.
func GetIsHashKnown(ctx context.Context, e Executor, blockRoot string) (bool, error) {
	if blockRoot == slots.GenesisParentRoot {
		return true, nil
	}
	row := e.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM beacon_blocks WHERE block_root = $1)
	`, blockRoot)
	var known bool
	if err := row.Scan(&known); err != nil {
		return false, fmt.Errorf("get_is_hash_known: %w", err)
	}
	return known, nil
}

// StoreState inserts a new beacon_states row.
func StoreState(ctx context.Context, e Executor, stateRoot string, slot slots.Slot) error {
	_, err := e.Exec(ctx, `
		INSERT INTO beacon_states (state_root, slot) VALUES ($1, $2)
	`, stateRoot, slot)
	if err != nil {
		return fmt.Errorf("store_state: %w", err)
	}
	return nil
}

// DeleteState removes the beacon_states row at slot, if any.
func DeleteState(ctx context.Context, e Executor, slot slots.Slot) error {
	_, err := e.Exec(ctx, `DELETE FROM beacon_states WHERE slot = $1`, slot)
	if err != nil {
		return fmt.Errorf("delete_state: %w", err)
	}
	return nil
}

// DeleteStates removes every beacon_states row with slot >= floor.
func DeleteStates(ctx context.Context, e Executor, floor slots.Slot) error {
	_, err := e.Exec(ctx, `DELETE FROM beacon_states WHERE slot >= $1`, floor)
	if err != nil {
		return fmt.Errorf("delete_states: %w", err)
	}
	return nil
}

// FindStateGaps returns every slot in [floor, ceiling] that has no
// beacon_states row at all — distinct from a missed proposal, which still
// has a state row but no block. Used by the gap-checking diagnostic job.
func FindStateGaps(ctx context.Context, e Executor, floor, ceiling slots.Slot) ([]slots.Slot, error) {
	rows, err := e.Query(ctx, `
		SELECT gap.slot
		FROM generate_series($1, $2) AS gap(slot)
		LEFT JOIN beacon_states s ON s.slot = gap.slot
		WHERE s.slot IS NULL
		ORDER BY gap.slot ASC
	`, floor, ceiling)
	if err != nil {
		return nil, fmt.Errorf("find_state_gaps: %w", err)
	}
	defer rows.Close()

	var out []slots.Slot
	for rows.Next() {
		var s slots.Slot
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("find_state_gaps scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
