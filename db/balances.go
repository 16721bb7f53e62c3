package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/jackc/pgx/v5"
)

// Balances is a single row of beacon_validators_balance: one validator
// balance snapshot, stored only as its sum.
type Balances struct {
	StateRoot string
	Timestamp time.Time
	GweiSum   beaconapi.Gwei
}

// StoreBalances inserts a new validator balances snapshot.
func StoreBalances(ctx context.Context, e Executor, stateRoot string, timestamp time.Time, sum beaconapi.Gwei) error {
	_, err := e.Exec(ctx, `
		INSERT INTO beacon_validators_balance (state_root, timestamp, gwei)
		VALUES ($1, $2, $3)
	`, stateRoot, timestamp, sum)
	if err != nil {
		return fmt.Errorf("store_balances: %w", err)
	}
	return nil
}

// GetBalancesByStateRoot returns the balances snapshot for stateRoot, if
// one was captured.
func GetBalancesByStateRoot(ctx context.Context, e Executor, stateRoot string) (*Balances, error) {
	row := e.QueryRow(ctx, `
		SELECT state_root, timestamp, gwei
		FROM beacon_validators_balance
		WHERE state_root = $1
	`, stateRoot)
	var b Balances
	if err := row.Scan(&b.StateRoot, &b.Timestamp, &b.GweiSum); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get_balances_by_state_root: %w", err)
	}
	return &b, nil
}

// DeleteBalance removes the balances row anchored at slot, if any.
func DeleteBalance(ctx context.Context, e Executor, slot slots.Slot) error {
	_, err := e.Exec(ctx, `
		DELETE FROM beacon_validators_balance v
		USING beacon_states s
		WHERE v.state_root = s.state_root AND s.slot = $1
	`, slot)
	if err != nil {
		return fmt.Errorf("delete_balance: %w", err)
	}
	return nil
}

// DeleteBalances removes every balances row anchored at slot >= floor.
func DeleteBalances(ctx context.Context, e Executor, floor slots.Slot) error {
	_, err := e.Exec(ctx, `
		DELETE FROM beacon_validators_balance v
		USING beacon_states s
		WHERE v.state_root = s.state_root AND s.slot >= $1
	`, floor)
	if err != nil {
		return fmt.Errorf("delete_balances: %w", err)
	}
	return nil
}

// MissingBalancesSlots returns every stored slot in [floor, ceiling] whose
// balances snapshot is missing, in ascending order. It applies no
// granularity filter; backfill applies the granularity predicate itself to
// the returned slots.
func MissingBalancesSlots(ctx context.Context, e Executor, floor, ceiling slots.Slot) ([]slots.Slot, error) {
	rows, err := e.Query(ctx, `
		SELECT s.slot
		FROM beacon_states s
		LEFT JOIN beacon_validators_balance v ON v.state_root = s.state_root
		WHERE s.slot >= $1 AND s.slot <= $2 AND v.state_root IS NULL
		ORDER BY s.slot ASC
	`, floor, ceiling)
	if err != nil {
		return nil, fmt.Errorf("missing_balances_slots: %w", err)
	}
	defer rows.Close()

	var out []slots.Slot
	for rows.Next() {
		var s slots.Slot
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("missing_balances_slots scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
