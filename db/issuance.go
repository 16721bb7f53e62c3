package db

import (
	"context"
	"time"

	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
)

// StoreIssuance inserts a new issuance row. Only written when a balances
// snapshot was also captured for the slot.
func StoreIssuance(ctx context.Context, e Executor, stateRoot string, timestamp time.Time, gwei beaconapi.Gwei) error {
	_, err := e.Exec(ctx, `
		INSERT INTO beacon_issuance (state_root, timestamp, gwei)
		VALUES ($1, $2, $3)
	`, stateRoot, timestamp, gwei)
	if err != nil {
		return fmt.Errorf("store_issuance: %w", err)
	}
	return nil
}

// DeleteIssuance removes the issuance row anchored at slot, if any.
func DeleteIssuance(ctx context.Context, e Executor, slot slots.Slot) error {
	_, err := e.Exec(ctx, `
		DELETE FROM beacon_issuance i
		USING beacon_states s
		WHERE i.state_root = s.state_root AND s.slot = $1
	`, slot)
	if err != nil {
		return fmt.Errorf("delete_issuance: %w", err)
	}
	return nil
}

// DeleteIssuances removes every issuance row anchored at slot >= floor.
func DeleteIssuances(ctx context.Context, e Executor, floor slots.Slot) error {
	_, err := e.Exec(ctx, `
		DELETE FROM beacon_issuance i
		USING beacon_states s
		WHERE i.state_root = s.state_root AND s.slot >= $1
	`, floor)
	if err != nil {
		return fmt.Errorf("delete_issuances: %w", err)
	}
	return nil
}
