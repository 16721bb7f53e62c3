package sync

import (
	"context"
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/jackc/pgx/v5"
)

// RollbackSlots removes every derived row anchored at slot >= floor, in a
// single transaction, in the order the referential invariant requires:
// issuance, then balances, then blocks, then states.
func RollbackSlots(ctx context.Context, pool *db.Pool, floor slots.Slot) error {
	return db.WithTransaction(ctx, pool, func(tx pgx.Tx) error {
		if err := db.DeleteIssuances(ctx, tx, floor); err != nil {
			return fmt.Errorf("rollback_slots: %w", err)
		}
		if err := db.DeleteBalances(ctx, tx, floor); err != nil {
			return fmt.Errorf("rollback_slots: %w", err)
		}
		if err := db.DeleteBlocks(ctx, tx, floor); err != nil {
			return fmt.Errorf("rollback_slots: %w", err)
		}
		if err := db.DeleteStates(ctx, tx, floor); err != nil {
			return fmt.Errorf("rollback_slots: %w", err)
		}
		return nil
	})
}

// RollbackSlot is the single-slot specialization of RollbackSlots, used
// when only one anchor slot needs undoing.
func RollbackSlot(ctx context.Context, pool *db.Pool, slot slots.Slot) error {
	return db.WithTransaction(ctx, pool, func(tx pgx.Tx) error {
		if err := db.DeleteIssuance(ctx, tx, slot); err != nil {
			return fmt.Errorf("rollback_slot: %w", err)
		}
		if err := db.DeleteBalance(ctx, tx, slot); err != nil {
			return fmt.Errorf("rollback_slot: %w", err)
		}
		if err := db.DeleteBlock(ctx, tx, slot); err != nil {
			return fmt.Errorf("rollback_slot: %w", err)
		}
		if err := db.DeleteState(ctx, tx, slot); err != nil {
			return fmt.Errorf("rollback_slot: %w", err)
		}
		return nil
	})
}
