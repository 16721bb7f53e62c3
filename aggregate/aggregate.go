// Package aggregate holds the pure sum functions the slot synchronizer
// needs to compute a block's running deposit/withdrawal totals and the
// derived issuance figure. Each aggregated sum has exactly one external
// dependency: looking up the parent's running total.
package aggregate

import (
	"context"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
)

// ParentDepositLookup resolves the aggregated deposit sum stored on the
// block identified by parentRoot.
type ParentDepositLookup func(ctx context.Context, parentRoot string) (beaconapi.Gwei, error)

// ParentWithdrawalLookup resolves the aggregated withdrawal sum stored on
// the block identified by parentRoot.
type ParentWithdrawalLookup func(ctx context.Context, parentRoot string) (beaconapi.Gwei, error)

// DepositSum sums a block's own deposits, with no parent lookup.
func DepositSum(block *beaconapi.Block) beaconapi.Gwei {
	var sum beaconapi.Gwei
	for _, d := range block.Deposits {
		sum += d.Amount
	}
	return sum
}

// DepositSumAggregated computes a block's running deposit total: the
// genesis block contributes zero parent total, every other block adds its
// own deposit sum to its parent's aggregated total.
func DepositSumAggregated(ctx context.Context, block *beaconapi.Block, lookupParent ParentDepositLookup) (beaconapi.Gwei, error) {
	var parentSum beaconapi.Gwei
	if block.Slot != slots.GenesisSlot {
		sum, err := lookupParent(ctx, block.ParentRoot)
		if err != nil {
			return 0, err
		}
		parentSum = sum
	}
	return parentSum + DepositSum(block), nil
}

// WithdrawalSum sums a block's own withdrawals. Zero for a pre-Shapella
// block, which carries no withdrawals field at all.
func WithdrawalSum(block *beaconapi.Block) beaconapi.Gwei {
	var sum beaconapi.Gwei
	for _, w := range block.Withdrawals {
		sum += w.Amount
	}
	return sum
}

// WithdrawalSumAggregated computes a block's running withdrawal total.
// Blocks before the Shapella fork slot contribute a zero parent total
// regardless of what their parent's stored aggregate says, since
// withdrawals did not exist yet.
func WithdrawalSumAggregated(ctx context.Context, block *beaconapi.Block, lookupParent ParentWithdrawalLookup) (beaconapi.Gwei, error) {
	var parentSum beaconapi.Gwei
	if block.Slot >= slots.ShapellaSlot {
		sum, err := lookupParent(ctx, block.ParentRoot)
		if err != nil {
			return 0, err
		}
		parentSum = sum
	}
	return parentSum + WithdrawalSum(block), nil
}

// Issuance computes the derived issuance identity: balances plus
// aggregated withdrawals minus aggregated deposits.
func Issuance(balancesSum, withdrawalSumAggregated, depositSumAggregated beaconapi.Gwei) beaconapi.Gwei {
	return balancesSum + withdrawalSumAggregated - depositSumAggregated
}
