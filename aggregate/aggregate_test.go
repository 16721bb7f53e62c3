package aggregate

import (
	"context"
	"testing"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositSum(t *testing.T) {
	block := &beaconapi.Block{Deposits: []beaconapi.Deposit{{Amount: 1}, {Amount: 2}}}
	assert.Equal(t, beaconapi.Gwei(3), DepositSum(block))
}

func TestDepositSumAggregatedGenesis(t *testing.T) {
	block := &beaconapi.Block{Slot: slots.GenesisSlot, Deposits: []beaconapi.Deposit{{Amount: 5}}}
	lookup := func(ctx context.Context, parentRoot string) (beaconapi.Gwei, error) {
		t.Fatal("genesis block must not look up a parent")
		return 0, nil
	}
	sum, err := DepositSumAggregated(context.Background(), block, lookup)
	require.NoError(t, err)
	assert.Equal(t, beaconapi.Gwei(5), sum)
}

func TestDepositSumAggregatedNonGenesis(t *testing.T) {
	block := &beaconapi.Block{Slot: 10, ParentRoot: "0xparent", Deposits: []beaconapi.Deposit{{Amount: 1}}}
	lookup := func(ctx context.Context, parentRoot string) (beaconapi.Gwei, error) {
		assert.Equal(t, "0xparent", parentRoot)
		return 9, nil
	}
	sum, err := DepositSumAggregated(context.Background(), block, lookup)
	require.NoError(t, err)
	assert.Equal(t, beaconapi.Gwei(10), sum)
}

func TestWithdrawalSumZeroWhenAbsent(t *testing.T) {
	block := &beaconapi.Block{}
	assert.Equal(t, beaconapi.Gwei(0), WithdrawalSum(block))
}

func TestWithdrawalSumAggregatedBeforeShapella(t *testing.T) {
	block := &beaconapi.Block{Slot: slots.ShapellaSlot - 1, ParentRoot: "0xparent"}
	lookup := func(ctx context.Context, parentRoot string) (beaconapi.Gwei, error) {
		t.Fatal("pre-Shapella blocks must not look up a parent withdrawal sum")
		return 0, nil
	}
	sum, err := WithdrawalSumAggregated(context.Background(), block, lookup)
	require.NoError(t, err)
	assert.Equal(t, beaconapi.Gwei(0), sum)
}

func TestWithdrawalSumAggregatedAtAndAfterShapella(t *testing.T) {
	block := &beaconapi.Block{
		Slot:        slots.ShapellaSlot,
		ParentRoot:  "0xparent",
		Withdrawals: []beaconapi.Withdrawal{{Amount: 3}},
	}
	lookup := func(ctx context.Context, parentRoot string) (beaconapi.Gwei, error) {
		return 7, nil
	}
	sum, err := WithdrawalSumAggregated(context.Background(), block, lookup)
	require.NoError(t, err)
	assert.Equal(t, beaconapi.Gwei(10), sum)
}

func TestIssuance(t *testing.T) {
	assert.Equal(t, beaconapi.Gwei(15), Issuance(10, 10, 5))
}
