package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/stretchr/testify/require"
)

func TestSynchronizerWritesAnchorBlockAndBalances(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	client.AddSlot(0, "0xb0", "0xs0", slots.GenesisParentRoot, []beaconapi.ValidatorBalance{{Index: "0", Balance: 42}})

	s := NewSynchronizer(client, pool)
	require.NoError(t, s.Sync(ctx, "0xs0", 0))

	state, err := db.GetLastState(ctx, pool)
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Equal(t, slots.Slot(0), state.Slot)

	block, err := db.GetBlockBySlot(ctx, pool, 0)
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, beaconapi.Gwei(0), block.DepositSumAggregated)

	balances, err := db.GetBalancesByStateRoot(ctx, pool, "0xs0")
	require.NoError(t, err)
	require.NotNil(t, balances)
	require.Equal(t, beaconapi.Gwei(42), balances.GweiSum)
}

func TestSynchronizerMissedProposalWritesAnchorOnly(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	client.AddMissedSlot(3, "0xs3")

	s := NewSynchronizer(client, pool)
	require.NoError(t, s.Sync(ctx, "0xs3", 3))

	block, err := db.GetBlockBySlot(ctx, pool, 3)
	require.NoError(t, err)
	require.Nil(t, block)

	root, err := db.GetStateRootBySlot(ctx, pool, 3)
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Equal(t, "0xs3", *root)
}

func TestSynchronizerReportsReorgedDuringGather(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	client.AddSlot(0, "0xb0", "0xs0-new", slots.GenesisParentRoot, nil)

	s := NewSynchronizer(client, pool)
	err := s.Sync(ctx, "0xs0-stale", 0)

	var reorged *ReorgedDuringGather
	require.True(t, errors.As(err, &reorged))
}

func TestSynchronizerMissingParentIsFatal(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	client.AddSlot(1, "0xb1", "0xs1", "0xunknown-parent", nil)

	s := NewSynchronizer(client, pool)
	err := s.Sync(ctx, "0xs1", 1)

	var missing *MissingParent
	require.True(t, errors.As(err, &missing))
}

func TestSynchronizerAggregatesFromParent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	client.AddSlot(0, "0xb0", "0xs0", slots.GenesisParentRoot, nil)
	client.Blocks["0xb0"] = beaconapi.Block{
		Slot: 0, ParentRoot: slots.GenesisParentRoot, StateRoot: "0xs0", BlockRoot: "0xb0",
		Deposits: []beaconapi.Deposit{{Amount: 5}},
	}
	client.AddSlot(1, "0xb1", "0xs1", "0xb0", nil)
	client.Blocks["0xb1"] = beaconapi.Block{
		Slot: 1, ParentRoot: "0xb0", StateRoot: "0xs1", BlockRoot: "0xb1",
		Deposits: []beaconapi.Deposit{{Amount: 3}},
	}

	s := NewSynchronizer(client, pool)
	require.NoError(t, s.Sync(ctx, "0xs0", 0))
	require.NoError(t, s.Sync(ctx, "0xs1", 1))

	block, err := db.GetBlockBySlot(ctx, pool, 1)
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, beaconapi.Gwei(8), block.DepositSumAggregated)
}
