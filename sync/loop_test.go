package sync

import (
	"context"
	"testing"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/stretchr/testify/require"
)

// addHeaderlessHeadSlot wires up a slot's header/block/state root (no
// balances) without
// touching LastHeader, so the node's reported head stays at whatever it was
// before — mirroring a slot that only becomes known once its head event
// arrives, as in scenario 1 of the sync loop's testable properties.
func addHeaderlessHeadSlot(client *beaconapi.MockClient, slot slots.Slot, blockRoot, stateRoot, parentRoot string) {
	savedHead := client.LastHeader
	client.AddSlot(slot, blockRoot, stateRoot, parentRoot, nil)
	client.LastHeader = savedHead
}

func TestLoopColdStartNoReorg(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	parent := slots.GenesisParentRoot
	for s := slots.Slot(0); s <= 9; s++ {
		blockRoot := "0xb" + s.String()
		stateRoot := "0xs" + s.String()
		client.AddSlot(s, blockRoot, stateRoot, parent, nil)
		parent = blockRoot
	}
	for s := slots.Slot(10); s <= 12; s++ {
		blockRoot := "0xb" + s.String()
		stateRoot := "0xs" + s.String()
		addHeaderlessHeadSlot(client, s, blockRoot, stateRoot, parent)
		parent = blockRoot
	}
	client.HeadEvents = []beaconapi.HeadEvent{{Slot: 10}, {Slot: 11}, {Slot: 12}}

	loop := NewLoop(client, pool)
	require.NoError(t, loop.Run(ctx))

	last, err := db.GetLastState(ctx, pool)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, slots.Slot(12), last.Slot)

	block, err := db.GetBlockBySlot(ctx, pool, 12)
	require.NoError(t, err)
	require.NotNil(t, block)
}

func TestLoopMissedProposal(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	parent := slots.GenesisParentRoot
	for _, s := range []slots.Slot{0, 1, 2} {
		blockRoot := "0xb" + s.String()
		stateRoot := "0xs" + s.String()
		client.AddSlot(s, blockRoot, stateRoot, parent, nil)
		parent = blockRoot
	}
	client.AddMissedSlot(3, "0xs3")
	client.HeadEvents = []beaconapi.HeadEvent{{Slot: 3}}

	loop := NewLoop(client, pool)
	require.NoError(t, loop.Run(ctx))

	root, err := db.GetStateRootBySlot(ctx, pool, 3)
	require.NoError(t, err)
	require.NotNil(t, root)

	block, err := db.GetBlockBySlot(ctx, pool, 3)
	require.NoError(t, err)
	require.Nil(t, block)
}

func TestLoopRollbackAndReenqueueOnGuardFailure(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	client.AddSlot(0, "0xb0", "0xs0", slots.GenesisParentRoot, nil)
	client.AddSlot(1, "0xb1", "0xs1", "0xb0", nil)

	loop := NewLoop(client, pool)
	require.NoError(t, loop.step(ctx, 0))
	require.NoError(t, loop.step(ctx, 1))

	// the node now reports a different state root for slot 1 (reorg),
	// observed via a replayed head event for the same slot.
	client.AddSlot(1, "0xb1-new", "0xs1-new", "0xb0", nil)

	require.NoError(t, loop.step(ctx, 1))

	// the stale slot-1 row was rolled back; the ancestor (slot 0) is still
	// the highest stored state until the queued retry lands.
	last, err := db.GetLastState(ctx, pool)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, slots.Slot(0), last.Slot)
	require.Equal(t, []slots.Slot{1}, loop.queue)

	require.NoError(t, loop.step(ctx, loop.queue[0]))
	loop.queue = loop.queue[1:]

	root, err := db.GetStateRootBySlot(ctx, pool, 1)
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Equal(t, "0xs1-new", *root)
}
