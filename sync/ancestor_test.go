package sync

import (
	"context"
	"testing"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/stretchr/testify/require"
)

func TestFindAncestorAgreesAtCandidate(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	require.NoError(t, db.StoreState(ctx, pool, "0xs3", slots.Slot(3)))

	client := beaconapi.NewMockClient()
	client.AddMissedSlot(3, "0xs3")

	ancestor, err := FindAncestor(ctx, pool, client, 3)
	require.NoError(t, err)
	require.Equal(t, slots.Slot(3), ancestor)
}

func TestFindAncestorWalksBackOnMismatch(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	require.NoError(t, db.StoreState(ctx, pool, "0xs17", slots.Slot(17)))
	require.NoError(t, db.StoreState(ctx, pool, "0xs18-stale", slots.Slot(18)))

	client := beaconapi.NewMockClient()
	client.AddMissedSlot(17, "0xs17")
	client.AddMissedSlot(18, "0xs18-live")

	ancestor, err := FindAncestor(ctx, pool, client, 18)
	require.NoError(t, err)
	require.Equal(t, slots.Slot(17), ancestor)
}

func TestFindAncestorNotFoundAtGenesis(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	client.AddMissedSlot(0, "0xsomething-else")

	_, err := FindAncestor(ctx, pool, client, 0)
	require.ErrorIs(t, err, ErrAncestorNotFound)
}
