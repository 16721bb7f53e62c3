package heal

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *db.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set, skipping integration test")
	}
	if !strings.Contains(dsn, "testdb") {
		t.Fatalf("refusing to run against TEST_DB_URL that does not contain 'testdb': %s", dsn)
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn, "heal-test")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		TRUNCATE beacon_issuance, beacon_validators_balance, beacon_blocks, beacon_states, key_value_store
	`)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestJobFillsNullBlockHashes(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	require.NoError(t, db.StoreState(ctx, pool, "0xs0", slots.Slot(0)))
	require.NoError(t, db.StoreBlock(ctx, pool, db.Block{
		BlockRoot:  "0xb0",
		StateRoot:  "0xs0",
		ParentRoot: slots.GenesisParentRoot,
		BlockHash:  nil,
	}))

	hash := "0xhash0"
	client := beaconapi.NewMockClient()
	client.Blocks["0xb0"] = beaconapi.Block{
		Slot: 0, BlockRoot: "0xb0", ParentRoot: slots.GenesisParentRoot, StateRoot: "0xs0", BlockHash: &hash,
	}

	job := NewJob(client, pool)
	healed, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, healed)

	block, err := db.GetBlockBySlot(ctx, pool, 0)
	require.NoError(t, err)
	require.NotNil(t, block.BlockHash)
	require.Equal(t, hash, *block.BlockHash)

	progress, err := db.GetJobProgress(ctx, pool, JobName)
	require.NoError(t, err)
	require.NotNil(t, progress)
	require.Equal(t, slots.Slot(1), *progress)
}

func TestJobSkipsStillMissingHashes(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	require.NoError(t, db.StoreState(ctx, pool, "0xs1", slots.Slot(1)))
	require.NoError(t, db.StoreBlock(ctx, pool, db.Block{
		BlockRoot:  "0xb1",
		StateRoot:  "0xs1",
		ParentRoot: slots.GenesisParentRoot,
		BlockHash:  nil,
	}))

	client := beaconapi.NewMockClient()
	client.Blocks["0xb1"] = beaconapi.Block{
		Slot: 1, BlockRoot: "0xb1", ParentRoot: slots.GenesisParentRoot, StateRoot: "0xs1", BlockHash: nil,
	}

	job := NewJob(client, pool)
	healed, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, healed)

	block, err := db.GetBlockBySlot(ctx, pool, 1)
	require.NoError(t, err)
	require.Nil(t, block.BlockHash)
}
