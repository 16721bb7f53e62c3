package backfill

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
	pool, err := db.NewPool(ctx, dsn, "backfill-test")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		TRUNCATE beacon_issuance, beacon_validators_balance, beacon_blocks, beacon_states, key_value_store
	`)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestGranularityMatches(t *testing.T) {
	require.True(t, GranularitySlot.Matches(7))
	require.False(t, GranularityEpoch.Matches(1))
	require.True(t, GranularityEpoch.Matches(32))
}

func TestJobRunFiltersByGranularity(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	client := beaconapi.NewMockClient()
	for s := slots.Slot(0); s < slots.SlotsPerEpoch*2; s++ {
		stateRoot := "0xs" + s.String()
		require.NoError(t, db.StoreState(ctx, pool, stateRoot, s))
		client.StateRoots[s] = stateRoot
		client.Balances[stateRoot] = []beaconapi.ValidatorBalance{{Index: "0", Balance: beaconapi.Gwei(s) + 1}}
	}

	job := NewJob(client, pool, GranularityEpoch)
	written, err := job.Run(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 2, written)

	b0, err := db.GetBalancesByStateRoot(ctx, pool, "0xs0")
	require.NoError(t, err)
	require.NotNil(t, b0)
	require.Equal(t, beaconapi.Gwei(1), b0.GweiSum)

	b1, err := db.GetBalancesByStateRoot(ctx, pool, "0xs1")
	require.NoError(t, err)
	require.Nil(t, b1)
}
