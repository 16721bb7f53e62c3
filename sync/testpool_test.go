package sync

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/stretchr/testify/require"
)

// testPool opens a pool against TEST_DB_URL and truncates every table this
// package touches before handing it to the test, so each test starts from
// an empty store. Unlike the db package's per-query tests, the sync core
// manages its own transactions internally, so a single shared transaction
// isn't an option here; truncation is the isolation mechanism instead.
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
	pool, err := db.NewPool(ctx, dsn, "sync-test")
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		TRUNCATE beacon_issuance, beacon_validators_balance, beacon_blocks, beacon_states, key_value_store
	`)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}
