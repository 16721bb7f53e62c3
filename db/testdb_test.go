package db

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// testTx opens a transaction against TEST_DB_URL and rolls it back when the
// test completes, so every test runs against a clean, isolated slice of
// real Postgres without needing per-test cleanup SQL. Skips the test (not
// the package) when no test database is configured, matching how this
// module's integration tests are meant to run in CI.
func testTx(t *testing.T) pgx.Tx {
	t.Helper()

	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set, skipping integration test")
	}
	if !strings.Contains(dsn, "testdb") {
		t.Fatalf("refusing to run against TEST_DB_URL that does not contain 'testdb': %s", dsn)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = tx.Rollback(ctx)
		_ = conn.Close(ctx)
	})

	return tx
}
