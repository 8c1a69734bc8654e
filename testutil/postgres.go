package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/onnwee/live-alerts/db"
)

// SetupTestDB opens the database named by TEST_PG_DSN, applies the schema and
// empties the alerts table. The test is skipped when TEST_PG_DSN is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres-backed test")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := database.Exec(`DELETE FROM alerts`); err != nil {
		t.Fatalf("clean alerts: %v", err)
	}
	return database
}
