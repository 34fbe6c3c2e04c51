package services

import (
	"database/sql"
	"testing"

	"activity-plan-service/internal/adapters/repositories"
	"activity-plan-service/internal/platform/db"
)

func openSQL(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := repositories.InitSchema(conn); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return conn
}
