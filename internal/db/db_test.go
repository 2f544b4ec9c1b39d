package db

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(&Credentials{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRunMigrations_IsRepeatable(t *testing.T) {
	conn := openMemory(t)

	require.NoError(t, RunMigrations(conn, DriverSQLite))
	require.NoError(t, RunMigrations(conn, DriverSQLite))

	for _, table := range []string{"products", "orders", "order_items", "outbox_events"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestRunMigrations_UnknownDriver(t *testing.T) {
	conn := openMemory(t)
	assert.Error(t, RunMigrations(conn, "mysql"))
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openMemory(t)
	require.NoError(t, RunMigrations(conn, DriverSQLite))

	insert := `INSERT INTO products (name, slug, price) VALUES ($1, $2, $3)`
	_, err := conn.Exec(insert, "Camiseta", "camiseta", "100")
	require.NoError(t, err)

	_, err = conn.Exec(insert, "Camiseta 2", "camiseta", "120")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
