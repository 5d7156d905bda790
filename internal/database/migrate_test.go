//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/atento/internal/database"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "atento_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/atento_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	dsn := startPostgres(t)

	db, err := database.OpenSQL(context.Background(), dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Up runs migrations successfully", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "atento_test")
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Up())

		assertTableExists(t, db, "sessions")
		assertTableExists(t, db, "session_logs")
		assertTableExists(t, db, "webhook_queue")
	})

	t.Run("Up is idempotent", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "atento_test")
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Up())
	})

	t.Run("Version returns the latest migration", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "atento_test")
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty, "migration should not be dirty")
		assert.Equal(t, uint(2), version)
	})

	t.Run("session_logs cascade with their session", func(t *testing.T) {
		var id string
		err := db.QueryRow(`
			INSERT INTO sessions (id, name, config, started_at)
			VALUES (gen_random_uuid(), 'exam', '{}', NOW())
			RETURNING id
		`).Scan(&id)
		require.NoError(t, err)

		_, err = db.Exec(`
			INSERT INTO session_logs (session_id, frame_index, recorded_at, attentive_count, total_faces, cheating_flag_count)
			VALUES ($1, 1, NOW(), 1, 2, 1)
		`, id)
		require.NoError(t, err)

		_, err = db.Exec("DELETE FROM sessions WHERE id = $1", id)
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM session_logs WHERE session_id = $1", id).Scan(&count))
		assert.Equal(t, 0, count, "log rows should be deleted via CASCADE")
	})

	t.Run("Down rolls back one migration", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "atento_test")
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Down())

		version, _, err := migrator.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
	})
}

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)

	require.NoError(t, err)
	assert.True(t, exists, "table %s should exist", tableName)
}
