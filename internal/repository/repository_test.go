package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/models"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and applies schema.sql.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run postgres tests")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("schema.sql")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(schema))
	require.NoError(t, err, "failed to apply schema")

	return db
}

func TestRepository_Rates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	_, err := repo.LatestRate(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &models.KeyRate{Series: 4389, Date: day(10), Rate: decimal.RequireFromString("10.40")}
	require.NoError(t, repo.SaveRate(ctx, first))
	assert.NotZero(t, first.ID)

	require.NoError(t, repo.SaveRate(ctx, &models.KeyRate{Series: 4389, Date: day(12), Rate: decimal.RequireFromString("10.65")}))

	latest, err := repo.LatestRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4389, latest.Series)
	assert.True(t, latest.Rate.Equal(decimal.RequireFromString("10.65")))
	assert.Equal(t, "2024-03-12", latest.Date.Format("2006-01-02"))

	// same series and date overwrites
	require.NoError(t, repo.SaveRate(ctx, &models.KeyRate{Series: 4389, Date: day(12), Rate: decimal.RequireFromString("10.90")}))
	latest, err = repo.LatestRate(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Rate.Equal(decimal.RequireFromString("10.90")))
}
