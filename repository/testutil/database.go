package testutil

import (
	"context"
	"testing"

	"betbot/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const postgresImage = "postgres:16-alpine"

// JournalDB starts a throwaway postgres, migrates it to the latest journal
// schema and returns a pool. Everything is torn down with the test.
func JournalDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("journal tests need docker")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("betbot_journal"),
		postgres.WithUsername("betbot"),
		postgres.WithPassword("betbot"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{"betbot.test": t.Name()}),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrationsWithURL(url))

	db, err := database.NewConnection(ctx, url, 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}
