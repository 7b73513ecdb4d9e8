package db_conn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames_Ordered(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"001_market_preferences.sql",
		"002_presence_shares.sql",
	}, names)
}

func TestMigrations_NoExplicitTransactions(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)

	for _, name := range names {
		b, err := MigrationsFS.ReadFile("migrations/" + name)
		require.NoError(t, err)

		upper := strings.ToUpper(string(b))
		assert.NotContains(t, upper, "BEGIN;", name)
		assert.NotContains(t, upper, "COMMIT;", name)
		assert.Contains(t, upper, "IF NOT EXISTS", name)
	}
}
