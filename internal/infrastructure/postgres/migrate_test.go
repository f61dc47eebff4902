package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_ContienenRestricciones(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/00001_ledger_schema.sql")
	require.NoError(t, err)
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS movement_events",
		"CHECK (quantity > 0)",
		"BEFORE UPDATE OR DELETE ON movement_events",
		"PRIMARY KEY (tenant_id, product_id, business_date)",
		"CREATE UNIQUE INDEX IF NOT EXISTS " + openTransferIndex,
		"WHERE status IN ('Pending','InTransit')",
		"PRIMARY KEY (session_id, tag_label)",
		"-- +goose Down",
	}
	for _, sub := range checks {
		assert.True(t, strings.Contains(content, sub), "falta %q", sub)
	}
}
