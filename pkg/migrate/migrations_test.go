package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/stockdesk-backend/pkg/migrate"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	require.NoError(t, migrate.ValidateFS(migrate.Embedded()))

	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
}

func TestProductsMigrationGuardsStockCounters(t *testing.T) {
	content := readMigration(t, "create_products")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (total_stock >= 0)",
		"CHECK (reserved_stock >= 0 AND reserved_stock <= total_stock)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_tenant_sku ON products (tenant_id, sku)",
		"CREATE TABLE IF NOT EXISTS stock_adjustments",
	} {
		require.Contains(t, content, sub)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"status order_status NOT NULL DEFAULT 'draft'",
		"CHECK (quantity > 0)",
		"CHECK (line_total_cents = quantity * unit_price_cents)",
		"CREATE TABLE IF NOT EXISTS order_status_history",
	} {
		require.Contains(t, content, sub)
	}
}

func TestDealsMigrationBoundsRemainingQuantity(t *testing.T) {
	content := readMigration(t, "create_deals")
	require.Contains(t, content, "CHECK (quantity_remaining >= 0 AND quantity_remaining <= quantity_total)")
	require.Contains(t, content, "idx_deal_tiers_deal_min_quantity")
}

func TestAlertsMigrationAllowsOneActiveAlertPerProduct(t *testing.T) {
	content := readMigration(t, "create_alerts")
	require.Contains(t, content, "ON alerts (product_id) WHERE status <> 'resolved'")
}

func TestEveryMigrationHasDownSection(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, path := range matches {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		down := strings.SplitN(string(data), "-- +goose Down", 2)
		require.Len(t, down, 2, "%s has no down section", path)
		require.Contains(t, down[1], "DROP", "%s down section drops nothing", path)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Deal Notes!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_deal_notes.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestCreateSQLMigrationStaysAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	future := "29991231235959_far_future.sql"
	require.NoError(t, os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	first, err := migrate.CreateSQLMigration(dir, "next")
	require.NoError(t, err)
	require.Equal(t, "30000101000000_next.sql", filepath.Base(first))

	second, err := migrate.CreateSQLMigration(dir, "next")
	require.NoError(t, err)
	require.Equal(t, "30000101000001_next.sql", filepath.Base(second))
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}
