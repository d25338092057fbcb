package migrate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:migrate_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
}

func TestRunUpCreatesSchema(t *testing.T) {
	ctx := context.Background()
	sqlDB := openSQLite(t)

	require.NoError(t, Run(ctx, sqlDB, DialectSQLite, "up"))

	for _, table := range []string{"products", "orders", "order_lines", "users"} {
		var name string
		err := sqlDB.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoErrorf(t, err, "table %s missing", table)
	}

	version, err := Version(ctx, sqlDB, DialectSQLite)
	require.NoError(t, err)
	require.Equal(t, int64(20260302090200), version)

	_, err = sqlDB.ExecContext(ctx, "INSERT INTO products (id, name, category, price, stock) VALUES (?, 'Lamp', 'home', 10, -1)", uuid.NewString())
	require.Error(t, err, "negative stock must be rejected by the schema")
}

func TestMigrateToVersionDown(t *testing.T) {
	ctx := context.Background()
	sqlDB := openSQLite(t)

	require.NoError(t, Run(ctx, sqlDB, DialectSQLite, "up"))
	require.NoError(t, MigrateToVersion(ctx, sqlDB, DialectSQLite, "20260302090000"))

	version, err := Version(ctx, sqlDB, DialectSQLite)
	require.NoError(t, err)
	require.Equal(t, int64(20260302090000), version)

	require.Error(t, MigrateToVersion(ctx, sqlDB, DialectSQLite, "not-a-version"))
}

func TestCreateAndValidateDir(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Product SKU!", at)
	require.NoError(t, err)
	require.Equal(t, "20260304050607_add_product_sku.sql", filepath.Base(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "-- +goose Down"))

	_, err = CreateSQLMigration(dir, "add product sku", at)
	require.Error(t, err, "same version and name must not be overwritten")

	require.NoError(t, ValidateDir(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCreateRejectsEmptyName(t *testing.T) {
	_, err := CreateSQLMigration(t.TempDir(), "!!!", time.Now())
	require.Error(t, err)
}
