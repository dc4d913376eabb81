package db

import (
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrdered(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	require.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	require.Equal(t, uint(2), next)

	_, err = src.Next(next)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMigrationsHaveDownSteps(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	for _, version := range []uint{1, 2} {
		up, _, err := src.ReadUp(version)
		require.NoError(t, err)
		body, err := io.ReadAll(up)
		require.NoError(t, err)
		require.NoError(t, up.Close())
		require.Contains(t, string(body), "CREATE TABLE")

		down, _, err := src.ReadDown(version)
		require.NoError(t, err)
		require.NoError(t, down.Close())
	}
}

func TestCatalogSchemaMatchesQueries(t *testing.T) {
	body, err := fs.ReadFile(migrationsFS, "migrations/000001_catalog.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"products", "components", "product_component_options", "shipping_zones"} {
		require.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}

	body, err = fs.ReadFile(migrationsFS, "migrations/000002_orders.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(body), "PRIMARY KEY (order_id, line_no)")
}
