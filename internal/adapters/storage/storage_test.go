package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBackends_Contract runs the same get/set behaviour against every driver.
func TestBackends_Contract(t *testing.T) {
	drivers := []struct {
		driver string
		path   func(t *testing.T) string
	}{
		{driver: DriverMemory, path: func(*testing.T) string { return "" }},
		{driver: DriverFile, path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "data", "quotes.json") }},
		{driver: DriverSQLite, path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "quotes.db") }},
	}

	for _, d := range drivers {
		t.Run(d.driver, func(t *testing.T) {
			ctx := context.Background()

			backend, err := Open(d.driver, d.path(t))
			require.NoError(t, err)

			t.Cleanup(func() { _ = backend.Close() })

			_, ok, err := backend.Get(ctx, "quotes")
			require.NoError(t, err)
			assert.False(t, ok, "unwritten key reports absent")

			require.NoError(t, backend.Set(ctx, "quotes", `[]`))
			require.NoError(t, backend.Set(ctx, "quotes", `[{"text":"A","category":"X"}]`))

			v, ok, err := backend.Get(ctx, "quotes")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"text":"A","category":"X"}]`, v)

			require.NoError(t, backend.Set(ctx, "lastSelectedCategory", ""))

			v, ok, err = backend.Get(ctx, "lastSelectedCategory")
			require.NoError(t, err)
			assert.True(t, ok, "empty string is a stored value")
			assert.Empty(t, v)

			assert.Equal(t, "storage", backend.Name())
			require.NoError(t, backend.Check(ctx))
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("redis", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage driver "redis"`)
}
