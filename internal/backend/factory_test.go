package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedash/internal/config"
	"invoicedash/internal/core"
	"invoicedash/internal/records/recordstest"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://x"})
	require.NoError(t, err)
	assert.Equal(t, PostgresBackend, cfg.Type)
	assert.Equal(t, "postgres://x", cfg.DatabaseURL)

	_, err = FromAppConfig(&config.Config{DataBackend: "oracle"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: PostgresBackend}.Validate())
	assert.Error(t, Config{Type: "oracle"}.Validate())
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	tests := []struct {
		name   string
		config Config
	}{
		{"memory", Config{Type: MemoryBackend}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "dash.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.config)
			require.NoError(t, err)
			defer res.Close()

			assert.Equal(t, tt.config.Type, res.Type)
			require.NoError(t, res.Backend.Ping(ctx))
			require.NoError(t, res.Backend.Load(ctx, recordstest.Dataset()))

			n, err := res.Backend.CountInvoices(ctx, core.InvoiceCriteria{})
			require.NoError(t, err)
			assert.Equal(t, 5, n)
		})
	}

	_, err := f.CreateBackend(ctx, Config{Type: PostgresBackend})
	assert.Error(t, err)

	_, err = f.CreateBackend(ctx, Config{Type: MemoryBackend, FixturePath: filepath.Join(t.TempDir(), "typo.json")})
	assert.ErrorContains(t, err, "typo.json")
}

func TestBackendResult_CloseWithoutCleanup(t *testing.T) {
	var res *BackendResult
	assert.NoError(t, res.Close())
	assert.NoError(t, (&BackendResult{}).Close())
}
