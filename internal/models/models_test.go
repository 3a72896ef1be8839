package models

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Saul-Punybz/scout/internal/config"
	"github.com/Saul-Punybz/scout/internal/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(context.Background(), config.DBConfig{
		URL: "sqlite:///" + filepath.Join(t.TempDir(), "scout.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func strPtr(s string) *string { return &s }
