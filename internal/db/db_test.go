package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"socialpulse/internal/models"
)

func TestOpenSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	conn, err := Open(DriverSQLite, dsn, zap.NewNop())
	require.NoError(t, err)

	for _, table := range []any{&models.User{}, &models.ContentItem{}, &models.Vote{}, &models.ReviewItem{}} {
		assert.True(t, conn.Migrator().HasTable(table))
	}
	assert.True(t, conn.Migrator().HasIndex(&models.Vote{}, "idx_vote_key"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "", zap.NewNop())
	assert.Error(t, err)
}
