package postgres

import (
	"blockRewards/domain"
	"blockRewards/pkg/database"
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestKVRepository(t *testing.T) *KVRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))

	return NewKVRepository(db)
}

func TestKVRepositoryMissingKey(t *testing.T) {
	repo := newTestKVRepository(t)

	_, err := repo.Get(context.Background(), domain.KeyUsers)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestKVRepositoryUpsert(t *testing.T) {
	repo := newTestKVRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, domain.KeyCatalog, []byte(`[1]`)))
	require.NoError(t, repo.Put(ctx, domain.KeyCatalog, []byte(`[1,2]`)))

	val, err := repo.Get(ctx, domain.KeyCatalog)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(val))

	var count int64
	require.NoError(t, repo.DB.Model(&domain.KVEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
