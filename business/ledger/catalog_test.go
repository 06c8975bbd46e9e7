package ledger

import (
	"blockRewards/domain"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	raw := []byte(`
rewards:
  - name: Free Coffee
    description: Any size
    cost: 100
    stock: 25
  - name: Retired Mug
    cost: 300
    stock: 0
    active: false
`)

	rewards, err := ParseCatalog(raw)
	require.NoError(t, err)
	require.Len(t, rewards, 2)

	assert.Equal(t, domain.Reward{ID: 1, Name: "Free Coffee", Description: "Any size", Cost: 100, Stock: 25, IsActive: true}, rewards[0])
	assert.Equal(t, int64(2), rewards[1].ID)
	assert.False(t, rewards[1].IsActive)
}

func TestParseCatalogRejectsBadEntries(t *testing.T) {
	_, err := ParseCatalog([]byte("rewards:\n  - name: Broken\n    cost: -5\n"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ParseCatalog([]byte("rewards: [unclosed"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rewards:\n  - name: Sticker\n    cost: 5\n    stock: 100\n"), 0o600))

	rewards, err := LoadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, "Sticker", rewards[0].Name)

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
