package sqlite

import (
	"clinicadmin/pkg/domain"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReloadsPersistedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "admin.db")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	ctx := context.Background()
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		group, err := tx.Create(domain.EntityTaxGroup, map[string]any{"name": "GST"})
		if err != nil {
			return err
		}
		_, err = tx.Create(domain.EntityTax, map[string]any{"name": "CGST", "group_id": group.ID, "percentage": 6})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	taxes := reopened.List(domain.EntityTax)
	require.Len(t, taxes, 1)
	assert.Equal(t, "CGST", taxes[0].Text("name"))
	groupID, ok := taxes[0].Int("group_id")
	require.True(t, ok)
	assert.Equal(t, int64(1), groupID)

	_, err = reopened.RunInTransaction(ctx, func(tx domain.Transaction) error {
		doc, err := tx.Create(domain.EntityTaxGroup, map[string]any{"name": "IGST"})
		assert.Equal(t, int64(2), doc.ID)
		return err
	})
	require.NoError(t, err)
}

func TestStoreSkipsPersistOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.db")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.Delete(domain.EntityForm, 1)
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	var count int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count))
	assert.Zero(t, count)
}
