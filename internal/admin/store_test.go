package admin

import (
	"clinicadmin/pkg/domain"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllReplacesItems(t *testing.T) {
	remote := newFakeRemote("GST", "VAT")
	store := NewStore[domain.TaxGroup](remote)

	items, err := store.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)

	st := store.State()
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
	assert.Equal(t, "GST", st.Items[0].Name)
}

func TestFetchFailureKeepsPreviousItems(t *testing.T) {
	remote := newFakeRemote("GST")
	store := NewStore[domain.TaxGroup](remote)
	_, err := store.FetchAll(context.Background())
	require.NoError(t, err)

	remote.listErr = errBoom
	_, err = store.FetchAll(context.Background())
	require.ErrorIs(t, err, errBoom)

	st := store.State()
	assert.ErrorIs(t, st.Err, errBoom)
	require.Len(t, st.Items, 1)

	remote.listErr = nil
	_, err = store.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NoError(t, store.State().Err)
}

func TestMutationsDoNotTouchItems(t *testing.T) {
	remote := newFakeRemote("GST")
	store := NewStore[domain.TaxGroup](remote)
	ctx := context.Background()
	_, err := store.FetchAll(ctx)
	require.NoError(t, err)

	created, err := store.Create(ctx, domain.TaxGroup{Name: "VAT"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)
	assert.Len(t, store.State().Items, 1)

	_, err = store.Update(ctx, 1, domain.TaxGroup{Name: "IGST"})
	require.NoError(t, err)
	assert.Equal(t, "GST", store.State().Items[0].Name)

	require.NoError(t, store.Delete(ctx, 1))
	assert.Len(t, store.State().Items, 1)

	_, err = store.FetchAll(ctx)
	require.NoError(t, err)
	st := store.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "VAT", st.Items[0].Name)

	assert.ErrorIs(t, store.Delete(ctx, 42), domain.ErrNotFound)
	_, err = store.Update(ctx, 42, domain.TaxGroup{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// gatedRemote lets a test release List calls in a chosen order.
type gatedRemote struct {
	*fakeRemote
	gates chan chan []domain.TaxGroup
}

func (g *gatedRemote) List(context.Context) ([]domain.TaxGroup, error) {
	gate := make(chan []domain.TaxGroup)
	g.gates <- gate
	return <-gate, nil
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	remote := &gatedRemote{fakeRemote: newFakeRemote(), gates: make(chan chan []domain.TaxGroup)}
	store := NewStore[domain.TaxGroup](remote)
	ctx := context.Background()

	var olderDone, newerDone sync.WaitGroup
	results := make([]error, 2)
	olderDone.Add(1)
	go func() {
		defer olderDone.Done()
		_, results[0] = store.FetchAll(ctx)
	}()
	older := <-remote.gates

	newerDone.Add(1)
	go func() {
		defer newerDone.Done()
		_, results[1] = store.FetchAll(ctx)
	}()
	newer := <-remote.gates

	newer <- []domain.TaxGroup{{Base: domain.Base{ID: 1}, Name: "fresh"}}
	newerDone.Wait()
	older <- []domain.TaxGroup{{Base: domain.Base{ID: 1}, Name: "stale"}}
	olderDone.Wait()

	assert.ErrorIs(t, results[0], ErrStaleFetch)
	assert.NoError(t, results[1])
	st := store.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "fresh", st.Items[0].Name)
	assert.False(t, st.Loading)
}

func TestFetchAuxiliary(t *testing.T) {
	calls := 0
	store := NewStore[domain.TaxGroup](newFakeRemote(), WithAuxiliary(func(context.Context) (Lookup, error) {
		calls++
		if calls == 2 {
			return nil, errBoom
		}
		return Lookup{7: "Dr. Rao"}, nil
	}))
	assert.True(t, store.HasAuxiliary())

	aux, err := store.FetchAuxiliary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rao", aux[7])

	_, err = store.FetchAuxiliary(context.Background())
	require.ErrorIs(t, err, errBoom)
	st := store.State()
	assert.ErrorIs(t, st.AuxErr, errBoom)
	assert.Equal(t, "Dr. Rao", st.Aux[7])
	assert.NoError(t, st.Err)
}

func TestFetchAuxiliaryWithoutSource(t *testing.T) {
	store := NewStore[domain.TaxGroup](newFakeRemote())
	assert.False(t, store.HasAuxiliary())
	aux, err := store.FetchAuxiliary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, aux)
}
