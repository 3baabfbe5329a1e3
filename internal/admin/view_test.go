package admin

import (
	"clinicadmin/pkg/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type supply struct {
	domain.Base
	Name     string `json:"name" validate:"notblank"`
	Quantity int    `json:"quantity"`
}

func TestFilterAndReverse(t *testing.T) {
	desc := Descriptor[supply]{
		Search: func(s supply, _ Lookup) []string { return []string{s.Name} },
	}
	items := []supply{
		{Base: domain.Base{ID: 1}, Name: "Saline", Quantity: 10},
		{Base: domain.Base{ID: 2}, Name: "Paracetamol", Quantity: 5},
	}

	found := desc.Filter(items, nil, "para")
	require.Len(t, found, 1)
	assert.Equal(t, int64(2), found[0].ID)

	assert.Equal(t, items, desc.Filter(items, nil, ""))
	assert.Empty(t, desc.Filter(items, nil, "   "))
	assert.Empty(t, desc.Filter(items, nil, "para "))
	assert.Len(t, desc.Filter(items, nil, "PARA"), 1)
	assert.Len(t, desc.Filter(items, nil, "SALINE"), 1)
	assert.Empty(t, desc.Filter(items, nil, "zinc"))

	reversed := Reverse(items)
	assert.Equal(t, []int64{2, 1}, []int64{reversed[0].ID, reversed[1].ID})
	assert.Equal(t, items, Reverse(reversed))
	assert.Equal(t, int64(1), items[0].ID)
}

func TestFilterUsesAuxiliaryLabels(t *testing.T) {
	desc := Descriptor[domain.Tax]{
		Search: func(tx domain.Tax, aux Lookup) []string { return []string{tx.Name, aux[tx.GroupID]} },
	}
	items := []domain.Tax{{Base: domain.Base{ID: 1}, Name: "CGST", GroupID: 3}}
	assert.Len(t, desc.Filter(items, Lookup{3: "Goods and Services"}, "services"), 1)
	assert.Empty(t, desc.Filter(items, Lookup{}, "services"))
}

func newTaxGroupView(t *testing.T, names ...string) (*View[domain.TaxGroup], *fakeRemote, *recorder) {
	t.Helper()
	remote := newFakeRemote(names...)
	rec := &recorder{}
	view := NewView(taxGroupDescriptor(), NewStore[domain.TaxGroup](remote), WithNotifier(rec))
	require.NoError(t, view.Load(context.Background()))
	return view, remote, rec
}

func TestRowsAreNewestFirst(t *testing.T) {
	view, _, _ := newTaxGroupView(t, "GST", "VAT", "Cess")
	rows := view.Rows("")
	require.Len(t, rows, 3)
	assert.Equal(t, "Cess", rows[0].Name)
	assert.Equal(t, "GST", view.Store().State().Items[0].Name)
	assert.Equal(t, rows, view.Rows(""))
}

func TestSubmitCreateRefetches(t *testing.T) {
	view, remote, rec := newTaxGroupView(t, "GST")
	ctx := context.Background()

	require.NoError(t, view.OpenCreate())
	require.NoError(t, view.SetField("name", "VAT"))
	saved, err := view.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.ID)

	_, open := view.Form()
	assert.False(t, open)
	assert.Equal(t, 1, remote.creates)
	assert.Equal(t, LevelSuccess, rec.last().Level)
	assert.Equal(t, "Tax Group added successfully", rec.last().Message)

	items := view.Store().State().Items
	require.Len(t, items, 2)
	assert.Equal(t, "VAT", items[1].Name)
}

func TestSubmitUpdateKeepsID(t *testing.T) {
	view, remote, _ := newTaxGroupView(t, "GST", "VAT")
	ctx := context.Background()

	require.NoError(t, view.OpenEdit(2))
	form, ok := view.Form()
	require.True(t, ok)
	assert.Equal(t, ModeEdit, form.Mode)
	assert.Equal(t, "VAT", form.Draft.Name)

	require.NoError(t, view.SetField("name", "vat"))
	_, err := view.Submit(ctx)
	require.NoError(t, err, "renaming a record to its own name in another case is allowed")
	assert.Equal(t, 1, remote.updates)

	items := view.Store().State().Items
	assert.Equal(t, int64(2), items[1].ID)
	assert.Equal(t, "vat", items[1].Name)

	assert.ErrorIs(t, view.OpenEdit(99), domain.ErrNotFound)
}

func TestDuplicateNameFailsLocally(t *testing.T) {
	view, remote, rec := newTaxGroupView(t, "gst")

	require.NoError(t, view.OpenCreate())
	require.NoError(t, view.SetField("name", "GST"))
	_, err := view.Submit(context.Background())

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("name", domain.RuleUnique))
	assert.Zero(t, remote.creates)
	assert.Equal(t, LevelError, rec.last().Level)
	assert.Equal(t, "Tax Group name already exists", rec.last().Message)

	form, ok := view.Form()
	require.True(t, ok)
	assert.Equal(t, FormOpen, form.Status)
	assert.Equal(t, "GST", form.Draft.Name)
}

func TestRequiredFieldsFailLocally(t *testing.T) {
	view, remote, rec := newTaxGroupView(t)

	require.NoError(t, view.OpenCreate())
	_, err := view.Submit(context.Background())
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("name", "notblank"))
	assert.Zero(t, remote.creates)
	assert.Contains(t, rec.last().Message, "name")
}

func TestRemoteFailureKeepsFormOpen(t *testing.T) {
	view, remote, rec := newTaxGroupView(t)
	remote.saveErr = errBoom

	require.NoError(t, view.OpenCreate())
	require.NoError(t, view.SetField("name", "GST"))
	_, err := view.Submit(context.Background())
	require.ErrorIs(t, err, errBoom)

	form, ok := view.Form()
	require.True(t, ok)
	assert.Equal(t, FormOpen, form.Status)
	assert.Equal(t, "GST", form.Draft.Name)
	assert.Contains(t, rec.last().Message, "Failed to save tax group")
	assert.Empty(t, view.Store().State().Items)
}

func TestSecondSubmitFailsFast(t *testing.T) {
	view, remote, _ := newTaxGroupView(t)
	remote.block = make(chan struct{})

	require.NoError(t, view.OpenCreate())
	require.NoError(t, view.SetField("name", "GST"))

	done := make(chan error, 1)
	go func() {
		_, err := view.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		form, ok := view.Form()
		return ok && form.Status == FormSubmitting
	}, time.Second, time.Millisecond)

	_, err := view.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.ErrorIs(t, view.SetField("name", "VAT"), ErrSubmitInFlight)

	close(remote.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, remote.creates)
}

func TestFormCannotBeReplacedWhileSubmitting(t *testing.T) {
	view, remote, _ := newTaxGroupView(t, "VAT")
	remote.block = make(chan struct{})

	require.NoError(t, view.OpenCreate())
	require.NoError(t, view.SetField("name", "GST"))

	done := make(chan error, 1)
	go func() {
		_, err := view.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		form, ok := view.Form()
		return ok && form.Status == FormSubmitting
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, view.OpenCreate(), ErrSubmitInFlight)
	assert.ErrorIs(t, view.OpenEdit(1), ErrSubmitInFlight)
	form, ok := view.Form()
	require.True(t, ok)
	assert.Equal(t, "GST", form.Draft.Name)

	close(remote.block)
	require.NoError(t, <-done)
	_, open := view.Form()
	assert.False(t, open)

	require.NoError(t, view.OpenCreate())
	require.NoError(t, view.SetField("name", "Cess"))
	form, ok = view.Form()
	require.True(t, ok)
	assert.Equal(t, "Cess", form.Draft.Name)
}

type medicineRemote struct {
	creates int
}

func (r *medicineRemote) List(context.Context) ([]domain.Medicine, error) { return nil, nil }

func (r *medicineRemote) Create(_ context.Context, m domain.Medicine) (domain.Medicine, error) {
	r.creates++
	m.ID = int64(r.creates)
	return m, nil
}

func (r *medicineRemote) Update(_ context.Context, _ int64, m domain.Medicine) (domain.Medicine, error) {
	return m, nil
}

func (r *medicineRemote) Delete(context.Context, int64) error { return nil }

func TestMedicineRequiresQuantity(t *testing.T) {
	remote := &medicineRemote{}
	rec := &recorder{}
	view := NewView(Descriptor[domain.Medicine]{Entity: domain.EntityMedicine, Label: "Medicine"},
		NewStore[domain.Medicine](remote), WithNotifier(rec))

	require.NoError(t, view.OpenCreate())
	for field, value := range map[string]string{
		"brand_name": "Crocin", "generic_name": "Paracetamol", "form": "Tablet",
		"strength": "500mg", "hsn_code": "3004",
	} {
		require.NoError(t, view.SetField(field, value))
	}
	require.NoError(t, view.SetField("total_quantity", " "))

	_, err := view.Submit(context.Background())
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("total_quantity", "required"))
	assert.Zero(t, remote.creates)
	assert.Contains(t, rec.last().Message, "total_quantity")

	require.NoError(t, view.SetField("total_quantity", "0"))
	saved, err := view.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved.TotalQuantity)
	assert.Equal(t, 0, *saved.TotalQuantity)
	assert.Equal(t, 1, remote.creates)
}

func TestFormOperationsWithoutForm(t *testing.T) {
	view, _, _ := newTaxGroupView(t)
	_, err := view.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoForm)
	assert.ErrorIs(t, view.SetField("name", "x"), ErrNoForm)
	assert.ErrorIs(t, view.UpdateDraft(func(*domain.TaxGroup) {}), ErrNoForm)

	require.NoError(t, view.OpenCreate())
	require.NoError(t, view.UpdateDraft(func(g *domain.TaxGroup) { g.Name = "GST" }))
	view.CancelForm()
	_, open := view.Form()
	assert.False(t, open)
}

func TestSetFieldParsesTypes(t *testing.T) {
	draft, err := setField(supply{Name: "a"}, "quantity", "12")
	require.NoError(t, err)
	assert.Equal(t, 12, draft.Quantity)

	_, err = setField(supply{}, "quantity", "twelve")
	assert.ErrorContains(t, err, "not a number")
	_, err = setField(supply{}, "quantity", "1.5")
	assert.Error(t, err)
	draft, err = setField(supply{Quantity: 4}, "quantity", "")
	require.NoError(t, err)
	assert.Zero(t, draft.Quantity)
	_, err = setField(supply{}, "colour", "red")
	assert.ErrorContains(t, err, "unknown field")

	view, _, _ := newTaxGroupView(t)
	require.NoError(t, view.OpenCreate())
	assert.ErrorContains(t, view.SetField("id", "3"), "read-only")
}

func TestDeleteConfirmation(t *testing.T) {
	view, remote, rec := newTaxGroupView(t, "GST", "VAT")
	ctx := context.Background()

	assert.ErrorIs(t, view.ConfirmDelete(ctx), ErrNoPendingDelete)

	view.RequestDelete(1)
	id, ok := view.PendingDelete()
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	view.CancelDelete()
	_, ok = view.PendingDelete()
	assert.False(t, ok)
	assert.Zero(t, remote.deletes)

	view.RequestDelete(1)
	require.NoError(t, view.ConfirmDelete(ctx))
	assert.Equal(t, "Tax Group deleted successfully", rec.last().Message)
	items := view.Store().State().Items
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)

	view.RequestDelete(1)
	require.ErrorIs(t, view.ConfirmDelete(ctx), domain.ErrNotFound)
	assert.Equal(t, LevelError, rec.last().Level)
	assert.Len(t, view.Store().State().Items, 1)
}

func TestToggleExpand(t *testing.T) {
	view, _, _ := newTaxGroupView(t)
	_, ok := view.Expanded()
	assert.False(t, ok)

	view.ToggleExpand(1)
	view.ToggleExpand(2)
	id, ok := view.Expanded()
	require.True(t, ok)
	assert.Equal(t, int64(2), id)

	view.ToggleExpand(2)
	_, ok = view.Expanded()
	assert.False(t, ok)
}

func TestLoadSurvivesAuxiliaryFailure(t *testing.T) {
	remote := newFakeRemote("GST")
	rec := &recorder{}
	desc := taxGroupDescriptor()
	desc.Auxiliary = domain.EntityDoctor
	failing := func(context.Context) (Lookup, error) { return nil, errBoom }
	view := NewView(desc, NewStore[domain.TaxGroup](remote, WithAuxiliary(failing)), WithNotifier(rec))

	require.NoError(t, view.Load(context.Background()))
	assert.Len(t, view.Rows(""), 1)
	assert.Equal(t, LevelError, rec.last().Level)
	assert.Equal(t, "Failed to load doctors: boom", rec.last().Message)
	st := view.Store().State()
	assert.ErrorIs(t, st.AuxErr, errBoom)

	remote.listErr = errBoom
	assert.ErrorIs(t, view.Load(context.Background()), errBoom)
}
