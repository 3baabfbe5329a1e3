package screens

import (
	"clinicadmin/internal/admin"
	"clinicadmin/internal/client"
	"clinicadmin/internal/logger"
	"clinicadmin/internal/render"
	"clinicadmin/pkg/domain"
	"context"
	"fmt"
	"sort"
)

// Screen is a mounted admin screen with its record type erased.
type Screen interface {
	Name() string
	Title() string
	Load(ctx context.Context) error
	Table(query string) render.Table
	Add(ctx context.Context, values map[string]string) error
	Edit(ctx context.Context, id int64, values map[string]string) error
	RequestDelete(id int64)
	CancelDelete()
	ConfirmDelete(ctx context.Context) error
	ToggleExpand(id int64)
}

// Deps are shared by every screen.
type Deps struct {
	Client   *client.Client
	Notifier admin.Notifier
	Log      logger.Logger
}

// All mounts the six screens in menu order.
func All(d Deps) []Screen {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	doctors := lookupLoader[domain.Doctor](d.Client, domain.EntityDoctor, func(x domain.Doctor) string { return x.Name })
	groups := lookupLoader[domain.TaxGroup](d.Client, domain.EntityTaxGroup, func(x domain.TaxGroup) string { return x.Name })
	return []Screen{
		mount(d, Commissions(), admin.WithAuxiliary(doctors)),
		mount(d, Forms()),
		mount(d, Medicines()),
		mount(d, Suppliers()),
		mount(d, Taxes(), admin.WithAuxiliary(groups)),
		mount(d, TaxGroups()),
	}
}

// Find returns the screen called name.
func Find(all []Screen, name string) (Screen, error) {
	for _, s := range all {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown screen %q", name)
}

func lookupLoader[T domain.Record](c *client.Client, entity domain.EntityType, label func(T) string) admin.AuxLoader {
	col := client.For[T](c, entity)
	return func(ctx context.Context) (admin.Lookup, error) {
		items, err := col.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make(admin.Lookup, len(items))
		for _, item := range items {
			out[item.RecordID()] = label(item)
		}
		return out, nil
	}
}

func mount[T domain.Record](d Deps, desc admin.Descriptor[T], opts ...admin.StoreOption) Screen {
	opts = append(opts, admin.WithStoreLogger(d.Log.With("screen", desc.Entity)))
	store := admin.NewStore[T](client.For[T](d.Client, desc.Entity), opts...)
	return &screen[T]{view: admin.NewView(desc, store, admin.WithNotifier(d.Notifier))}
}

type screen[T domain.Record] struct {
	view *admin.View[T]
}

func (s *screen[T]) Name() string  { return string(s.view.Descriptor().Entity) }
func (s *screen[T]) Title() string { return s.view.Descriptor().Title }

func (s *screen[T]) Load(ctx context.Context) error { return s.view.Load(ctx) }

func (s *screen[T]) Table(query string) render.Table {
	desc := s.view.Descriptor()
	aux := s.view.Store().State().Aux
	expanded, hasExpanded := s.view.Expanded()
	t := render.Table{Title: desc.Title}
	for _, c := range desc.Columns {
		t.Headers = append(t.Headers, c.Header)
	}
	for _, rec := range s.view.Rows(query) {
		row := render.Row{ID: rec.RecordID(), Expanded: hasExpanded && rec.RecordID() == expanded}
		for _, c := range desc.Columns {
			row.Cells = append(row.Cells, c.Value(rec, aux))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (s *screen[T]) fill(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.view.SetField(k, values[k]); err != nil {
			s.view.CancelForm()
			return err
		}
	}
	return nil
}

func (s *screen[T]) Add(ctx context.Context, values map[string]string) error {
	if err := s.view.OpenCreate(); err != nil {
		return err
	}
	if err := s.fill(values); err != nil {
		return err
	}
	_, err := s.view.Submit(ctx)
	return err
}

func (s *screen[T]) Edit(ctx context.Context, id int64, values map[string]string) error {
	if err := s.view.OpenEdit(id); err != nil {
		return err
	}
	if err := s.fill(values); err != nil {
		return err
	}
	_, err := s.view.Submit(ctx)
	return err
}

func (s *screen[T]) RequestDelete(id int64) { s.view.RequestDelete(id) }
func (s *screen[T]) CancelDelete()          { s.view.CancelDelete() }

func (s *screen[T]) ConfirmDelete(ctx context.Context) error { return s.view.ConfirmDelete(ctx) }

func (s *screen[T]) ToggleExpand(id int64) { s.view.ToggleExpand(id) }
