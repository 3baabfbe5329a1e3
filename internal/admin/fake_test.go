package admin

import (
	"clinicadmin/pkg/domain"
	"context"
	"errors"
	"sync"
)

// fakeRemote is an in-process collection endpoint with call counters.
type fakeRemote struct {
	mu      sync.Mutex
	items   []domain.TaxGroup
	next    int64
	creates int
	updates int
	deletes int
	listErr error
	saveErr error
	// block, when set, is received from before Create returns.
	block chan struct{}
}

func newFakeRemote(names ...string) *fakeRemote {
	f := &fakeRemote{}
	for _, n := range names {
		f.next++
		f.items = append(f.items, domain.TaxGroup{Base: domain.Base{ID: f.next}, Name: n})
	}
	return f
}

func (f *fakeRemote) List(context.Context) ([]domain.TaxGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.TaxGroup, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeRemote) Create(_ context.Context, rec domain.TaxGroup) (domain.TaxGroup, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.saveErr != nil {
		return domain.TaxGroup{}, f.saveErr
	}
	f.next++
	rec.ID = f.next
	f.items = append(f.items, rec)
	return rec, nil
}

func (f *fakeRemote) Update(_ context.Context, id int64, rec domain.TaxGroup) (domain.TaxGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.saveErr != nil {
		return domain.TaxGroup{}, f.saveErr
	}
	for i := range f.items {
		if f.items[i].ID == id {
			rec.ID = id
			f.items[i] = rec
			return rec, nil
		}
	}
	return domain.TaxGroup{}, domain.NotFoundError{Entity: domain.EntityTaxGroup, ID: id}
}

func (f *fakeRemote) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundError{Entity: domain.EntityTaxGroup, ID: id}
}

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return Notification{}
	}
	return r.notes[len(r.notes)-1]
}

var errBoom = errors.New("boom")

func taxGroupDescriptor() Descriptor[domain.TaxGroup] {
	return Descriptor[domain.TaxGroup]{
		Entity:     domain.EntityTaxGroup,
		Title:      "Tax Groups",
		Label:      "Tax Group",
		Search:     func(g domain.TaxGroup, _ Lookup) []string { return []string{g.Name} },
		UniqueName: func(g domain.TaxGroup) string { return g.Name },
	}
}
