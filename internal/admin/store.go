// Package admin holds the generic list-management state shared by every
// back-office screen: a per-collection Store and the View that drives it.
package admin

import (
	"clinicadmin/internal/logger"
	"clinicadmin/pkg/domain"
	"context"
	"errors"
	"sync"
)

// ErrStaleFetch is returned by a fetch whose response was superseded by a
// newer one and therefore discarded.
var ErrStaleFetch = errors.New("stale fetch response discarded")

// Remote is the collection endpoint a Store talks to.
type Remote[T domain.Record] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id int64, rec T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Lookup maps auxiliary record ids to display labels.
type Lookup map[int64]string

// AuxLoader fetches the auxiliary lookup for a store.
type AuxLoader func(ctx context.Context) (Lookup, error)

// State is an immutable snapshot of a Store.
type State[T domain.Record] struct {
	Items      []T
	Loading    bool
	Err        error
	AuxLoading bool
	AuxErr     error
	Aux        Lookup
}

// StoreOption customizes a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	aux AuxLoader
	log logger.Logger
}

// WithAuxiliary attaches an auxiliary lookup source.
func WithAuxiliary(load AuxLoader) StoreOption {
	return func(o *storeOptions) { o.aux = load }
}

// WithStoreLogger sets the store logger.
func WithStoreLogger(l logger.Logger) StoreOption {
	return func(o *storeOptions) {
		if l != nil {
			o.log = l
		}
	}
}

type fetchState struct {
	issued  uint64
	applied uint64
	loading bool
	err     error
}

// Store is the authoritative client-side copy of one collection. Mutations
// never touch the loaded items; callers re-fetch after a successful write.
type Store[T domain.Record] struct {
	remote Remote[T]
	auxFn  AuxLoader
	log    logger.Logger

	mu    sync.RWMutex
	items []T
	aux   Lookup
	main  fetchState
	side  fetchState
}

// NewStore builds a store over remote.
func NewStore[T domain.Record](remote Remote[T], opts ...StoreOption) *Store[T] {
	o := storeOptions{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{remote: remote, auxFn: o.aux, log: o.log, aux: Lookup{}}
}

// HasAuxiliary reports whether FetchAuxiliary has a source.
func (s *Store[T]) HasAuxiliary() bool { return s.auxFn != nil }

// State returns a snapshot safe to read while fetches are running.
func (s *Store[T]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]T, len(s.items))
	copy(items, s.items)
	aux := make(Lookup, len(s.aux))
	for k, v := range s.aux {
		aux[k] = v
	}
	return State[T]{
		Items:      items,
		Loading:    s.main.loading,
		Err:        s.main.err,
		AuxLoading: s.side.loading,
		AuxErr:     s.side.err,
		Aux:        aux,
	}
}

func (s *Store[T]) begin(fs *fetchState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs.issued++
	fs.loading = true
	return fs.issued
}

// finish applies a response tagged seq. It returns false when a newer
// response was already applied.
func (s *Store[T]) finish(fs *fetchState, seq uint64, err error, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == fs.issued {
		fs.loading = false
	}
	if seq <= fs.applied {
		return false
	}
	fs.applied = seq
	fs.err = err
	if err == nil {
		apply()
	}
	return true
}

// FetchAll reloads the collection. On failure the previous items are kept.
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	seq := s.begin(&s.main)
	items, err := s.remote.List(ctx)
	if !s.finish(&s.main, seq, err, func() { s.items = items }) {
		s.log.Warn("discarding stale fetch", "seq", seq)
		return nil, ErrStaleFetch
	}
	if err != nil {
		s.log.Debug("fetch failed", "err", err)
		return nil, err
	}
	s.log.Debug("fetch applied", "seq", seq, "count", len(items))
	return items, nil
}

// FetchAuxiliary reloads the auxiliary lookup.
func (s *Store[T]) FetchAuxiliary(ctx context.Context) (Lookup, error) {
	if s.auxFn == nil {
		return Lookup{}, nil
	}
	seq := s.begin(&s.side)
	aux, err := s.auxFn(ctx)
	if aux == nil {
		aux = Lookup{}
	}
	if !s.finish(&s.side, seq, err, func() { s.aux = aux }) {
		s.log.Warn("discarding stale auxiliary fetch", "seq", seq)
		return nil, ErrStaleFetch
	}
	if err != nil {
		s.log.Debug("auxiliary fetch failed", "err", err)
		return nil, err
	}
	return aux, nil
}

// Create sends rec to the server and returns the stored record.
func (s *Store[T]) Create(ctx context.Context, rec T) (T, error) {
	out, err := s.remote.Create(ctx, rec)
	s.log.Debug("create finished", "id", out.RecordID(), "err", err)
	return out, err
}

// Update replaces record id.
func (s *Store[T]) Update(ctx context.Context, id int64, rec T) (T, error) {
	out, err := s.remote.Update(ctx, id, rec)
	s.log.Debug("update finished", "id", id, "err", err)
	return out, err
}

// Delete removes record id.
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	err := s.remote.Delete(ctx, id)
	s.log.Debug("delete finished", "id", id, "err", err)
	return err
}
