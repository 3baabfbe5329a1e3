// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"clinicadmin/pkg/domain"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Document aliases domain.Document for in-memory persistence operations.
	Document = domain.Document
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type bucket struct {
	next int64
	rows map[int64]Document
}

func (b *bucket) clone() *bucket {
	out := &bucket{next: b.next, rows: make(map[int64]Document, len(b.rows))}
	for id, doc := range b.rows {
		out.rows[id] = doc.Clone()
	}
	return out
}

func (b *bucket) sorted() []Document {
	out := make([]Document, 0, len(b.rows))
	for _, doc := range b.rows {
		out = append(out, doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memoryState map[domain.EntityType]*bucket

func newMemoryState() memoryState {
	state := make(memoryState)
	for _, k := range domain.Kinds() {
		state[k.Type] = &bucket{rows: make(map[int64]Document)}
	}
	return state
}

func (s memoryState) clone() memoryState {
	out := make(memoryState, len(s))
	for t, b := range s {
		out[t] = b.clone()
	}
	return out
}

// BucketSnapshot is the persisted form of one collection. Next is the last
// id handed out, so deleted ids are never reused.
type BucketSnapshot struct {
	Next int64      `json:"next"`
	Rows []Document `json:"rows"`
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Buckets map[domain.EntityType]BucketSnapshot `json:"buckets"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{Buckets: make(map[domain.EntityType]BucketSnapshot, len(state))}
	for t, b := range state {
		s.Buckets[t] = BucketSnapshot{Next: b.next, Rows: b.sorted()}
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for t, bs := range s.Buckets {
		b, ok := state[t]
		if !ok {
			// collections that are no longer registered are dropped
			continue
		}
		b.next = bs.Next
		for _, doc := range bs.Rows {
			if doc.ID <= 0 {
				continue
			}
			b.rows[doc.ID] = doc.Clone()
			if doc.ID > b.next {
				b.next = doc.ID
			}
		}
	}
	return state
}

// Store provides an in-memory transactional store for the clinic collections.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state memoryState
}

func newTransactionView(state memoryState) TransactionView {
	return transactionView{state: state}
}

// List returns the documents of a collection ordered by id.
func (v transactionView) List(entity domain.EntityType) []Document {
	b, ok := v.state[entity]
	if !ok {
		return nil
	}
	return b.sorted()
}

// Find looks up a single document.
func (v transactionView) Find(entity domain.EntityType, id int64) (Document, bool) {
	b, ok := v.state[entity]
	if !ok {
		return Document{}, false
	}
	doc, ok := b.rows[id]
	if !ok {
		return Document{}, false
	}
	return doc.Clone(), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(snapshot))
}

// List returns every document of a collection ordered by id.
func (s *Store) List(entity domain.EntityType) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(s.state).List(entity)
}

// Get returns a document by id.
func (s *Store) Get(entity domain.EntityType, id int64) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(s.state).Find(entity, id)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) bucket(entity domain.EntityType) (*bucket, error) {
	b, ok := tx.state[entity]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", entity)
	}
	return b, nil
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(tx.state)
}

// Create stores a new document under the next sequential id.
func (tx *transaction) Create(entity domain.EntityType, attrs map[string]any) (Document, error) {
	b, err := tx.bucket(entity)
	if err != nil {
		return Document{}, err
	}
	b.next++
	doc := Document{
		ID:         b.next,
		Attributes: attrs,
		CreatedAt:  tx.now,
		UpdatedAt:  tx.now,
	}.Clone()
	if doc.Attributes == nil {
		doc.Attributes = map[string]any{}
	}
	b.rows[doc.ID] = doc
	after := doc.Clone()
	tx.recordChange(Change{Entity: entity, Action: domain.ActionCreate, After: &after})
	return doc.Clone(), nil
}

// Update replaces the attributes of an existing document.
func (tx *transaction) Update(entity domain.EntityType, id int64, attrs map[string]any) (Document, error) {
	b, err := tx.bucket(entity)
	if err != nil {
		return Document{}, err
	}
	current, ok := b.rows[id]
	if !ok {
		return Document{}, domain.NotFoundError{Entity: entity, ID: id}
	}
	before := current.Clone()
	next := Document{
		ID:         id,
		Attributes: attrs,
		CreatedAt:  current.CreatedAt,
		UpdatedAt:  tx.now,
	}.Clone()
	if next.Attributes == nil {
		next.Attributes = map[string]any{}
	}
	b.rows[id] = next
	after := next.Clone()
	tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, Before: &before, After: &after})
	return next.Clone(), nil
}

// Delete removes a document from the transaction state.
func (tx *transaction) Delete(entity domain.EntityType, id int64) error {
	b, err := tx.bucket(entity)
	if err != nil {
		return err
	}
	current, ok := b.rows[id]
	if !ok {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	delete(b.rows, id)
	before := current.Clone()
	tx.recordChange(Change{Entity: entity, Action: domain.ActionDelete, Before: &before})
	return nil
}
