package domain

import "context"

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Ids are assigned by the store on Create.
type Transaction interface {
	Snapshot() TransactionView
	Create(entity EntityType, attrs map[string]any) (Document, error)
	// Update replaces every attribute of the record; identity and CreatedAt are kept.
	Update(entity EntityType, id int64, attrs map[string]any) (Document, error)
	Delete(entity EntityType, id int64) error
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	// List returns the collection in ascending id order.
	List(entity EntityType) []Document
	Find(entity EntityType, id int64) (Document, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	List(entity EntityType) []Document
	Get(entity EntityType, id int64) (Document, bool)
}
