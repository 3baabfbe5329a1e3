// Package core hosts the collection service shared by the REST adapter and
// the export worker: payload normalization, transactional writes, the
// built-in rules and service metrics.
package core

import (
	"clinicadmin/internal/infra/persistence/memory"
	"clinicadmin/internal/logger"
	"clinicadmin/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownEntity is returned for collections that are not registered.
var ErrUnknownEntity = errors.New("unknown collection")

// ServiceOption configures optional service dependencies.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l logger.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service exposes transactional CRUD over every registered collection.
type Service struct {
	store    domain.PersistentStore
	validate *validator.Validate
	log      logger.Logger
	metrics  MetricsRecorder
	now      func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		validate: domain.NewValidator(),
		log:      logger.Nop(),
		metrics:  noopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) kind(entity domain.EntityType) (domain.Kind, error) {
	k, ok := domain.LookupKind(entity)
	if !ok {
		return domain.Kind{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return k, nil
}

func (s *Service) observe(ctx context.Context, op string, started time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, s.now().Sub(started))
}

// List returns the whole collection in ascending id order.
func (s *Service) List(ctx context.Context, entity domain.EntityType) (out []domain.Document, err error) {
	started := s.now()
	defer func() { s.observe(ctx, "list", started, err) }()
	if _, err = s.kind(entity); err != nil {
		return nil, err
	}
	out = s.store.List(entity)
	s.log.Debug("collection listed", "entity", entity, "count", len(out))
	return out, nil
}

// Get returns a single record.
func (s *Service) Get(ctx context.Context, entity domain.EntityType, id int64) (doc domain.Document, err error) {
	started := s.now()
	defer func() { s.observe(ctx, "get", started, err) }()
	if _, err = s.kind(entity); err != nil {
		return domain.Document{}, err
	}
	doc, ok := s.store.Get(entity, id)
	if !ok {
		err = domain.NotFoundError{Entity: entity, ID: id}
		return domain.Document{}, err
	}
	return doc, nil
}

// Create validates payload and stores it as a new record.
func (s *Service) Create(ctx context.Context, entity domain.EntityType, payload []byte) (created domain.Document, res domain.Result, err error) {
	started := s.now()
	defer func() { s.observe(ctx, "create", started, err) }()
	kind, err := s.kind(entity)
	if err != nil {
		return domain.Document{}, domain.Result{}, err
	}
	attrs, err := kind.Normalize(s.validate, payload)
	if err != nil {
		return domain.Document{}, domain.Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var txErr error
		created, txErr = tx.Create(entity, attrs)
		return txErr
	})
	s.logWrite("created", entity, created.ID, res, err)
	return created, res, err
}

// Update replaces every attribute of a record with payload.
func (s *Service) Update(ctx context.Context, entity domain.EntityType, id int64, payload []byte) (updated domain.Document, res domain.Result, err error) {
	started := s.now()
	defer func() { s.observe(ctx, "update", started, err) }()
	kind, err := s.kind(entity)
	if err != nil {
		return domain.Document{}, domain.Result{}, err
	}
	attrs, err := kind.Normalize(s.validate, payload)
	if err != nil {
		return domain.Document{}, domain.Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var txErr error
		updated, txErr = tx.Update(entity, id, attrs)
		return txErr
	})
	s.logWrite("updated", entity, id, res, err)
	return updated, res, err
}

// Patch overlays payload on the stored attributes and validates the result.
func (s *Service) Patch(ctx context.Context, entity domain.EntityType, id int64, payload []byte) (updated domain.Document, res domain.Result, err error) {
	started := s.now()
	defer func() { s.observe(ctx, "patch", started, err) }()
	kind, err := s.kind(entity)
	if err != nil {
		return domain.Document{}, domain.Result{}, err
	}
	var patch map[string]any
	if err = json.Unmarshal(payload, &patch); err != nil {
		return domain.Document{}, domain.Result{}, fmt.Errorf("decode %s patch: %w", entity, err)
	}
	res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, ok := tx.Snapshot().Find(entity, id)
		if !ok {
			return domain.NotFoundError{Entity: entity, ID: id}
		}
		merged := current.Clone()
		for k, v := range patch {
			merged.Attributes[k] = v
		}
		body, mErr := json.Marshal(merged)
		if mErr != nil {
			return mErr
		}
		attrs, nErr := kind.Normalize(s.validate, body)
		if nErr != nil {
			return nErr
		}
		var txErr error
		updated, txErr = tx.Update(entity, id, attrs)
		return txErr
	})
	s.logWrite("patched", entity, id, res, err)
	return updated, res, err
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, entity domain.EntityType, id int64) (res domain.Result, err error) {
	started := s.now()
	defer func() { s.observe(ctx, "delete", started, err) }()
	if _, err = s.kind(entity); err != nil {
		return domain.Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.Delete(entity, id)
	})
	s.logWrite("deleted", entity, id, res, err)
	return res, err
}

func (s *Service) logWrite(verb string, entity domain.EntityType, id int64, res domain.Result, err error) {
	var rv domain.RuleViolationError
	switch {
	case errors.As(err, &rv):
		s.log.Warn("write blocked by rules", "entity", entity, "id", id, "violations", len(rv.Result.Violations))
	case err != nil:
		s.log.Debug("write failed", "entity", entity, "id", id, "err", err)
	default:
		s.log.Info("record "+verb, "entity", entity, "id", id, "warnings", len(res.Violations))
	}
}
