// Package exports renders whole collections into downloadable artifacts on a
// background worker and stores them in the configured blob store.
package exports

import (
	"bytes"
	"clinicadmin/internal/blob"
	"clinicadmin/internal/logger"
	"clinicadmin/pkg/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status describes the lifecycle stage of an export request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Format selects the artifact encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrQueueFull is returned when the worker cannot accept more jobs.
var ErrQueueFull = errors.New("export queue full")

// Artifact describes a stored export file.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ETag        string    `json:"etag,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an export request and its artifact.
type Record struct {
	ID          string            `json:"id"`
	Entity      domain.EntityType `json:"entity"`
	Format      Format            `json:"format"`
	Status      Status            `json:"status"`
	Error       string            `json:"error,omitempty"`
	Rows        int               `json:"rows"`
	Artifact    *Artifact         `json:"artifact,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

func (r Record) copy() Record {
	if r.Artifact != nil {
		a := *r.Artifact
		r.Artifact = &a
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		r.CompletedAt = &t
	}
	return r
}

// Input is an enqueue request.
type Input struct {
	Entity domain.EntityType `json:"entity"`
	Format Format            `json:"format"`
}

// Source reads the collection being exported.
type Source interface {
	List(ctx context.Context, entity domain.EntityType) ([]domain.Document, error)
}

// Observer is notified when a job finishes.
type Observer interface {
	ObserveExport(entity string, success bool)
}

// Scheduler queues exports and exposes their status and artifacts.
type Scheduler interface {
	Enqueue(ctx context.Context, in Input) (Record, error)
	Get(id string) (Record, bool)
	Open(ctx context.Context, id string) (Record, io.ReadCloser, error)
}

// Option customizes a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// WithObserver reports finished jobs, typically to Prometheus.
func WithObserver(o Observer) Option {
	return func(w *Worker) { w.observer = o }
}

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan string, n)
		}
	}
}

// Worker executes exports asynchronously.
type Worker struct {
	source   Source
	store    blob.Store
	log      logger.Logger
	observer Observer
	now      func() time.Time

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Scheduler = (*Worker)(nil)

// NewWorker constructs an export worker. Call Start before enqueuing.
func NewWorker(source Source, store blob.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		source: source,
		store:  store,
		log:    logger.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
		queue:  make(chan string, 16),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the running job.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue validates the request and schedules it.
func (w *Worker) Enqueue(_ context.Context, in Input) (Record, error) {
	if _, ok := domain.LookupKind(in.Entity); !ok {
		return Record{}, fmt.Errorf("unknown collection %q", in.Entity)
	}
	if in.Format == "" {
		in.Format = FormatCSV
	}
	if _, ok := renderers[in.Format]; !ok {
		return Record{}, fmt.Errorf("unsupported format %q", in.Format)
	}
	now := w.now()
	record := &Record{
		ID:        uuid.NewString(),
		Entity:    in.Entity,
		Format:    in.Format,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	w.mu.Lock()
	w.jobs[record.ID] = record
	queued := record.copy()
	w.mu.Unlock()

	select {
	case w.queue <- record.ID:
	default:
		w.mu.Lock()
		delete(w.jobs, record.ID)
		w.mu.Unlock()
		return Record{}, ErrQueueFull
	}
	w.log.Info("export queued", "id", record.ID, "entity", in.Entity, "format", in.Format)
	return queued, nil
}

// Get returns a snapshot of the export record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// Open streams a finished artifact.
func (w *Worker) Open(ctx context.Context, id string) (Record, io.ReadCloser, error) {
	record, ok := w.Get(id)
	if !ok {
		return Record{}, nil, fmt.Errorf("export %s: %w", id, domain.ErrNotFound)
	}
	if record.Status != StatusSucceeded || record.Artifact == nil {
		return record, nil, fmt.Errorf("export %s is %s", id, record.Status)
	}
	_, rc, err := w.store.Get(ctx, record.Artifact.Key)
	if err != nil {
		return record, nil, err
	}
	return record, rc, nil
}

func (w *Worker) process(id string) {
	record, ok := w.Get(id)
	if !ok {
		return
	}
	w.update(id, func(r *Record) { r.Status = StatusRunning })

	docs, err := w.source.List(w.ctx, record.Entity)
	if err != nil {
		w.fail(record, fmt.Sprintf("list %s: %v", record.Entity, err))
		return
	}
	r := renderers[record.Format]
	var buf bytes.Buffer
	if err := r.render(&buf, record.Entity, docs); err != nil {
		w.fail(record, fmt.Sprintf("render %s: %v", record.Format, err))
		return
	}
	key := fmt.Sprintf("%s/%s.%s", record.Entity, record.ID, record.Format)
	info, err := w.store.Put(w.ctx, key, &buf, blob.PutOptions{
		ContentType: r.contentType,
		Metadata:    map[string]string{"entity": string(record.Entity), "export_id": record.ID},
	})
	if err != nil {
		w.fail(record, fmt.Sprintf("store artifact: %v", err))
		return
	}
	w.update(id, func(rec *Record) {
		now := w.now()
		rec.Status = StatusSucceeded
		rec.Rows = len(docs)
		rec.Artifact = &Artifact{
			Key:         info.Key,
			Format:      record.Format,
			ContentType: r.contentType,
			SizeBytes:   info.Size,
			ETag:        info.ETag,
			CreatedAt:   now,
		}
		rec.CompletedAt = &now
	})
	w.log.Info("export finished", "id", id, "entity", record.Entity, "rows", len(docs), "key", info.Key)
	w.observe(record.Entity, true)
}

func (w *Worker) fail(record Record, reason string) {
	w.update(record.ID, func(r *Record) {
		now := w.now()
		r.Status = StatusFailed
		r.Error = reason
		r.CompletedAt = &now
	})
	w.log.Error("export failed", "id", record.ID, "entity", record.Entity, "err", reason)
	w.observe(record.Entity, false)
}

func (w *Worker) update(id string, fn func(*Record)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if record, ok := w.jobs[id]; ok {
		fn(record)
		record.UpdatedAt = w.now()
	}
}

func (w *Worker) observe(entity domain.EntityType, success bool) {
	if w.observer != nil {
		w.observer.ObserveExport(string(entity), success)
	}
}
