package admin

import (
	"bytes"
	"clinicadmin/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoForm is returned by form operations when no form is open.
	ErrNoForm = errors.New("no form open")
	// ErrSubmitInFlight is returned when a submit is already running.
	ErrSubmitInFlight = errors.New("submit already in flight")
	// ErrNoPendingDelete is returned by ConfirmDelete without a prompt.
	ErrNoPendingDelete = errors.New("no delete pending confirmation")
)

// FormMode tells whether a form creates or edits a record.
type FormMode string

const (
	ModeCreate FormMode = "create"
	ModeEdit   FormMode = "edit"
)

// FormStatus is the form lifecycle stage.
type FormStatus string

const (
	FormOpen       FormStatus = "open"
	FormValidating FormStatus = "validating"
	FormSubmitting FormStatus = "submitting"
)

// Form is the draft being created or edited.
type Form[T domain.Record] struct {
	Mode   FormMode
	ID     int64
	Draft  T
	Status FormStatus
}

// ViewOption customizes a View.
type ViewOption func(*viewOptions)

type viewOptions struct {
	notifier Notifier
	validate *validator.Validate
}

// WithNotifier routes notifications to n.
func WithNotifier(n Notifier) ViewOption {
	return func(o *viewOptions) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithValidator overrides the record validator.
func WithValidator(v *validator.Validate) ViewOption {
	return func(o *viewOptions) {
		if v != nil {
			o.validate = v
		}
	}
}

// View drives one screen: filtering, the create/edit form, delete
// confirmation and the expanded card.
type View[T domain.Record] struct {
	desc     Descriptor[T]
	store    *Store[T]
	notifier Notifier
	validate *validator.Validate

	mu            sync.Mutex
	form          *Form[T]
	pendingDelete *int64
	expanded      *int64
}

// NewView binds desc to store.
func NewView[T domain.Record](desc Descriptor[T], store *Store[T], opts ...ViewOption) *View[T] {
	o := viewOptions{notifier: discard{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.validate == nil {
		o.validate = domain.NewValidator()
	}
	return &View[T]{desc: desc, store: store, notifier: o.notifier, validate: o.validate}
}

// Descriptor returns the screen configuration.
func (v *View[T]) Descriptor() Descriptor[T] { return v.desc }

// Store returns the backing store.
func (v *View[T]) Store() *Store[T] { return v.store }

// Load performs the initial fetches of a mounted screen. Only a failed
// collection fetch is returned; a failed auxiliary fetch is reported as an
// error notification and rows fall back to unresolved labels.
func (v *View[T]) Load(ctx context.Context) error {
	if v.store.HasAuxiliary() {
		if _, err := v.store.FetchAuxiliary(ctx); err != nil && !errors.Is(err, ErrStaleFetch) {
			v.notifier.Notify(Notification{Level: LevelError, Message: fmt.Sprintf("Failed to load %s: %v", auxName(v.desc.Auxiliary), err)})
		}
	}
	_, err := v.store.FetchAll(ctx)
	return err
}

func auxName(entity domain.EntityType) string {
	if entity == "" {
		return "lookup data"
	}
	return strings.ReplaceAll(string(entity), "_", " ")
}

// Rows returns the filtered items newest first. Nothing is persisted.
func (v *View[T]) Rows(query string) []T {
	st := v.store.State()
	return Reverse(v.desc.Filter(st.Items, st.Aux, query))
}

// OpenCreate opens an empty form. It fails while a submit is in flight.
func (v *View[T]) OpenCreate() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.submitting() {
		return ErrSubmitInFlight
	}
	var zero T
	v.form = &Form[T]{Mode: ModeCreate, Draft: zero, Status: FormOpen}
	return nil
}

// OpenEdit opens a form holding a copy of record id. It fails while a
// submit is in flight.
func (v *View[T]) OpenEdit(id int64) error {
	for _, item := range v.store.State().Items {
		if item.RecordID() != id {
			continue
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.submitting() {
			return ErrSubmitInFlight
		}
		v.form = &Form[T]{Mode: ModeEdit, ID: id, Draft: item, Status: FormOpen}
		return nil
	}
	return domain.NotFoundError{Entity: v.desc.Entity, ID: id}
}

// submitting must be called with mu held.
func (v *View[T]) submitting() bool {
	return v.form != nil && v.form.Status != FormOpen
}

// Form returns a copy of the open form.
func (v *View[T]) Form() (Form[T], bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.form == nil {
		return Form[T]{}, false
	}
	return *v.form, true
}

// CancelForm closes the form without submitting.
func (v *View[T]) CancelForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.form != nil && v.form.Status == FormSubmitting {
		return
	}
	v.form = nil
}

// UpdateDraft edits the draft in place.
func (v *View[T]) UpdateDraft(fn func(*T)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.form == nil {
		return ErrNoForm
	}
	if v.form.Status == FormSubmitting {
		return ErrSubmitInFlight
	}
	fn(&v.form.Draft)
	return nil
}

// SetField assigns a wire field from its text form. Numeric fields are
// parsed; the server-owned id and timestamps are rejected.
func (v *View[T]) SetField(field, value string) error {
	switch field {
	case "id", "created_at", "updated_at":
		return fmt.Errorf("%s is read-only", field)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.form == nil {
		return ErrNoForm
	}
	if v.form.Status == FormSubmitting {
		return ErrSubmitInFlight
	}
	draft, err := setField(v.form.Draft, field, value)
	if err != nil {
		return err
	}
	v.form.Draft = draft
	return nil
}

func setField[T any](rec T, field, value string) (T, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return rec, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return rec, err
	}
	current, ok := attrs[field]
	if !ok {
		return rec, fmt.Errorf("unknown field %q", field)
	}
	switch current.(type) {
	case json.Number:
		value = strings.TrimSpace(value)
		if value == "" {
			attrs[field] = nil
			break
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return rec, fmt.Errorf("%s: %q is not a number", field, value)
		}
		attrs[field] = json.Number(value)
	case nil:
		// Unset optional field; its type is only known to the record.
		trimmed := strings.TrimSpace(value)
		switch {
		case trimmed == "":
			attrs[field] = nil
		case isNumber(trimmed):
			attrs[field] = json.Number(trimmed)
		default:
			attrs[field] = value
		}
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return rec, fmt.Errorf("%s: %q is not a boolean", field, value)
		}
		attrs[field] = b
	default:
		attrs[field] = value
	}
	raw, err = json.Marshal(attrs)
	if err != nil {
		return rec, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return rec, fmt.Errorf("%s: %w", field, err)
	}
	return out, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Submit validates the draft locally, then creates or updates it. On
// success the form closes and the collection is re-fetched; on failure the
// form stays open with its values.
func (v *View[T]) Submit(ctx context.Context) (T, error) {
	var zero T
	v.mu.Lock()
	if v.form == nil {
		v.mu.Unlock()
		return zero, ErrNoForm
	}
	if v.form.Status != FormOpen {
		v.mu.Unlock()
		return zero, ErrSubmitInFlight
	}
	v.form.Status = FormValidating
	current := v.form
	form := *current
	v.mu.Unlock()

	if err := v.check(form); err != nil {
		v.setStatus(FormOpen)
		v.notifier.Notify(Notification{Level: LevelError, Message: v.describe(err)})
		return zero, err
	}

	v.setStatus(FormSubmitting)
	var (
		saved T
		err   error
		verb  string
	)
	if form.Mode == ModeEdit {
		saved, err = v.store.Update(ctx, form.ID, form.Draft)
		verb = "updated"
	} else {
		saved, err = v.store.Create(ctx, form.Draft)
		verb = "added"
	}
	if err != nil {
		v.setStatus(FormOpen)
		v.notifier.Notify(Notification{Level: LevelError, Message: fmt.Sprintf("Failed to save %s: %v", strings.ToLower(v.desc.Label), err)})
		return zero, err
	}

	v.mu.Lock()
	if v.form == current {
		v.form = nil
	}
	v.mu.Unlock()
	v.notifier.Notify(Notification{Level: LevelSuccess, Message: fmt.Sprintf("%s %s successfully", v.desc.Label, verb)})
	_, _ = v.store.FetchAll(ctx)
	return saved, nil
}

func (v *View[T]) describe(err error) string {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	if verr.Has("name", domain.RuleUnique) {
		return fmt.Sprintf("%s name already exists", v.desc.Label)
	}
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	return "Missing or invalid fields: " + strings.Join(fields, ", ")
}

func (v *View[T]) setStatus(s FormStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.form != nil {
		v.form.Status = s
	}
}

func (v *View[T]) check(form Form[T]) error {
	if err := domain.ValidateRecord(v.validate, v.desc.Entity, form.Draft); err != nil {
		return err
	}
	if v.desc.UniqueName == nil {
		return nil
	}
	name := strings.TrimSpace(v.desc.UniqueName(form.Draft))
	for _, item := range v.store.State().Items {
		if form.Mode == ModeEdit && item.RecordID() == form.ID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(v.desc.UniqueName(item)), name) {
			return &domain.ValidationError{
				Entity: v.desc.Entity,
				Fields: []domain.FieldError{{Field: "name", Rule: domain.RuleUnique}},
			}
		}
	}
	return nil
}

// RequestDelete opens the confirmation prompt for id.
func (v *View[T]) RequestDelete(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingDelete = &id
}

// PendingDelete returns the id awaiting confirmation.
func (v *View[T]) PendingDelete() (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pendingDelete == nil {
		return 0, false
	}
	return *v.pendingDelete, true
}

// CancelDelete dismisses the prompt without a remote call.
func (v *View[T]) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingDelete = nil
}

// ConfirmDelete deletes the pending id and re-fetches on success.
func (v *View[T]) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	if v.pendingDelete == nil {
		v.mu.Unlock()
		return ErrNoPendingDelete
	}
	id := *v.pendingDelete
	v.pendingDelete = nil
	v.mu.Unlock()

	if err := v.store.Delete(ctx, id); err != nil {
		v.notifier.Notify(Notification{Level: LevelError, Message: fmt.Sprintf("Failed to delete %s: %v", strings.ToLower(v.desc.Label), err)})
		return err
	}
	v.notifier.Notify(Notification{Level: LevelSuccess, Message: fmt.Sprintf("%s deleted successfully", v.desc.Label)})
	_, _ = v.store.FetchAll(ctx)
	return nil
}

// ToggleExpand expands id, collapsing any other record. Toggling the
// expanded record collapses it.
func (v *View[T]) ToggleExpand(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.expanded != nil && *v.expanded == id {
		v.expanded = nil
		return
	}
	v.expanded = &id
}

// Expanded returns the expanded record id.
func (v *View[T]) Expanded() (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.expanded == nil {
		return 0, false
	}
	return *v.expanded, true
}
