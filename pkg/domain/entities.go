// Package domain defines the back-office records managed by clinicadmin, the
// schemaless documents the persistence layer stores for them, and the rule
// evaluation primitives applied inside transactions.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// EntityType identifies a managed collection. The value doubles as the
// collection's REST path segment and its persistence bucket name.
type EntityType string

// Supported entity types.
const (
	// EntityCommission identifies doctor commission settings.
	EntityCommission EntityType = "commissions"
	// EntityForm identifies dosage forms (tablet, syrup, ...).
	EntityForm EntityType = "forms"
	// EntityMedicine identifies medicine master records.
	EntityMedicine EntityType = "medicines"
	// EntitySupplier identifies suppliers.
	EntitySupplier EntityType = "suppliers"
	// EntityTax identifies individual taxes.
	EntityTax EntityType = "taxes"
	// EntityTaxGroup identifies tax groups referenced by taxes.
	EntityTaxGroup EntityType = "tax_groups"
	// EntityDoctor identifies doctors, used as auxiliary lookup data by commissions.
	EntityDoctor EntityType = "doctors"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Record is implemented by every typed entity. The id is server assigned.
type Record interface {
	RecordID() int64
}

// Base contains common fields for all records.
type Base struct {
	ID        int64      `json:"id"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// RecordID returns the server-assigned identifier.
func (b Base) RecordID() int64 { return b.ID }

// Commission configures how a doctor is paid for referred work.
type Commission struct {
	Base
	DoctorID        int64   `json:"doctor_id" validate:"required"`
	Type            string  `json:"type"`
	Source          string  `json:"source"`
	Value           float64 `json:"value"`
	CalculationType string  `json:"calculation_type"`
}

// Form is a dosage form such as "Tablet" or "Syrup".
type Form struct {
	Base
	Name string `json:"name" validate:"notblank"`
}

// Medicine is a medicine master record.
type Medicine struct {
	Base
	BrandName     string `json:"brand_name" validate:"notblank"`
	GenericName   string `json:"generic_name" validate:"notblank"`
	Form          string `json:"form" validate:"notblank"`
	Strength      string `json:"strength" validate:"notblank"`
	HSNCode       string `json:"hsn_code" validate:"notblank"`
	TotalQuantity *int   `json:"total_quantity" validate:"required,gte=0"`
}

// Supplier is a vendor the pharmacy purchases from.
type Supplier struct {
	Base
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description"`
	Address     string `json:"address"`
	City        string `json:"city"`
}

// Tax is a single tax line belonging to a group.
type Tax struct {
	Base
	Name       string  `json:"name" validate:"notblank"`
	GroupID    int64   `json:"group_id" validate:"required"`
	Percentage float64 `json:"percentage" validate:"gte=0,lte=100"`
}

// TaxGroup groups taxes (for example "GST 12%").
type TaxGroup struct {
	Base
	Name string `json:"name" validate:"notblank"`
}

// Doctor is reference data used to label commissions.
type Doctor struct {
	Base
	Name      string `json:"name" validate:"notblank"`
	Specialty string `json:"specialty,omitempty"`
}

// Change describes a mutation applied to a document during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before *Document
	After  *Document
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates a record was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates a record was replaced.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID int64      `json:"entity_id,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}

// ErrNotFound is matched (via errors.Is) by every missing-record error.
var ErrNotFound = errors.New("record not found")

// NotFoundError reports a missing record of a given type.
type NotFoundError struct {
	Entity EntityType
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Unwrap lets errors.Is(err, ErrNotFound) match.
func (e NotFoundError) Unwrap() error { return ErrNotFound }
