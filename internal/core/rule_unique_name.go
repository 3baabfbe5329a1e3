package core

import (
	"clinicadmin/pkg/domain"
	"context"
	"fmt"
	"strings"
)

// NewUniqueNameRule blocks writes that leave two records of a kind sharing
// the same unique attribute, compared case-insensitively after trimming.
func NewUniqueNameRule() domain.Rule {
	return uniqueNameRule{}
}

type uniqueNameRule struct{}

func (uniqueNameRule) Name() string { return "unique_name" }

func (r uniqueNameRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		kind, ok := domain.LookupKind(change.Entity)
		if !ok || kind.UniqueField == "" {
			continue
		}
		name := NormalizeName(change.After.Text(kind.UniqueField))
		if name == "" {
			continue
		}
		for _, other := range view.List(change.Entity) {
			if other.ID == change.After.ID {
				continue
			}
			if NormalizeName(other.Text(kind.UniqueField)) == name {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("%s %q already exists", kind.Label, strings.TrimSpace(change.After.Text(kind.UniqueField))),
					Entity:   change.Entity,
					EntityID: change.After.ID,
				})
				break
			}
		}
	}
	return res, nil
}

// NormalizeName is the comparison key for unique names.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
