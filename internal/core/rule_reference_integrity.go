package core

import (
	"clinicadmin/pkg/domain"
	"context"
	"fmt"
)

// NewReferenceIntegrityRule blocks writes that point at missing records and
// deletes that would orphan a referencing record.
func NewReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (r referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		switch {
		case change.After != nil:
			res.Merge(r.checkOutgoing(view, change.Entity, *change.After))
		case change.Action == domain.ActionDelete && change.Before != nil:
			res.Merge(r.checkIncoming(view, change.Entity, change.Before.ID))
		}
	}
	return res, nil
}

func (r referenceIntegrityRule) checkOutgoing(view domain.RuleView, entity domain.EntityType, doc domain.Document) domain.Result {
	res := domain.Result{}
	kind, ok := domain.LookupKind(entity)
	if !ok {
		return res
	}
	for _, ref := range kind.References {
		id, ok := doc.Int(ref.Field)
		if !ok {
			continue
		}
		if _, found := view.Find(ref.Target, id); found {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s references missing %s %d", ref.Field, ref.Target, id),
			Entity:   entity,
			EntityID: doc.ID,
		})
	}
	return res
}

func (r referenceIntegrityRule) checkIncoming(view domain.RuleView, target domain.EntityType, id int64) domain.Result {
	res := domain.Result{}
	for _, kind := range domain.Kinds() {
		for _, ref := range kind.References {
			if ref.Target != target {
				continue
			}
			for _, doc := range view.List(kind.Type) {
				if v, ok := doc.Int(ref.Field); ok && v == id {
					res.Violations = append(res.Violations, domain.Violation{
						Rule:     r.Name(),
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("%s %d is still referenced by %s %d", target, id, kind.Type, doc.ID),
						Entity:   target,
						EntityID: id,
					})
					break
				}
			}
		}
	}
	return res
}
