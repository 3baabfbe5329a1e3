package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Reference declares that Field holds the id of a record in Target.
type Reference struct {
	Field  string
	Target EntityType
}

// Kind describes how a collection's payloads are decoded, validated and
// constrained. It is the server-side half of a screen descriptor.
type Kind struct {
	Type  EntityType
	Label string
	// UniqueField names an attribute that must be unique, case-insensitively.
	UniqueField string
	References  []Reference
	decode      func([]byte) (any, error)
}

func kindOf[T Record](t EntityType, label, unique string, refs ...Reference) Kind {
	return Kind{
		Type:        t,
		Label:       label,
		UniqueField: unique,
		References:  refs,
		decode: func(b []byte) (any, error) {
			var rec T
			if err := json.Unmarshal(b, &rec); err != nil {
				return nil, err
			}
			return &rec, nil
		},
	}
}

var kinds = map[EntityType]Kind{
	EntityCommission: kindOf[Commission](EntityCommission, "Commission", "",
		Reference{Field: "doctor_id", Target: EntityDoctor}),
	EntityForm:     kindOf[Form](EntityForm, "Form", "name"),
	EntityMedicine: kindOf[Medicine](EntityMedicine, "Medicine", ""),
	EntitySupplier: kindOf[Supplier](EntitySupplier, "Supplier", ""),
	EntityTax: kindOf[Tax](EntityTax, "Tax", "name",
		Reference{Field: "group_id", Target: EntityTaxGroup}),
	EntityTaxGroup: kindOf[TaxGroup](EntityTaxGroup, "Tax Group", "name"),
	EntityDoctor:   kindOf[Doctor](EntityDoctor, "Doctor", ""),
}

// LookupKind resolves a registered entity type.
func LookupKind(t EntityType) (Kind, bool) {
	k, ok := kinds[t]
	return k, ok
}

// Kinds lists registered kinds ordered by type.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Normalize decodes payload into the kind's typed record, validates it and
// returns the canonical attribute map. Identity fields in the payload are
// dropped; unknown attributes are discarded.
func (k Kind) Normalize(v *validator.Validate, payload []byte) (map[string]any, error) {
	if k.decode == nil {
		return nil, fmt.Errorf("kind %s not registered", k.Type)
	}
	rec, err := k.decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", k.Type, err)
	}
	if err := ValidateRecord(v, k.Type, rec); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, err
	}
	return doc.Attributes, nil
}
