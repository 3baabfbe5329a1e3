package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsRegistry(t *testing.T) {
	var types []EntityType
	for _, k := range Kinds() {
		types = append(types, k.Type)
	}
	assert.Equal(t, []EntityType{
		EntityCommission, EntityDoctor, EntityForm, EntityMedicine, EntitySupplier, EntityTaxGroup, EntityTax,
	}, types)

	tax, ok := LookupKind(EntityTax)
	require.True(t, ok)
	assert.Equal(t, "name", tax.UniqueField)
	assert.Equal(t, []Reference{{Field: "group_id", Target: EntityTaxGroup}}, tax.References)

	_, ok = LookupKind("patients")
	assert.False(t, ok)
}

func TestNormalizeCanonicalizesPayload(t *testing.T) {
	kind, _ := LookupKind(EntitySupplier)
	attrs, err := kind.Normalize(NewValidator(), []byte(`{"id":99,"name":"Acme","city":"Pune","phone":"123","created_at":"2020-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Acme", "city": "Pune", "description": "", "address": ""}, attrs)
}

func TestNormalizeReportsFieldErrors(t *testing.T) {
	kind, _ := LookupKind(EntityMedicine)
	_, err := kind.Normalize(NewValidator(), []byte(`{"brand_name":"Crocin","generic_name":" ","total_quantity":-1}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, EntityMedicine, verr.Entity)
	assert.True(t, verr.Has("generic_name", "notblank"))
	assert.True(t, verr.Has("form", "notblank"))
	assert.True(t, verr.Has("total_quantity", "gte"))
	assert.False(t, verr.Has("brand_name", "notblank"))
	assert.Contains(t, verr.Error(), "generic_name (notblank)")
}

func TestNormalizeDecodeErrors(t *testing.T) {
	kind, _ := LookupKind(EntityTax)
	_, err := kind.Normalize(nil, []byte(`{"name":"CGST","group_id":"one"}`))
	var typeErr *json.UnmarshalTypeError
	assert.True(t, errors.As(err, &typeErr))
	assert.ErrorContains(t, err, "decode taxes payload")

	_, err = Kind{Type: "patients"}.Normalize(nil, []byte(`{}`))
	assert.ErrorContains(t, err, "not registered")
}

func TestTaxPercentageBounds(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, ValidateRecord(v, EntityTax, Tax{Name: "CGST", GroupID: 1, Percentage: 100}))
	err := ValidateRecord(v, EntityTax, Tax{Name: "CGST", GroupID: 1, Percentage: 101})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("percentage", "lte"))

	err = ValidateRecord(v, EntityCommission, &Commission{})
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("doctor_id", "required"))
}

func TestMedicineQuantityIsRequired(t *testing.T) {
	v := NewValidator()
	med := Medicine{BrandName: "Crocin", GenericName: "Paracetamol", Form: "Tablet", Strength: "500mg", HSNCode: "3004"}
	err := ValidateRecord(v, EntityMedicine, med)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("total_quantity", "required"))

	zero := 0
	med.TotalQuantity = &zero
	assert.NoError(t, ValidateRecord(v, EntityMedicine, med))

	kind, _ := LookupKind(EntityMedicine)
	attrs, err := kind.Normalize(v, []byte(`{"brand_name":"Crocin","generic_name":"Paracetamol","form":"Tablet","strength":"500mg","hsn_code":"3004","total_quantity":0}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("0"), attrs["total_quantity"])
}
