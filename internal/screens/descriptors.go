// Package screens configures the generic admin view for each back-office
// screen.
package screens

import (
	"clinicadmin/internal/admin"
	"clinicadmin/pkg/domain"
	"fmt"
	"strconv"
)

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// DoctorLabel resolves a doctor name, falling back to "Doctor #<id>".
func DoctorLabel(aux admin.Lookup, id int64) string {
	if name := aux[id]; name != "" {
		return name
	}
	return fmt.Sprintf("Doctor #%d", id)
}

// GroupLabel resolves a tax group name, falling back to an em dash.
func GroupLabel(aux admin.Lookup, id int64) string {
	if name := aux[id]; name != "" {
		return name
	}
	return "—"
}

// Commissions is the Commission Settings screen.
func Commissions() admin.Descriptor[domain.Commission] {
	return admin.Descriptor[domain.Commission]{
		Entity:    domain.EntityCommission,
		Title:     "Commission Settings",
		Label:     "Commission",
		Auxiliary: domain.EntityDoctor,
		Search: func(c domain.Commission, aux admin.Lookup) []string {
			return []string{strconv.FormatInt(c.DoctorID, 10), aux[c.DoctorID], c.Type, c.Source}
		},
		Columns: []admin.Column[domain.Commission]{
			{Header: "Doctor", Value: func(c domain.Commission, aux admin.Lookup) string { return DoctorLabel(aux, c.DoctorID) }},
			{Header: "Type", Value: func(c domain.Commission, _ admin.Lookup) string { return c.Type }},
			{Header: "Source", Value: func(c domain.Commission, _ admin.Lookup) string { return c.Source }},
			{Header: "Value", Value: func(c domain.Commission, _ admin.Lookup) string { return formatFloat(c.Value) }},
			{Header: "Calculation", Value: func(c domain.Commission, _ admin.Lookup) string { return c.CalculationType }},
		},
	}
}

// Forms is the dosage Forms screen.
func Forms() admin.Descriptor[domain.Form] {
	return admin.Descriptor[domain.Form]{
		Entity: domain.EntityForm,
		Title:  "Forms",
		Label:  "Form",
		Search: func(f domain.Form, _ admin.Lookup) []string { return []string{f.Name} },
		Columns: []admin.Column[domain.Form]{
			{Header: "Name", Value: func(f domain.Form, _ admin.Lookup) string { return f.Name }},
		},
	}
}

// Medicines is the Medicines screen.
func Medicines() admin.Descriptor[domain.Medicine] {
	return admin.Descriptor[domain.Medicine]{
		Entity: domain.EntityMedicine,
		Title:  "Medicines",
		Label:  "Medicine",
		Search: func(m domain.Medicine, _ admin.Lookup) []string { return []string{m.BrandName, m.GenericName} },
		Columns: []admin.Column[domain.Medicine]{
			{Header: "Brand Name", Value: func(m domain.Medicine, _ admin.Lookup) string { return m.BrandName }},
			{Header: "Generic Name", Value: func(m domain.Medicine, _ admin.Lookup) string { return m.GenericName }},
			{Header: "Form", Value: func(m domain.Medicine, _ admin.Lookup) string { return m.Form }},
			{Header: "Strength", Value: func(m domain.Medicine, _ admin.Lookup) string { return m.Strength }},
			{Header: "HSN Code", Value: func(m domain.Medicine, _ admin.Lookup) string { return m.HSNCode }},
			{Header: "Total Qty", Value: func(m domain.Medicine, _ admin.Lookup) string { return quantity(m.TotalQuantity) }},
		},
	}
}

func quantity(q *int) string {
	if q == nil {
		return ""
	}
	return strconv.Itoa(*q)
}

// Suppliers is the Suppliers screen.
func Suppliers() admin.Descriptor[domain.Supplier] {
	return admin.Descriptor[domain.Supplier]{
		Entity: domain.EntitySupplier,
		Title:  "Suppliers",
		Label:  "Supplier",
		Search: func(s domain.Supplier, _ admin.Lookup) []string { return []string{s.Name, s.Description, s.City} },
		Columns: []admin.Column[domain.Supplier]{
			{Header: "Name", Value: func(s domain.Supplier, _ admin.Lookup) string { return s.Name }},
			{Header: "Description", Value: func(s domain.Supplier, _ admin.Lookup) string { return s.Description }},
			{Header: "Address", Value: func(s domain.Supplier, _ admin.Lookup) string { return s.Address }},
			{Header: "City", Value: func(s domain.Supplier, _ admin.Lookup) string { return s.City }},
		},
	}
}

// Taxes is the Taxes screen.
func Taxes() admin.Descriptor[domain.Tax] {
	return admin.Descriptor[domain.Tax]{
		Entity:    domain.EntityTax,
		Title:     "Taxes",
		Label:     "Tax",
		Auxiliary: domain.EntityTaxGroup,
		Search: func(t domain.Tax, aux admin.Lookup) []string {
			return []string{t.Name, aux[t.GroupID]}
		},
		UniqueName: func(t domain.Tax) string { return t.Name },
		Columns: []admin.Column[domain.Tax]{
			{Header: "Name", Value: func(t domain.Tax, _ admin.Lookup) string { return t.Name }},
			{Header: "Group", Value: func(t domain.Tax, aux admin.Lookup) string { return GroupLabel(aux, t.GroupID) }},
			{Header: "Percentage (%)", Value: func(t domain.Tax, _ admin.Lookup) string { return formatFloat(t.Percentage) }},
		},
	}
}

// TaxGroups is the Tax Groups screen.
func TaxGroups() admin.Descriptor[domain.TaxGroup] {
	return admin.Descriptor[domain.TaxGroup]{
		Entity:     domain.EntityTaxGroup,
		Title:      "Tax Groups",
		Label:      "Tax Group",
		Search:     func(g domain.TaxGroup, _ admin.Lookup) []string { return []string{g.Name} },
		UniqueName: func(g domain.TaxGroup) string { return g.Name },
		Columns: []admin.Column[domain.TaxGroup]{
			{Header: "Name", Value: func(g domain.TaxGroup, _ admin.Lookup) string { return g.Name }},
		},
	}
}
