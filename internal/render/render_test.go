package render

import (
	"clinicadmin/internal/admin"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() Table {
	return Table{
		Title:   "Taxes",
		Headers: []string{"Name", "Group", "Percentage (%)"},
		Rows: []Row{
			{ID: 2, Cells: []string{"SGST", "GST", "6"}},
			{ID: 1, Cells: []string{"CGST", "—", "9"}, Expanded: true},
		},
	}
}

func TestScreenTable(t *testing.T) {
	out := Screen(sample(), Options{})
	assert.Contains(t, out, "Taxes")
	assert.Contains(t, out, "Total Records: 2")
	assert.Contains(t, out, "S.No")
	assert.Contains(t, out, "Percentage (%)")
	assert.Less(t, strings.Index(out, "SGST"), strings.Index(out, "CGST"))
}

func TestScreenCards(t *testing.T) {
	out := Screen(sample(), Options{Narrow: true})
	assert.Contains(t, out, "1. SGST")
	assert.Contains(t, out, "2. CGST")
	assert.Contains(t, out, "Group: —")
	assert.NotContains(t, out, "Group: GST")
}

func TestScreenEmpty(t *testing.T) {
	out := Screen(Table{Title: "Forms", Headers: []string{"Name"}}, Options{})
	assert.Contains(t, out, "Total Records: 0")
	assert.Contains(t, out, "No records found")
}

func TestToast(t *testing.T) {
	assert.Contains(t, Toast(admin.Notification{Level: admin.LevelSuccess, Message: "Form added successfully"}), "Form added successfully")
	assert.Contains(t, Toast(admin.Notification{Level: admin.LevelError, Message: "boom"}), "✗ boom")
}
