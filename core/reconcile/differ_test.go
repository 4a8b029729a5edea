package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	base := Record{
		Name:        "1100 - Cash",
		DisplayName: "Cash",
		Parent:      "1000 - Assets",
		IsGroup:     false,
		Type:        "Cash",
		RootType:    "Asset",
		ReportType:  "Balance Sheet",
		Company:     "ACME",
	}

	tests := []struct {
		name     string
		mutate   func(r *Record)
		expected []Field
	}{
		{name: "identical", mutate: func(r *Record) {}, expected: []Field{}},
		{name: "identifying name ignored", mutate: func(r *Record) { r.Name = "Cash" }, expected: []Field{}},
		{name: "parent by normalized key", mutate: func(r *Record) { r.Parent = "Assets" }, expected: []Field{}},
		{name: "parent moved", mutate: func(r *Record) { r.Parent = "Liabilities" }, expected: []Field{FieldParent}},
		{name: "type changed", mutate: func(r *Record) { r.Type = "Bank" }, expected: []Field{FieldType}},
		{name: "group flag", mutate: func(r *Record) { r.IsGroup = true }, expected: []Field{FieldIsGroup}},
		{name: "company cleared", mutate: func(r *Record) { r.Company = "" }, expected: []Field{FieldCompany}},
		{
			name: "canonical order",
			mutate: func(r *Record) {
				r.Company = "Other"
				r.DisplayName = "Petty Cash"
				r.RootType = "Liability"
			},
			expected: []Field{FieldDisplayName, FieldRootType, FieldCompany},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt := base
			tt.mutate(&tgt)
			diff := Compare(base, tgt)
			assert.Equal(t, tt.expected, diff.Fields())
			assert.Equal(t, len(tt.expected) == 0, diff.Empty())
		})
	}
}

func TestCompare_ChangeValues(t *testing.T) {
	diff := Compare(Record{Name: "A", Type: "Cash"}, Record{Name: "A", Type: "Bank"})

	assert.Equal(t, Change{Source: "Cash", Target: "Bank"}, diff[FieldType])
	assert.Equal(t, `account_type: "Bank" -> "Cash"`, diff.String())
}

func TestCompare_EmptyParentsEqual(t *testing.T) {
	diff := Compare(Record{Name: "A", Parent: " "}, Record{Name: "A"})
	assert.True(t, diff.Empty())
}
