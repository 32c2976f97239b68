// Package schema defines the import templates for every entity kind the
// service accepts. Templates are registered once at process start and are
// immutable afterwards; validation, sample generation and the template API
// all read from the same registry so they can never drift apart.
package schema

// Kind identifies one importable entity type. The set of kinds is closed:
// every kind is registered in entities.go and nowhere else.
type Kind string

const (
	KindCustomers   Kind = "customers"
	KindPurchases   Kind = "purchases"
	KindCampaigns   Kind = "campaigns"
	KindPerformance Kind = "performance"
)

// FieldType is the semantic type of a CSV column.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInteger
	FieldDecimal
	FieldEnum
	FieldDate
	FieldReference
)

// FieldSpec defines the validation rules for a single column.
// Every column in a template is required; an empty value is always an error.
type FieldSpec struct {
	Name        string
	Type        FieldType
	Description string // human-readable type description for the template API

	// Integer bounds, applied when Bounded is true.
	Bounded bool
	Min     int64
	Max     int64

	// Valid values for FieldEnum. Matched case-insensitively.
	EnumValues []string

	// Target kind for FieldReference: the value must be the identifier of
	// an already-persisted record of that kind.
	RefKind Kind

	// Identifier marks the column whose value uniquely identifies a record
	// of this kind. At most one column per template.
	Identifier bool
}

// Template is the named set of rules for one entity kind. The column order
// is significant: it is the required header order for uploads, the sample
// file layout, and the field order of validated records.
type Template struct {
	Kind       Kind
	Fields     []FieldSpec
	ExampleRow string // one CSV-formatted data row, used for samples and docs
}

// Columns returns the ordered required column names.
func (t Template) Columns() []string {
	cols := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Field returns the spec for the named column.
func (t Template) Field(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// IdentifierColumn returns the name of the template's identifier column,
// or "" if the template has none.
func (t Template) IdentifierColumn() string {
	for _, f := range t.Fields {
		if f.Identifier {
			return f.Name
		}
	}
	return ""
}

// References returns the specs of all foreign-key columns, in column order.
func (t Template) References() []FieldSpec {
	var refs []FieldSpec
	for _, f := range t.Fields {
		if f.Type == FieldReference {
			refs = append(refs, f)
		}
	}
	return refs
}
