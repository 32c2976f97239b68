package importer

// validate.go applies a template's per-column rules to one decoded row.
//
// Every column is checked before returning, so a single row can surface
// multiple errors in one pass, each tagged with its own column name. A row
// with zero errors yields exactly one typed record.

import (
	"strconv"
	"strings"
	"time"

	"github.com/marketlens/ingest/internal/csvx"
	"github.com/marketlens/ingest/internal/schema"
	"github.com/marketlens/ingest/internal/store"
)

// DateLayout is the only accepted date format for uploaded files.
const DateLayout = "2006-01-02"

// ValidateRow checks every template column of a raw row. It returns either
// a typed record or the full list of row errors, never both.
func ValidateRow(raw csvx.RawRow, t schema.Template) (*store.Record, []RowError) {
	rec := &store.Record{
		Kind:   t.Kind,
		Fields: make(map[string]any, len(t.Fields)),
	}
	var errs []RowError

	for _, spec := range t.Fields {
		value := raw.Values[spec.Name]

		if value == "" {
			errs = append(errs, RowError{
				Row:     raw.Index,
				Column:  spec.Name,
				Kind:    KindMissingField,
				Message: "required field is empty",
			})
			continue
		}

		typed, rowErr := parseCell(raw.Index, value, spec)
		if rowErr != nil {
			errs = append(errs, *rowErr)
			continue
		}
		rec.Fields[spec.Name] = typed
		if spec.Identifier {
			rec.ID = typed.(string)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rec, nil
}

// parseCell coerces one cell to its semantic type.
func parseCell(row int, value string, spec schema.FieldSpec) (any, *RowError) {
	switch spec.Type {
	case schema.FieldString, schema.FieldReference:
		return value, nil

	case schema.FieldInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, &RowError{
				Row: row, Column: spec.Name, Kind: KindTypeMismatch,
				Message: "invalid integer: " + strconv.Quote(value),
			}
		}
		if spec.Bounded && (n < spec.Min || n > spec.Max) {
			return nil, &RowError{
				Row: row, Column: spec.Name, Kind: KindTypeMismatch,
				Message: "must be between " + strconv.FormatInt(spec.Min, 10) + " and " + strconv.FormatInt(spec.Max, 10),
			}
		}
		return n, nil

	case schema.FieldDecimal:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, &RowError{
				Row: row, Column: spec.Name, Kind: KindTypeMismatch,
				Message: "invalid decimal: " + strconv.Quote(value),
			}
		}
		return f, nil

	case schema.FieldDate:
		d, err := time.Parse(DateLayout, value)
		if err != nil {
			return nil, &RowError{
				Row: row, Column: spec.Name, Kind: KindTypeMismatch,
				Message: "invalid date format (expected YYYY-MM-DD): " + strconv.Quote(value),
			}
		}
		return d, nil

	case schema.FieldEnum:
		for _, ev := range spec.EnumValues {
			if strings.EqualFold(ev, value) {
				return ev, nil // canonical casing
			}
		}
		return nil, &RowError{
			Row: row, Column: spec.Name, Kind: KindInvalidEnum,
			Message: "value must be one of: " + strings.Join(spec.EnumValues, ", "),
		}

	default:
		return value, nil
	}
}
