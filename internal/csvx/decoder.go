// Package csvx decodes delimited upload files into an ordered stream of raw
// rows. The decoder is forward-only and single-pass: rows are produced one
// at a time so memory stays bounded no matter how large the file is.
package csvx

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/marketlens/ingest/internal/schema"
)

// RawRow is one decoded data row: a zero-based index (header excluded) and
// the cleaned cell value for every template column.
type RawRow struct {
	Index  int
	Values map[string]string
}

// HeaderMismatchError reports that the file's header row does not exactly
// match the template's required column set. It aborts the whole file.
type HeaderMismatchError struct {
	Kind       schema.Kind
	Missing    []string
	Unexpected []string
}

func (e *HeaderMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected columns: %s", strings.Join(e.Unexpected, ", ")))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("invalid header for %s", e.Kind)
	}
	return fmt.Sprintf("invalid header for %s: %s", e.Kind, strings.Join(parts, "; "))
}

// RowShapeError reports a structurally broken data row (wrong field count or
// a CSV parse failure). It is row-scoped: decoding continues afterwards.
type RowShapeError struct {
	Index   int
	Message string
}

func (e *RowShapeError) Error() string {
	return e.Message
}

// Decoder streams RawRows for one file against one template. A Decoder is
// single-use: once Next has returned io.EOF the same file cannot be decoded
// again with the same instance.
type Decoder struct {
	template   schema.Template
	r          *csv.Reader
	posToCol   []string // file column position -> canonical column name
	headerDone bool
	next       int
}

// NewDecoder creates a decoder for r against the given template. The reader
// is wrapped for BOM skipping and UTF-8 sanitization; callers that need byte
// accounting should wrap with a CountingReader first.
func NewDecoder(r io.Reader, t schema.Template) *Decoder {
	cr := csv.NewReader(NewUTF8Sanitizer(NewBOMSkipper(r)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &Decoder{template: t, r: cr}
}

// Header reads and validates the header row. The column set must exactly
// equal the template's required columns: missing and unexpected columns both
// fail the file with a HeaderMismatchError before any row is produced.
// Matching is case-insensitive and order-independent.
func (d *Decoder) Header() error {
	if d.headerDone {
		return nil
	}

	record, err := d.r.Read()
	if err == io.EOF {
		return &HeaderMismatchError{Kind: d.template.Kind, Missing: d.template.Columns()}
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	want := make(map[string]string, len(d.template.Fields))
	for _, col := range d.template.Columns() {
		want[strings.ToLower(col)] = col
	}

	mismatch := &HeaderMismatchError{Kind: d.template.Kind}
	seen := make(map[string]bool, len(record))
	d.posToCol = make([]string, len(record))
	for i, cell := range record {
		name := strings.ToLower(CleanCell(cell))
		canonical, ok := want[name]
		if !ok || seen[name] {
			mismatch.Unexpected = append(mismatch.Unexpected, CleanCell(cell))
			continue
		}
		seen[name] = true
		d.posToCol[i] = canonical
	}
	for lower, canonical := range want {
		if !seen[lower] {
			mismatch.Missing = append(mismatch.Missing, canonical)
		}
	}
	// Missing columns must come out in template order for stable messages.
	if len(mismatch.Missing) > 0 {
		missing := make(map[string]bool, len(mismatch.Missing))
		for _, m := range mismatch.Missing {
			missing[m] = true
		}
		ordered := make([]string, 0, len(mismatch.Missing))
		for _, col := range d.template.Columns() {
			if missing[col] {
				ordered = append(ordered, col)
			}
		}
		mismatch.Missing = ordered
	}

	if len(mismatch.Missing) > 0 || len(mismatch.Unexpected) > 0 {
		return mismatch
	}

	d.headerDone = true
	return nil
}

// Next returns the next data row. It returns io.EOF when the file is
// exhausted. A *RowShapeError is row-scoped: the decoder skips the broken
// row and the caller may keep calling Next.
func (d *Decoder) Next() (RawRow, error) {
	if !d.headerDone {
		if err := d.Header(); err != nil {
			return RawRow{}, err
		}
	}

	for {
		idx := d.next
		record, err := d.r.Read()
		if err == io.EOF {
			return RawRow{}, io.EOF
		}
		if err != nil {
			d.next++
			return RawRow{Index: idx}, &RowShapeError{Index: idx, Message: fmt.Sprintf("malformed row: %v", err)}
		}

		// encoding/csv skips truly empty lines; a whitespace-only line
		// surfaces as one blank field. A record with several fields is a
		// real data row even when every cell is empty, and must reach the
		// validator.
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		d.next++

		if len(record) != len(d.posToCol) {
			return RawRow{Index: idx}, &RowShapeError{
				Index:   idx,
				Message: fmt.Sprintf("expected %d columns, got %d", len(d.posToCol), len(record)),
			}
		}

		values := make(map[string]string, len(record))
		for i, cell := range record {
			values[d.posToCol[i]] = CleanCell(cell)
		}
		return RawRow{Index: idx, Values: values}, nil
	}
}

// CleanCell strips common CSV artifacts from a cell: surrounding whitespace,
// Excel formula prefixes (="value"), and stray wrapping quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else {
		s = strings.TrimPrefix(s, "=")
	}

	return strings.Trim(s, `"'`)
}
