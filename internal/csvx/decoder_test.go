package csvx

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/marketlens/ingest/internal/schema"
)

func customersTemplate(t *testing.T) schema.Template {
	t.Helper()
	tmpl, ok := schema.Get(schema.KindCustomers)
	if !ok {
		t.Fatal("customers template not registered")
	}
	return tmpl
}

func TestDecoderHeader(t *testing.T) {
	tmpl := customersTemplate(t)
	header := strings.Join(tmpl.Columns(), ",")

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "exact header",
			input: header + "\n",
		},
		{
			name:  "case insensitive header",
			input: strings.ToUpper(header) + "\n",
		},
		{
			name:  "reordered columns",
			input: "age,customer_id,gender,location,income_range,registration_date,preferred_category\n",
		},
		{
			name:    "missing column",
			input:   "customer_id,age,gender,location,income_range,registration_date\n",
			wantErr: true,
		},
		{
			name:    "unexpected column",
			input:   header + ",extra\n",
			wantErr: true,
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(strings.NewReader(tt.input), tmpl)
			err := dec.Header()

			if tt.wantErr {
				var mismatch *HeaderMismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("Header() error = %v, want HeaderMismatchError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Header() error = %v", err)
			}
		})
	}
}

func TestDecoderHeaderMismatchMessage(t *testing.T) {
	tmpl := customersTemplate(t)
	input := "customer_id,age,gender,location,income_range,bogus\n"

	dec := NewDecoder(strings.NewReader(input), tmpl)
	err := dec.Header()

	var mismatch *HeaderMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Header() error = %v, want HeaderMismatchError", err)
	}

	if got, want := len(mismatch.Missing), 2; got != want {
		t.Errorf("Missing = %v, want %d columns", mismatch.Missing, want)
	}
	if got, want := len(mismatch.Unexpected), 1; got != want {
		t.Errorf("Unexpected = %v, want %d columns", mismatch.Unexpected, want)
	}
	msg := mismatch.Error()
	if !strings.Contains(msg, "registration_date") || !strings.Contains(msg, "bogus") {
		t.Errorf("Error() = %q, should name missing and unexpected columns", msg)
	}
	// Missing columns come out in template order.
	if mismatch.Missing[0] != "registration_date" || mismatch.Missing[1] != "preferred_category" {
		t.Errorf("Missing = %v, want template order", mismatch.Missing)
	}
}

func TestDecoderNext(t *testing.T) {
	tmpl := customersTemplate(t)
	input := strings.Join(tmpl.Columns(), ",") + "\n" +
		"CUST00001,25,Female,New York,$50k-$75k,2024-01-15,Fashion\n" +
		"CUST00002,40,Male,Boston,$75k-$100k,2023-11-02,Electronics\n"

	dec := NewDecoder(strings.NewReader(input), tmpl)

	row, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if row.Index != 0 {
		t.Errorf("row.Index = %d, want 0", row.Index)
	}
	if row.Values["customer_id"] != "CUST00001" {
		t.Errorf("customer_id = %q, want CUST00001", row.Values["customer_id"])
	}
	if row.Values["age"] != "25" {
		t.Errorf("age = %q, want 25", row.Values["age"])
	}

	row, err = dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if row.Index != 1 {
		t.Errorf("row.Index = %d, want 1", row.Index)
	}

	if _, err = dec.Next(); err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestDecoderSkipsBlankLines(t *testing.T) {
	tmpl := customersTemplate(t)
	input := strings.Join(tmpl.Columns(), ",") + "\n" +
		"\n" +
		"CUST00001,25,Female,New York,$50k-$75k,2024-01-15,Fashion\n" +
		"   \n" +
		"CUST00002,40,Male,Boston,$75k-$100k,2023-11-02,Electronics\n"

	dec := NewDecoder(strings.NewReader(input), tmpl)

	row, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if row.Index != 0 {
		t.Errorf("first row index = %d, want 0 (blank lines must not count)", row.Index)
	}

	row, err = dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if row.Index != 1 {
		t.Errorf("second row index = %d, want 1", row.Index)
	}
}

func TestDecoderAllEmptyRow(t *testing.T) {
	tmpl := customersTemplate(t)
	input := strings.Join(tmpl.Columns(), ",") + "\n" +
		",,,,,,\n" +
		"CUST00001,25,Female,New York,$50k-$75k,2024-01-15,Fashion\n"

	dec := NewDecoder(strings.NewReader(input), tmpl)

	// A row with the right field count but every cell empty is a data row,
	// not a blank line: it must be produced so the validator can flag the
	// empty required fields.
	row, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if row.Index != 0 {
		t.Errorf("row.Index = %d, want 0", row.Index)
	}
	for _, col := range tmpl.Columns() {
		if row.Values[col] != "" {
			t.Errorf("Values[%q] = %q, want empty", col, row.Values[col])
		}
	}

	row, err = dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if row.Index != 1 || row.Values["customer_id"] != "CUST00001" {
		t.Errorf("second row = %d %q, want 1 CUST00001", row.Index, row.Values["customer_id"])
	}
}

func TestDecoderRowShapeError(t *testing.T) {
	tmpl := customersTemplate(t)
	input := strings.Join(tmpl.Columns(), ",") + "\n" +
		"CUST00001,25,Female\n" +
		"CUST00002,40,Male,Boston,$75k-$100k,2023-11-02,Electronics\n"

	dec := NewDecoder(strings.NewReader(input), tmpl)

	row, err := dec.Next()
	var shape *RowShapeError
	if !errors.As(err, &shape) {
		t.Fatalf("Next() error = %v, want RowShapeError", err)
	}
	if shape.Index != 0 {
		t.Errorf("shape.Index = %d, want 0", shape.Index)
	}
	if row.Index != 0 {
		t.Errorf("row.Index = %d, want 0", row.Index)
	}

	// Decoding continues with the next row.
	row, err = dec.Next()
	if err != nil {
		t.Fatalf("Next() after shape error = %v", err)
	}
	if row.Index != 1 {
		t.Errorf("row.Index = %d, want 1", row.Index)
	}
	if row.Values["customer_id"] != "CUST00002" {
		t.Errorf("customer_id = %q, want CUST00002", row.Values["customer_id"])
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"  padded  ", "padded"},
		{`="CUST001"`, "CUST001"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{"=formula", "formula"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.expected {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
