package schema

import (
	"fmt"
	"strings"
)

// Sample returns a minimal valid CSV file for a kind: the header row built
// from the template's columns followed by its single example row. The output
// is byte-for-byte deterministic for a given template.
func Sample(kind Kind) ([]byte, error) {
	t, ok := Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind: %s", kind)
	}

	var b strings.Builder
	b.WriteString(strings.Join(t.Columns(), ","))
	b.WriteByte('\n')
	b.WriteString(t.ExampleRow)
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// SampleFilename returns the download filename for a kind's sample file.
func SampleFilename(kind Kind) string {
	return fmt.Sprintf("sample_%s.csv", kind)
}
