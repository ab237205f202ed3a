package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// PlainText decodes UTF-8 text, replacing invalid bytes.
func PlainText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), "�")
}

// CSVText renders each row as "column: value" pairs so rows survive chunking
// as self-describing sentences.
func CSVText(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv failed: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	header := records[0]
	rows := records[1:]

	var b strings.Builder
	fmt.Fprintf(&b, "CSV data with %d rows and %d columns. Columns: %s.\n", len(rows), len(header), strings.Join(header, ", "))
	for _, row := range rows {
		pairs := make([]string, 0, len(row))
		for i, value := range row {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			name := fmt.Sprintf("column %d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				name = strings.TrimSpace(header[i])
			}
			pairs = append(pairs, name+": "+value)
		}
		if len(pairs) > 0 {
			b.WriteString(strings.Join(pairs, ", "))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
