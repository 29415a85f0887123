package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// parseRows reads the uploaded CSV into raw rows for the given format.
// A file that cannot be parsed at all (bad header, malformed CSV) is a
// synchronous failure: no job is created from it.
func parseRows(r io.Reader, adapter formatAdapter) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // exports vary in trailing columns

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, h := range adapter.requiredHeaders() {
		if _, ok := headerIndex[h]; !ok {
			return nil, fmt.Errorf("missing required column %q", h)
		}
	}

	var rows []RawRow
	rowNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowNum+1, err)
		}
		if isBlankRecord(record) {
			continue
		}

		rowNum++
		fields := make(map[string]string, len(headerIndex))
		for name, idx := range headerIndex {
			if idx < len(record) {
				fields[name] = record[idx]
			}
		}
		rows = append(rows, RawRow{Row: rowNum, Fields: fields})
	}

	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
