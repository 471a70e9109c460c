package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// naTokens are the cell contents treated as missing values.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

func parseCSVBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

// ReadCSV parses delimited text with a header row. Column kinds are inferred
// from the cell contents: integers, floats and booleans become typed columns,
// everything else stays text. An integer column with missing cells is
// widened to float.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv has no header row", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	names := headerNames(header)

	cells := make([][]string, len(names))
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if len(record) > len(names) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrMalformed, line, len(record), len(names))
		}
		for i := range names {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			cells[i] = append(cells[i], cell)
		}
	}

	ds := &Dataset{Columns: make([]*Column, len(names))}
	for i, name := range names {
		kind, values := inferCells(cells[i])
		ds.Columns[i] = NewColumn(name, kind, values)
	}
	return ds, nil
}

// headerNames cleans the header row: the UTF-8 BOM is dropped, blank names
// become "Unnamed: i" and repeated names get a ".n" suffix.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		if _, dup := seen[name]; dup {
			n := seen[h]
			for {
				n++
				name = fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[h] = n
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

func inferCells(cells []string) (Kind, []any) {
	var (
		present  int
		missing  int
		allInt   = true
		allFloat = true
		allBool  = true
	)

	for _, c := range cells {
		if isNA(c) {
			missing++
			continue
		}
		present++
		if allInt {
			if _, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseCSVBool(strings.TrimSpace(c)); !ok {
				allBool = false
			}
		}
	}

	values := make([]any, len(cells))

	switch {
	case present == 0:
		// nothing to go on; an empty column reads as float
		return KindFloat, values
	case allInt && missing == 0:
		for i, c := range cells {
			v, _ := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
			values[i] = v
		}
		return KindInt, values
	case allInt || allFloat:
		for i, c := range cells {
			if isNA(c) {
				continue
			}
			v, _ := strconv.ParseFloat(strings.TrimSpace(c), 64)
			values[i] = v
		}
		return KindFloat, values
	case allBool && missing == 0:
		for i, c := range cells {
			v, _ := parseCSVBool(strings.TrimSpace(c))
			values[i] = v
		}
		return KindBool, values
	}

	for i, c := range cells {
		if !isNA(c) {
			values[i] = c
		}
	}
	return KindText, values
}
