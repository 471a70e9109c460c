package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const maxJSONLineSize = 64 * 1024 * 1024

// ReadJSONLines parses line-delimited JSON objects. Columns appear in the
// order their keys are first seen; a key absent from a record is a missing
// value for that row. Nested arrays and objects produce a column of kind
// KindOther with type name "json".
func ReadJSONLines(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxJSONLineSize)

	var (
		order []string
		index = make(map[string]int)
		rows  []map[string]any
		line  int
	)

	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		keys, record, err := decodeOrderedObject(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: json line %d: %v", ErrMalformed, line, err)
		}
		for _, k := range keys {
			if _, ok := index[k]; !ok {
				index[k] = len(order)
				order = append(order, k)
			}
		}
		rows = append(rows, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read json lines: %w", err)
	}

	ds := &Dataset{Columns: make([]*Column, len(order))}
	for i, name := range order {
		raw := make([]any, len(rows))
		for j, rec := range rows {
			raw[j] = rec[name]
		}
		kind, typeName, values := inferJSONValues(raw)
		ds.Columns[i] = &Column{Name: name, Kind: kind, TypeName: typeName, Values: values}
	}
	return ds, nil
}

func decodeOrderedObject(raw []byte) ([]string, map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("record is not a json object")
	}

	var keys []string
	record := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errors.New("object key is not a string")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := record[key]; !dup {
			keys = append(keys, key)
		}
		record[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, errors.New("trailing data after object")
	}
	return keys, record, nil
}

func jsonNumber(n json.Number) (any, bool) {
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, _ := n.Float64()
	return f, false
}

func inferJSONValues(raw []any) (Kind, string, []any) {
	var (
		present, missing          int
		nums, ints, bools, nested int
	)
	for _, v := range raw {
		switch t := v.(type) {
		case nil:
			missing++
			continue
		case json.Number:
			nums++
			if _, isInt := jsonNumber(t); isInt {
				ints++
			}
		case bool:
			bools++
		case string:
		default:
			nested++
		}
		present++
	}

	values := make([]any, len(raw))
	switch {
	case nested > 0:
		copy(values, raw)
		return KindOther, "json", values
	case present > 0 && nums == present:
		widen := ints < nums || missing > 0
		for i, v := range raw {
			n, ok := v.(json.Number)
			if !ok {
				continue
			}
			conv, _ := jsonNumber(n)
			if widen {
				f, _ := n.Float64()
				conv = f
			}
			values[i] = conv
		}
		if widen {
			return KindFloat, KindFloat.String(), values
		}
		return KindInt, KindInt.String(), values
	case present > 0 && bools == present && missing == 0:
		copy(values, raw)
		return KindBool, KindBool.String(), values
	}

	for i, v := range raw {
		if n, ok := v.(json.Number); ok {
			values[i], _ = jsonNumber(n)
			continue
		}
		values[i] = v
	}
	return KindText, KindText.String(), values
}
