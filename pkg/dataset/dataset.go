// Package dataset holds the in-memory tabular model shared by the loaders,
// the Parquet writer and the column profiler.
//
// A Dataset is an ordered list of named columns. Every column carries a
// declared Kind (what the source format said the values are) plus the raw
// type name the source used, and a slice of values where nil means missing.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrMalformed         = errors.New("malformed dataset")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Kind is the declared element type of a column.
type Kind uint8

const (
	KindOther Kind = iota
	KindInt
	KindFloat
	KindComplex
	KindBool
	KindText
	KindCategorical
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindComplex:
		return "complex128"
	case KindBool:
		return "bool"
	case KindText:
		return "object"
	case KindCategorical:
		return "category"
	case KindTimestamp:
		return "datetime64"
	}
	return "unknown"
}

// IsNumeric reports whether values of this kind are numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat || k == KindComplex
}

// Column is a single named column.
//
// Values hold int64, float64, complex128, bool, string or time.Time depending
// on Kind. Text columns may mix scalar types. KindOther columns hold whatever
// the source produced. A nil entry is a missing value.
type Column struct {
	Name     string
	Kind     Kind
	TypeName string
	Values   []any
}

// NewColumn creates a column whose TypeName matches its kind.
func NewColumn(name string, kind Kind, values []any) *Column {
	return &Column{
		Name:     name,
		Kind:     kind,
		TypeName: kind.String(),
		Values:   values,
	}
}

// Len returns the number of rows in the column, missing values included.
func (c *Column) Len() int {
	return len(c.Values)
}

// DeclaredType returns the raw type name, falling back to the kind name.
func (c *Column) DeclaredType() string {
	if c.TypeName != "" {
		return c.TypeName
	}
	return c.Kind.String()
}

// NonNull returns the values that are not missing, in row order.
func (c *Column) NonNull() []any {
	out := make([]any, 0, len(c.Values))
	for _, v := range c.Values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// Dataset is an ordered collection of equally long columns.
type Dataset struct {
	Name    string
	Columns []*Column
}

// NumRows returns the row count, or 0 for a dataset without columns.
func (d *Dataset) NumRows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int {
	return len(d.Columns)
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Validate checks that the dataset is tabular: named, unique columns of
// equal length.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil dataset", ErrMalformed)
	}
	seen := make(map[string]struct{}, len(d.Columns))
	rows := -1
	for i, c := range d.Columns {
		if c == nil {
			return fmt.Errorf("%w: column %d is nil", ErrMalformed, i)
		}
		if c.Name == "" {
			return fmt.Errorf("%w: column %d has no name", ErrMalformed, i)
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: duplicate column %q", ErrMalformed, c.Name)
		}
		seen[c.Name] = struct{}{}
		if rows == -1 {
			rows = c.Len()
		} else if c.Len() != rows {
			return fmt.Errorf("%w: column %q has %d rows, expected %d", ErrMalformed, c.Name, c.Len(), rows)
		}
	}
	return nil
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// FormatTime renders a timestamp the way profiles and reports show it.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
