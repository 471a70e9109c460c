// Package profile infers a semantic and statistical description of every
// column in a dataset and assembles it into a dataset summary.
package profile

import (
	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"
)

const (
	// SampleSeed seeds the sampler so repeated profiles of the same data
	// return the same samples.
	SampleSeed = 42
	// DefaultSamples is used when a caller asks for zero or fewer samples.
	DefaultSamples = 3
	// CategoryRatio is the distinct/total ratio below which a text column
	// is considered categorical.
	CategoryRatio = 0.5
)

// Inferred column kinds. Columns matching none of them are labelled with
// their declared type name.
const (
	KindNumber   = "number"
	KindBoolean  = "boolean"
	KindDate     = "date"
	KindCategory = "category"
	KindString   = "string"
)

// Properties is the per-column record. Std, Min and Max are nil when the
// column kind has no statistics and hold a null Value when the statistic
// could not be computed.
type Properties struct {
	Dtype           string `json:"dtype" jsonschema:"description=Inferred kind: number boolean date category string or a raw type name"`
	Std             *Value `json:"std,omitempty"`
	Min             *Value `json:"min,omitempty"`
	Max             *Value `json:"max,omitempty"`
	Samples         []any  `json:"samples"`
	NumUniqueValues int    `json:"num_unique_values"`
	SemanticType    string `json:"semantic_type" jsonschema:"description=A single word such as city or email"`
	Description     string `json:"description"`
}

// ColumnProfile describes one column.
type ColumnProfile struct {
	Column     string     `json:"column"`
	Properties Properties `json:"properties"`
}

// DatasetSummary is the profile of a whole dataset.
type DatasetSummary struct {
	Name               string          `json:"name"`
	FileName           string          `json:"file_name"`
	DatasetDescription string          `json:"dataset_description"`
	Fields             []ColumnProfile `json:"fields"`
}

// Columns profiles every column of ds in order. n is the requested number of
// samples per column; n <= 0 selects DefaultSamples.
func Columns(ds *dataset.Dataset, n int) []ColumnProfile {
	if ds == nil {
		return nil
	}
	if n <= 0 {
		n = DefaultSamples
	}

	out := make([]ColumnProfile, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		out = append(out, profileColumn(c, n))
	}
	return out
}

// New builds the summary skeleton: name and file name set, description
// empty and one field per column. The name falls back to the dataset name
// when fileName is empty.
func New(ds *dataset.Dataset, fileName string, n int) *DatasetSummary {
	name := fileName
	if name == "" && ds != nil {
		name = ds.Name
	}
	fields := Columns(ds, n)
	if fields == nil {
		fields = []ColumnProfile{}
	}
	return &DatasetSummary{
		Name:     name,
		FileName: name,
		Fields:   fields,
	}
}

func profileColumn(c *dataset.Column, n int) ColumnProfile {
	p := Properties{Dtype: classify(c)}

	switch p.Dtype {
	case KindNumber:
		p.Std, p.Min, p.Max = numericStats(c)
	case KindDate:
		p.Min, p.Max = dateRange(c)
	}

	distinct, hasMissing := distinctValues(c)
	p.Samples = sample(distinct, n)
	p.NumUniqueValues = len(distinct)
	if hasMissing {
		p.NumUniqueValues++
	}

	return ColumnProfile{Column: c.Name, Properties: p}
}
