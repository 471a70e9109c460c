package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
	"time"
)

var readmeTemplate = template.Must(template.New("readme").Parse(`# Dataset Metadata: {{.FileName}}

## Overview
- **Dataset Name**: {{.Name}}
- **Description**: {{.Description}}
- **Rows**: {{.Rows}}
- **Columns**: {{.Columns}}

## Data Fields

{{range .Fields}}### {{.Column}}
- **Data Type**: {{.Dtype}}
- **Semantic Type**: {{.SemanticType}}
- **Description**: {{.Description}}
- **Unique Values**: {{.UniqueValues}}
{{- if .Samples}}
- **Sample Values**: {{.Samples}}
{{- end}}
{{- range .Stats}}
- **{{.Label}}**: {{.Value}}
{{- end}}

{{end}}
## Generated Information
- **Processing Date**: {{.GeneratedAt}}
- **Source File**: {{.FileName}}
- **Generated by**: Dataset Summarizer Tool

`))

type readme struct {
	FileName    string
	Name        string
	Description string
	Rows        int
	Columns     int
	Fields      []readmeField
	GeneratedAt string
}

type readmeField struct {
	Column       string
	Dtype        string
	SemanticType string
	Description  string
	UniqueValues string
	Samples      string
	Stats        []readmeStat
}

type readmeStat struct {
	Label string
	Value string
}

var numberStats = []readmeStat{
	{Label: "Min", Value: "min"},
	{Label: "Max", Value: "max"},
	{Label: "Standard Deviation", Value: "std"},
}

// RenderReadme renders the markdown report for a summary document. The
// document may come from a generator, so every key is optional.
func RenderReadme(doc map[string]any, fileName string, rows, columns int, at time.Time) ([]byte, error) {
	view := readme{
		FileName:    fileName,
		Name:        text(doc, "name", fileName),
		Description: text(doc, "dataset_description", "No description available"),
		Rows:        rows,
		Columns:     columns,
		GeneratedAt: at.Format("2006-01-02 15:04:05"),
	}

	fields, _ := doc["fields"].([]any)
	for _, raw := range fields {
		field, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		props, _ := field["properties"].(map[string]any)

		f := readmeField{
			Column:       text(field, "column", "Unknown"),
			Dtype:        text(props, "dtype", "Unknown"),
			SemanticType: text(props, "semantic_type", "Not specified"),
			Description:  text(props, "description", "No description available"),
			UniqueValues: text(props, "num_unique_values", "Unknown"),
		}
		if samples, ok := props["samples"].([]any); ok && len(samples) > 0 {
			f.Samples = display(samples)
		}
		if f.Dtype == "number" {
			for _, s := range numberStats {
				if v, ok := props[s.Value]; ok {
					f.Stats = append(f.Stats, readmeStat{Label: s.Label, Value: display(v)})
				}
			}
		}
		view.Fields = append(view.Fields, f)
	}

	var buf bytes.Buffer
	if err := readmeTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render readme: %w", err)
	}
	return buf.Bytes(), nil
}

// text returns doc[key] for display, or def when it is absent or blank.
func text(doc map[string]any, key, def string) string {
	v, ok := doc[key]
	if !ok || v == nil {
		return def
	}
	if s := display(v); s != "" {
		return s
	}
	return def
}

func display(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
