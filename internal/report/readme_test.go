package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRenderReadme(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		name    string
		doc     string
		want    []string
		notWant []string
	}{
		{
			name: "annotated",
			doc: `{"name":"Sales","dataset_description":"Orders","fields":[
				{"column":"amount","properties":{"dtype":"number","min":1,"max":9.5,"std":null,"samples":[1,9.5],"num_unique_values":2,"semantic_type":"price","description":"Order value"}},
				{"column":"city","properties":{"dtype":"category","samples":["Oslo"],"num_unique_values":1,"min":"ignored"}}
			]}`,
			want: []string{
				"- **Dataset Name**: Sales",
				"- **Description**: Orders",
				"### amount\n- **Data Type**: number\n- **Semantic Type**: price\n- **Description**: Order value\n- **Unique Values**: 2\n- **Sample Values**: [1,9.5]\n- **Min**: 1\n- **Max**: 9.5\n- **Standard Deviation**: null\n\n",
				"### city\n- **Data Type**: category\n- **Semantic Type**: Not specified",
				"- **Source File**: sales.parquet",
				"- **Processing Date**: 2024-05-06 07:08:09",
			},
			notWant: []string{"ignored"},
		},
		{
			name: "parse failure record",
			doc:  `{"error":"Failed to parse summary","raw_text":"oops"}`,
			want: []string{
				"- **Dataset Name**: sales.parquet",
				"- **Description**: No description available",
				"## Data Fields\n\n\n## Generated Information",
			},
		},
		{
			name:    "missing properties",
			doc:     `{"fields":[{"column":"x"}]}`,
			want:    []string{"### x\n- **Data Type**: Unknown", "- **Unique Values**: Unknown"},
			notWant: []string{"Sample Values"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := json.NewDecoder(strings.NewReader(tt.doc))
			dec.UseNumber()
			var doc map[string]any
			if err := dec.Decode(&doc); err != nil {
				t.Fatalf("bad fixture: %v", err)
			}

			out, err := RenderReadme(doc, "sales.parquet", 10, 2, at)
			if err != nil {
				t.Fatalf("RenderReadme() error = %v", err)
			}
			got := string(out)
			if !strings.HasPrefix(got, "# Dataset Metadata: sales.parquet\n") {
				t.Fatalf("unexpected header:\n%s", got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Fatalf("readme missing %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Fatalf("readme should not contain %q:\n%s", w, got)
				}
			}
		})
	}
}
