package dataset

import (
	"errors"
	"strings"
	"testing"
)

func TestReadJSONLines_KeyOrderAndKinds(t *testing.T) {
	input := strings.Join([]string{
		`{"name":"Ada","age":36,"tags":["x"],"member":true}`,
		``,
		`{"age":41,"name":"Alan","member":false,"score":1.5}`,
		`{"name":"Grace","age":null,"member":true,"score":2}`,
	}, "\n")

	ds, err := ReadJSONLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONLines() error = %v", err)
	}

	wantOrder := []string{"name", "age", "tags", "member", "score"}
	if len(ds.Columns) != len(wantOrder) {
		t.Fatalf("got %d columns, want %d", len(ds.Columns), len(wantOrder))
	}
	for i, c := range ds.Columns {
		if c.Name != wantOrder[i] {
			t.Fatalf("column %d = %q, want %q", i, c.Name, wantOrder[i])
		}
		if c.Len() != 3 {
			t.Fatalf("column %q len = %d, want 3", c.Name, c.Len())
		}
	}

	kinds := map[string]Kind{
		"name":   KindText,
		"age":    KindFloat,
		"tags":   KindOther,
		"member": KindBool,
		"score":  KindFloat,
	}
	for name, want := range kinds {
		c, _ := ds.Column(name)
		if c.Kind != want {
			t.Fatalf("column %q kind = %s, want %s", name, c.Kind, want)
		}
	}

	tags, _ := ds.Column("tags")
	if tags.DeclaredType() != "json" {
		t.Fatalf("tags type name = %q, want json", tags.DeclaredType())
	}
}

func TestReadJSONLines_IntegerColumn(t *testing.T) {
	ds, err := ReadJSONLines(strings.NewReader("{\"n\":1}\n{\"n\":2}\n"))
	if err != nil {
		t.Fatalf("ReadJSONLines() error = %v", err)
	}
	n := ds.Columns[0]
	if n.Kind != KindInt || n.Values[1] != int64(2) {
		t.Fatalf("n = %s %v, want int column", n.Kind, n.Values)
	}
}

func TestReadJSONLines_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Array", `[1,2,3]`},
		{"Broken", `{"a":`},
		{"Trailing", `{"a":1} {"b":2}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadJSONLines(strings.NewReader(tc.input))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("ReadJSONLines() error = %v, want ErrMalformed", err)
			}
		})
	}
}
