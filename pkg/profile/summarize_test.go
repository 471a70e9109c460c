package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"
)

func salesDataset() *dataset.Dataset {
	return &dataset.Dataset{Name: "sales", Columns: []*dataset.Column{
		dataset.NewColumn("id", dataset.KindInt, []any{int64(1), int64(2), int64(3)}),
		dataset.NewColumn("city", dataset.KindText, []any{"Berlin", "Oslo", "Berlin"}),
	}}
}

type recordingGenerator struct {
	prompt  string
	options ai.GenerateOptions
	reply   string
	err     error
}

func (g *recordingGenerator) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	g.prompt = prompt
	g.options = ai.ApplyOptions(ai.GenerateOptions{}, opts...)
	return g.reply, g.err
}

func TestSummarize_Default(t *testing.T) {
	s := NewSummarizer(nil, 0)
	got, err := s.Summarize(context.Background(), salesDataset(), SummarizeOptions{FileName: "sales.parquet"})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.Mode != ModeDefault {
		t.Fatalf("mode = %q, want default", got.Mode)
	}

	doc := got.Document()
	if doc["name"] != "sales.parquet" || doc["dataset_description"] != "" {
		t.Fatalf("unexpected document %v", doc)
	}
	fields, ok := doc["fields"].([]any)
	if !ok || len(fields) != 2 {
		t.Fatalf("fields = %v, want 2 entries", doc["fields"])
	}
	first := fields[0].(map[string]any)
	if first["column"] != "id" {
		t.Fatalf("first field = %v", first)
	}
}

func TestSummarize_Columns(t *testing.T) {
	s := NewSummarizer(nil, 0)
	got, err := s.Summarize(context.Background(), salesDataset(), SummarizeOptions{Mode: ModeColumns})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	doc := got.Document()
	if _, ok := doc["fields"]; ok {
		t.Fatalf("columns mode must not include fields: %v", doc)
	}
	if doc["name"] != "sales" || doc["file_name"] != "sales" {
		t.Fatalf("unexpected document %v", doc)
	}
	if got.Base != nil {
		t.Fatalf("columns mode keeps no profile skeleton")
	}
}

func TestSummarize_LLM(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantFailed bool
		wantName   string
	}{
		{"plain json", `{"name":"Sales","dataset_description":"Orders by city","fields":[]}`, false, "Sales"},
		{"double encoded", `"{\"name\":\"Sales\"}"`, false, "Sales"},
		{"fenced", "```json\n{\"name\":\"Sales\"}\n```", false, "Sales"},
		{"arbitrary object", `{"name":"Sales","extra":{"nested":true}}`, false, "Sales"},
		{"prose", "I cannot help with that", true, ""},
		{"array", `[1,2,3]`, true, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &recordingGenerator{reply: tc.reply}
			s := NewSummarizer(gen, time.Second)

			got, err := s.Summarize(context.Background(), salesDataset(), SummarizeOptions{Mode: ModeLLM, FileName: "sales.parquet"})
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}
			if got.ParseFailed != tc.wantFailed {
				t.Fatalf("ParseFailed = %v, want %v", got.ParseFailed, tc.wantFailed)
			}

			doc := got.Document()
			if tc.wantFailed {
				if doc["error"] != ParseFailureMessage || doc["raw_text"] != tc.reply {
					t.Fatalf("failure record = %v", doc)
				}
				return
			}
			if doc["name"] != tc.wantName {
				t.Fatalf("name = %v, want %s", doc["name"], tc.wantName)
			}
		})
	}
}

func TestSummarize_LLMPrompt(t *testing.T) {
	gen := &recordingGenerator{reply: `{}`}
	s := NewSummarizer(gen, 0)
	if _, err := s.Summarize(context.Background(), salesDataset(), SummarizeOptions{Mode: ModeLLM, FileName: "sales.parquet"}); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	for _, want := range []string{`"file_name": "sales.parquet"`, `"column": "city"`, `"num_unique_values"`, "Annotate the dictionary below"} {
		if !strings.Contains(gen.prompt, want) {
			t.Fatalf("prompt does not contain %q:\n%s", want, gen.prompt)
		}
	}
	if len(gen.options.SystemPrompts) != 1 || !strings.Contains(gen.options.SystemPrompts[0], "semantic_type") {
		t.Fatalf("system prompt not passed: %v", gen.options.SystemPrompts)
	}
	if gen.options.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", gen.options.Temperature)
	}
}

func TestSummarize_ExtraOptions(t *testing.T) {
	gen := &recordingGenerator{reply: `{}`}
	s := NewSummarizer(gen, 0, ai.WithModel("qwen3"), ai.WithThinking("low"))
	if _, err := s.Summarize(context.Background(), salesDataset(), SummarizeOptions{Mode: ModeLLM}); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if gen.options.Model != "qwen3" || gen.options.Thinking != "low" {
		t.Fatalf("options = %+v, want model qwen3 thinking low", gen.options)
	}
	if len(gen.options.SystemPrompts) != 1 || gen.options.Temperature != 0 {
		t.Fatalf("built-in options lost: %+v", gen.options)
	}
}

func TestSummarize_Errors(t *testing.T) {
	boom := errors.New("upstream down")

	tests := []struct {
		name string
		s    *Summarizer
		ds   *dataset.Dataset
		opts SummarizeOptions
		want error
	}{
		{"unknown mode", NewSummarizer(nil, 0), salesDataset(), SummarizeOptions{Mode: "fancy"}, ErrUnknownMode},
		{"malformed dataset", NewSummarizer(nil, 0), &dataset.Dataset{Columns: []*dataset.Column{
			dataset.NewColumn("a", dataset.KindInt, []any{int64(1)}),
			dataset.NewColumn("b", dataset.KindInt, nil),
		}}, SummarizeOptions{}, dataset.ErrMalformed},
		{"no generator", NewSummarizer(nil, 0), salesDataset(), SummarizeOptions{Mode: ModeLLM}, ErrGeneration},
		{"generator error", NewSummarizer(&recordingGenerator{err: boom}, 0), salesDataset(), SummarizeOptions{Mode: ModeLLM}, boom},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.s.Summarize(context.Background(), tc.ds, tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Summarize() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSummarize_TimeoutReachesGenerator(t *testing.T) {
	var deadline bool
	gen := ai.TextGeneratorFunc(func(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
		_, deadline = ctx.Deadline()
		return `{"name":"x"}`, nil
	})

	if _, err := NewSummarizer(gen, time.Minute).Summarize(context.Background(), salesDataset(), SummarizeOptions{Mode: ModeLLM}); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if !deadline {
		t.Fatal("generator context has no deadline")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeDefault, false},
		{"default", ModeDefault, false},
		{"columns", ModeColumns, false},
		{"llm", ModeLLM, false},
		{"LLM", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMode(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseMode(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
