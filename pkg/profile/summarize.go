package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"
)

var (
	ErrUnknownMode = errors.New("unknown summary mode")
	ErrGeneration  = errors.New("summary generation failed")
)

// Mode selects how much work Summarize does.
type Mode string

const (
	// ModeDefault returns the profile skeleton without annotations.
	ModeDefault Mode = "default"
	// ModeColumns returns only the name and description stub.
	ModeColumns Mode = "columns"
	// ModeLLM asks a text generator to annotate the skeleton.
	ModeLLM Mode = "llm"
)

// ParseMode validates s. The empty string selects ModeDefault.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeDefault, nil
	case ModeDefault, ModeColumns, ModeLLM:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ParseFailureMessage is the error recorded when a generator answer is
// not a JSON object. The raw answer is kept under "raw_text".
const ParseFailureMessage = "Failed to parse summary"

// SummarizeOptions controls a single Summarize call.
type SummarizeOptions struct {
	Mode     Mode
	FileName string
	Samples  int
}

// Summary is the result of Summarize.
type Summary struct {
	Mode Mode
	// Base is the profile skeleton. It is nil in ModeColumns.
	Base *DatasetSummary
	// ParseFailed is set when a ModeLLM answer could not be read as JSON.
	ParseFailed bool

	doc map[string]any
}

// Document returns the object to persist or render.
func (s *Summary) Document() map[string]any {
	return s.doc
}

// Summarizer builds dataset summaries, optionally enriched by a text
// generator.
type Summarizer struct {
	gen     ai.TextGenerator
	timeout time.Duration
	extra   []ai.GenerateOption
}

// NewSummarizer returns a Summarizer. gen may be nil when ModeLLM is never
// requested. A positive timeout bounds each generator call. opts are
// applied to every annotation request after the built-in ones.
func NewSummarizer(gen ai.TextGenerator, timeout time.Duration, opts ...ai.GenerateOption) *Summarizer {
	return &Summarizer{gen: gen, timeout: timeout, extra: opts}
}

// Summarize profiles ds and assembles the summary for the requested mode.
// Only malformed datasets, unknown modes and generator failures are errors;
// an unreadable generator answer is reported through Summary.ParseFailed.
func (s *Summarizer) Summarize(ctx context.Context, ds *dataset.Dataset, opts SummarizeOptions) (*Summary, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	name := opts.FileName
	if name == "" {
		name = ds.Name
	}

	if mode == ModeColumns {
		return &Summary{
			Mode: mode,
			doc: map[string]any{
				"name":                name,
				"file_name":           name,
				"dataset_description": "",
			},
		}, nil
	}

	base := New(ds, name, opts.Samples)
	if mode == ModeDefault {
		doc, err := toDocument(base)
		if err != nil {
			return nil, err
		}
		return &Summary{Mode: mode, Base: base, doc: doc}, nil
	}

	text, err := s.enrich(ctx, base)
	if err != nil {
		return nil, err
	}

	out := &Summary{Mode: mode, Base: base}
	var doc map[string]any
	if err := ai.UnmarshalFlexible(text, &doc); err != nil || doc == nil {
		logger.Warn("Generator returned an unreadable summary", "file", name, "err", err)
		out.ParseFailed = true
		out.doc = map[string]any{
			"error":    ParseFailureMessage,
			"raw_text": text,
		}
		return out, nil
	}
	out.doc = doc
	return out, nil
}

func (s *Summarizer) enrich(ctx context.Context, base *DatasetSummary) (string, error) {
	if s == nil || s.gen == nil {
		return "", fmt.Errorf("%w: no text generator configured", ErrGeneration)
	}

	prompt, err := AnnotationPrompt(base)
	if err != nil {
		return "", err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Debug("Requesting dataset annotation", "file", base.FileName, "fields", len(base.Fields))
	opts := append([]ai.GenerateOption{
		ai.WithSystemPrompts(ai.DatasetAnnotationSystemPrompt),
		ai.WithTemperature(0),
	}, s.extra...)
	text, err := s.gen.GenerateCompletion(ctx, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return text, nil
}

// AnnotationPrompt renders the user prompt sent to the generator for base.
func AnnotationPrompt(base *DatasetSummary) (string, error) {
	schema, err := json.MarshalIndent(ai.GenerateSchema(DatasetSummary{}), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render summary schema: %w", err)
	}
	skeleton, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize summary: %w", err)
	}
	return fmt.Sprintf(ai.DatasetAnnotationPrompt, schema, skeleton), nil
}

func toDocument(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize summary: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return doc, nil
}
