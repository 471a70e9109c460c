// Package report runs the summary pipeline for stored Parquet objects: it
// profiles the data, writes a markdown report next to the object and
// records the result in the catalog.
package report

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/catalog"
	"github.com/OFFIS-RIT/tabula/backend/internal/storage"
	"github.com/OFFIS-RIT/tabula/backend/internal/util"
	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula/backend/pkg/profile"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	MetadataContentType = "text/markdown"
)

type Result struct {
	Status       string         `json:"status"`
	Summary      map[string]any `json:"summary,omitempty"`
	MetadataFile string         `json:"metadata_file,omitempty"`
	Rows         int            `json:"rows"`
	Columns      int            `json:"columns"`
	Error        string         `json:"error,omitempty"`
}

// ErrorResult wraps err in the shape returned to clients.
func ErrorResult(err error) *Result {
	return &Result{Status: StatusError, Error: err.Error()}
}

// Locker serializes work on a key across processes.
type Locker interface {
	WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Recorder stores finished summaries.
type Recorder interface {
	SaveSummary(ctx context.Context, r catalog.SummaryRecord) error
}

type Options struct {
	Mode    profile.Mode
	Samples int
}

type PipelineParams struct {
	Store      storage.ObjectStore
	Summarizer *profile.Summarizer
	// Catalog, Embedder and Lock are optional.
	Catalog  Recorder
	Embedder ai.Embedder
	Lock     Locker
	Defaults Options
}

type Pipeline struct {
	store      storage.ObjectStore
	summarizer *profile.Summarizer
	catalog    Recorder
	embedder   ai.Embedder
	lock       Locker
	defaults   Options

	group singleflight.Group
	now   func() time.Time
}

func NewPipeline(params PipelineParams) *Pipeline {
	defaults := params.Defaults
	if defaults.Mode == "" {
		defaults.Mode = profile.ModeDefault
	}
	if defaults.Samples <= 0 {
		defaults.Samples = profile.DefaultSamples
	}
	return &Pipeline{
		store:      params.Store,
		summarizer: params.Summarizer,
		catalog:    params.Catalog,
		embedder:   params.Embedder,
		lock:       params.Lock,
		defaults:   defaults,
		now:        time.Now,
	}
}

// Process summarizes the Parquet object stored under key. Concurrent calls
// with the same key and options share one run.
func (p *Pipeline) Process(ctx context.Context, key string, opts Options) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = p.defaults.Mode
	}
	if opts.Samples <= 0 {
		opts.Samples = p.defaults.Samples
	}

	flightKey := strings.Join([]string{key, string(opts.Mode), strconv.Itoa(opts.Samples)}, "|")
	v, err, shared := p.group.Do(flightKey, func() (any, error) {
		return p.run(context.WithoutCancel(ctx), key, opts)
	})
	if shared {
		logger.Debug("Joined running summary", "key", key)
	}
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (p *Pipeline) run(ctx context.Context, key string, opts Options) (*Result, error) {
	if p.lock == nil {
		return p.summarize(ctx, key, opts)
	}
	var result *Result
	err := p.lock.WithLease(ctx, key, func(ctx context.Context) error {
		var err error
		result, err = p.summarize(ctx, key, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) summarize(ctx context.Context, key string, opts Options) (*Result, error) {
	start := time.Now()

	data, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.ReadParquet(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	ds.Name = strings.TrimSuffix(key, ".parquet")

	summary, err := p.summarizer.Summarize(ctx, ds, profile.SummarizeOptions{
		Mode:     opts.Mode,
		FileName: key,
		Samples:  opts.Samples,
	})
	if err != nil {
		return nil, err
	}
	doc := summary.Document()

	readme, err := RenderReadme(doc, key, ds.NumRows(), ds.NumColumns(), p.now())
	if err != nil {
		return nil, err
	}
	metadataKey := util.MetadataName(key)

	var embedding []float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.store.Put(gctx, metadataKey, bytes.NewReader(readme), int64(len(readme)), MetadataContentType)
	})
	if p.catalog != nil && p.embedder != nil {
		g.Go(func() error {
			embedding = p.embed(gctx, key, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	result := &Result{
		Status:       StatusSuccess,
		Summary:      doc,
		MetadataFile: metadataKey,
		Rows:         ds.NumRows(),
		Columns:      ds.NumColumns(),
	}

	if p.catalog != nil {
		err := p.catalog.SaveSummary(ctx, catalog.SummaryRecord{
			Key:          key,
			Summary:      doc,
			MetadataFile: metadataKey,
			Rows:         result.Rows,
			Columns:      result.Columns,
			Embedding:    embedding,
		})
		if err != nil {
			logger.Error("Failed to record summary", "key", key, "err", err)
		}
	}

	logger.Info(
		"Summarized dataset",
		"key", key,
		"mode", opts.Mode,
		"rows", result.Rows,
		"columns", result.Columns,
		"parse_failed", summary.ParseFailed,
		"duration", time.Since(start),
	)
	return result, nil
}

// embed returns an embedding of the dataset description, or nil when
// there is nothing to embed or the embedder fails.
func (p *Pipeline) embed(ctx context.Context, key string, doc map[string]any) []float32 {
	input := EmbeddingText(doc)
	if input == "" {
		return nil
	}
	vec, err := p.embedder.GenerateEmbedding(ctx, []byte(input))
	if err != nil {
		logger.Warn("Failed to embed dataset description", "key", key, "err", err)
		return nil
	}
	return vec
}

// EmbeddingText joins the dataset and column descriptions of a summary
// document into the text that represents it in search.
func EmbeddingText(doc map[string]any) string {
	var parts []string
	if s, ok := doc["name"].(string); ok && s != "" {
		parts = append(parts, s)
	}
	if s, ok := doc["dataset_description"].(string); ok && s != "" {
		parts = append(parts, s)
	}
	fields, _ := doc["fields"].([]any)
	for _, raw := range fields {
		field, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		props, _ := field["properties"].(map[string]any)
		col, _ := field["column"].(string)
		desc, _ := props["description"].(string)
		if col == "" && desc == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(col+": "+desc))
	}
	return strings.Join(parts, "\n")
}
