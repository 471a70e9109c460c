package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/catalog"
	"github.com/OFFIS-RIT/tabula/backend/internal/storage"
	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"
	"github.com/OFFIS-RIT/tabula/backend/pkg/profile"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []catalog.SummaryRecord
	err     error
}

func (r *fakeRecorder) SaveSummary(ctx context.Context, rec catalog.SummaryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return r.err
}

type fakeEmbedder struct {
	input string
}

func (e *fakeEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	e.input = string(input)
	return []float32{0.1, 0.2, 0.3}, nil
}

func putParquet(t *testing.T, store storage.ObjectStore, key string) {
	t.Helper()
	ds := &dataset.Dataset{Columns: []*dataset.Column{
		dataset.NewColumn("id", dataset.KindInt, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}),
		dataset.NewColumn("city", dataset.KindText, []any{"Berlin", "Oslo", "Berlin", "Berlin", "Berlin"}),
	}}
	var buf bytes.Buffer
	if err := dataset.WriteParquet(&buf, ds); err != nil {
		t.Fatalf("WriteParquet() error = %v", err)
	}
	if err := store.Put(context.Background(), key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "application/octet-stream"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
}

func newStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), "parquet-files", "")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	return store
}

func TestProcess_Default(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	putParquet(t, store, "sales_20240101_120000.parquet")

	rec := &fakeRecorder{}
	emb := &fakeEmbedder{}
	p := NewPipeline(PipelineParams{
		Store:      store,
		Summarizer: profile.NewSummarizer(nil, 0),
		Catalog:    rec,
		Embedder:   emb,
	})
	p.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	res, err := p.Process(ctx, "sales_20240101_120000.parquet", Options{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Status != StatusSuccess || res.Rows != 5 || res.Columns != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.MetadataFile != "sales_20240101_120000_metadata.md" {
		t.Fatalf("metadata file = %q", res.MetadataFile)
	}

	md, err := store.Get(ctx, res.MetadataFile)
	if err != nil {
		t.Fatalf("metadata not stored: %v", err)
	}
	for _, want := range []string{
		"# Dataset Metadata: sales_20240101_120000.parquet",
		"- **Rows**: 5",
		"### city",
		"- **Data Type**: category",
		"- **Min**: 1",
		"- **Processing Date**: 2024-01-02 03:04:05",
	} {
		if !strings.Contains(string(md), want) {
			t.Fatalf("readme missing %q:\n%s", want, md)
		}
	}

	if len(rec.records) != 1 || rec.records[0].Key != "sales_20240101_120000.parquet" {
		t.Fatalf("catalog records = %+v", rec.records)
	}
	if len(rec.records[0].Embedding) != 3 || !strings.Contains(emb.input, "city") {
		t.Fatalf("embedding not recorded: %+v input=%q", rec.records[0].Embedding, emb.input)
	}
}

func TestProcess_LLMParseFailureStillSucceeds(t *testing.T) {
	store := newStore(t)
	putParquet(t, store, "a.parquet")

	gen := ai.TextGeneratorFunc(func(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
		return "not json at all", nil
	})
	p := NewPipeline(PipelineParams{Store: store, Summarizer: profile.NewSummarizer(gen, 0)})

	res, err := p.Process(context.Background(), "a.parquet", Options{Mode: profile.ModeLLM})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Summary["error"] != profile.ParseFailureMessage || res.Summary["raw_text"] != "not json at all" {
		t.Fatalf("summary = %v", res.Summary)
	}
}

func TestProcess_Errors(t *testing.T) {
	store := newStore(t)
	_ = store.Put(context.Background(), "garbage.parquet", strings.NewReader("nope"), 4, "application/octet-stream")
	putParquet(t, store, "ok.parquet")

	tests := []struct {
		name string
		key  string
		opts Options
		want error
	}{
		{"missing object", "missing.parquet", Options{}, storage.ErrObjectNotFound},
		{"not parquet", "garbage.parquet", Options{}, dataset.ErrMalformed},
		{"llm without generator", "ok.parquet", Options{Mode: profile.ModeLLM}, profile.ErrGeneration},
		{"unknown mode", "ok.parquet", Options{Mode: "fancy"}, profile.ErrUnknownMode},
	}

	p := NewPipeline(PipelineParams{Store: store, Summarizer: profile.NewSummarizer(nil, 0)})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Process(context.Background(), tt.key, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Process() error = %v, want %v", err, tt.want)
			}
			if res := ErrorResult(err); res.Status != StatusError || res.Error == "" {
				t.Fatalf("ErrorResult() = %+v", res)
			}
		})
	}
}

func TestProcess_CatalogFailureIsNotFatal(t *testing.T) {
	store := newStore(t)
	putParquet(t, store, "a.parquet")
	rec := &fakeRecorder{err: errors.New("db down")}

	p := NewPipeline(PipelineParams{Store: store, Summarizer: profile.NewSummarizer(nil, 0), Catalog: rec})
	res, err := p.Process(context.Background(), "a.parquet", Options{Mode: profile.ModeColumns})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Status != StatusSuccess || len(rec.records) != 1 || rec.records[0].Embedding != nil {
		t.Fatalf("unexpected result %+v records=%+v", res, rec.records)
	}
}

func TestProcess_ConcurrentCallsShareRun(t *testing.T) {
	store := newStore(t)
	putParquet(t, store, "a.parquet")

	var calls atomic.Int32
	release := make(chan struct{})
	gen := ai.TextGeneratorFunc(func(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
		calls.Add(1)
		<-release
		return `{"name":"A"}`, nil
	})
	p := NewPipeline(PipelineParams{Store: store, Summarizer: profile.NewSummarizer(gen, 0)})

	const n = 4
	var wg sync.WaitGroup
	results := make([]*Result, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Process(context.Background(), "a.parquet", Options{Mode: profile.ModeLLM})
			if err != nil {
				t.Errorf("Process() error = %v", err)
				return
			}
			results[i] = res
		}(i)
	}

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("generator called %d times, want 1", calls.Load())
	}
	for _, r := range results {
		if r == nil || r.Summary["name"] != "A" {
			t.Fatalf("result = %+v", r)
		}
	}
}

type fakeLocker struct {
	keys []string
	err  error
}

func (l *fakeLocker) WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

func TestProcess_Lease(t *testing.T) {
	busy := errors.New("lease lock busy")

	tests := []struct {
		name    string
		lockErr error
	}{
		{"held", nil},
		{"busy", busy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			putParquet(t, store, "a.parquet")
			lock := &fakeLocker{err: tc.lockErr}

			p := NewPipeline(PipelineParams{Store: store, Summarizer: profile.NewSummarizer(nil, 0), Lock: lock})
			res, err := p.Process(context.Background(), "a.parquet", Options{})
			if len(lock.keys) != 1 || lock.keys[0] != "a.parquet" {
				t.Fatalf("lease keys = %v", lock.keys)
			}
			if tc.lockErr != nil {
				if !errors.Is(err, tc.lockErr) {
					t.Fatalf("Process() error = %v, want %v", err, tc.lockErr)
				}
				return
			}
			if err != nil || res.Status != StatusSuccess {
				t.Fatalf("Process() = %+v, %v", res, err)
			}
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	doc := map[string]any{
		"name":                "Sales",
		"dataset_description": "Orders by city",
		"fields": []any{
			map[string]any{"column": "city", "properties": map[string]any{"description": "delivery city"}},
			"junk",
		},
	}
	want := "Sales\nOrders by city\ncity: delivery city"
	if got := EmbeddingText(doc); got != want {
		t.Fatalf("EmbeddingText() = %q, want %q", got, want)
	}
	if got := EmbeddingText(map[string]any{}); got != "" {
		t.Fatalf("EmbeddingText(empty) = %q", got)
	}
}
