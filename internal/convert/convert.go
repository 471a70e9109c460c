// Package convert turns uploaded CSV and JSON files into Parquet objects.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/storage"
	"github.com/OFFIS-RIT/tabula/backend/internal/util"
	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrInvalidFile = errors.New("invalid file type")
	ErrStorage     = errors.New("failed to store parquet file")
)

const ParquetContentType = "application/octet-stream"

type Result struct {
	Format     string
	InputFile  string
	OutputFile string
	Rows       int
	Columns    int
	Size       int64
	Bucket     string
	URL        string
}

// Message is the human readable confirmation returned to uploaders.
func (r *Result) Message() string {
	return fmt.Sprintf("%s file converted to Parquet and uploaded to storage successfully", strings.ToUpper(r.Format))
}

type Converter struct {
	store   storage.ObjectStore
	tempDir string
	now     func() time.Time
}

// NewConverter returns a Converter writing to store. An empty tempDir uses
// the system default.
func NewConverter(store storage.ObjectStore, tempDir string) *Converter {
	return &Converter{store: store, tempDir: tempDir, now: time.Now}
}

// Convert reads an uploaded file, converts it to Parquet and stores it under
// <base>_<YYYYMMDD_HHMMSS>.parquet. Temporary files are removed on return.
func (c *Converter) Convert(ctx context.Context, filename string, upload io.Reader) (*Result, error) {
	name := util.SecureFilename(filename)
	if name == "" || !util.AllowedFile(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFile, filename)
	}
	format := util.Extension(name)

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate temp id: %w", err)
	}

	input, err := os.CreateTemp(c.tempDir, id+"-*-"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(input.Name())
	defer input.Close()

	if _, err := io.Copy(input, upload); err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if _, err := input.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	ds, err := dataset.Load(name, input)
	if err != nil {
		return nil, err
	}

	output, err := os.CreateTemp(c.tempDir, id+"-*.parquet")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(output.Name())
	defer output.Close()

	if err := dataset.WriteParquet(output, ds); err != nil {
		return nil, err
	}
	size, err := output.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to size parquet file: %w", err)
	}
	if _, err := output.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind parquet file: %w", err)
	}

	key := util.ParquetName(name, c.now())
	if err := c.store.Put(ctx, key, output, size, ParquetContentType); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	link, err := c.store.URL(ctx, key)
	if err != nil {
		logger.Warn("Failed to build download link", "key", key, "err", err)
	}

	logger.Info("Converted upload", "input", name, "output", key, "rows", ds.NumRows(), "bytes", size)
	return &Result{
		Format:     format,
		InputFile:  name,
		OutputFile: key,
		Rows:       ds.NumRows(),
		Columns:    ds.NumColumns(),
		Size:       size,
		Bucket:     c.store.Bucket(),
		URL:        link,
	}, nil
}
