package dataset

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Load reads a dataset, picking the parser from the extension of name.
// The dataset is named after the file without its extension.
func Load(name string, r io.Reader) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)

	switch Extension(name) {
	case "csv":
		ds, err = ReadCSV(r)
	case "json", "jsonl", "ndjson":
		ds, err = ReadJSONLines(r)
	case "parquet":
		content, rerr := io.ReadAll(r)
		if rerr != nil {
			return nil, fmt.Errorf("failed to read parquet content: %w", rerr)
		}
		ds, err = ReadParquet(bytes.NewReader(content))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, err
	}

	ds.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return ds, ds.Validate()
}
