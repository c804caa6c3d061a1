package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File reads a scraped dataset dump from disk. JSON files hold an array
// of objects (the raw scraper export); CSV files hold a header row of
// column names. The format is inferred from the extension.
type File struct {
	path    string
	dataset string
}

// NewFile creates a file source tagged with a dataset name.
func NewFile(path, dataset string) *File {
	return &File{path: path, dataset: dataset}
}

func (f *File) Name() SourceType { return SourceFile }
func (f *File) Dataset() string  { return f.dataset }

func (f *File) Fetch(ctx context.Context) ([]RawPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".json":
		return f.fetchJSON()
	case ".csv":
		return f.fetchCSV()
	default:
		return nil, fmt.Errorf("unsupported dataset file %s", f.path)
	}
}

func (f *File) fetchJSON() ([]RawPost, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", f.path, err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.UseNumber() // keep big counters exact until coercion

	var raws []map[string]any
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", f.path, err)
	}
	return CanonicalizeAll(raws), nil
}

func (f *File) fetchCSV() ([]RawPost, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", f.path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // ragged exports happen

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", f.path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	raws := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		raw := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				raw[col] = row[i]
			}
		}
		raws = append(raws, raw)
	}
	return CanonicalizeAll(raws), nil
}
