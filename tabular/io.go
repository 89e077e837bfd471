// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tabular

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/llmerge/core"
)

// Format names a file encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatParquet Format = "parquet"
	FormatJSONL   Format = "jsonl"
)

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

func resolveFormat(path string, f Format) (Format, error) {
	if f == "" {
		return DetectFormat(path)
	}
	switch f {
	case FormatCSV, FormatTSV, FormatParquet, FormatJSONL:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Source describes a dataset file to read.
type Source struct {
	Path string
	// Format overrides extension detection.
	Format Format
	Schema Schema
	// Limit keeps only the first Limit rows; 0 keeps all.
	Limit int
	// Delimiter overrides the CSV field delimiter.
	Delimiter rune
	// NullValues overrides the CSV missing-value markers.
	NullValues []string
}

// Sink describes a dataset file to write.
type Sink struct {
	Path      string
	Format    Format
	Delimiter rune
}

func csvOptions(format Format, delim rune) CSVOptions {
	opts := CSVOptions{Comma: delim}
	if opts.Comma == 0 && format == FormatTSV {
		opts.Comma = '\t'
	}
	return opts
}

// Read loads the dataset described by src.
func Read(ctx context.Context, src Source) (*core.Dataset, error) {
	format, err := resolveFormat(src.Path, src.Format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var ds *core.Dataset
	switch format {
	case FormatCSV, FormatTSV:
		opts := csvOptions(format, src.Delimiter)
		opts.NullValues = src.NullValues
		opts.Limit = src.Limit
		ds, err = ReadCSV(ctx, f, src.Schema, opts)
	case FormatParquet:
		var info os.FileInfo
		if info, err = f.Stat(); err == nil {
			ds, err = ReadParquet(ctx, f, info.Size(), src.Schema, src.Limit)
		}
	case FormatJSONL:
		ds, err = ReadJSONL(ctx, f, src.Schema, src.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Path, err)
	}
	return ds, nil
}

// Write stores ds at the location described by sink, replacing any
// existing file.
func Write(ctx context.Context, sink Sink, ds *core.Dataset) (err error) {
	if err := core.ValidateDataset(ds); err != nil {
		return err
	}
	format, err := resolveFormat(sink.Path, sink.Format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(sink.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(sink.Path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	switch format {
	case FormatCSV, FormatTSV:
		err = WriteCSV(ctx, f, ds, csvOptions(format, sink.Delimiter))
	case FormatParquet:
		err = WriteParquet(ctx, f, ds)
	case FormatJSONL:
		err = WriteJSONL(ctx, f, ds)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", sink.Path, err)
	}
	return nil
}
