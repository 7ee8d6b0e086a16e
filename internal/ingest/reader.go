// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// CSVReader yields header-keyed records from a CSV file, transparently
// decompressing files ending in .gz.
type CSVReader struct {
	file   *os.File
	gz     *gzip.Reader
	csv    *csv.Reader
	header []string
	line   int64
	size   int64
}

// OpenCSV opens path and reads its header row.
func OpenCSV(path string) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := &CSVReader{file: f}
	if info, err := f.Stat(); err == nil {
		r.size = info.Size()
	}

	var src io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.gz = gzr
		src = gzr
	}

	r.csv = newCountReader(src)

	header, err := r.csv.Read()
	if err != nil {
		_ = r.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	r.header = normalizeHeader(header)
	return r, nil
}

// newCountReader creates a csv.Reader that reuses record slices, accepts
// ragged rows and tolerates stray quotes.
func newCountReader(r io.Reader) *csv.Reader {
	csvr := csv.NewReader(r)
	csvr.ReuseRecord = true
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true
	return csvr
}

// normalizeHeader lowercases and trims column names and drops a UTF-8 BOM.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// Header returns the normalized column names.
func (r *CSVReader) Header() []string {
	return r.header
}

// Size is the on-disk size of the file in bytes.
func (r *CSVReader) Size() int64 {
	return r.size
}

// Line is the number of data rows returned so far.
func (r *CSVReader) Line() int64 {
	return r.line
}

// Next returns the next data row keyed by column name. Columns missing
// from a short row are absent from the map. Returns io.EOF at the end.
func (r *CSVReader) Next() (map[string]string, error) {
	for {
		rec, err := r.csv.Read()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// Malformed line: count it as a row so offsets stay aligned.
				r.line++
				return nil, &MalformedRowError{Line: r.line, Err: err}
			}
			return nil, err
		}

		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		r.line++
		out := make(map[string]string, len(r.header))
		for i, col := range r.header {
			if i < len(rec) {
				out[col] = rec[i]
			}
		}
		return out, nil
	}
}

// Skip discards n data rows. Used when resuming from a checkpoint.
func (r *CSVReader) Skip(n int64) error {
	for r.line < n {
		if _, err := r.Next(); err != nil {
			var merr *MalformedRowError
			if errors.As(err, &merr) {
				continue
			}
			return err
		}
	}
	return nil
}

// Close releases the file and any decompressor.
func (r *CSVReader) Close() error {
	var gzErr error
	if r.gz != nil {
		gzErr = r.gz.Close()
	}
	if err := r.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// MalformedRowError reports a row the CSV parser could not read.
type MalformedRowError struct {
	Line int64
	Err  error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %d: %v", e.Line, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}
