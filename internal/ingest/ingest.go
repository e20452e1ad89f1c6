package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DefaultMaxBytes is the ingestion size ceiling (100 MiB). Inputs of exactly
// this size are accepted.
const DefaultMaxBytes int64 = 100 << 20

// DefaultPreviewRows is how many rows a Result carries.
const DefaultPreviewRows = 100

// Options configure an Ingestor. Zero values select the defaults.
type Options struct {
	MaxBytes    int64
	PreviewRows int
}

// Ingestor runs the ingestion pipeline. It holds no per-ingestion state and
// is safe for concurrent use.
type Ingestor struct {
	maxBytes    int64
	previewRows int
}

// NewIngestor returns an Ingestor configured by opts.
func NewIngestor(opts Options) *Ingestor {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	return &Ingestor{maxBytes: opts.MaxBytes, previewRows: opts.PreviewRows}
}

// MaxBytes returns the size ceiling applied by Ingest.
func (ing *Ingestor) MaxBytes() int64 { return ing.maxBytes }

// Ingest validates, parses and classifies one input and returns its preview.
// Failures are *Error values; ctx is checked before parsing and before
// classification.
func (ing *Ingestor) Ingest(ctx context.Context, in RawInput) (*Result, error) {
	if int64(len(in.Data)) > ing.maxBytes {
		return nil, TooLarge(ing.maxBytes)
	}
	if ext := Extension(in.Name); !IsSupported(ext) {
		return nil, unsupportedFormat(ext)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := Parse(in)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, newError(KindEmptyData, nil, "file is empty or could not be parsed")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	types := Classify(table)

	n := min(len(table.Rows), ing.previewRows)
	preview := make([]Record, n)
	for i := range preview {
		preview[i] = Record{Columns: table.Columns, Cells: table.Rows[i]}
	}

	return &Result{
		ID:          uuid.NewString(),
		Filename:    in.Name,
		Rows:        len(table.Rows),
		Columns:     table.Columns,
		ColumnTypes: types,
		Preview:     preview,
		PreviewRows: n,
	}, nil
}

// TooLarge reports an input over the size ceiling.
func TooLarge(limit int64) *Error {
	return newError(KindPayloadTooLarge, nil, "file size exceeds %s limit", formatBytes(limit))
}

// formatBytes renders whole mebibytes as "100MB" and anything else in bytes.
func formatBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
