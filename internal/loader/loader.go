// Package loader reads tabular location records from CSV, TSV, and XLSX
// sources (local paths or http/ftp URLs) into immutable RecordSets.
package loader

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/model"
)

// Format identifies a tabular source format.
type Format string

// Supported source formats.
const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// Source describes a tabular input.
type Source struct {
	// Path is a local file path or an http(s):// or ftp:// URL.
	Path string
	// Format is detected from the path extension when empty.
	Format Format
	// Delimiter overrides the format's default field separator.
	Delimiter rune
	// SheetName selects an XLSX sheet; defaults to the first sheet.
	SheetName string
	// RequiredColumns must all be present in the header row.
	RequiredColumns []string
}

// LoadError is the fatal error class for unreadable or malformed input.
// The pipeline aborts when Load fails.
type LoadError struct {
	Source string
	Reason error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Reason)
}

// Unwrap exposes the underlying cause.
func (e *LoadError) Unwrap() error { return e.Reason }

// Load reads the source into a RecordSet, preserving row order. Header row
// is required and becomes the schema. Cell values that parse as numbers are
// stored as float64; empty cells become nil. Coordinate validity is not
// checked here — that is the resolver's job.
func Load(ctx context.Context, src Source) (*model.RecordSet, error) {
	log := zap.L().With(zap.String("component", "loader"), zap.String("source", src.Path))

	format := src.Format
	if format == "" {
		format = detectFormat(src.Path)
	}

	var (
		header []string
		rows   [][]string
		err    error
	)
	switch format {
	case FormatCSV, FormatTSV:
		delim := src.Delimiter
		if delim == 0 {
			delim = ','
			if format == FormatTSV {
				delim = '\t'
			}
		}
		header, rows, err = readDelimited(ctx, src.Path, delim)
	case FormatXLSX:
		header, rows, err = readXLSX(src.Path, src.SheetName)
	default:
		err = eris.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &LoadError{Source: src.Path, Reason: err}
	}

	if len(header) == 0 {
		return nil, &LoadError{Source: src.Path, Reason: eris.New("empty header row")}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	if missing := missingColumns(header, src.RequiredColumns); len(missing) > 0 {
		return nil, &LoadError{
			Source: src.Path,
			Reason: eris.Errorf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}

	rs := model.NewRecordSet(header)
	for i, row := range rows {
		fields := make(map[string]any, len(header))
		for j, col := range header {
			if j >= len(row) {
				fields[col] = nil
				continue
			}
			fields[col] = coerce(row[j])
		}
		rs.Append(model.Record{Index: i, Fields: fields})
	}

	log.Info("loaded records",
		zap.Int("rows", rs.Len()),
		zap.Int("columns", len(header)),
		zap.String("format", string(format)),
	)
	return rs, nil
}

// detectFormat infers the format from the path extension.
func detectFormat(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tsv"), strings.HasSuffix(lower, ".tab"):
		return FormatTSV
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// missingColumns returns required columns absent from the header.
func missingColumns(header, required []string) []string {
	var missing []string
	for _, want := range required {
		found := false
		for _, col := range header {
			if strings.EqualFold(col, want) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return missing
}

// coerce converts a raw cell to its typed value: empty → nil, numeric →
// float64, otherwise the trimmed string.
func coerce(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
