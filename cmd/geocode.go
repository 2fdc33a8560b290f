package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/loader"
	"github.com/geoforge/mapcli/internal/model"
)

var (
	geocodeInput  string
	geocodeOutput string
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve record coordinates and write them back out as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, cleanup, err := newGeocodeClient(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		rs, err := loader.Load(ctx, loader.Source{Path: geocodeInput})
		if err != nil {
			return err
		}

		resolved, warnings, err := newResolver(client).Resolve(ctx, rs)
		if err != nil {
			return err
		}

		if err := writeRecordsCSV(geocodeOutput, resolved); err != nil {
			return err
		}

		if !warnings.Empty() {
			for _, f := range warnings.Failures {
				zap.L().Warn("unresolved place", zap.String("place", f.Place), zap.String("reason", f.Reason))
			}
		}
		zap.L().Info("geocode complete",
			zap.Int("records", resolved.Len()),
			zap.Int("failed", warnings.FailedRecords),
			zap.String("output", geocodeOutput),
		)
		return nil
	},
}

// writeRecordsCSV writes a record set as CSV. Null cells become empty
// fields; floats keep their shortest exact representation.
func writeRecordsCSV(path string, rs *model.RecordSet) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output")
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(rs.Columns); err != nil {
		return eris.Wrap(err, "write header")
	}

	row := make([]string, len(rs.Columns))
	for _, rec := range rs.Records {
		for i, col := range rs.Columns {
			row[i] = cellString(rec.Get(col))
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "write row")
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "flush output")
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeInput, "input", "", "input data file or URL (required)")
	geocodeCmd.Flags().StringVar(&geocodeOutput, "output", "", "output CSV path (required)")
	_ = geocodeCmd.MarkFlagRequired("input")
	_ = geocodeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(geocodeCmd)
}
