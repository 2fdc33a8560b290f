package loader

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// readDelimited parses a delimited text source into a header row and data
// rows, preserving row order.
func readDelimited(ctx context.Context, path string, delim rune) ([]string, [][]string, error) {
	rc, err := openSource(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rc.Close() }()

	reader := csv.NewReader(rc)
	reader.Comma = delim
	reader.FieldsPerRecord = -1 // allow ragged rows; short rows pad with nil

	var header []string
	var rows [][]string
	first := true
	for {
		if ctx.Err() != nil {
			return nil, nil, eris.Wrap(ctx.Err(), "read cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "read row")
		}

		if first {
			first = false
			header = record
			continue
		}
		rows = append(rows, record)
	}

	return header, rows, nil
}
