package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrEmptyDataset is returned when an upload has no header row.
var ErrEmptyDataset = errors.New("dataset: no header row")

// #region table

// Table is a decoded upload: a header and raw records in file order.
type Table struct {
	Columns []string   `json:"columns"`
	Records [][]string `json:"records"`
}

// Rows binds every record to the table's header.
func (t *Table) Rows() []Row {
	h := NewHeader(t.Columns)
	rows := make([]Row, len(t.Records))
	for i, rec := range t.Records {
		rows[i] = h.Row(rec)
	}
	return rows
}

// HasColumn reports whether the header contains col.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// #endregion table

// #region read-csv

// ReadOptions controls CSV decoding.
type ReadOptions struct {
	MaxRows       int           // 0 reads everything
	SyntheticBase time.Time     // first generated timestamp
	SyntheticStep time.Duration // spacing of generated timestamps
}

// DefaultReadOptions generates one-second timestamps from 2015-01-01.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		SyntheticBase: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		SyntheticStep: time.Second,
	}
}

// ReadCSV decodes a CSV with a header row. When the schema's timestamp column
// is missing it is appended with generated timestamps in file order.
func ReadCSV(r io.Reader, schema Schema, opts ReadOptions) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	tbl := &Table{Columns: append([]string(nil), header...)}
	for {
		if opts.MaxRows > 0 && len(tbl.Records) >= opts.MaxRows {
			break
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(tbl.Records)+1, err)
		}
		tbl.Records = append(tbl.Records, append([]string(nil), rec...))
	}

	if schema.TimestampColumn != "" && !tbl.HasColumn(schema.TimestampColumn) {
		AddSyntheticTimestamps(tbl, schema.TimestampColumn, opts.SyntheticBase, opts.SyntheticStep)
	}
	return tbl, nil
}

// AddSyntheticTimestamps appends col to the table with base + i*step for row i.
// Short records are padded so the new cell lands in the new column.
func AddSyntheticTimestamps(tbl *Table, col string, base time.Time, step time.Duration) {
	if step <= 0 {
		step = time.Second
	}
	width := len(tbl.Columns)
	tbl.Columns = append(tbl.Columns, col)
	for i, rec := range tbl.Records {
		for len(rec) < width {
			rec = append(rec, "")
		}
		rec = rec[:width]
		ts := base.Add(time.Duration(i) * step)
		tbl.Records[i] = append(rec, ts.Format(SyntheticLayout))
	}
}

// #endregion read-csv
