package dataset

import (
	"sort"
	"time"
)

// #region header

// Header is the ordered column list shared by every row of one table.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a header. Duplicate names resolve to their first position.
func NewHeader(names []string) *Header {
	h := &Header{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range h.names {
		if _, dup := h.index[n]; !dup {
			h.index[n] = i
		}
	}
	return h
}

// Names returns a copy of the column names.
func (h *Header) Names() []string {
	return append([]string(nil), h.names...)
}

// Row binds a record to the header. The record is copied; short records
// leave the trailing columns missing and extra cells are dropped.
func (h *Header) Row(record []string) Row {
	n := len(record)
	if n > len(h.names) {
		n = len(h.names)
	}
	vals := make([]string, n)
	copy(vals, record[:n])
	return Row{h: h, vals: vals}
}

// #endregion header

// #region row

// Row is one immutable record, looked up by column name.
type Row struct {
	h    *Header
	vals []string
}

// RowFromMap builds a standalone row with columns in sorted order.
func RowFromMap(m map[string]string) Row {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	vals := make([]string, len(names))
	for i, n := range names {
		vals[i] = m[n]
	}
	return NewHeader(names).Row(vals)
}

// Raw returns the unparsed cell text and whether the column is present.
func (r Row) Raw(col string) (string, bool) {
	if r.h == nil {
		return "", false
	}
	i, ok := r.h.index[col]
	if !ok || i >= len(r.vals) {
		return "", false
	}
	return r.vals[i], true
}

// Value returns the parsed cell; missing columns are absent.
func (r Row) Value(col string) Value {
	raw, ok := r.Raw(col)
	if !ok {
		return Absent()
	}
	return ParseValue(raw)
}

// Columns returns the names of the columns present in this row, in header order.
func (r Row) Columns() []string {
	if r.h == nil {
		return nil
	}
	return append([]string(nil), r.h.names[:len(r.vals)]...)
}

// Record returns a copy of the raw cells in header order.
func (r Row) Record() []string {
	return append([]string(nil), r.vals...)
}

// #endregion row

// #region schema

// Schema names the columns that carry a role during range queries and simulation.
type Schema struct {
	TimestampColumn  string
	IDColumns        []string // first present column wins
	LabelColumn      string
	TelemetryColumns []string
}

// DefaultSchema matches the quality-prediction dataset layout.
func DefaultSchema() Schema {
	return Schema{
		TimestampColumn:  "synthetic_timestamp",
		IDColumns:        []string{"id", "Id", "ID"},
		LabelColumn:      "Response",
		TelemetryColumns: []string{"temperature", "pressure", "humidity"},
	}
}

// ID returns the raw id cell of row, if any id column is present.
func (s Schema) ID(row Row) (string, bool) {
	for _, c := range s.IDColumns {
		if v, ok := row.Raw(c); ok {
			return v, true
		}
	}
	return "", false
}

// Timestamp parses the row's timestamp column.
func (s Schema) Timestamp(row Row) (time.Time, bool) {
	raw, ok := row.Raw(s.TimestampColumn)
	if !ok {
		return time.Time{}, false
	}
	return ParseTimestamp(raw)
}

// #endregion schema

// #region buckets

// Window is a tagged inclusive time range used to label monthly buckets.
type Window struct {
	Tag   string
	Start time.Time
	End   time.Time
}

// MonthBucket counts the rows that fall in one calendar month.
type MonthBucket struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
	Tag   string `json:"tag,omitempty"`
}

// Meta describes a loaded dataset.
type Meta struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	LoadedAt time.Time `json:"loadedAt"`
}

// #endregion buckets
