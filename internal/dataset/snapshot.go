package dataset

import (
	"iter"
	"sort"
	"time"
)

// #region snapshot

type entry struct {
	ts  time.Time
	row Row
}

// Snapshot is an immutable, timestamp-ordered view of one loaded dataset.
// It is safe for concurrent readers.
type Snapshot struct {
	meta    Meta
	schema  Schema
	columns []string
	total   int
	index   []entry // rows with a parsable timestamp, ascending
}

// NewSnapshot indexes rows by their parsed timestamp. Equal timestamps keep
// input order; rows with unparsable timestamps are counted in Len but never
// returned by range queries.
func NewSnapshot(meta Meta, schema Schema, columns []string, rows []Row) *Snapshot {
	s := &Snapshot{
		meta:    meta,
		schema:  schema,
		columns: append([]string(nil), columns...),
		total:   len(rows),
		index:   make([]entry, 0, len(rows)),
	}
	for _, r := range rows {
		if ts, ok := schema.Timestamp(r); ok {
			s.index = append(s.index, entry{ts: ts, row: r})
		}
	}
	sort.SliceStable(s.index, func(i, j int) bool {
		return s.index[i].ts.Before(s.index[j].ts)
	})
	return s
}

func emptySnapshot(schema Schema) *Snapshot {
	return NewSnapshot(Meta{}, schema, nil, nil)
}

// Meta describes where the snapshot came from.
func (s *Snapshot) Meta() Meta { return s.meta }

// Schema returns the column roles used to index the snapshot.
func (s *Snapshot) Schema() Schema { return s.schema }

// Columns returns the upload's header.
func (s *Snapshot) Columns() []string { return append([]string(nil), s.columns...) }

// Len is the number of loaded rows, including those without a usable timestamp.
func (s *Snapshot) Len() int { return s.total }

// Indexed is the number of rows with a parsable timestamp.
func (s *Snapshot) Indexed() int { return len(s.index) }

// Bounds returns the earliest and latest parsed timestamps.
func (s *Snapshot) Bounds() (time.Time, time.Time, bool) {
	if len(s.index) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.index[0].ts, s.index[len(s.index)-1].ts, true
}

// #endregion snapshot

// #region range-queries

// span returns the half-open index range of rows with start <= ts <= end.
func (s *Snapshot) span(start, end time.Time) (int, int) {
	if end.Before(start) {
		return 0, 0
	}
	lo := sort.Search(len(s.index), func(i int) bool {
		return !s.index[i].ts.Before(start)
	})
	hi := sort.Search(len(s.index), func(i int) bool {
		return s.index[i].ts.After(end)
	})
	if hi < lo {
		return lo, lo
	}
	return lo, hi
}

// Count returns the number of rows whose timestamp lies in [start, end].
func (s *Snapshot) Count(start, end time.Time) int {
	lo, hi := s.span(start, end)
	return hi - lo
}

// Rows yields the rows in [start, end] in ascending timestamp order. Every
// range over the returned sequence starts from the beginning.
func (s *Snapshot) Rows(start, end time.Time) iter.Seq[Row] {
	lo, hi := s.span(start, end)
	return func(yield func(Row) bool) {
		for i := lo; i < hi; i++ {
			if !yield(s.index[i].row) {
				return
			}
		}
	}
}

// #endregion range-queries

// #region monthly

// MonthlyBuckets counts rows per calendar month. A month takes the tag of the
// first window that overlaps it; months overlapping none stay untagged.
func (s *Snapshot) MonthlyBuckets(windows []Window) []MonthBucket {
	var out []MonthBucket
	for i := 0; i < len(s.index); {
		first := monthStart(s.index[i].ts)
		next := first.AddDate(0, 1, 0)
		j := i
		for j < len(s.index) && s.index[j].ts.Before(next) {
			j++
		}
		out = append(out, MonthBucket{
			Month: first.Format("2006-01"),
			Count: j - i,
			Tag:   tagFor(first, next, windows),
		})
		i = j
	}
	return out
}

// monthStart is the first instant of t's calendar month in UTC.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func tagFor(from, to time.Time, windows []Window) string {
	for _, w := range windows {
		if w.End.Before(w.Start) {
			continue
		}
		if w.Start.Before(to) && !w.End.Before(from) {
			return w.Tag
		}
	}
	return ""
}

// #endregion monthly
