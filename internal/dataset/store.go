package dataset

import (
	"iter"
	"sync/atomic"
	"time"
)

// #region store-struct

// Store holds the currently loaded dataset. Load swaps in a new snapshot
// atomically; readers that took a Snapshot earlier keep seeing the old one.
type Store struct {
	schema  Schema
	current atomic.Pointer[Snapshot]
}

// #endregion store-struct

// #region constructor

// NewStore creates an empty store.
func NewStore(schema Schema) *Store {
	s := &Store{schema: schema}
	s.current.Store(emptySnapshot(schema))
	return s
}

// #endregion constructor

// #region load

// Load replaces the current dataset with tbl and returns the new snapshot.
func (s *Store) Load(meta Meta, tbl *Table) *Snapshot {
	if meta.LoadedAt.IsZero() {
		meta.LoadedAt = time.Now().UTC()
	}
	snap := NewSnapshot(meta, s.schema, tbl.Columns, tbl.Rows())
	s.current.Store(snap)
	return snap
}

// #endregion load

// #region queries

// Snapshot returns the current frozen view. It is never nil.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Schema returns the column roles the store indexes with.
func (s *Store) Schema() Schema {
	return s.schema
}

// Count counts rows of the current dataset in [start, end].
func (s *Store) Count(start, end time.Time) int {
	return s.Snapshot().Count(start, end)
}

// Rows enumerates rows of the current dataset in [start, end]. The sequence
// is bound to the snapshot current at call time.
func (s *Store) Rows(start, end time.Time) iter.Seq[Row] {
	return s.Snapshot().Rows(start, end)
}

// MonthlyBuckets buckets the current dataset by calendar month.
func (s *Store) MonthlyBuckets(windows []Window) []MonthBucket {
	return s.Snapshot().MonthlyBuckets(windows)
}

// #endregion queries
