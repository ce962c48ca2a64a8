package validate

import (
	"time"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// #region messages

const (
	MsgStartAfterEnd       = "start must be ≤ end for all ranges"
	MsgNotSequential       = "ranges must be sequential: train ≤ test ≤ sim"
	MsgNotSequentialStrict = "ranges must be sequential: train < test < sim"
)

// #endregion messages

// #region source

// Source is the read side of a loaded dataset. *dataset.Snapshot satisfies it;
// validating against one snapshot keeps all counts consistent.
type Source interface {
	Count(start, end time.Time) int
	MonthlyBuckets(windows []dataset.Window) []dataset.MonthBucket
	Bounds() (time.Time, time.Time, bool)
	Len() int
}

// #endregion source

// #region validate

// Validate checks ordering of the three periods and, when they are valid,
// reports counts, durations and the monthly distribution from src.
func Validate(set RangeSet, src Source, policy BoundaryPolicy) Result {
	if policy == "" {
		policy = Inclusive
	}
	res := Result{BoundaryPolicy: policy, TotalRecords: src.Len()}

	for _, p := range []Period{set.Train, set.Test, set.Sim} {
		if p.End.Before(p.Start) {
			res.Status = Invalid
			res.Message = MsgStartAfterEnd
			return res
		}
	}

	if !sequential(set, policy) {
		res.Status = Invalid
		res.Message = MsgNotSequential
		if policy == Strict {
			res.Message = MsgNotSequentialStrict
		}
		return res
	}

	res.Status = Valid
	res.Counts = &Counts{
		Train: src.Count(set.Train.Start, set.Train.End),
		Test:  src.Count(set.Test.Start, set.Test.End),
		Sim:   src.Count(set.Sim.Start, set.Sim.End),
	}
	res.Durations = &Durations{
		TrainDays: set.Train.Days(),
		TestDays:  set.Test.Days(),
		SimDays:   set.Sim.Days(),
	}
	res.Monthly = src.MonthlyBuckets(set.Windows())
	res.Warnings = boundsWarnings(set, src)
	return res
}

func sequential(set RangeSet, policy BoundaryPolicy) bool {
	before := func(a, b time.Time) bool { return !a.After(b) }
	if policy == Strict {
		before = func(a, b time.Time) bool { return a.Before(b) }
	}
	return before(set.Train.Boundary(), set.Test.Start) && before(set.Test.Boundary(), set.Sim.Start)
}

// boundsWarnings flags periods that reach outside the loaded data. They never
// change the status.
func boundsWarnings(set RangeSet, src Source) []string {
	lo, hi, ok := src.Bounds()
	if !ok {
		return []string{"No dataset loaded."}
	}
	var out []string
	for _, p := range []struct {
		label  string
		period Period
	}{
		{"Training", set.Train},
		{"Testing", set.Test},
		{"Simulation", set.Sim},
	} {
		if p.period.Start.Before(lo) || p.period.End.After(hi) {
			out = append(out, p.label+" period out of dataset range.")
		}
	}
	return out
}

// #endregion validate
