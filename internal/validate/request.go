package validate

import (
	"errors"
	"fmt"
	"time"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// ErrMissingField is wrapped by Request.RangeSet when a date is empty.
var ErrMissingField = errors.New("missing required field")

// #region request

// Request is the wire shape of a validation call: six date strings.
type Request struct {
	TrainStart string `json:"trainStart"`
	TrainEnd   string `json:"trainEnd"`
	TestStart  string `json:"testStart"`
	TestEnd    string `json:"testEnd"`
	SimStart   string `json:"simStart"`
	SimEnd     string `json:"simEnd"`
}

// RangeSet parses the six dates. Shape errors (missing or unparsable dates)
// are returned as errors; ordering problems are left to Validate.
func (r Request) RangeSet() (RangeSet, error) {
	var set RangeSet
	var err error
	if set.Train, err = ParsePeriod("train", r.TrainStart, r.TrainEnd); err != nil {
		return RangeSet{}, err
	}
	if set.Test, err = ParsePeriod("test", r.TestStart, r.TestEnd); err != nil {
		return RangeSet{}, err
	}
	if set.Sim, err = ParsePeriod("sim", r.SimStart, r.SimEnd); err != nil {
		return RangeSet{}, err
	}
	return set, nil
}

// ParsePeriod parses a start/end pair. A date-only end covers its whole day
// for counting and orders as the start of that day.
func ParsePeriod(name, start, end string) (Period, error) {
	s, err := parseBound(name+"Start", start)
	if err != nil {
		return Period{}, err
	}
	e, err := parseBound(name+"End", end)
	if err != nil {
		return Period{}, err
	}
	p := Period{Start: s, End: e}
	if dataset.IsDateOnly(end) {
		p.End = EndOfDay(e)
		p.dateOnlyEnd = true
	}
	return p, nil
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func parseBound(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s: %w", field, ErrMissingField)
	}
	t, ok := dataset.ParseTimestamp(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("%s: invalid date %q", field, raw)
	}
	return t, nil
}

// #endregion request
