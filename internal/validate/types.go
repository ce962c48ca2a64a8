package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// #region status

// Status is the outcome of a validation.
type Status string

const (
	Valid   Status = "Valid"
	Invalid Status = "Invalid"
)

// #endregion status

// #region boundary-policy

// BoundaryPolicy decides whether adjacent periods may share their boundary instant.
type BoundaryPolicy string

const (
	// Inclusive accepts trainEnd == testStart and testEnd == simStart.
	Inclusive BoundaryPolicy = "inclusive"
	// Strict requires each period to end before the next begins.
	Strict BoundaryPolicy = "strict"
)

// ParseBoundaryPolicy accepts "inclusive" or "strict"; empty means Inclusive.
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch BoundaryPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Inclusive:
		return Inclusive, nil
	case Strict:
		return Strict, nil
	}
	return "", fmt.Errorf("unknown boundary policy %q", s)
}

// #endregion boundary-policy

// #region ranges

// Period is an inclusive [Start, End] range.
type Period struct {
	Start time.Time
	End   time.Time

	// set when End was given as a bare date and widened to cover that day
	dateOnlyEnd bool
}

// Boundary is the instant compared with the next period's start. A date-only
// end compares as the start of its day, so adjacent periods may share it.
func (p Period) Boundary() time.Time {
	if p.dateOnlyEnd {
		return time.Date(p.End.Year(), p.End.Month(), p.End.Day(), 0, 0, 0, 0, p.End.Location())
	}
	return p.End
}

// Days is the fractional length of the period in days.
func (p Period) Days() float64 {
	return p.End.Sub(p.Start).Hours() / 24
}

// RangeSet holds the three periods of a run setup.
type RangeSet struct {
	Train Period
	Test  Period
	Sim   Period
}

// Windows returns the periods tagged train, test, sim in that order.
func (r RangeSet) Windows() []dataset.Window {
	return []dataset.Window{
		{Tag: "train", Start: r.Train.Start, End: r.Train.End},
		{Tag: "test", Start: r.Test.Start, End: r.Test.End},
		{Tag: "sim", Start: r.Sim.Start, End: r.Sim.End},
	}
}

// #endregion ranges

// #region result

// Counts holds per-period row counts.
type Counts struct {
	Train int `json:"train"`
	Test  int `json:"test"`
	Sim   int `json:"sim"`
}

// Durations holds per-period lengths in days.
type Durations struct {
	TrainDays float64 `json:"trainDays"`
	TestDays  float64 `json:"testDays"`
	SimDays   float64 `json:"simDays"`
}

// Result is the structured validation outcome. Invalid results carry only
// Status, Message and BoundaryPolicy.
type Result struct {
	Status         Status                `json:"status"`
	Message        string                `json:"message,omitempty"`
	BoundaryPolicy BoundaryPolicy        `json:"boundaryPolicy"`
	Counts         *Counts               `json:"counts,omitempty"`
	Durations      *Durations            `json:"durations,omitempty"`
	Monthly        []dataset.MonthBucket `json:"monthly,omitempty"`
	TotalRecords   int                   `json:"totalRecords"`
	Warnings       []string              `json:"warnings,omitempty"`
}

// #endregion result
