package validate

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// #region fixtures

// dailySnapshot has one row per day of 2021 at noon.
func dailySnapshot() *dataset.Snapshot {
	tbl := &dataset.Table{Columns: []string{"id", "synthetic_timestamp"}}
	start := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		ts := start.AddDate(0, 0, i)
		tbl.Records = append(tbl.Records, []string{fmt.Sprint(i + 1), ts.Format(dataset.SyntheticLayout)})
	}
	return dataset.NewSnapshot(dataset.Meta{ID: "daily"}, dataset.DefaultSchema(), tbl.Columns, tbl.Rows())
}

func request2021() Request {
	return Request{
		TrainStart: "2021-01-01", TrainEnd: "2021-08-31",
		TestStart: "2021-09-01", TestEnd: "2021-10-31",
		SimStart: "2021-11-01", SimEnd: "2021-12-31",
	}
}

// #endregion fixtures

// #region scenario-tests

func TestValidateSequentialYear(t *testing.T) {
	set, err := request2021().RangeSet()
	require.NoError(t, err)

	res := Validate(set, dailySnapshot(), Inclusive)

	require.Equal(t, Valid, res.Status)
	assert.Empty(t, res.Message)
	require.NotNil(t, res.Durations)
	assert.InDelta(t, 243.0, res.Durations.TrainDays, 0.001)
	assert.InDelta(t, 61.0, res.Durations.TestDays, 0.001)
	assert.InDelta(t, 61.0, res.Durations.SimDays, 0.001)
	require.NotNil(t, res.Counts)
	assert.Equal(t, Counts{Train: 243, Test: 61, Sim: 61}, *res.Counts)
	assert.Equal(t, 365, res.TotalRecords)
	assert.True(t, !set.Train.End.After(set.Test.Start))
}

func TestValidateOverlappingTrainTest(t *testing.T) {
	req := request2021()
	req.TrainEnd = "2021-09-15"
	set, err := req.RangeSet()
	require.NoError(t, err)

	res := Validate(set, dailySnapshot(), Inclusive)

	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, MsgNotSequential, res.Message)
	assert.Nil(t, res.Counts)
	assert.Nil(t, res.Durations)
}

func TestValidateStartAfterEnd(t *testing.T) {
	req := request2021()
	req.SimStart, req.SimEnd = "2021-12-31", "2021-11-01"
	set, err := req.RangeSet()
	require.NoError(t, err)

	res := Validate(set, dailySnapshot(), Inclusive)

	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, MsgStartAfterEnd, res.Message)
}

// #endregion scenario-tests

// #region boundary-policy-tests

func touchingSet() RangeSet {
	d := func(m, day int) time.Time { return time.Date(2021, time.Month(m), day, 0, 0, 0, 0, time.UTC) }
	return RangeSet{
		Train: Period{Start: d(1, 1), End: d(9, 1)},
		Test:  Period{Start: d(9, 1), End: d(11, 1)},
		Sim:   Period{Start: d(11, 1), End: d(12, 31)},
	}
}

func TestBoundaryInclusiveAcceptsTouching(t *testing.T) {
	res := Validate(touchingSet(), dailySnapshot(), Inclusive)
	assert.Equal(t, Valid, res.Status)
	assert.Equal(t, Inclusive, res.BoundaryPolicy)
}

func TestBoundaryStrictRejectsTouching(t *testing.T) {
	res := Validate(touchingSet(), dailySnapshot(), Strict)
	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, MsgNotSequentialStrict, res.Message)
	assert.Equal(t, Strict, res.BoundaryPolicy)
}

func TestBoundaryStrictAcceptsDateOnlyAdjacentDays(t *testing.T) {
	set, err := request2021().RangeSet()
	require.NoError(t, err)
	assert.Equal(t, Valid, Validate(set, dailySnapshot(), Strict).Status)
}

func touchingDateOnlyRequest() Request {
	return Request{
		TrainStart: "2021-01-01", TrainEnd: "2021-09-01",
		TestStart: "2021-09-01", TestEnd: "2021-11-01",
		SimStart: "2021-11-01", SimEnd: "2021-12-31",
	}
}

func TestBoundaryDateOnlyTouchingFollowsPolicy(t *testing.T) {
	set, err := touchingDateOnlyRequest().RangeSet()
	require.NoError(t, err)

	res := Validate(set, dailySnapshot(), Inclusive)
	assert.Equal(t, Valid, res.Status, res.Message)
	require.NotNil(t, res.Counts)
	// the shared day counts in both adjacent periods
	assert.Equal(t, 244, res.Counts.Train)
	assert.Equal(t, 62, res.Counts.Test)

	res = Validate(set, dailySnapshot(), Strict)
	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, MsgNotSequentialStrict, res.Message)
}

func TestBoundaryDateOnlyOverlapStillInvalid(t *testing.T) {
	req := touchingDateOnlyRequest()
	req.TrainEnd = "2021-09-02"
	set, err := req.RangeSet()
	require.NoError(t, err)
	res := Validate(set, dailySnapshot(), Inclusive)
	assert.Equal(t, Invalid, res.Status)
	assert.Equal(t, MsgNotSequential, res.Message)
}

func TestPeriodBoundary(t *testing.T) {
	p, err := ParsePeriod("train", "2021-01-01", "2021-09-01")
	require.NoError(t, err)
	assert.True(t, p.End.Equal(time.Date(2021, 9, 1, 23, 59, 59, 999999999, time.UTC)), "end %v", p.End)
	assert.True(t, p.Boundary().Equal(time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)), "boundary %v", p.Boundary())

	p, err = ParsePeriod("train", "2021-01-01", "2021-09-01T06:30:00")
	require.NoError(t, err)
	assert.True(t, p.Boundary().Equal(p.End))
}

func TestParseBoundaryPolicy(t *testing.T) {
	p, err := ParseBoundaryPolicy("")
	require.NoError(t, err)
	assert.Equal(t, Inclusive, p)

	p, err = ParseBoundaryPolicy(" STRICT ")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	_, err = ParseBoundaryPolicy("loose")
	assert.Error(t, err)
}

// #endregion boundary-policy-tests

// #region monthly-and-warning-tests

func TestValidateMonthlyTags(t *testing.T) {
	set, err := request2021().RangeSet()
	require.NoError(t, err)

	res := Validate(set, dailySnapshot(), Inclusive)

	require.Len(t, res.Monthly, 12)
	assert.Equal(t, dataset.MonthBucket{Month: "2021-01", Count: 31, Tag: "train"}, res.Monthly[0])
	assert.Equal(t, "train", res.Monthly[7].Tag)
	assert.Equal(t, "test", res.Monthly[8].Tag)
	assert.Equal(t, "test", res.Monthly[9].Tag)
	assert.Equal(t, "sim", res.Monthly[10].Tag)
	assert.Equal(t, "sim", res.Monthly[11].Tag)
}

func TestValidateOutOfRangeWarning(t *testing.T) {
	req := request2021()
	req.SimEnd = "2022-03-31"
	set, err := req.RangeSet()
	require.NoError(t, err)

	res := Validate(set, dailySnapshot(), Inclusive)

	assert.Equal(t, Valid, res.Status)
	assert.Contains(t, res.Warnings, "Simulation period out of dataset range.")
	assert.NotContains(t, res.Warnings, "Testing period out of dataset range.")
}

func TestValidateEmptyDataset(t *testing.T) {
	set, err := request2021().RangeSet()
	require.NoError(t, err)
	empty := dataset.NewSnapshot(dataset.Meta{}, dataset.DefaultSchema(), nil, nil)

	res := Validate(set, empty, Inclusive)

	assert.Equal(t, Valid, res.Status)
	assert.Equal(t, Counts{}, *res.Counts)
	assert.Empty(t, res.Monthly)
	assert.Equal(t, []string{"No dataset loaded."}, res.Warnings)
}

// #endregion monthly-and-warning-tests

// #region request-tests

func TestRequestMissingField(t *testing.T) {
	req := request2021()
	req.TestEnd = ""
	_, err := req.RangeSet()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "testEnd")
}

func TestRequestBadDate(t *testing.T) {
	req := request2021()
	req.SimStart = "next tuesday"
	_, err := req.RangeSet()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simStart")
}

func TestParsePeriodTimestampEndKeptExact(t *testing.T) {
	p, err := ParsePeriod("sim", "2015-01-01T08:00:01", "2015-01-01T11:06:39")
	require.NoError(t, err)
	assert.True(t, p.End.Equal(time.Date(2015, 1, 1, 11, 6, 39, 0, time.UTC)), "end %v", p.End)
}

// #endregion request-tests
