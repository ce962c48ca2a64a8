package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sreemahi-code/abbhack/internal/dataset"
	"github.com/sreemahi-code/abbhack/internal/scoring"
	"github.com/sreemahi-code/abbhack/internal/simulate"
	"github.com/sreemahi-code/abbhack/internal/validate"
)

// #region main

func main() {
	csvPath := flag.String("csv", "", "path to the dataset CSV")
	start := flag.String("start", "", "simulation start (date or timestamp)")
	end := flag.String("end", "", "simulation end (date or timestamp)")
	interval := flag.Duration("interval", 0, "pause between events")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	mlURL := flag.String("ml", "", "ML service base URL (live mode)")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request scoring timeout in live mode")
	flag.Parse()

	if *csvPath == "" || *start == "" || *end == "" ||
		(*fixturePath == "" && *mlURL == "") || (*fixturePath != "" && *mlURL != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --csv data.csv --start 2021-11-01 --end 2021-12-31 --fixture predictions.json")
		fmt.Fprintln(os.Stderr, "       replay --csv data.csv --start 2021-11-01 --end 2021-12-31 --ml http://localhost:8000")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, *csvPath, *start, *end, *interval, *fixturePath, *mlURL, *timeout))
}

// #endregion main

// #region replay

func run(ctx context.Context, csvPath, start, end string, interval time.Duration, fixturePath, mlURL string, timeout time.Duration) int {
	period, err := validate.ParsePeriod("sim", start, end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "range: %v\n", err)
		return 2
	}
	if period.End.Before(period.Start) {
		fmt.Fprintf(os.Stderr, "range: %s\n", validate.MsgStartAfterEnd)
		return 2
	}

	schema := dataset.DefaultSchema()
	snap, err := loadCSV(csvPath, schema)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load: %v\n", err)
		return 2
	}

	var scorer scoring.Scorer
	if fixturePath != "" {
		fx, err := scoring.LoadFixture(fixturePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fixture: %v\n", err)
			return 2
		}
		scorer = scoring.NewFixtureScorer(fx, schema.IDColumns)
	} else {
		scorer = scoring.NewRetrying(scoring.NewHTTPClient(mlURL, timeout), scoring.DefaultRetryPolicy())
	}

	enc := json.NewEncoder(os.Stdout)
	sink := simulate.SinkFunc(func(msg any) error { return enc.Encode(msg) })

	r := simulate.NewRun(snap, period.Start, period.End)
	state, err := simulate.NewStreamer(scorer, interval).Run(ctx, r, sink)

	sum := r.Summary()
	fmt.Fprintf(os.Stderr, "run %s %s: %d events, %d pass, %d fail, avg confidence %.4f\n",
		shortID(sum.ID), state, sum.Totals.Count, sum.Totals.PassCount, sum.Totals.FailCount, sum.Totals.AvgConfidence)

	switch state {
	case simulate.StateCompleted:
		return 0
	case simulate.StateCancelled:
		return 130
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
}

func loadCSV(path string, schema dataset.Schema) (*dataset.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tbl, err := dataset.ReadCSV(f, schema, dataset.DefaultReadOptions())
	if err != nil {
		return nil, err
	}
	return dataset.NewStore(schema).Load(dataset.Meta{ID: "replay", Name: path}, tbl), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion replay
