package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sreemahi-code/abbhack/internal/catalog"
	"github.com/sreemahi-code/abbhack/internal/dataset"
	"github.com/sreemahi-code/abbhack/internal/scoring"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the server's sqlite database")
	version := flag.String("version", "", "catalog version to export (default: active)")
	csvPath := flag.String("csv", "", "read rows from a CSV instead of the catalog")
	confidence := flag.Float64("confidence", 1.0, "confidence recorded for every prediction")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *outPath == "" || (*dbPath == "") == (*csvPath == "") {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db [--version id] --out fixture.json")
		fmt.Fprintln(os.Stderr, "       fixture-export --csv data.csv --out fixture.json")
		os.Exit(2)
	}

	if err := run(*dbPath, *version, *csvPath, *confidence, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, version, csvPath string, confidence float64, outPath string) error {
	schema := dataset.DefaultSchema()

	var (
		meta dataset.Meta
		tbl  *dataset.Table
		err  error
	)
	if csvPath != "" {
		meta = dataset.Meta{ID: csvPath, Name: csvPath}
		tbl, err = readCSV(csvPath, schema)
	} else {
		meta, tbl, err = readVersion(dbPath, version)
	}
	if err != nil {
		return err
	}

	fx, err := buildFixture(meta, schema, tbl, confidence)
	if err != nil {
		return err
	}
	if len(fx.Predictions) == 0 {
		return fmt.Errorf("no labelled rows with ids in %s", meta.Name)
	}

	data, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d predictions to %s\n", len(fx.Predictions), outPath)
	return nil
}

func readCSV(path string, schema dataset.Schema) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadCSV(f, schema, dataset.DefaultReadOptions())
}

func readVersion(dbPath, version string) (dataset.Meta, *dataset.Table, error) {
	store, err := catalog.NewStore(dbPath)
	if err != nil {
		return dataset.Meta{}, nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	var v catalog.Version
	if version == "" {
		v, err = store.GetCurrent()
	} else {
		v, err = store.GetVersion(version)
	}
	if err != nil {
		return dataset.Meta{}, nil, err
	}
	tbl, err := store.LoadTable(v.VersionID)
	if err != nil {
		return dataset.Meta{}, nil, err
	}
	return v.Meta(), tbl, nil
}

// #endregion extract

// #region build

// buildFixture records each row's ground-truth label as its prediction.
func buildFixture(meta dataset.Meta, schema dataset.Schema, tbl *dataset.Table, confidence float64) (*scoring.Fixture, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %v not in [0,1]", confidence)
	}
	snap := dataset.NewStore(schema).Load(meta, tbl)
	fx := &scoring.Fixture{
		Description: fmt.Sprintf("labels of %s (%s)", meta.Name, meta.ID),
		Predictions: map[string]scoring.Prediction{},
	}
	lo, hi, ok := snap.Bounds()
	if !ok {
		return fx, nil
	}
	for row := range snap.Rows(lo, hi) {
		raw, ok := schema.ID(row)
		if !ok {
			continue
		}
		id := dataset.ParseValue(raw)
		if id.IsAbsent() {
			continue
		}
		label, ok := row.Value(schema.LabelColumn).Int64()
		if !ok || (label != 0 && label != 1) {
			continue
		}
		fx.Predictions[scoring.IDKey(id)] = scoring.Prediction{Label: int(label), Confidence: confidence}
	}
	return fx, nil
}

// #endregion build
