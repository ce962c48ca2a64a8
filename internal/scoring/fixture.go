package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// #region fixture-types

// Fixture is the JSON structure of a recorded-predictions file, keyed by row id.
type Fixture struct {
	Description string                `json:"description"`
	Default     *Prediction           `json:"default,omitempty"`
	Predictions map[string]Prediction `json:"predictions"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for id, p := range f.Predictions {
		if err := p.check(); err != nil {
			return nil, fmt.Errorf("fixture %s: row %s: %w", path, id, err)
		}
	}
	return &f, nil
}

// #endregion fixture-loader

// #region fixture-scorer

// FixtureScorer answers from a Fixture instead of a live service.
type FixtureScorer struct {
	fixture   *Fixture
	idColumns []string
}

// NewFixtureScorer looks rows up by the first of idColumns present in the features.
func NewFixtureScorer(f *Fixture, idColumns []string) *FixtureScorer {
	return &FixtureScorer{fixture: f, idColumns: idColumns}
}

// Score returns the recorded prediction for the row's id, or the fixture
// default. Rows with neither fail permanently.
func (s *FixtureScorer) Score(ctx context.Context, features Features) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	for _, col := range s.idColumns {
		v, ok := features[col]
		if !ok || v.IsAbsent() {
			continue
		}
		if p, ok := s.fixture.Predictions[IDKey(v)]; ok {
			return p, nil
		}
		break
	}
	if s.fixture.Default != nil {
		return *s.fixture.Default, nil
	}
	return Prediction{}, permanent(fmt.Errorf("fixture: no prediction for row"))
}

// IDKey normalizes a row id to its fixture key, so "007" and "7.0" both map
// to "7".
func IDKey(v dataset.Value) string {
	if i, ok := v.Int64(); ok {
		return strconv.FormatInt(i, 10)
	}
	if f, ok := v.Float64(); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v.Text()
}

// #endregion fixture-scorer
