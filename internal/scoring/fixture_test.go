package scoring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFixture(t *testing.T) {
	path := writeFixture(t, `{
		"description": "three rows",
		"predictions": {
			"1": {"prediction": 1, "confidence": 0.9},
			"2": {"prediction": 0, "confidence": 0.6},
			"A-7": {"prediction": 1, "confidence": 0.51}
		}
	}`)
	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "three rows" || len(f.Predictions) != 3 {
		t.Errorf("unexpected fixture: %+v", f)
	}
}

func TestLoadFixture_RejectsBadPrediction(t *testing.T) {
	path := writeFixture(t, `{"predictions": {"1": {"prediction": 5, "confidence": 0.9}}}`)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for label outside {0,1}")
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFixtureScorer_LooksUpByID(t *testing.T) {
	f := &Fixture{Predictions: map[string]Prediction{
		"1":   {Label: 1, Confidence: 0.9},
		"A-7": {Label: 0, Confidence: 0.7},
	}}
	s := NewFixtureScorer(f, []string{"id", "Id"})

	p, err := s.Score(context.Background(), Features{"Id": dataset.Int(1)})
	if err != nil || p.Label != 1 {
		t.Errorf("expected label 1 for Id=1, got %+v, %v", p, err)
	}
	// float ids without a fraction match the integer key
	p, err = s.Score(context.Background(), Features{"id": dataset.Float(1)})
	if err != nil || p.Confidence != 0.9 {
		t.Errorf("expected id 1.0 to match key 1, got %+v, %v", p, err)
	}
	p, err = s.Score(context.Background(), Features{"id": dataset.Text("A-7")})
	if err != nil || p.Label != 0 {
		t.Errorf("expected label 0 for A-7, got %+v, %v", p, err)
	}
}

func TestFixtureScorer_DefaultAndMiss(t *testing.T) {
	f := &Fixture{Predictions: map[string]Prediction{}}
	s := NewFixtureScorer(f, []string{"id"})
	_, err := s.Score(context.Background(), Features{"id": dataset.Int(9)})
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected permanent miss, got %v", err)
	}

	f.Default = &Prediction{Label: 0, Confidence: 0.5}
	p, err := s.Score(context.Background(), Features{"id": dataset.Int(9)})
	if err != nil || *f.Default != p {
		t.Errorf("expected default prediction, got %+v, %v", p, err)
	}
}

func TestFixtureScorer_Cancelled(t *testing.T) {
	s := NewFixtureScorer(&Fixture{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Score(ctx, Features{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
