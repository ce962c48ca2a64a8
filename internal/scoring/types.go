package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// #region features

// Features is the per-row scoring request: column name to parsed cell.
type Features map[string]dataset.Value

// Map converts the features to plain Go values (nil, float64, int64, string).
func (f Features) Map() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = v.Interface()
	}
	return out
}

// #endregion features

// #region prediction

// Prediction is the scorer's answer for one row.
type Prediction struct {
	Label      int     `json:"prediction"` // 1 pass, 0 fail
	Confidence float64 `json:"confidence"` // in [0, 1]
}

// check rejects out-of-contract responses.
func (p Prediction) check() error {
	if p.Label != 0 && p.Label != 1 {
		return fmt.Errorf("prediction %d not in {0,1}", p.Label)
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v not in [0,1]", p.Confidence)
	}
	return nil
}

// #endregion prediction

// #region scorer

// Scorer classifies one row synchronously.
type Scorer interface {
	Score(ctx context.Context, features Features) (Prediction, error)
}

// #endregion scorer
