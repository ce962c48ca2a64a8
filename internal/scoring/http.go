package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// #region client-struct

// HTTPClient scores rows against the ML service's POST /predict endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

type predictRequest struct {
	Rows []Features `json:"rows"`
}

type predictResponse struct {
	Results []struct {
		Prediction *float64 `json:"prediction"`
		Confidence *float64 `json:"confidence"`
	} `json:"results"`
}

// #endregion client-struct

// #region constructor

// NewHTTPClient creates a client for baseURL (e.g. http://localhost:8000).
// timeout bounds each request.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// #endregion constructor

// #region score

// Score posts a single-row batch and returns its only result.
func (c *HTTPClient) Score(ctx context.Context, features Features) (Prediction, error) {
	body, err := json.Marshal(predictRequest{Rows: []Features{features}})
	if err != nil {
		return Prediction{}, permanent(fmt.Errorf("encode features: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, permanent(fmt.Errorf("build predict request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return Prediction{}, fmt.Errorf("predict: %w", cerr)
		}
		return Prediction{}, transient(fmt.Errorf("predict: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Prediction{}, transient(fmt.Errorf("read predict response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := fmt.Errorf("predict: status %d: %s", resp.StatusCode, snippet(data))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return Prediction{}, transient(herr)
		}
		return Prediction{}, permanent(herr)
	}

	var out predictResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Prediction{}, permanent(fmt.Errorf("decode predict response: %w", err))
	}
	if len(out.Results) != 1 {
		return Prediction{}, permanent(fmt.Errorf("predict: expected 1 result, got %d", len(out.Results)))
	}
	r := out.Results[0]
	if r.Prediction == nil || r.Confidence == nil {
		return Prediction{}, permanent(fmt.Errorf("predict: result missing prediction or confidence"))
	}
	p := Prediction{Label: int(*r.Prediction), Confidence: *r.Confidence}
	if *r.Prediction != float64(p.Label) {
		return Prediction{}, permanent(fmt.Errorf("predict: prediction %v is not an integer", *r.Prediction))
	}
	if err := p.check(); err != nil {
		return Prediction{}, permanent(fmt.Errorf("predict: %w", err))
	}
	return p, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

// #endregion score
