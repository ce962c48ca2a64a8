package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// #region helpers

func predictServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if seen != nil {
			var req struct {
				Rows []map[string]any `json:"rows"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if len(req.Rows) == 1 {
				*seen = req.Rows[0]
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// #endregion helpers

// #region score-tests

func TestHTTPScore_Success(t *testing.T) {
	var seen map[string]any
	srv := predictServer(t, http.StatusOK, `{"results":[{"prediction":0,"confidence":0.25}]}`, &seen)
	c := NewHTTPClient(srv.URL+"/", time.Second)

	p, err := c.Score(context.Background(), Features{
		"pressure": dataset.Float(1013),
		"note":     dataset.Absent(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Label != 0 || p.Confidence != 0.25 {
		t.Errorf("expected {0 0.25}, got %+v", p)
	}
	if seen["pressure"] != 1013.0 {
		t.Errorf("expected pressure 1013 on the wire, got %v", seen["pressure"])
	}
	if v, ok := seen["note"]; !ok || v != nil {
		t.Errorf("expected null note on the wire, got %v (%v)", v, ok)
	}
}

func TestHTTPScore_ServerErrorIsTransient(t *testing.T) {
	srv := predictServer(t, http.StatusServiceUnavailable, `{"detail":"warming up"}`, nil)
	c := NewHTTPClient(srv.URL, time.Second)

	_, err := c.Score(context.Background(), Features{})
	if !IsTransient(err) {
		t.Fatalf("expected transient, got %v", err)
	}
}

func TestHTTPScore_TooManyRequestsIsTransient(t *testing.T) {
	srv := predictServer(t, http.StatusTooManyRequests, `{}`, nil)
	c := NewHTTPClient(srv.URL, time.Second)

	_, err := c.Score(context.Background(), Features{})
	if !IsTransient(err) {
		t.Fatalf("expected transient, got %v", err)
	}
}

func TestHTTPScore_ClientErrorIsPermanent(t *testing.T) {
	srv := predictServer(t, http.StatusBadRequest, `{"detail":"no model"}`, nil)
	c := NewHTTPClient(srv.URL, time.Second)

	_, err := c.Score(context.Background(), Features{})
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected permanent, got %v", err)
	}
}

func TestHTTPScore_MalformedBodyIsPermanent(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"results":[]}`,
		`{"results":[{"prediction":1}]}`,
		`{"results":[{"prediction":3,"confidence":0.5}]}`,
	} {
		srv := predictServer(t, http.StatusOK, body, nil)
		c := NewHTTPClient(srv.URL, time.Second)
		if _, err := c.Score(context.Background(), Features{}); !errors.Is(err, ErrPermanent) {
			t.Errorf("body %s: expected permanent, got %v", body, err)
		}
	}
}

func TestHTTPScore_UnreachableIsTransient(t *testing.T) {
	srv := predictServer(t, http.StatusOK, `{}`, nil)
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	_, err := c.Score(context.Background(), Features{})
	if !IsTransient(err) {
		t.Fatalf("expected transient for refused connection, got %v", err)
	}
}

// #endregion score-tests
