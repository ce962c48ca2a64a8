package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sreemahi-code/abbhack/internal/simulate"
	"github.com/sreemahi-code/abbhack/internal/validate"
)

// #region validate

func (s *Server) validateDates(c *gin.Context) {
	var req validate.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	set, err := req.RangeSet()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, validate.Validate(set, s.deps.Store.Snapshot(), s.opts.BoundaryPolicy))
}

// #endregion validate

// #region train

// trainModel forwards the body verbatim to the ML service's /train and relays
// its status and body.
func (s *Server) trainModel(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url := strings.TrimRight(s.opts.MLServiceURL, "/") + "/train"
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.train.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("ml service: %v", err)})
		return
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("read ml response: %v", err)})
		return
	}
	c.Data(resp.StatusCode, "application/json", out)
}

// #endregion train

// #region stream

// sseSink writes each message as one server-sent event and flushes it.
type sseSink struct {
	w gin.ResponseWriter
}

func (s sseSink) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func (s *Server) stream(c *gin.Context) {
	period, err := validate.ParsePeriod("sim", c.Query("simStart"), c.Query("simEnd"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if period.End.Before(period.Start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validate.MsgStartAfterEnd})
		return
	}

	run, ctx := s.deps.Registry.Open(c.Request.Context(), s.deps.Store.Snapshot(), period.Start, period.End)
	defer s.deps.Registry.Close(run)

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Run-ID", run.ID)
	c.Status(http.StatusOK)
	c.Writer.Flush()
	s.deps.Registry.Start(ctx, run)

	state, err := s.deps.Streamer.Run(ctx, run, sseSink{w: c.Writer})
	if err != nil && state == simulate.StateFailed {
		log.Printf("api: run %s: %v", run.ID, err)
	}
}

// #endregion stream

// #region runs

func (s *Server) listRuns(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Registry.List())
}

func (s *Server) getRun(c *gin.Context) {
	id := c.Param("id")
	sum, err := s.deps.Registry.Get(id)
	if errors.Is(err, simulate.ErrRunNotFound) && s.deps.Status != nil {
		status, serr := s.deps.Status.Status(c.Request.Context(), id)
		if serr != nil {
			runError(c, serr)
			return
		}
		status["id"] = id
		c.JSON(http.StatusOK, status)
		return
	}
	if err != nil {
		runError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) cancelRun(c *gin.Context) {
	id := c.Param("id")
	if err := s.deps.Registry.Cancel(id); err != nil {
		runError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "state": simulate.StateCancelled})
}

func runError(c *gin.Context, err error) {
	if errors.Is(err, simulate.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// #endregion runs
