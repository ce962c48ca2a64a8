package api

import (
	"bytes"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sreemahi-code/abbhack/internal/catalog"
	"github.com/sreemahi-code/abbhack/internal/dataset"
)

const maxUploadBytes = 256 << 20

// #region summary

// DatasetSummary describes the loaded dataset to the UI.
type DatasetSummary struct {
	DatasetID    string     `json:"datasetId"`
	FileName     string     `json:"fileName"`
	LoadedAt     time.Time  `json:"loadedAt"`
	TotalRecords int        `json:"totalRecords"`
	Indexed      int        `json:"indexed"`
	Columns      []string   `json:"columns"`
	PassRate     *float64   `json:"passRate,omitempty"`
	DateRange    *dateRange `json:"dateRange,omitempty"`
	ArchiveKey   string     `json:"archiveKey,omitempty"`
}

type dateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func summarize(snap *dataset.Snapshot) DatasetSummary {
	meta := snap.Meta()
	sum := DatasetSummary{
		DatasetID:    meta.ID,
		FileName:     meta.Name,
		LoadedAt:     meta.LoadedAt,
		TotalRecords: snap.Len(),
		Indexed:      snap.Indexed(),
		Columns:      snap.Columns(),
		PassRate:     passRate(snap),
	}
	if lo, hi, ok := snap.Bounds(); ok {
		sum.DateRange = &dateRange{Start: lo, End: hi}
	}
	return sum
}

// passRate is the share of indexed rows whose label is 1, or nil when no
// row carries a numeric label.
func passRate(snap *dataset.Snapshot) *float64 {
	lo, hi, ok := snap.Bounds()
	if !ok {
		return nil
	}
	label := snap.Schema().LabelColumn
	var labelled, pass int
	for row := range snap.Rows(lo, hi) {
		v, ok := row.Value(label).Int64()
		if !ok {
			continue
		}
		labelled++
		if v == 1 {
			pass++
		}
	}
	if labelled == 0 {
		return nil
	}
	r := float64(pass) / float64(labelled)
	return &r
}

// #endregion summary

// #region upload

func (s *Server) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart/form-data with field 'file' required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	tbl, err := dataset.ReadCSV(bytes.NewReader(data), s.deps.Store.Schema(), s.opts.ReadOptions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.loadMu.Lock()
	v, err := s.deps.Catalog.Commit(file.Filename, tbl)
	if err != nil {
		s.loadMu.Unlock()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	snap := s.deps.Store.Load(v.Meta(), tbl)
	s.loadMu.Unlock()

	sum := summarize(snap)
	if s.deps.Archive != nil {
		key, err := s.deps.Archive.Upload(c.Request.Context(), v.VersionID, file.Filename, data)
		if err != nil {
			log.Printf("api: archive upload %s: %v", v.VersionID, err)
		} else {
			sum.ArchiveKey = key
		}
	}
	log.Printf("api: dataset %s loaded from %s (%d rows, %d indexed)", v.VersionID, file.Filename, sum.TotalRecords, sum.Indexed)
	c.JSON(http.StatusOK, sum)
}

// #endregion upload

// #region versions

func (s *Server) currentDataset(c *gin.Context) {
	snap := s.deps.Store.Snapshot()
	if snap.Meta().ID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no dataset loaded"})
		return
	}
	c.JSON(http.StatusOK, summarize(snap))
}

func (s *Server) listVersions(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	versions, err := s.deps.Catalog.ListVersions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if versions == nil {
		versions = []catalog.Version{}
	}
	c.JSON(http.StatusOK, versions)
}

func (s *Server) activateVersion(c *gin.Context) {
	id := c.Param("id")

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	v, err := s.deps.Catalog.GetVersion(id)
	if err != nil {
		catalogError(c, err)
		return
	}
	tbl, err := s.deps.Catalog.LoadTable(id)
	if err != nil {
		catalogError(c, err)
		return
	}
	if err := s.deps.Catalog.Rollback(id); err != nil {
		catalogError(c, err)
		return
	}
	snap := s.deps.Store.Load(v.Meta(), tbl)
	log.Printf("api: dataset %s activated (%d rows)", id, snap.Len())
	c.JSON(http.StatusOK, summarize(snap))
}

func (s *Server) downloadVersion(c *gin.Context) {
	if s.deps.Archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload archive disabled"})
		return
	}
	v, err := s.deps.Catalog.GetVersion(c.Param("id"))
	if err != nil {
		catalogError(c, err)
		return
	}
	url, err := s.deps.Archive.DownloadURL(c.Request.Context(), v.VersionID, v.Name, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, url)
}

func catalogError(c *gin.Context, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// #endregion versions
