package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sreemahi-code/abbhack/internal/catalog"
	"github.com/sreemahi-code/abbhack/internal/dataset"
	"github.com/sreemahi-code/abbhack/internal/simulate"
	"github.com/sreemahi-code/abbhack/internal/validate"
)

// #region interfaces

// Catalog persists uploads as versions. *catalog.Store satisfies it.
type Catalog interface {
	Commit(name string, tbl *dataset.Table) (catalog.Version, error)
	GetVersion(id string) (catalog.Version, error)
	LoadTable(id string) (*dataset.Table, error)
	Rollback(id string) error
	ListVersions(limit int) ([]catalog.Version, error)
}

// Archiver keeps raw upload bytes. *blob.Archive satisfies it.
type Archiver interface {
	Upload(ctx context.Context, versionID, name string, data []byte) (string, error)
	DownloadURL(ctx context.Context, versionID, name string, expiry time.Duration) (string, error)
}

// StatusLookup answers for runs that already left the registry.
// *notify.StatusTracker satisfies it.
type StatusLookup interface {
	Status(ctx context.Context, runID string) (map[string]string, error)
}

// #endregion interfaces

// #region server

// Deps are the collaborators the handlers use. Archive, Status and Limiter
// are optional.
type Deps struct {
	Store    *dataset.Store
	Catalog  Catalog
	Archive  Archiver
	Registry *simulate.Registry
	Streamer *simulate.Streamer
	Status   StatusLookup
	Limiter  Counter
}

// Options are the request-independent settings of the API.
type Options struct {
	AllowOrigin    string
	BoundaryPolicy validate.BoundaryPolicy
	ReadOptions    dataset.ReadOptions
	MLServiceURL   string
	TrainTimeout   time.Duration
	RateLimit      int // requests per second per client
}

// Server wires the HTTP surface to the row store, validator and streamer.
type Server struct {
	deps  Deps
	opts  Options
	train *http.Client

	// serializes catalog commits/rollbacks with store loads so the active
	// version and the loaded dataset never disagree
	loadMu sync.Mutex
}

// NewServer creates a server. A zero TrainTimeout means no client timeout.
func NewServer(deps Deps, opts Options) *Server {
	return &Server{
		deps:  deps,
		opts:  opts,
		train: &http.Client{Timeout: opts.TrainTimeout},
	}
}

// #endregion server

// #region router

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(CORS(s.opts.AllowOrigin))
	if s.deps.Limiter != nil && s.opts.RateLimit > 0 {
		r.Use(NewRateLimiter(RateLimiterConfig{
			Client: s.deps.Limiter,
			Limit:  s.opts.RateLimit,
			Window: time.Second,
		}))
	}

	r.GET("/health", s.health)

	r.POST("/dataset/upload", s.upload)
	r.GET("/dataset", s.currentDataset)
	r.GET("/dataset/versions", s.listVersions)
	r.POST("/dataset/versions/:id/activate", s.activateVersion)
	r.GET("/dataset/versions/:id/download", s.downloadVersion)

	r.POST("/dates/validate", s.validateDates)
	r.POST("/train-model", s.trainModel)

	r.GET("/simulate/stream", s.stream)
	r.GET("/simulate/runs", s.listRuns)
	r.GET("/simulate/runs/:id", s.getRun)
	r.DELETE("/simulate/runs/:id", s.cancelRun)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// #endregion router
