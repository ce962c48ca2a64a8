package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sreemahi-code/abbhack/internal/api"
	"github.com/sreemahi-code/abbhack/internal/blob"
	"github.com/sreemahi-code/abbhack/internal/catalog"
	"github.com/sreemahi-code/abbhack/internal/config"
	"github.com/sreemahi-code/abbhack/internal/dataset"
	"github.com/sreemahi-code/abbhack/internal/logging"
	"github.com/sreemahi-code/abbhack/internal/notify"
	"github.com/sreemahi-code/abbhack/internal/scoring"
	"github.com/sreemahi-code/abbhack/internal/simulate"
)

const trainTimeout = 10 * time.Minute

// #region main
func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog and the active dataset
	cat, err := catalog.NewStore(cfg.DataDB)
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}
	defer cat.Close()

	schema := dataset.DefaultSchema()
	store := dataset.NewStore(schema)
	if err := restoreActive(cat, store); err != nil {
		log.Fatalf("failed to restore active dataset: %v", err)
	}

	// Scoring service
	scorer, closeScorer, err := newScorer(cfg)
	if err != nil {
		log.Fatalf("failed to create scorer: %v", err)
	}
	defer closeScorer.Close()

	// Run observers
	runLog, err := logging.NewRunLog(cat.DB())
	if err != nil {
		log.Fatalf("failed to init run log: %v", err)
	}
	observers := []simulate.Observer{runLog}

	deps := api.Deps{Store: store, Catalog: cat}

	if cfg.RedisAddr != "" {
		rdb, err := notify.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Fatalf("failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		tracker := notify.NewStatusTracker(rdb, notify.DefaultStatusTTL)
		observers = append(observers, tracker)
		deps.Status = tracker
		deps.Limiter = rdb
	}

	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer conn.Close()
		pub, err := notify.NewPublisher(conn, notify.DefaultExchange, notify.DefaultRoutingKey)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		defer pub.Close()
		observers = append(observers, pub)
	}

	if cfg.S3Endpoint != "" {
		arch, err := blob.NewArchive(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Secure)
		if err != nil {
			log.Fatalf("failed to create archive: %v", err)
		}
		deps.Archive = arch
	}

	deps.Registry = simulate.NewRegistry(observers...)
	deps.Streamer = simulate.NewStreamer(scorer, cfg.SimInterval)

	readOpts := dataset.DefaultReadOptions()
	readOpts.MaxRows = cfg.MaxUploadRows

	srv := api.NewServer(deps, api.Options{
		AllowOrigin:    cfg.AllowOrigin,
		BoundaryPolicy: cfg.BoundaryPolicy,
		ReadOptions:    readOpts,
		MLServiceURL:   cfg.MLServiceURL,
		TrainTimeout:   trainTimeout,
		RateLimit:      cfg.RateLimit,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Println("Simulation server ready.")
	fmt.Printf("  Addr: %s | DB: %s | Scorer: %s | Policy: %s\n",
		cfg.HTTPAddr, cfg.DataDB, cfg.Scorer, cfg.BoundaryPolicy)

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	case <-ctx.Done():
		log.Println("shutting down...")
		for _, run := range deps.Registry.List() {
			deps.Registry.Cancel(run.ID)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
// #endregion main

// #region helpers

// restoreActive loads the catalog's active version into the store, if any.
func restoreActive(cat *catalog.Store, store *dataset.Store) error {
	v, err := cat.GetCurrent()
	if errors.Is(err, catalog.ErrNotFound) {
		log.Println("No active dataset, waiting for an upload...")
		return nil
	}
	if err != nil {
		return err
	}
	tbl, err := cat.LoadTable(v.VersionID)
	if err != nil {
		return err
	}
	snap := store.Load(v.Meta(), tbl)
	log.Printf("restored dataset %s (%s, %d rows, %d indexed)", v.VersionID, v.Name, snap.Len(), snap.Indexed())
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newScorer builds the configured transport wrapped in retries.
func newScorer(cfg config.Config) (scoring.Scorer, io.Closer, error) {
	policy := scoring.DefaultRetryPolicy()
	policy.MaxRetries = cfg.ScoreMaxRetries

	switch cfg.Scorer {
	case "grpc":
		client, err := scoring.NewGRPCClient(cfg.ScorerAddr, cfg.ScoreTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to scorer at %s: %w", cfg.ScorerAddr, err)
		}
		return scoring.NewRetrying(client, policy), client, nil
	default:
		client := scoring.NewHTTPClient(cfg.MLServiceURL, cfg.ScoreTimeout)
		return scoring.NewRetrying(client, policy), nopCloser{}, nil
	}
}

// #endregion helpers
