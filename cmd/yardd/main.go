// Command yardd serves the yard operations API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"yardops/config"
	"yardops/internal/api/routes"
	"yardops/internal/archive"
	"yardops/internal/blob"
	"yardops/internal/cache"
	"yardops/internal/core"
	"yardops/internal/events"
	"yardops/internal/infra/blob/s3"
	"yardops/internal/logger"
	"yardops/internal/metrics"
	"yardops/internal/socket"
	"yardops/pkg/domain"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("yardd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	traceSpans := fs.Bool("trace", false, "write operation spans to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "yardd: %v\n", err)
		return 1
	}
	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if err := serve(ctx, cfg, log, *traceSpans, stderr); err != nil {
		log.Error("yardd stopped", zap.Error(err))
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger, traceSpans bool, traceOut io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	store, err := core.OpenPersistentStore(ctx, core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
		MongoURI:    cfg.Storage.MongoURI,
		MongoDB:     cfg.Storage.MongoDB,
	}, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	stateCache := cache.New(cache.WithLogger(log.Named("cache")))
	stateCache.OnChange(func(kind domain.EntityKind, _ uint64) {
		rec.CacheApplied(kind, stateCache.Count(kind))
	})
	if err := stateCache.Start(ctx, store); err != nil {
		return fmt.Errorf("start cache: %w", err)
	}
	defer stateCache.Close()

	var producer events.Producer = events.NewLogProducer(log.Named("events"))
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewKafkaProducer(cfg.Kafka.Brokers)
	}
	publisher := events.NewPublisher(producer, events.PublisherConfig{Topic: cfg.Kafka.Topic},
		events.WithLogger(log.Named("events")),
		events.OnFailure(rec.PublishFailed),
	)

	opts := []core.ServiceOption{
		core.WithLogger(logger.NewKV(log.Named("core"))),
		core.WithMetricsRecorder(rec),
		core.WithEventPublisher(publisher),
	}
	if traceSpans {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceOut, 0)))
	}
	svc := core.NewService(store, stateCache, opts...)

	blobs, err := archive.Open(ctx, archive.Config{
		Driver:    blob.Driver(cfg.Blob.Driver),
		FSRoot:    cfg.Blob.FSRoot,
		URLExpiry: cfg.Blob.URLExpiry,
		S3: s3.Config{
			Region:          cfg.Blob.S3.Region,
			Bucket:          cfg.Blob.S3.Bucket,
			Endpoint:        cfg.Blob.S3.Endpoint,
			PathStyle:       cfg.Blob.S3.PathStyle,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
		},
	})
	if err != nil {
		return fmt.Errorf("open report archive: %w", err)
	}

	hub := socket.NewHub(stateCache, log.Named("socket"), cfg.Server.AllowOrigins...)
	defer hub.Close()

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRouter(cfg, routes.Deps{
		Service:  svc,
		Archive:  archive.New(blobs, cfg.Blob.URLExpiry, log.Named("archive")),
		Hub:      hub,
		Registry: reg,
		Log:      log.Named("http"),
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The sender outlives gctx so queued events drain on shutdown.
		pubCtx, stop := context.WithCancel(context.WithoutCancel(gctx))
		defer stop()
		publisher.Start(pubCtx)
		<-gctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return publisher.Close(closeCtx)
	})
	g.Go(func() error {
		log.Info("yardd listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("blob", string(blobs.Driver())),
			zap.Bool("kafka", len(cfg.Kafka.Brokers) > 0),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
