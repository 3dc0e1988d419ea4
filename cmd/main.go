package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-booking/internal/clock"
	"github.com/ukydev/fleet-booking/internal/config"
	"github.com/ukydev/fleet-booking/internal/db"
	"github.com/ukydev/fleet-booking/internal/events"
	"github.com/ukydev/fleet-booking/internal/handlers"
	"github.com/ukydev/fleet-booking/internal/metrics"
	"github.com/ukydev/fleet-booking/internal/middleware"
	"github.com/ukydev/fleet-booking/internal/ranking"
	"github.com/ukydev/fleet-booking/internal/registry"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:          "fleet-booking",
		Short:        "Fleet booking service: vehicle registry, trip ranking and reservations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env when present)")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Fatal("fleet-booking stopped")
	}
}

func run(ctx context.Context, envFile string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Log.Apply(log.StandardLogger()); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	clk, err := clock.New(cfg.Timezone)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, err := openPublisher(cfg.MQTT)
	if err != nil {
		return err
	}
	defer publisher.Close()

	var (
		recorder       metrics.Recorder = metrics.NopRecorder{}
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := metrics.NewPromRecorder(promReg)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		recorder = rec
		metricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}

	reg := registry.New(store, clk,
		registry.WithPublisher(publisher),
		registry.WithRecorder(recorder),
		registry.WithLogger(log.WithField("component", "registry")),
	)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: newRouter(router{
			registry:       reg,
			ranker:         ranking.New(reg, recorder),
			clock:          clk,
			limiter:        middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
			metricsHandler: metricsHandler,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":     srv.Addr,
			"store":    cfg.Store.Backend,
			"timezone": cfg.Timezone,
			"events":   cfg.MQTT.Enabled(),
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// router holds everything the HTTP surface is built from.
type router struct {
	registry       *registry.Registry
	ranker         *ranking.Ranker
	clock          clock.Clock
	limiter        *middleware.RateLimiter
	metricsHandler http.Handler
}

// newRouter mounts the API behind the rate limiter. Health and metrics are
// not rate limited.
func newRouter(rt router) http.Handler {
	httpLog := log.WithField("component", "http")
	limit := rt.limiter.Middleware

	mux := http.NewServeMux()
	mux.Handle("/all/fleet", limit(handlers.NewVehicleHandler(rt.registry, httpLog)))
	mux.Handle("/combinations", limit(handlers.NewCombinationHandler(rt.ranker, rt.clock, httpLog)))
	mux.Handle("/select/{plate}", limit(handlers.NewSelectionHandler(rt.registry, httpLog)))
	mux.HandleFunc("/health", handlers.Health)
	if rt.metricsHandler != nil {
		mux.Handle("GET /metrics", rt.metricsHandler)
	}
	return middleware.RequestLogger(httpLog)(mux)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (db.VehicleCollection, func(), error) {
	if cfg.Backend != config.BackendMongo {
		return db.NewMemoryVehicleCollection(), func() {}, nil
	}
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}
	coll, err := db.NewMongoVehicleCollection(ctx, client.Database(cfg.MongoDB))
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return coll, closeFn, nil
}

func openPublisher(cfg config.MQTTConfig) (events.Publisher, error) {
	if !cfg.Enabled() {
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewMQTTPublisher(events.Config{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
		Topic:    cfg.Topic,
		QoS:      byte(cfg.QoS),
	}, log.WithField("component", "events"))
	if err != nil {
		return nil, fmt.Errorf("vehicle events: %w", err)
	}
	return pub, nil
}
