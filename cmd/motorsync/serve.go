package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"motorsync/internal/api"
	"motorsync/internal/config"
	"motorsync/internal/hub"
	"motorsync/internal/logging"
	"motorsync/internal/metrics"
	"motorsync/internal/sim"
	"motorsync/internal/store"
	"motorsync/internal/telemetry"
)

var (
	serveConfigPath string
	serveSchemaPath string
	servePrintOnly  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telemetry pipeline",
	Long:  "serve starts the sampler, the HTTP API and the live push channel.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigPath, serveSchemaPath)
		if err != nil {
			return err
		}

		log := logging.New()
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		st, closeStore, err := newStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		bus := hub.New(log,
			hub.WithHeartbeat(cfg.Heartbeat.Std()),
			hub.WithDropHook(func() { m.BroadcastDropped.Inc() }),
			hub.WithSubscriberHook(func(n int) { m.Subscribers.Set(float64(n)) }),
		)
		go bus.Run(ctx)

		mirror, alertMirror, cleanup, err := newMirrorWriters(cfg, servePrintOnly, log)
		if err != nil {
			return err
		}
		defer cleanup()

		coords := make([]*sim.Coordinator, 0, len(cfg.Machines))
		for _, mc := range cfg.Machines {
			seed := mc.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			synth := telemetry.NewSynthesizer(mc.ID, mc.Profile(), rand.New(rand.NewSource(seed)))

			opts := []sim.CoordinatorOption{
				sim.WithSampleHook(func(err error, elapsed time.Duration) {
					m.ObserveSample(err, elapsed.Seconds())
				}),
			}
			if mirror != nil {
				opts = append(opts, sim.WithMirror(mirror))
			}
			if alertMirror != nil {
				opts = append(opts, sim.WithAlertMirror(alertMirror))
			}
			c, err := sim.NewCoordinator(ctx, synth, st, bus, log, opts...)
			if err != nil {
				return err
			}
			coords = append(coords, c)
		}

		runner := sim.NewRunner(coords, cfg.Tick.Std())
		go runner.Run(ctx)

		var auth api.Authorizer
		if cfg.Server.AdminToken != "" {
			auth = api.TokenAuthorizer(cfg.Server.AdminToken)
		}
		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: api.NewServer(st, bus, runner, auth, reg, log),
		}
		go func() {
			log.Info("http api listening", "addr", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server failed", "err", err)
				cancel()
			}
		}()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigs:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		cancel()
		log.Info("pipeline stopped")
		return nil
	},
}

func newStore(cfg *config.Config) (store.SampleStore, func(), error) {
	if cfg.Store.Path == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config/motorsync.yaml", "Path to pipeline configuration YAML")
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "schemas/motorsync.cue", "Path to CUE schema file")
	serveCmd.Flags().BoolVar(&servePrintOnly, "print-only", false, "Mirror readings to STDOUT instead of external sinks")
}
