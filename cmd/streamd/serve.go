package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"streamd/internal/config"
	"streamd/internal/httpapi"
	"streamd/internal/manager"
	"streamd/internal/registry"
	"streamd/internal/store"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	addr         string
	corsOrigins  string
	inferTimeout int
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			f.apply(&cfg)
			log, err := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", envOr("STREAMD_ADDR", ""), "HTTP listen address, e.g. :8080")
	cmd.Flags().StringVar(&f.corsOrigins, "cors-origins", envOr("STREAMD_CORS_ORIGINS", ""), "Comma separated origins; enables CORS when set")
	cmd.Flags().IntVar(&f.inferTimeout, "infer-timeout", envInt("STREAMD_INFER_TIMEOUT", 0), "Seconds before /infer gives up (0=none)")
	return cmd
}

func (f *serveFlags) apply(cfg *config.Config) {
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if origins := splitCSV(f.corsOrigins); len(origins) > 0 {
		cfg.CORSEnabled = true
		cfg.CORSAllowedOrigins = origins
	}
	if f.inferTimeout > 0 {
		cfg.InferTimeoutSeconds = f.inferTimeout
	}
}

// newManager wires registry, snapshot store and session settings.
func newManager(cfg config.Config, log zerolog.Logger) (*manager.Manager, error) {
	models, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.State.Store, cfg.StoreLocation())
	if err != nil {
		return nil, err
	}
	return manager.NewWithConfig(manager.ManagerConfig{
		Registry:     models,
		BudgetMB:     cfg.VRAMBudgetMB,
		MarginMB:     cfg.VRAMMarginMB,
		DefaultModel: cfg.DefaultModel,
		Session:      cfg.SessionConfig(),
		Engine:       cfg.Engine.Options(),
		Store:        st,
		DrainTimeout: time.Duration(cfg.DrainTimeoutSeconds) * time.Second,
		Logger:       &log,
	}), nil
}

func configureHTTP(ctx context.Context, cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log)
	httpapi.Configure(httpapi.Options{
		MaxBodyBytes: cfg.MaxBodyBytes,
		InferTimeout: time.Duration(cfg.InferTimeoutSeconds) * time.Second,
		CORS: httpapi.CORSOptions{
			Enabled: cfg.CORSEnabled,
			Origins: cfg.CORSAllowedOrigins,
			Methods: cfg.CORSAllowedMethods,
			Headers: cfg.CORSAllowedHeaders,
		},
		BaseContext: ctx,
	})
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	mgr, err := newManager(cfg, log)
	if err != nil {
		return err
	}
	report := mgr.SanityCheck()
	ev := log.Info()
	if !report.OK() {
		ev = log.Warn().Str("error", report.Error)
	}
	ev.Bool("engine_built", report.EngineBuilt).Int("models", report.ModelsFound).
		Str("default_model", report.DefaultModel).Bool("store", report.StoreConfigured).Msg("sanity check")

	configureHTTP(ctx, cfg, log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.DefaultModel != "" && report.DefaultModelFound {
		if op, err := mgr.Switch(ctx, cfg.DefaultModel); err != nil {
			log.Warn().Err(err).Str("model", cfg.DefaultModel).Msg("preload failed")
		} else {
			log.Info().Str("op_id", op).Str("model", cfg.DefaultModel).Msg("preloading default model")
		}
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("streamd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		var errs []error
		if err := srv.Shutdown(sctx); err != nil {
			errs = append(errs, err)
		}
		if err := mgr.Close(sctx); err != nil {
			errs = append(errs, err)
		}
		log.Info().Msg("streamd stopped")
		return errors.Join(errs...)
	})
	return eg.Wait()
}
