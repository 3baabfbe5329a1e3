package cli

import (
	"clinicadmin/internal/adapters/collections"
	"clinicadmin/internal/adapters/exports"
	"clinicadmin/internal/blob"
	"clinicadmin/internal/config"
	"clinicadmin/internal/core"
	"clinicadmin/internal/logger"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// Server bundles the HTTP server with the resources it owns.
type Server struct {
	HTTP    *http.Server
	Service *core.Service
	Worker  *exports.Worker

	cfg    config.ServerConfig
	log    logger.Logger
	closer io.Closer
}

// NewServer opens storage and blob backends and builds the router.
func NewServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Nop()
	}
	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	closer, _ := store.(io.Closer)
	artifacts, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := core.NewPrometheusMetrics(reg)

	svc := core.NewService(store, core.WithLogger(log.With("component", "service")), core.WithMetricsRecorder(metrics))
	worker := exports.NewWorker(svc, artifacts,
		exports.WithLogger(log.With("component", "exports")),
		exports.WithObserver(metrics),
		exports.WithQueueSize(cfg.Server.ExportQueue))

	router := collections.NewRouter(svc,
		collections.WithExports(worker),
		collections.WithLogger(log.With("component", "http")),
		collections.WithMetrics(metrics, reg))

	return &Server{
		HTTP: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		Service: svc,
		Worker:  worker,
		cfg:     cfg.Server,
		log:     log,
		closer:  closer,
	}, nil
}

// Run serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	s.Worker.Start()
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", ln.Addr().String())
		errCh <- s.HTTP.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.HTTP.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown", "err", err)
	}
	if err := s.Worker.Stop(shutdownCtx); err != nil {
		s.log.Warn("export worker shutdown", "err", err)
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			s.log.Warn("close storage", "err", err)
		}
	}
	s.log.Info("server stopped")
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}

// ListenAndRun listens on addr and calls Run. Storage is closed when the
// listener cannot be opened.
func (s *Server) ListenAndRun(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if s.closer != nil {
			if cerr := s.closer.Close(); cerr != nil {
				s.log.Warn("close storage", "err", cerr)
			}
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Run(ctx, ln)
}

func newServeCommand(a *app) *cobra.Command {
	var addr, storage string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collection REST server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extra := map[string]any{}
			if cmd.Flags().Changed("addr") {
				extra["server.addr"] = addr
			}
			if cmd.Flags().Changed("storage") {
				extra["storage.driver"] = storage
			}
			if err := a.configure(cmd, extra); err != nil {
				return err
			}
			srv, err := NewServer(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			return srv.ListenAndRun(cmd.Context(), a.cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().StringVar(&storage, "storage", "", "storage driver (memory, sqlite, postgres)")
	return cmd
}
