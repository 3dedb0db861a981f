package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/document"
	"github.com/cwbudde/algo-opgraph/engine/dynamic"
	"github.com/cwbudde/algo-opgraph/engine/metrics"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
	"github.com/cwbudde/algo-opgraph/internal/mermaid"
)

const shutdownTimeout = 5 * time.Second

func newWatchCmd(opts *options) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch DOCUMENT",
		Short: "Run a graph live and apply edits to its document",
		Long: `Runs the graph at block rate and follows changes to the document.
Every save is diffed against the running graph and applied as one atomic
edit. Rejected edits are logged and the graph keeps running unchanged.

The HTTP endpoint serves /metrics (Prometheus), /healthz and /graph
(Mermaid flowchart of the live graph).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}

			registry := prometheus.NewRegistry()
			recorder := metrics.New()
			recorder.MustRegister(registry)

			s, err := newSession(args[0], cfg.Settings(), logger, recorder)
			if err != nil {
				return err
			}

			defer s.op.Release()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return s.run(ctx, cfg.MetricsAddr, registry)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "HTTP listen address (default from settings, :9090)")

	return cmd
}

// session is one live graph following its document on disk.
type session struct {
	path   string
	reg    *nodes.Registry
	tr     *dynamic.Transactor
	op     *dynamic.Operator
	logger *slog.Logger

	mu      sync.Mutex
	doc     *document.Document
	applied int
}

func newSession(path string, settings core.OperatorSettings, logger *slog.Logger, recorder *metrics.Recorder) (*session, error) {
	doc, g, err := loadGraph(path)
	if err != nil {
		return nil, err
	}

	tr := dynamic.NewTransactor(g, dynamic.WithLogger(logger), dynamic.WithMetrics(recorder))

	var cb dynamic.Callbacks
	cb.OnInputAdded = func(name string, _ data.Reference) { logger.Info("graph input added", "name", name) }
	cb.OnInputRemoved = func(name string) { logger.Info("graph input removed", "name", name) }
	cb.OnOutputAdded = func(name string, _ data.Reference) { logger.Info("graph output added", "name", name) }
	cb.OnOutputRemoved = func(name string) { logger.Info("graph output removed", "name", name) }

	op, err := tr.NewOperator(settings, nil, dynamic.WithCallbacks(cb))
	if err != nil {
		return nil, err
	}

	return &session{
		path:   filepath.Clean(path),
		reg:    nodes.DefaultRegistry(),
		tr:     tr,
		op:     op,
		logger: logger.With("document", doc.Name),
		doc:    doc,
	}, nil
}

// reload diffs the document on disk against the running one and applies
// the difference. It reports whether anything changed.
func (s *session) reload() (bool, error) {
	next, err := document.LoadFile(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changes := document.Diff(s.doc, next)
	if changes.Empty() {
		return false, nil
	}

	err = document.Apply(s.tr, changes, s.reg)
	if err != nil {
		return false, err
	}

	s.doc = next
	s.applied++
	s.logger.Info("document applied", "changes", changes.String())

	return true, nil
}

func (s *session) run(ctx context.Context, addr string, registry *prometheus.Registry) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	defer watcher.Close()

	// Editors often replace the file, so the directory is watched.
	err = watcher.Add(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.render(ctx) })
	g.Go(func() error { return s.follow(ctx, watcher) })
	g.Go(func() error {
		s.logger.Info("serving", "addr", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("watch: %w", err)
		}

		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// render executes one block per block period until ctx is done.
func (s *session) render(ctx context.Context) error {
	settings := s.op.Settings()
	period := time.Duration(float64(time.Second) / settings.BlockRate())
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.op.Execute()
		}
	}
}

func (s *session) follow(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != s.path {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			_, err := s.reload()
			if err != nil {
				s.logger.Warn("document reload failed", "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			s.logger.Warn("watcher error", "err", err)
		}
	}
}

type health struct {
	Document  string `json:"document"`
	Nodes     int    `json:"nodes"`
	Pending   int    `json:"pending_transforms"`
	Instances int    `json:"instances"`
	Applied   int    `json:"applied_edits"`
}

func (s *session) router(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()

		h := health{Document: s.doc.Name, Applied: s.applied}

		s.mu.Unlock()

		h.Nodes = s.tr.Graph().NodeCount()
		h.Pending = s.op.Pending()
		h.Instances = s.tr.Instances()

		w.Header().Set("Content-Type", "application/json")

		_ = json.NewEncoder(w).Encode(h)
	})
	r.Get("/graph", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, mermaid.Generate(s.tr.Graph(), nil))
	})

	return r
}
