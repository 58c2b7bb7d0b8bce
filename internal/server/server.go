// Package server runs the preview server: it renders each discovered
// template on its own page, rebuilds when template files change and tells
// open pages to reload over a websocket.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/conneroisu/gorsx/internal/config"
	"github.com/conneroisu/gorsx/internal/engine"
	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/logging"
	"github.com/conneroisu/gorsx/internal/registry"
	"github.com/conneroisu/gorsx/internal/renderer"
	"github.com/conneroisu/gorsx/internal/scanner"
	"github.com/conneroisu/gorsx/internal/watcher"
)

// PreviewServer serves templates with live reload.
type PreviewServer struct {
	config  *config.Config
	logger  logging.Logger
	scanner *scanner.ComponentScanner
	hub     *hub
	errs    *errors.ErrorHandler

	mu          sync.RWMutex
	registry    *registry.ComponentRegistry
	renderer    *renderer.ComponentRenderer
	diagnostics *errors.ErrorCollector
	lastErr     error
	built       bool
	builtAt     time.Time

	serverMutex  sync.Mutex
	httpServer   *http.Server
	watcher      *watcher.FileWatcher
	shutdownOnce sync.Once
}

// UpdateMessage is sent to connected pages.
type UpdateMessage struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	MessageReload     = "reload"
	MessageBuildError = "build_error"
)

// New creates a preview server. Nothing is scanned until Rebuild or Start.
func New(cfg *config.Config, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("server")
	reg := registry.NewComponentRegistry().Freeze()
	return &PreviewServer{
		config:      cfg,
		logger:      logger,
		scanner:     scanner.NewComponentScanner(cfg.Components.ExcludePatterns),
		hub:         newHub(logger),
		errs:        errors.NewErrorHandler(logger),
		registry:    reg,
		renderer:    renderer.NewComponentRenderer(reg, logger),
		diagnostics: errors.NewErrorCollector(),
	}
}

// Rebuild rescans the configured paths and, when anything changed,
// compiles every template into a fresh registry and notifies connected
// pages. Templates that fail to compile are reported in the returned
// error and in the error overlay; the rest stay available.
func (s *PreviewServer) Rebuild(ctx context.Context) error {
	paths, missing := scanner.ExistingPaths(s.config.Components.ScanPaths)
	for _, p := range missing {
		s.logger.Debug(ctx, "scan path does not exist", "path", p)
	}

	res, scanErr := s.scanner.Scan(ctx, paths)
	if res == nil {
		return scanErr
	}

	s.mu.RLock()
	unchanged := s.built && !res.Dirty() && scanErr == nil
	lastErr := s.lastErr
	s.mu.RUnlock()
	if unchanged {
		s.logger.Debug(ctx, "no template changes")
		return lastErr
	}

	reg := registry.NewComponentRegistry()
	templates, buildErr := engine.Build(ctx, reg, res.Sources, engine.WithLogger(s.logger))
	err := errors.CombineErrors(scanErr, buildErr)

	collector := errors.NewErrorCollector()
	for _, e := range errors.Split(err) {
		collector.AddError(e)
		s.errs.Handle(ctx, e)
	}

	s.mu.Lock()
	s.registry = reg
	s.renderer = renderer.NewComponentRenderer(reg, s.logger)
	s.diagnostics = collector
	s.lastErr = err
	s.built = true
	s.builtAt = time.Now()
	s.mu.Unlock()

	s.logger.Info(ctx, "build finished",
		"templates", len(templates),
		"errors", len(collector.GetErrors()),
		"added", len(res.Added), "changed", len(res.Changed), "removed", len(res.Removed))

	msg := UpdateMessage{Type: MessageReload, Timestamp: time.Now()}
	if collector.HasErrors() && s.config.Development.ErrorOverlay {
		msg = UpdateMessage{Type: MessageBuildError, Content: collector.ErrorOverlay(), Timestamp: time.Now()}
	}
	s.hub.broadcast(ctx, msg)
	return err
}

// snapshot returns the current build.
func (s *PreviewServer) snapshot() (*registry.ComponentRegistry, *renderer.ComponentRenderer, *errors.ErrorCollector) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry, s.renderer, s.diagnostics
}

// Handler returns the HTTP routes of the server.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /render/{name}", s.handleRender)
	mux.HandleFunc("GET /api/components", s.handleComponents)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return s.logRequests(mux)
}

func (s *PreviewServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Start builds, starts watching when hot reload is on and serves until
// ctx is done.
func (s *PreviewServer) Start(ctx context.Context) error {
	if err := s.Rebuild(ctx); err != nil {
		s.logger.Warn(ctx, err, "initial build has errors")
	}

	if s.config.Development.HotReload {
		if err := s.startWatcher(ctx); err != nil {
			return err
		}
	}

	listener, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath, "listening on "+s.config.Server.Addr())
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	url := "http://" + listener.Addr().String()
	s.logger.Info(ctx, "preview server listening", "url", url)
	if s.config.Server.Open {
		go s.openBrowser(ctx, url)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "shutdown")
		}
	}()

	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return errors.WrapIO(err, errors.ErrCodeInternalError, "serving")
	}
	return nil
}

func (s *PreviewServer) startWatcher(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(s.config.Development.Debounce, s.logger)
	if err != nil {
		return err
	}
	fw.AddFilter(watcher.RSXFilter)
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(func(path string) bool { return !s.scanner.Excluded(path) })
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, e := range events {
			s.logger.Debug(ctx, "file changed", "path", e.Path, "type", e.Type.String())
		}
		if err := s.Rebuild(ctx); err != nil {
			s.logger.Warn(ctx, err, "rebuild has errors")
		}
		return nil
	})

	paths, _ := scanner.ExistingPaths(s.config.Components.ScanPaths)
	for _, p := range paths {
		if err := fw.AddRecursive(p); err != nil {
			s.logger.Warn(ctx, err, "cannot watch path", "path", p)
		}
	}
	fw.Start(ctx)

	s.serverMutex.Lock()
	s.watcher = fw
	s.serverMutex.Unlock()
	return nil
}

// Shutdown stops the watcher, closes live reload connections and stops
// the HTTP server.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down")

		s.serverMutex.Lock()
		fw, server := s.watcher, s.httpServer
		s.serverMutex.Unlock()

		if fw != nil {
			if stopErr := fw.Stop(); stopErr != nil {
				s.logger.Warn(ctx, stopErr, "stopping watcher")
			}
		}
		s.hub.closeAll()
		if server != nil {
			err = server.Shutdown(ctx)
		}
	})
	return err
}

func (s *PreviewServer) openBrowser(ctx context.Context, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		s.logger.Warn(ctx, fmt.Errorf("unsupported platform %s", runtime.GOOS), "cannot open browser")
		return
	}
	if err := cmd.Start(); err != nil {
		s.logger.Warn(ctx, err, "cannot open browser")
	}
}
