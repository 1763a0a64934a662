// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package capture runs the loopback HTTP server that serves converted
// HTML to a browser and accepts rendered diagram images posted back by
// the page's scripts.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SavePath is the endpoint diagram images are posted to.
const SavePath = "/save-svg"

// DefaultFilename is used when a save request names no file.
const DefaultFilename = "diagram.svg"

const shutdownTimeout = 2 * time.Second

// ErrNotRunning is returned by URL when no server is running.
var ErrNotRunning = errors.New("capture server not running")

// saveRequest is the body of a save request. Content is the canonical
// field; SVG is accepted from older page scripts.
type saveRequest struct {
	Content  *string `json:"content"`
	SVG      *string `json:"svg"`
	Filename string  `json:"filename"`
}

// Server is a restartable single-instance capture server. Start and Stop
// may be called from any goroutine.
type Server struct {
	mu     sync.Mutex
	srv    *http.Server
	done   chan struct{}
	port   int
	dir    string
	logger *slog.Logger
}

// New returns a stopped server.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{logger: logger.With(slog.String("component", "capture"))}
}

// Start serves dir on an ephemeral loopback port and returns the port.
// A server that is already running is stopped first. dir is created if it
// does not exist.
func (s *Server) Start(dir string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		s.logger.Info("Stopping existing local server")
		s.stopLocked()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		s.logger.Error("Failed to start local server", slog.String("error", err.Error()))
		return 0, fmt.Errorf("creating %s: %w", abs, err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		s.logger.Error("Failed to start local server", slog.String("error", err.Error()))
		return 0, fmt.Errorf("listening: %w", err)
	}

	srv := &http.Server{
		Handler:           Handler(abs, s.logger),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(io.Discard, "", 0),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Local server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	s.srv = srv
	s.done = done
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.dir = abs
	s.logger.Info("Local HTTP server started", slog.String("url", fmt.Sprintf("http://127.0.0.1:%d", s.port)))
	return s.port, nil
}

// Stop shuts the server down. It is a no-op when nothing is running.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Server) stopLocked() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to stop local server", slog.String("error", err.Error()))
		s.srv.Close()
	}
	<-s.done
	s.logger.Info("Local HTTP server stopped")

	s.srv = nil
	s.done = nil
	s.port = 0
	s.dir = ""
}

// Port returns the bound port, or 0 when stopped.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Dir returns the served directory, or "" when stopped.
func (s *Server) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

// URL returns the address of name under the served directory.
func (s *Server) URL(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return "", ErrNotRunning
	}
	return fmt.Sprintf("http://127.0.0.1:%d/%s", s.port, strings.TrimPrefix(filepath.ToSlash(name), "/")), nil
}

// Handler serves files under dir for GET and HEAD and accepts image
// uploads on SavePath. Any other POST path gets 404.
func Handler(dir string, logger *slog.Logger) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			files.ServeHTTP(w, r)
		case http.MethodPost:
			if !strings.HasPrefix(r.URL.Path, SavePath) {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			save(w, r, dir, logger)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func save(w http.ResponseWriter, r *http.Request, dir string, logger *slog.Logger) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("Failed to save SVG", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	content := ""
	switch {
	case req.Content != nil:
		content = *req.Content
	case req.SVG != nil:
		content = *req.SVG
	}
	name := req.Filename
	if name == "" {
		name = DefaultFilename
	}

	path, err := within(dir, name)
	if err != nil {
		logger.Error("Failed to save SVG", slog.String("filename", name), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logger.Error("Failed to save SVG", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	logger.Info("Saved SVG", slog.String("path", path))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "success"}); err != nil {
		logger.Debug("Failed to write save response", slog.String("error", err.Error()))
	}
}

// within joins name onto dir and rejects results outside dir.
func within(dir, name string) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("filename %q escapes the served directory", name)
	}
	return path, nil
}
