// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs single-file and folder conversions: it injects
// renderer metadata, builds the converter command, runs it, and for
// folders mirrors the input tree into the output tree.
package convert

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdiddy/pandoc-runner/internal/command"
	"github.com/pdiddy/pandoc-runner/internal/metadata"
	"github.com/pdiddy/pandoc-runner/internal/process"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

// Runner executes a converter command line. process.Executor is the
// production implementation; tests substitute fakes.
type Runner interface {
	// Run executes argv to completion and removes tempFile afterwards.
	Run(ctx context.Context, argv []string, tempFile string) process.Result
}

// Reporter receives folder progress. Report is called synchronously from
// the converting goroutine before each file is converted; implementations
// that update a UI must marshal onto the UI goroutine themselves.
type Reporter interface {
	Report(current, total int, path string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(current, total int, path string)

// Report calls f.
func (f ReporterFunc) Report(current, total int, path string) { f(current, total, path) }

// Service converts documents with a fixed configuration snapshot.
type Service struct {
	cfg     types.ServiceConfig
	env     metadata.Environment
	runner  Runner
	tempDir string
	logger  *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithTempDir places transient metadata files in dir instead of the
// system temporary directory.
func WithTempDir(dir string) Option {
	return func(s *Service) { s.tempDir = dir }
}

// NewService returns a service for cfg. The configuration is copied, so
// later changes by the caller do not affect running conversions.
func NewService(cfg types.ServiceConfig, env metadata.Environment, runner Runner, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		cfg:    cfg.Clone(),
		env:    env,
		runner: runner,
		logger: logger.With(slog.String("component", "convert")),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the service's configuration snapshot.
func (s *Service) Config() types.ServiceConfig { return s.cfg.Clone() }

// ConvertFile converts input to output. When renderer settings need to be
// passed to the diagram filters a temporary metadata copy of input is
// converted instead and removed afterwards. If that copy cannot be
// written the original input is converted unchanged.
func (s *Service) ConvertFile(ctx context.Context, input, output string, ov types.Overrides) process.Result {
	injector := metadata.NewInjector(s.cfg, s.env, s.tempDir, s.logger)
	meta, err := injector.Inject(input, ov)
	if err != nil {
		s.logger.Error("Could not create metadata file, converting without renderer settings",
			slog.String("input", input), slog.String("error", err.Error()))
		meta = ""
	}

	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.Warn("Could not create output directory", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}

	argv := command.Build(input, output, s.cfg, meta)
	s.logger.Info("Command execution", slog.String("command", command.String(argv)))

	res := s.runner.Run(ctx, argv, meta)
	if res.Success {
		s.logger.Info("Conversion success", slog.String("output", output))
	}
	return res
}
