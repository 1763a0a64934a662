// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session owns the live conversion configuration and runs
// conversion jobs in the background, one at a time. It tracks the running
// converter process and the capture server so both can be torn down on
// shutdown.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"

	"github.com/pdiddy/pandoc-runner/internal/capture"
	"github.com/pdiddy/pandoc-runner/internal/convert"
	"github.com/pdiddy/pandoc-runner/internal/history"
	"github.com/pdiddy/pandoc-runner/internal/metadata"
	"github.com/pdiddy/pandoc-runner/internal/process"
	"github.com/pdiddy/pandoc-runner/internal/profile"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

// ErrJobRunning is returned when a job is started while another is active.
var ErrJobRunning = errors.New("a conversion job is already running")

// ErrShutdown is returned when a job is started after Shutdown.
var ErrShutdown = errors.New("session is shut down")

// Recorder persists finished jobs. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, run history.Run) (history.Run, error)
}

// Opener opens a URL for the user.
type Opener func(url string) error

// Session is the orchestration context shared by the CLI commands.
type Session struct {
	store   *profile.Store
	tracker *process.Tracker
	runner  convert.Runner
	server  *capture.Server
	history Recorder
	open    Opener
	env     metadata.Environment
	tempDir string
	grace   time.Duration
	preview bool
	logger  *slog.Logger

	cfgMu   sync.RWMutex
	cfg     types.ServiceConfig
	profile string

	// base is cancelled by Shutdown; every job context derives from it.
	base   context.Context
	cancel context.CancelFunc

	jobMu sync.Mutex
	job   *Job
	wg    sync.WaitGroup
}

// Option customises a Session.
type Option func(*Session)

// WithRunner replaces the process executor used for conversions.
func WithRunner(r convert.Runner) Option { return func(s *Session) { s.runner = r } }

// WithOpener replaces the browser launcher used by Preview.
func WithOpener(o Opener) Option { return func(s *Session) { s.open = o } }

// WithHistory records every finished job in r.
func WithHistory(r Recorder) Option { return func(s *Session) { s.history = r } }

// WithEnvironment sets the renderer fallbacks used when neither an
// override nor the profile names a path.
func WithEnvironment(env metadata.Environment) Option { return func(s *Session) { s.env = env } }

// WithTempDir places metadata copies in dir.
func WithTempDir(dir string) Option { return func(s *Session) { s.tempDir = dir } }

// WithAutoPreview controls whether a successful HTML conversion in
// browser diagram mode is opened for preview. It is on by default.
func WithAutoPreview(on bool) Option { return func(s *Session) { s.preview = on } }

// WithGrace sets how long shutdown waits after a graceful termination
// request before killing the converter.
func WithGrace(d time.Duration) Option { return func(s *Session) { s.grace = d } }

// New returns a session using cfg as its initial configuration. Call
// LoadProfile to replace it with a stored profile.
func New(store *profile.Store, cfg types.ServiceConfig, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		store:   store,
		tracker: &process.Tracker{},
		open:    browser.OpenURL,
		grace:   process.DefaultGrace,
		preview: true,
		cfg:     cfg.Clone(),
		logger:  logger.With(slog.String("component", "session")),
	}
	s.base, s.cancel = context.WithCancel(context.Background())
	s.server = capture.New(logger)
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = process.NewExecutor(s.tracker, logger)
	}
	return s
}

// Config returns a copy of the live configuration.
func (s *Session) Config() types.ServiceConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// Profile returns the name of the last loaded profile.
func (s *Session) Profile() string {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.profile
}

// Update applies fn to the live configuration. Running jobs keep the
// snapshot they started with.
func (s *Session) Update(fn func(*types.ServiceConfig)) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	fn(&s.cfg)
}

// LoadProfile replaces the live configuration with the stored profile
// name. On error the configuration is unchanged.
func (s *Session) LoadProfile(name string) error {
	cfg := s.Config()
	if err := s.store.Apply(name, &cfg); err != nil {
		return err
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.profile = name
	s.cfgMu.Unlock()
	return nil
}

// SaveProfile stores the live configuration as profile name.
func (s *Session) SaveProfile(name string) error {
	if err := s.store.SaveConfig(name, s.Config()); err != nil {
		return err
	}
	s.cfgMu.Lock()
	s.profile = name
	s.cfgMu.Unlock()
	return nil
}

// Running reports whether a job is active.
func (s *Session) Running() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.job != nil
}

// ConvertFile starts converting job.Input in the background. The output
// path follows convert.OutputPath. A successful HTML conversion in
// browser diagram mode is opened for preview.
func (s *Session) ConvertFile(ctx context.Context, job types.ConversionJob) (*Job, error) {
	cfg := s.Config()
	output := convert.OutputPath(job.Input, job.Output, cfg.OutputFormat)
	j, err := s.begin(types.JobFile, job.Input, output, cfg)
	if err != nil {
		return nil, err
	}

	s.spawn(ctx, j, func(ctx context.Context) Outcome {
		svc := s.service(cfg)
		res := svc.ConvertFile(ctx, job.Input, output, job.Overrides)
		out := Outcome{File: res}
		if !res.Success || ctx.Err() != nil {
			return out
		}
		if s.preview && cfg.OutputFormat == types.FormatHTML && cfg.MermaidMode == types.MermaidBrowser {
			if url, err := s.Preview(output); err != nil {
				s.logger.Error("Preview failed", slog.String("output", output), slog.String("error", err.Error()))
			} else {
				out.PreviewURL = url
			}
		}
		return out
	})
	return j, nil
}

// ConvertFolder starts converting the tree under job.Input into
// job.Output in the background. r may be nil.
func (s *Session) ConvertFolder(ctx context.Context, job types.ConversionJob, r convert.Reporter) (*Job, error) {
	cfg := s.Config()
	j, err := s.begin(types.JobFolder, job.Input, job.Output, cfg)
	if err != nil {
		return nil, err
	}

	s.spawn(ctx, j, func(ctx context.Context) Outcome {
		res, err := s.service(cfg).ConvertFolder(ctx, job.Input, job.Output, cfg.OutputFormat.Extension(), job.Overrides, r)
		return Outcome{Folder: res, Err: err}
	})
	return j, nil
}

// Preview serves the directory holding htmlFile and opens the file in
// the browser. It returns the URL that was opened.
func (s *Session) Preview(htmlFile string) (string, error) {
	if _, err := s.server.Start(filepath.Dir(htmlFile)); err != nil {
		return "", fmt.Errorf("starting capture server: %w", err)
	}
	url, err := s.server.URL(filepath.Base(htmlFile))
	if err != nil {
		return "", err
	}
	s.logger.Info("Opening preview", slog.String("url", url))
	if err := s.open(url); err != nil {
		return url, fmt.Errorf("opening browser: %w", err)
	}
	return url, nil
}

// StopPreview stops the capture server if it is running.
func (s *Session) StopPreview() { s.server.Stop() }

// Server exposes the capture server.
func (s *Session) Server() *capture.Server { return s.server }

// Shutdown cancels running jobs so a folder job starts no further files,
// terminates the running converter, escalating to a kill after the grace
// period, stops the capture server and waits for background jobs to
// return. It never fails. Jobs started afterwards fail with ErrShutdown.
func (s *Session) Shutdown() {
	s.logger.Info("Shutting down")
	s.jobMu.Lock()
	s.cancel()
	s.jobMu.Unlock()
	s.tracker.TerminateCurrent(s.grace, s.logger)
	s.server.Stop()
	s.wg.Wait()
	// A job finishing during the wait may have started a preview.
	s.server.Stop()
}

func (s *Session) service(cfg types.ServiceConfig) *convert.Service {
	return convert.NewService(cfg, s.env, s.runner, s.logger, convert.WithTempDir(s.tempDir))
}

func (s *Session) begin(kind types.JobKind, input, output string, cfg types.ServiceConfig) (*Job, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.base.Err() != nil {
		return nil, ErrShutdown
	}
	if s.job != nil {
		return nil, ErrJobRunning
	}
	j := &Job{
		ID:      uuid.NewString(),
		Kind:    kind,
		Input:   input,
		Output:  output,
		Format:  cfg.OutputFormat,
		Started: time.Now(),
		done:    make(chan struct{}),
	}
	s.job = j
	s.wg.Add(1)
	return j, nil
}

// spawn runs work in the background with a context cancelled by either
// parent or Shutdown.
func (s *Session) spawn(parent context.Context, j *Job, work func(context.Context) Outcome) {
	ctx, cancel := context.WithCancel(parent)
	unlink := context.AfterFunc(s.base, cancel)

	go func() {
		defer s.wg.Done()
		defer cancel()
		defer unlink()
		out := work(ctx)
		finished := time.Now()
		s.record(j, out, finished)

		s.jobMu.Lock()
		s.job = nil
		s.jobMu.Unlock()
		j.finish(out, finished)
	}()
}

func (s *Session) record(j *Job, out Outcome, finished time.Time) {
	if s.history == nil {
		return
	}
	run := history.Run{
		ID:         j.ID,
		Kind:       j.Kind,
		Input:      j.Input,
		Output:     j.Output,
		Format:     string(j.Format),
		Profile:    s.Profile(),
		StartedAt:  j.Started,
		FinishedAt: finished,
	}
	switch j.Kind {
	case types.JobFile:
		if out.File.Success {
			run.Succeeded = 1
		} else {
			run.Failed = 1
			run.FirstError = out.File.Stderr
		}
	case types.JobFolder:
		run.Succeeded = out.Folder.Succeeded
		run.Failed = out.Folder.Failed
		if len(out.Folder.Errors) > 0 {
			run.FirstError = out.Folder.Errors[0].Path + ": " + out.Folder.Errors[0].Message
		}
		if out.Err != nil {
			run.FirstError = out.Err.Error()
		}
	}
	if _, err := s.history.Record(context.Background(), run); err != nil {
		s.logger.Warn("Could not record history", slog.String("job", j.ID), slog.String("error", err.Error()))
	}
}
