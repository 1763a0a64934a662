// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pandoc-runner CLI. It converts
// single documents or whole folders with pandoc using stored conversion
// profiles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pandoc-runner/internal/appdir"
	"github.com/pdiddy/pandoc-runner/internal/convert"
	"github.com/pdiddy/pandoc-runner/internal/history"
	"github.com/pdiddy/pandoc-runner/internal/httputil"
	"github.com/pdiddy/pandoc-runner/internal/metadata"
	"github.com/pdiddy/pandoc-runner/internal/process"
	"github.com/pdiddy/pandoc-runner/internal/profile"
	"github.com/pdiddy/pandoc-runner/internal/session"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// app carries the state shared by every command of one invocation.
// Tests replace runner, checkInstalled, probe and open.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
	store  *profile.Store

	runner         convert.Runner
	checkInstalled func(ctx context.Context, exe string) (string, error)
	probe          func(ctx context.Context, url string) error
	open           session.Opener
}

func newApp() *app {
	return &app{
		v:              viper.New(),
		checkInstalled: process.CheckInstalled,
		probe: func(ctx context.Context, url string) error {
			return httputil.Probe(ctx, nil, url)
		},
	}
}

// newRootCmd builds the command tree for a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "pandoc-runner",
		Short: "Convert documents and folders with pandoc using stored profiles",
		Long: `pandoc-runner drives pandoc with named conversion profiles. A profile
holds Lua filters, a stylesheet, exclude patterns, the output format and
diagram renderer settings.

Convert a single file or a whole folder with convert; folder conversion
mirrors the input tree, converts every document and copies other files
unchanged. Use preview to open a converted HTML page in the browser and
capture rendered diagrams back to disk.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "config file (default: ./pandoc-runner.yaml or ~/.config/pandoc-runner/pandoc-runner.yaml)")
	root.PersistentFlags().String("data-dir", "", "data directory holding profiles, filters and stylesheets")
	root.PersistentFlags().String("app-dir", "", "directory seeding the data directory on first run (default: executable directory)")
	root.PersistentFlags().String("pandoc", types.DefaultExecutable, "pandoc executable")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	for key, flag := range map[string]string{
		"data_dir":  "data-dir",
		"app_dir":   "app-dir",
		"pandoc":    "pandoc",
		"log_level": "log-level",
	} {
		a.v.BindPFlag(key, root.PersistentFlags().Lookup(flag))
	}

	root.AddCommand(
		newConvertCmd(a),
		newPreviewCmd(a),
		newProfileCmd(a),
		newCheckCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) initConfig(cmd *cobra.Command) {
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("pandoc-runner")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "pandoc-runner"))
		}
	}

	a.v.SetEnvPrefix("PANDOC_RUNNER")
	a.v.AutomaticEnv()
	a.v.BindEnv("java_path", "JAVA_PATH")
	a.v.BindEnv("plantuml_jar", "PLANTUML_JAR")
	a.v.SetDefault("history", true)

	if err := a.v.ReadInConfig(); err == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", a.v.ConfigFileUsed())
	}
}

// setup loads configuration, builds the logger and prepares the data
// directory and default profile.
func (a *app) setup(cmd *cobra.Command) error {
	a.initConfig(cmd)
	a.logger = newLogger(cmd.ErrOrStderr(), a.v.GetString("log_level"))

	paths, err := appdir.Resolve(a.v.GetString("app_dir"), a.v.GetString("data_dir"))
	if err != nil {
		return err
	}
	if err := paths.Init(); err != nil {
		a.logger.Warn("Could not seed data directory", slog.String("error", err.Error()))
	}
	a.store = profile.NewStore(paths, a.logger)
	if err := a.store.InitDefault(); err != nil {
		return fmt.Errorf("initializing default profile: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// environment returns the renderer fallbacks from JAVA_PATH and
// PLANTUML_JAR or the matching config keys.
func (a *app) environment() metadata.Environment {
	return metadata.Environment{
		JavaPath:    a.v.GetString("java_path"),
		PlantUMLJar: a.v.GetString("plantuml_jar"),
	}
}

// newSession opens a session with profileName loaded. The returned close
// function shuts the session down and releases the history database.
func (a *app) newSession(profileName string, opts ...session.Option) (*session.Session, func(), error) {
	cfg := types.DefaultServiceConfig()
	cfg.Executable = a.v.GetString("pandoc")

	opts = append([]session.Option{session.WithEnvironment(a.environment())}, opts...)
	if a.runner != nil {
		opts = append(opts, session.WithRunner(a.runner))
	}
	if a.open != nil {
		opts = append(opts, session.WithOpener(a.open))
	}

	var hist *history.Store
	if a.v.GetBool("history") {
		h, err := history.NewStore(a.store.Paths().HistoryDB())
		if err != nil {
			a.logger.Warn("History disabled", slog.String("error", err.Error()))
		} else {
			hist = h
			opts = append(opts, session.WithHistory(h))
		}
	}

	s := session.New(a.store, cfg, a.logger, opts...)
	closeFn := func() {
		s.Shutdown()
		if hist != nil {
			hist.Close()
		}
	}
	if err := s.LoadProfile(profileName); err != nil {
		closeFn()
		if errors.Is(err, profile.ErrNotFound) {
			return nil, nil, fmt.Errorf("profile '%s' not found", profileName)
		}
		return nil, nil, fmt.Errorf("loading profile %s: %w", profileName, err)
	}
	return s, closeFn, nil
}

// preflight fails when the converter cannot be run.
func (a *app) preflight(ctx context.Context) (string, error) {
	exe := a.v.GetString("pandoc")
	v, err := a.checkInstalled(ctx, exe)
	if err != nil {
		return "", fmt.Errorf("%s is not installed or not in PATH: %w", exe, err)
	}
	return v, nil
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		os.Exit(1)
	}
}
