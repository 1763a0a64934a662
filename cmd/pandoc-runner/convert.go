// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pandoc-runner/internal/convert"
	"github.com/pdiddy/pandoc-runner/internal/session"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a file or folder with pandoc",
		Long: `Convert runs pandoc on a single file or on every document below a
folder. Folder conversion mirrors the input tree into the output folder,
skips paths matching the profile's exclude patterns and copies files pandoc
cannot read unchanged.

The exit code is 0 only when every conversion succeeded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, a)
		},
	}
	addConvertFlags(cmd)
	return cmd
}

func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "input file or folder (required)")
	cmd.Flags().StringP("output", "o", "", "output file or folder (required)")
	cmd.Flags().StringP("format", "f", string(types.FormatHTML), "output format: "+formatList())
	cmd.Flags().StringP("profile", "p", "default", "profile name")
	cmd.Flags().String("java-path", "", "java executable for PlantUML (this run only)")
	cmd.Flags().String("plantuml-jar", "", "PlantUML jar (this run only)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
}

func formatList() string {
	names := make([]string, len(types.OutputFormats))
	for i, f := range types.OutputFormats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// convertRequest is the parsed form of the convert flags.
type convertRequest struct {
	input, output string
	format        types.OutputFormat
	profile       string
	overrides     types.Overrides
}

func parseConvertFlags(cmd *cobra.Command) (convertRequest, error) {
	var req convertRequest
	req.input, _ = cmd.Flags().GetString("input")
	req.output, _ = cmd.Flags().GetString("output")
	req.profile, _ = cmd.Flags().GetString("profile")
	req.overrides.JavaPath, _ = cmd.Flags().GetString("java-path")
	req.overrides.PlantUMLJar, _ = cmd.Flags().GetString("plantuml-jar")

	f, _ := cmd.Flags().GetString("format")
	format, err := types.ParseOutputFormat(f)
	if err != nil {
		return req, err
	}
	req.format = format
	return req, nil
}

func runConvert(cmd *cobra.Command, a *app) error {
	req, err := parseConvertFlags(cmd)
	if err != nil {
		return err
	}

	s, closeSession, err := a.newSession(req.profile, session.WithAutoPreview(false))
	if err != nil {
		return err
	}
	defer closeSession()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := a.preflight(ctx); err != nil {
		return err
	}
	s.Update(func(c *types.ServiceConfig) { c.OutputFormat = req.format })

	info, err := os.Stat(req.input)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", req.input)
	}
	job := types.ConversionJob{Input: req.input, Output: req.output, Overrides: req.overrides}

	if info.IsDir() {
		return convertFolder(ctx, cmd, a, s, job)
	}
	return convertFile(ctx, cmd, a, s, job)
}

func convertFile(ctx context.Context, cmd *cobra.Command, a *app, s *session.Session, job types.ConversionJob) error {
	a.logger.Info("Converting file", slog.String("input", job.Input), slog.String("output", job.Output))
	j, err := s.ConvertFile(ctx, job)
	if err != nil {
		return err
	}

	out, err := j.Wait(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	res := out.File
	if !res.Success {
		if strings.TrimSpace(res.Stderr) != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Stderr)
		}
		return fmt.Errorf("conversion failed (exit code %d)", res.ExitCode)
	}

	a.logger.Info("Conversion successful", slog.String("output", j.Output))
	if strings.TrimSpace(res.Stdout) != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Stdout)
	}
	return nil
}

func convertFolder(ctx context.Context, cmd *cobra.Command, a *app, s *session.Session, job types.ConversionJob) error {
	w := cmd.ErrOrStderr()
	progress := convert.ReporterFunc(func(current, total int, path string) {
		fmt.Fprintf(w, "[%d/%d] %s\n", current, total, path)
	})

	a.logger.Info("Converting folder", slog.String("input", job.Input), slog.String("output", job.Output))
	j, err := s.ConvertFolder(ctx, job, progress)
	if err != nil {
		return err
	}

	out, err := j.Wait(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	if out.Err != nil {
		return out.Err
	}

	res := out.Folder
	for _, e := range res.Errors {
		fmt.Fprintf(w, "failed: %s: %s\n", e.Path, e.Message)
	}
	a.logger.Info("Conversion completed",
		slog.String("successful", fmt.Sprintf("%d/%d", res.Succeeded, res.Total())),
		slog.Int("copy_failed", res.CopyFailed))

	if res.Succeeded != res.Total() {
		return fmt.Errorf("%d of %d file(s) failed", res.Failed, res.Total())
	}
	return nil
}
