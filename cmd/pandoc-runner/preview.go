// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pandoc-runner/internal/session"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

func newPreviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview [page.html]",
		Short: "Serve an HTML page and capture rendered diagrams",
		Long: `Preview serves the directory of an HTML page on a loopback port and
opens the page in the browser. Scripts on the page can post rendered
diagrams to /save-svg; they are written next to the page.

With --input the file is first converted to HTML using the profile. The
server runs until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, a, args)
		},
	}
	cmd.Flags().StringP("input", "i", "", "document to convert before previewing")
	cmd.Flags().StringP("output", "o", "", "HTML output file or folder (with --input)")
	cmd.Flags().StringP("profile", "p", "default", "profile name")
	return cmd
}

func runPreview(cmd *cobra.Command, a *app, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	profileName, _ := cmd.Flags().GetString("profile")

	if (input == "") == (len(args) == 0) {
		return fmt.Errorf("give either an HTML file or --input")
	}
	if input != "" && output == "" {
		return fmt.Errorf("--output is required with --input")
	}

	s, closeSession, err := a.newSession(profileName, session.WithAutoPreview(false))
	if err != nil {
		return err
	}
	defer closeSession()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var page string
	if input != "" {
		if _, err := a.preflight(ctx); err != nil {
			return err
		}
		s.Update(func(c *types.ServiceConfig) { c.OutputFormat = types.FormatHTML })
		j, err := s.ConvertFile(ctx, types.ConversionJob{Input: input, Output: output})
		if err != nil {
			return err
		}
		out, err := j.Wait(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
		if !out.File.Success {
			fmt.Fprintln(cmd.ErrOrStderr(), out.File.Stderr)
			return fmt.Errorf("conversion failed (exit code %d)", out.File.ExitCode)
		}
		page = j.Output
	} else {
		page = args[0]
		if _, err := os.Stat(page); err != nil {
			return fmt.Errorf("input path does not exist: %s", page)
		}
	}

	url, err := s.Preview(page)
	if url == "" {
		return err
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s (Ctrl+C to stop)\n", url)
	<-ctx.Done()
	return nil
}
