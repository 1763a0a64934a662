// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

const probeTimeout = 15 * time.Second

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that pandoc is installed and show renderer settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profileName, _ := cmd.Flags().GetString("profile")
			w := cmd.OutOrStdout()

			v, err := a.preflight(cmd.Context())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", err)
				return err
			}

			s, closeSession, err := a.newSession(profileName)
			if err != nil {
				return err
			}
			defer closeSession()
			cfg := s.Config()
			env := a.environment()
			paths := a.store.Paths()

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "pandoc\t%s\n", v)
			fmt.Fprintf(tw, "data dir\t%s\n", paths.DataDir)
			fmt.Fprintf(tw, "profile\t%s\n", profileName)
			fmt.Fprintf(tw, "output format\t%s\n", cfg.OutputFormat)
			fmt.Fprintf(tw, "mermaid mode\t%s\n", cfg.MermaidMode)
			if cfg.PlantUMLUseServer {
				status := "reachable"
				ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
				if err := a.probe(ctx, cfg.PlantUMLServerURL); err != nil {
					status = err.Error()
				}
				cancel()
				fmt.Fprintf(tw, "plantuml\tserver %s (%s)\n", cfg.PlantUMLServerURL, status)
			} else {
				fmt.Fprintf(tw, "plantuml\tlocal jar=%s java=%s\n",
					orNone(firstSet(cfg.PlantUMLJar, env.PlantUMLJar)),
					orNone(firstSet(cfg.JavaPath, env.JavaPath)))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("profile", "p", "default", "profile name")
	return cmd
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
