// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pandoc-runner/internal/profile"
	"github.com/pdiddy/pandoc-runner/pkg/types"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage conversion profiles (list, show, new, set, delete)",
		Long: `Profile manages the named conversion profiles stored in the data
directory. The default profile always exists and cannot be deleted.`,
	}
	cmd.AddCommand(
		newProfileListCmd(a),
		newProfileShowCmd(a),
		newProfileNewCmd(a),
		newProfileSetCmd(a),
		newProfileDeleteCmd(a),
		newProfileLanguageCmd(a),
	)
	return cmd
}

func newProfileListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profile names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.store.List()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newProfileShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Print a stored profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := profile.DefaultName
			if len(args) == 1 {
				name = args[0]
			}
			rec, err := a.store.Load(name)
			if err != nil {
				return err
			}

			if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
				data, err := yaml.Marshal(map[string]any(rec))
				if err != nil {
					return fmt.Errorf("marshaling YAML: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(rec)
		},
	}
	cmd.Flags().Bool("yaml", false, "print as YAML instead of JSON")
	return cmd
}

func newProfileNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create a profile from the default template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Create(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created profile %s\n", args[0])
			return nil
		},
	}
}

func newProfileDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted profile %s\n", args[0])
			return nil
		},
	}
}

func newProfileLanguageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-language <lang>",
		Short: `Store the interface language in the default profile ("" for auto)`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.SetLanguage(args[0])
		},
	}
}

func newProfileSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Change settings of a profile",
		Long: `Set loads a profile, applies the given flags and saves it back. Only
flags that are given change the profile; list flags replace the whole
list. Paths below the data directory are stored relative to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileSet(cmd, a, args[0])
		},
	}
	f := cmd.Flags()
	f.StringSlice("filter", nil, "Lua filter paths")
	f.StringSlice("exclude", nil, "exclude patterns")
	f.String("css", "", "stylesheet path (empty to clear)")
	f.Bool("embed-css", true, "embed the stylesheet into standalone output")
	f.StringP("format", "f", "", "default output format: "+formatList())
	f.String("java-path", "", "java executable for PlantUML")
	f.String("plantuml-jar", "", "PlantUML jar")
	f.Bool("plantuml-server", false, "render PlantUML with the remote server")
	f.String("plantuml-server-url", "", "PlantUML server URL")
	f.String("mermaid-mode", "", "mermaid rendering: mmdc or browser")
	return cmd
}

func runProfileSet(cmd *cobra.Command, a *app, name string) error {
	if err := profile.ValidateName(name); err != nil {
		return err
	}
	s, closeSession, err := a.newSession(name)
	if err != nil {
		return err
	}
	defer closeSession()

	f := cmd.Flags()
	var format types.OutputFormat
	if f.Changed("format") {
		v, _ := f.GetString("format")
		if format, err = types.ParseOutputFormat(v); err != nil {
			return err
		}
	}
	var mode types.MermaidMode
	if f.Changed("mermaid-mode") {
		v, _ := f.GetString("mermaid-mode")
		mode = types.MermaidMode(v)
		if mode != types.MermaidCLI && mode != types.MermaidBrowser {
			return fmt.Errorf("unknown mermaid mode %q", v)
		}
	}

	s.Update(func(c *types.ServiceConfig) {
		if f.Changed("filter") {
			c.Filters, _ = f.GetStringSlice("filter")
		}
		if f.Changed("exclude") {
			c.ExcludePatterns, _ = f.GetStringSlice("exclude")
		}
		if f.Changed("css") {
			c.CSSFile, _ = f.GetString("css")
		}
		if f.Changed("embed-css") {
			c.EmbedCSS, _ = f.GetBool("embed-css")
		}
		if format != "" {
			c.OutputFormat = format
		}
		if f.Changed("java-path") {
			c.JavaPath, _ = f.GetString("java-path")
		}
		if f.Changed("plantuml-jar") {
			c.PlantUMLJar, _ = f.GetString("plantuml-jar")
		}
		if f.Changed("plantuml-server") {
			c.PlantUMLUseServer, _ = f.GetBool("plantuml-server")
		}
		if f.Changed("plantuml-server-url") {
			c.PlantUMLServerURL, _ = f.GetString("plantuml-server-url")
		}
		if mode != "" {
			c.MermaidMode = mode
		}
	})
	if err := s.SaveProfile(name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved profile %s\n", name)
	return nil
}
