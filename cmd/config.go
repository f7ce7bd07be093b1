package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/jtv/internal/config"
	"github.com/oakwood-commons/jtv/internal/formatter"
	"github.com/oakwood-commons/jtv/internal/session"
	"github.com/oakwood-commons/jtv/pkg/loader"
	"github.com/oakwood-commons/jtv/pkg/settings"
)

func newConfigCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show jtv configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var output string
	get := &cobra.Command{
		Use:   "get",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigGet(cmd, o.cfg, output)
		},
	}
	get.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml|json|table")

	def := &cobra.Command{
		Use:   "default",
		Short: "Print the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(config.DefaultYAML())
			return err
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := settings.FromContextOrDefault(cmd.Context()).ConfigPath
			if p == "" {
				p = "(defaults)"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}

	cmd.AddCommand(get, def, path)
	return cmd
}

func runConfigGet(cmd *cobra.Command, cfg config.Config, output string) error {
	raw, err := cfg.YAML()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch output {
	case "yaml":
		_, err = out.Write(raw)
		return err
	case "json", "table":
	default:
		return fmt.Errorf("invalid output for config: %s (use yaml|json|table)", output)
	}

	root, err := loader.LoadAs(string(raw), loader.FormatYAML)
	if err != nil {
		return err
	}
	if output == "json" {
		data, err := loader.Marshal(root, loader.FormatJSON, loader.DefaultIndent)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	v, err := session.FromValue(root, session.Options{}).Table()
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, formatter.RenderView(v, formatter.ViewOptions{
		NoColor:        settings.FromContextOrDefault(cmd.Context()).NoColor || !isTerminal(out),
		MaxColumnWidth: cfg.Display.MaxColumnWidth,
	}))
	return err
}
