// Package cmd holds the jtv command line.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/jtv/internal/config"
	"github.com/oakwood-commons/jtv/pkg/logger"
	"github.com/oakwood-commons/jtv/pkg/settings"
)

// errShowHelp is returned when there is neither a file argument nor piped input.
var errShowHelp = errors.New("no input provided")

// rootOptions holds the persistent flags and what PersistentPreRunE resolves
// from them.
type rootOptions struct {
	configFile  string
	debug       bool
	noColor     bool
	interactive bool

	cfg config.Config
}

var stdinIsPiped = func() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) == 0
}

const rootLong = `jtv shows JSON, YAML, NDJSON and TOML documents as tables.

Objects are listed as key/value pairs and arrays of objects as rows with one
column per key. Cells can be edited in place and the displayed rows exported
to CSV or to an XLSX workbook with nested values flattened into linked sheets.`

const rootExample = `  jtv people.json
  jtv people.json --path people --filter name=jo --sort age:desc
  jtv people.json -i
  jtv set people.json --path people --index 0 --key name Johnny
  jtv export xlsx people.json --path people -o people.xlsx
  cat people.json | jtv --path people`

// NewRootCmd builds the jtv command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	vf := &viewFlags{}

	root := &cobra.Command{
		Use:           settings.CliBinaryName + " [file]",
		Short:         "View, edit and export tree-shaped documents as tables",
		Long:          rootLong,
		Example:       rootExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       settings.VersionInformation.String(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !stdinIsPiped() {
				return cmd.Help()
			}
			if o.interactive {
				return runExplore(cmd, o, vf, args)
			}
			return runView(cmd, o, vf, args)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&o.configFile, "config-file", "", "path to a YAML config file (default $XDG_CONFIG_HOME/jtv/config.yaml)")
	pf.BoolVar(&o.debug, "debug", false, "log debug events to stderr")
	pf.BoolVar(&o.noColor, "no-color", false, "disable color output")
	root.Flags().BoolVarP(&o.interactive, "interactive", "i", false, "start the interactive viewer")
	vf.register(root.Flags())

	root.AddCommand(
		newViewCmd(o),
		newExploreCmd(o),
		newSetCmd(o),
		newExportCmd(o),
		newServeCmd(o),
		newConfigCmd(o),
		newVersionCmd(),
	)
	return root
}

// prepare loads the configuration and attaches the logger and run settings
// to the command context.
func (o *rootOptions) prepare(cmd *cobra.Command) error {
	var level int8
	if o.debug {
		level = logger.DebugLevel
	}
	lgr := logger.Get(level)
	lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

	path := config.ResolvePath(o.configFile)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	o.cfg = cfg

	run := settings.NewCliParams()
	run.MinLogLevel = level
	run.ConfigPath = path
	run.NoColor = o.noColor || os.Getenv("NO_COLOR") != ""
	run.Interactive = o.interactive

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, lgr)
	ctx = settings.IntoContext(ctx, run)
	cmd.SetContext(ctx)
	lgr.V(1).Info("configuration loaded", "config_file", path)
	return nil
}

// Execute runs the command line until it completes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
