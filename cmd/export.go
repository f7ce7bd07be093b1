package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/jtv/internal/host"
	"github.com/oakwood-commons/jtv/internal/session"
)

type exportKind string

const (
	exportCSV  exportKind = "csv"
	exportXLSX exportKind = "xlsx"
)

func newExportCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the rows of an array to CSV or XLSX",
		Long: `Export the rows of an array of objects as displayed: after --filter,
--where, --sort, --hide and the row window are applied.

Without --output the file is written into the configured export directory
under a timestamped name derived from the document name.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newExportKindCmd(o, exportCSV, "Export the displayed rows as CSV"),
		newExportKindCmd(o, exportXLSX, "Export the displayed rows as an XLSX workbook"),
	)
	return cmd
}

func newExportKindCmd(o *rootOptions, kind exportKind, short string) *cobra.Command {
	vf := &viewFlags{}
	var output string
	cmd := &cobra.Command{
		Use:   string(kind) + " [file]",
		Short: short,
		Example: fmt.Sprintf(`  jtv export %[1]s people.json --path people
  jtv export %[1]s people.json --path people --filter name=jo -o jo.%[1]s`, kind),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, o, vf, kind, output, args)
		},
	}
	vf.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file; - writes to stdout")
	return cmd
}

func runExport(cmd *cobra.Command, o *rootOptions, vf *viewFlags, kind exportKind, output string, args []string) error {
	ctx := cmd.Context()
	doc, in, err := openDocument(cmd, args)
	if err != nil {
		return err
	}
	var sink host.Sink = host.NewDirSink(o.cfg.Export.Dir)
	if output != "" {
		sink = fileSink{path: output, w: cmd.OutOrStdout()}
	}
	h := host.New(doc, sink, hostOptions(o.cfg, in))
	sess, err := openSession(ctx, o.cfg, h, in, vf)
	if err != nil {
		return err
	}

	req, err := exportRequest(sess, kind)
	if err != nil {
		return err
	}
	out, err := sess.Apply(h.Handle(ctx, req))
	if err != nil {
		return err
	}
	if output == "-" {
		return nil
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", out.Location)
	return err
}

func exportRequest(sess *session.Session, kind exportKind) (host.Request, error) {
	if kind == exportXLSX {
		req, err := sess.ExportXLSXRequest()
		return req, err
	}
	req, err := sess.ExportCSV()
	return req, err
}
