package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/jtv/internal/formatter"
	"github.com/oakwood-commons/jtv/pkg/logger"
)

type setOptions struct {
	path  string
	index int
	key   string
}

func newSetCmd(o *rootOptions) *cobra.Command {
	so := &setOptions{}
	cmd := &cobra.Command{
		Use:   "set FILE VALUE",
		Short: "Write one value into a document",
		Long: `Write one value into a document and save it in place.

--path opens the displayed frame; --index and --key select the cell in it,
the way a cell is picked in the table: --key alone names a member of an
object, --index alone an element of an array, both a field of a row.
VALUE is stored as a number, boolean or null when it reads as one and as a
string otherwise.`,
		Example: `  jtv set people.json --path people --index 0 --key name Johnny
  jtv set config.yaml --path server --key port 8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var index *int
			var key *string
			if cmd.Flags().Changed("index") {
				index = &so.index
			}
			if cmd.Flags().Changed("key") {
				key = &so.key
			}
			return runSet(cmd, o, so.path, index, key, args[0], args[1])
		},
	}
	cmd.Flags().StringVarP(&so.path, "path", "p", "", "path of the displayed frame, e.g. people")
	cmd.Flags().IntVar(&so.index, "index", 0, "source index of the row or element")
	cmd.Flags().StringVar(&so.key, "key", "", "member key or column")
	return cmd
}

func runSet(cmd *cobra.Command, o *rootOptions, path string, index *int, key *string, file, value string) error {
	ctx := cmd.Context()
	doc, in, err := openDocument(cmd, []string{file})
	if err != nil {
		return err
	}
	if in.FromStdin {
		return fmt.Errorf("set needs a file; stdin cannot be written back")
	}
	h := newHost(o.cfg, doc, in)
	sess, err := openSession(ctx, o.cfg, h, in, &viewFlags{path: path})
	if err != nil {
		return err
	}

	req, err := sess.EditRequest(index, key, value)
	if err != nil {
		return err
	}
	if _, err := sess.Apply(h.Handle(ctx, req)); err != nil {
		return err
	}
	logger.FromContext(ctx).V(1).Info("value written",
		logger.DocumentKey, in.Name(), logger.PathKey, formatter.Breadcrumb(req.Path), logger.RequestIDKey, req.ID)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", in.Path)
	return err
}
