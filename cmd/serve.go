package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/jtv/internal/server"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Serve a document to viewers over HTTP",
		Long: `Serve a document over HTTP so viewers can edit and export it.

  GET  /healthz         liveness
  GET  /api/document    current content
  POST /api/messages    updateValue, exportToCsv and exportToXlsx messages
  GET  /api/events      server-sent documentUpdated messages

Exports are written into the configured export directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, in, err := openDocument(cmd, args)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = o.cfg.Server.Addr
			}
			srv := server.New(newHost(o.cfg, doc, in), server.Options{
				ReadTimeout:     o.cfg.Server.ReadTimeout,
				ShutdownTimeout: o.cfg.Server.ShutdownTimeout,
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "serving %s on http://%s\n", in.Name(), addr)
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
