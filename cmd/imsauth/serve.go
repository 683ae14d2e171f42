package main

import (
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/imsauth/internal/http/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP (SIGINT/SIGTERM para apagar)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Server.Addr = addr
			}
			return server.Run(cmd.Context(), opts.cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Dirección de escucha (pisa server.addr)")
	return cmd
}
