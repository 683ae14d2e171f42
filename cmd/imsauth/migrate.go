package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/imsauth/internal/http/server"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
	"github.com/dropDatabas3/imsauth/internal/store"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Aplica (up, default) o revierte la última (down) migración del credential store",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			ctx := cmd.Context()
			st, err := store.Open(ctx, server.StoreConfig(opts.cfg))
			if err != nil {
				return err
			}
			defer st.Close()

			m, ok := st.(store.Migrator)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "driver %s: no hay schema que migrar\n", store.NormalizeDriver(opts.cfg.Storage.Driver))
				return nil
			}
			if action == "down" {
				if err := m.MigrateDown(ctx); err != nil {
					return err
				}
			} else if err := m.Migrate(ctx); err != nil {
				return err
			}
			logger.S().Infow("schema migrated", "action", action, "driver", store.NormalizeDriver(opts.cfg.Storage.Driver))
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", action)
			return nil
		},
	}
}
