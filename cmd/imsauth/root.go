package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/imsauth/internal/config"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
)

type rootOptions struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{configPath: os.Getenv("IMSAUTH_CONFIG")}

	root := &cobra.Command{
		Use:           "imsauth",
		Short:         "Servidor OAuth2 (authorization code + refresh token) con API de usuarios",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				Format:      cfg.Log.Format,
				ServiceName: "imsauth",
				Version:     version,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "Ruta al YAML de configuración (env IMSAUTH_CONFIG; vacío = defaults + env)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newHashPasswordCmd(opts),
	)
	return root
}
