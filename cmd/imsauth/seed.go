package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	"github.com/dropDatabas3/imsauth/internal/http/server"
	"github.com/dropDatabas3/imsauth/internal/observability/logger"
	"github.com/dropDatabas3/imsauth/internal/security/password"
	"github.com/dropDatabas3/imsauth/internal/store"
	"github.com/dropDatabas3/imsauth/internal/util"
)

// newSeedCmd crea el usuario administrador inicial. Si ya existe no hace nada.
func newSeedCmd(opts *rootOptions) *cobra.Command {
	var username, email, plain, role string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea el usuario administrador inicial",
		RunE: func(cmd *cobra.Command, args []string) error {
			// memory vive solo dentro de este proceso: el usuario desaparecería al salir.
			if d := store.NormalizeDriver(opts.cfg.Storage.Driver); d == store.DriverMemory {
				return fmt.Errorf("seed: el driver %s no persiste; usá sqlite o postgres", d)
			}
			if plain == "" && stdinIsTerminal() {
				p, err := promptPassword(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				plain = p
			}
			if username == "" || plain == "" {
				return errors.New("--username y --password son requeridos")
			}
			ctx := cmd.Context()
			log := logger.L().With(logger.Op("seed"))

			st, err := store.Open(ctx, server.StoreConfig(opts.cfg))
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := st.Roles().GetByName(ctx, role)
			if err != nil {
				return fmt.Errorf("rol %s: %w", role, err)
			}
			hash, err := password.NewHasher(opts.cfg.Auth.BcryptCost).Hash(plain)
			if err != nil {
				return err
			}
			u, err := st.Users().Create(ctx, repository.CreateUserInput{
				Username:     username,
				Email:        email,
				PasswordHash: hash,
				Roles:        []repository.Role{*r},
			})
			if repository.IsConflict(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "usuario %s ya existe\n", username)
				return nil
			}
			if err != nil {
				return err
			}
			log.Info("admin seeded", logger.UserID(u.ID), logger.Username(u.Username), logger.String("email", util.MaskEmail(u.Email)))
			fmt.Fprintf(cmd.OutOrStdout(), "usuario %s creado (id=%d, rol=%s)\n", u.Username, u.ID, r.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "Username del administrador")
	cmd.Flags().StringVar(&email, "email", "", "Email del administrador")
	cmd.Flags().StringVar(&plain, "password", "", "Password en claro (se pide por terminal si falta)")
	cmd.Flags().StringVar(&role, "role", repository.RoleAdmin, "Rol a asignar")
	return cmd
}
