package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/imsauth/internal/security/password"
)

// newHashPasswordCmd imprime el hash bcrypt de un password o client secret.
// Sin argumento lee la primera línea de stdin.
func newHashPasswordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [plain]",
		Short: "Imprime el hash bcrypt (útil para clients[].secret)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("sin password: pasalo como argumento o por stdin")
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			hash, err := password.NewHasher(opts.cfg.Auth.BcryptCost).Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
