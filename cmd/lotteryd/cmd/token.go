package cmd

import (
	"fmt"

	tokens "github.com/ArowuTest/etherlotto-backend/pkg/jwt"
	"github.com/spf13/cobra"
)

func newTokenCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "token <identity>",
		Short: "Issue a bearer token for an identity (development signing agent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			svc, err := tokens.NewIdentityTokenService(cfg.JWT.Secret, cfg.TokenTTL())
			if err != nil {
				return err
			}
			token, err := svc.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
