package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a session token for a user, for local testing",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().String("id", "", "user id (required)")
	tokenCmd.Flags().String("name", "", "user name")
	tokenCmd.Flags().String("email", "", "user email")
	tokenCmd.Flags().Bool("decode", false, "print the claims of the signed token as well")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		return errors.New("--id is required")
	}
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")

	signer, err := token.NewSigner(tokenConfig(cfg))
	if err != nil {
		return fmt.Errorf("%w (set BLOGGIE_TOKEN_SECRET)", err)
	}
	tok, err := signer.Sign(authcache.User{ID: id, Name: name, Email: email}, cfg.SessionMaxAge)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)

	if decode, _ := cmd.Flags().GetBool("decode"); decode {
		claims := token.Decode(tok)
		fmt.Fprintf(cmd.OutOrStdout(), "sub=%s name=%q email=%q expires=%s\n",
			claims.UserID, claims.Name, claims.Email, claims.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}
