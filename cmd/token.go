package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-validator/internal/api"
	"github.com/sells-group/lead-validator/internal/config"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(config.ModeToken); err != nil {
			return err
		}
		return mintToken(os.Stdout, cfg.Server, tokenSubject)
	},
}

func mintToken(out io.Writer, sc config.ServerConfig, subject string) error {
	auth, err := api.NewAuthenticator(sc.JWTSecret, time.Duration(sc.TokenTTLMins)*time.Minute)
	if err != nil {
		return err
	}
	tok, exp, err := auth.Mint(subject)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
	return nil
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject (who the token is for)")
	rootCmd.AddCommand(tokenCmd)
}
