package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"creditpool/config"
	"creditpool/crypto"
	"creditpool/gateway/auth"
)

func newKeygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an account key and print its address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("missing --out")
			}
			if _, err := os.Stat(out); err == nil {
				return fmt.Errorf("%s already exists", out)
			}
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			if err := config.WriteKeyFile(out, key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.PubKey().Address().String())
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "path of the hex key file to create")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		keyFile   string
		subject   string
		secret    string
		secretEnv string
		issuer    string
		audience  string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" && secretEnv != "" {
				secret = strings.TrimSpace(os.Getenv(secretEnv))
			}
			if secret == "" {
				return fmt.Errorf("missing secret: set --secret or env %s", secretEnv)
			}
			var addr crypto.Address
			switch {
			case subject != "":
				decoded, err := crypto.DecodeAddress(subject)
				if err != nil {
					return fmt.Errorf("bad --subject: %w", err)
				}
				addr = decoded
			case keyFile != "":
				key, err := config.ReadKeyFile(keyFile)
				if err != nil {
					return err
				}
				addr = key.PubKey().Address()
			default:
				return fmt.Errorf("missing --key or --subject")
			}
			token, err := auth.Issue(auth.IssueRequest{
				Secret:   secret,
				Issuer:   issuer,
				Audience: audience,
				Subject:  addr,
				TTL:      ttl,
				Now:      time.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "hex key file whose address becomes the subject")
	cmd.Flags().StringVar(&subject, "subject", "", "account address to sign for")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC signing secret")
	cmd.Flags().StringVar(&secretEnv, "secret-env", "CREDITD_JWT_SECRET", "environment variable holding the secret")
	cmd.Flags().StringVar(&issuer, "issuer", "creditpool", "token issuer")
	cmd.Flags().StringVar(&audience, "audience", "creditd", "token audience")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
