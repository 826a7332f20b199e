package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every API command.
type rootOptions struct {
	endpoint string
	token    string
	timeout  time.Duration
}

func (o *rootOptions) resolvedToken() string {
	if token := strings.TrimSpace(o.token); token != "" {
		return token
	}
	return strings.TrimSpace(os.Getenv("CREDITPOOL_TOKEN"))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "credit-cli",
		Short:        "Operate a creditd node: keys, tokens, pool and loan calls",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "http://127.0.0.1:8080", "creditd base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token (default $CREDITPOOL_TOKEN)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")

	cmd.AddCommand(
		newKeygenCmd(),
		newTokenCmd(),
		newStatusCmd(opts),
		newPoolCmd(opts),
		newLenderCmd(opts),
		newBorrowerCmd(opts),
		newLoanCmd(opts),
		newAdminCmd(opts),
	)
	return cmd
}
