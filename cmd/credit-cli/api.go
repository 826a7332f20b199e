package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type call func(ctx context.Context, c *client, args []string) (json.RawMessage, error)

// apiCommand wraps fn with client construction, the request timeout and
// output formatting.
func apiCommand(opts *rootOptions, use, short string, nargs cobra.PositionalArgs, fn call) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  nargs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			raw, err := fn(ctx, newClient(opts), args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func accountPath(prefix, address, suffix string) string {
	return prefix + "/" + url.PathEscape(strings.TrimSpace(address)) + suffix
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return apiCommand(opts, "status", "Show height, pool address, admin and pause state", cobra.NoArgs,
		func(ctx context.Context, c *client, _ []string) (json.RawMessage, error) {
			return c.get(ctx, "/v1/status")
		})
}

func newPoolCmd(opts *rootOptions) *cobra.Command {
	cmd := apiCommand(opts, "pool", "Show pool totals", cobra.NoArgs,
		func(ctx context.Context, c *client, _ []string) (json.RawMessage, error) {
			return c.get(ctx, "/v1/pool")
		})
	cmd.AddCommand(
		apiCommand(opts, "lend <amount>", "Deposit into the pool as the token subject", cobra.ExactArgs(1),
			func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
				return c.post(ctx, "/v1/pool/lend", map[string]string{"amount": args[0]})
			}),
		apiCommand(opts, "withdraw <amount>", "Withdraw from the pool as the token subject", cobra.ExactArgs(1),
			func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
				return c.post(ctx, "/v1/pool/withdraw", map[string]string{"amount": args[0]})
			}),
	)
	return cmd
}

func newLenderCmd(opts *rootOptions) *cobra.Command {
	cmd := apiCommand(opts, "lender <address>", "Show a lender position", cobra.ExactArgs(1),
		func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
			return c.get(ctx, accountPath("/v1/lenders", args[0], ""))
		})
	cmd.AddCommand(apiCommand(opts, "withdrawal-limit <address>", "Show how much a lender can withdraw now", cobra.ExactArgs(1),
		func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
			return c.get(ctx, accountPath("/v1/lenders", args[0], "/withdrawal-limit"))
		}))
	return cmd
}

func newBorrowerCmd(opts *rootOptions) *cobra.Command {
	cmd := apiCommand(opts, "borrower <address>", "Show a borrower's score and loan", cobra.ExactArgs(1),
		func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
			return c.get(ctx, accountPath("/v1/borrowers", args[0], ""))
		})
	for _, sub := range []struct{ name, suffix, short string }{
		{"limit", "/limit", "Show the score breakdown and tier limit"},
		{"eligibility", "/eligibility", "Show the amount a borrower may take now"},
		{"repayment-due", "/repayment-due", "Show the amount owed on the active loan"},
	} {
		suffix := sub.suffix
		cmd.AddCommand(apiCommand(opts, sub.name+" <address>", sub.short, cobra.ExactArgs(1),
			func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
				return c.get(ctx, accountPath("/v1/borrowers", args[0], suffix))
			}))
	}
	return cmd
}

func newLoanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Apply for or repay a loan"}
	var borrower string
	repay := apiCommand(opts, "repay", "Repay the active loan of --borrower, or of the token subject", cobra.NoArgs,
		func(ctx context.Context, c *client, _ []string) (json.RawMessage, error) {
			return c.post(ctx, "/v1/loans/repay", map[string]string{"borrower": borrower})
		})
	repay.Flags().StringVar(&borrower, "borrower", "", "borrower to repay for")
	cmd.AddCommand(
		apiCommand(opts, "apply <amount>", "Borrow from the pool as the token subject", cobra.ExactArgs(1),
			func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
				return c.post(ctx, "/v1/loans/apply", map[string]string{"amount": args[0]})
			}),
		repay,
	)
	return cmd
}

func newAdminCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Admin-only parameter updates"}
	uintArg := func(path, field string) call {
		return func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
			value, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad %s %q: %w", field, args[0], err)
			}
			return c.post(ctx, path, map[string]uint64{field: value})
		}
	}
	var source string
	history := apiCommand(opts, "import-history <file.csv>", "Import balance snapshots (account,height,balance)", cobra.ExactArgs(1),
		func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
			snapshots, err := readSnapshotsFile(args[0])
			if err != nil {
				return nil, err
			}
			return c.post(ctx, "/v1/admin/history", map[string]any{"source": source, "snapshots": snapshots})
		})
	history.Flags().StringVar(&source, "source", "cli", "label stored with each snapshot")

	cmd.AddCommand(
		apiCommand(opts, "set-admin <address>", "Hand the admin role to another account", cobra.ExactArgs(1),
			func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
				return c.post(ctx, "/v1/admin/admin", map[string]string{"admin": args[0]})
			}),
		apiCommand(opts, "loan-duration <days>", "Set the loan term", cobra.ExactArgs(1), uintArg("/v1/admin/loan-duration", "days")),
		apiCommand(opts, "lock-duration <days>", "Set the deposit lock period", cobra.ExactArgs(1), uintArg("/v1/admin/lock-duration", "days")),
		apiCommand(opts, "interest-rate <percent>", "Set the flat interest rate", cobra.ExactArgs(1), uintArg("/v1/admin/interest-rate", "percent")),
		apiCommand(opts, "pause <true|false>", "Pause or resume new deposits and loans", cobra.ExactArgs(1),
			func(ctx context.Context, c *client, args []string) (json.RawMessage, error) {
				paused, err := strconv.ParseBool(args[0])
				if err != nil {
					return nil, fmt.Errorf("bad pause flag %q: %w", args[0], err)
				}
				return c.post(ctx, "/v1/admin/pause", map[string]bool{"paused": paused})
			}),
		history,
	)
	return cmd
}

type snapshotRow struct {
	Account string `json:"account"`
	Height  uint64 `json:"height"`
	Balance string `json:"balance"`
}

func readSnapshotsFile(path string) ([]snapshotRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readSnapshots(f)
}

// readSnapshots parses account,height,balance rows. A leading header row is
// skipped.
func readSnapshots(r io.Reader) ([]snapshotRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	var rows []snapshotRow
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "account") {
			continue
		}
		height, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad height: %w", line, err)
		}
		rows = append(rows, snapshotRow{
			Account: strings.TrimSpace(record[0]),
			Height:  height,
			Balance: strings.TrimSpace(record[2]),
		})
	}
	if len(rows) == 0 {
		return nil, errors.New("history file has no snapshots")
	}
	return rows, nil
}
