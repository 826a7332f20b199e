package config

import (
	"fmt"
	"math/big"
	"strings"

	"creditpool/crypto"
	"creditpool/native/credit"
	"creditpool/storage"
)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks the configuration against the bounds the admin setters
// enforce at runtime. A zero lock duration is allowed only at genesis.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir is required")
	}
	if c.GenesisTime.IsZero() {
		return fmt.Errorf("config: GenesisTime is required")
	}
	if _, err := c.AdminAddress(); err != nil {
		return err
	}
	if c.Protocol.InterestRatePercent == 0 {
		return fmt.Errorf("config: Protocol.InterestRatePercent must be positive")
	}
	if c.Protocol.LoanDurationDays < credit.MinLoanDurationDays {
		return fmt.Errorf("config: Protocol.LoanDurationDays must be at least %d", credit.MinLoanDurationDays)
	}
	if _, err := c.ParsedGenesisBalances(); err != nil {
		return err
	}
	if _, ok := validLogLevels[strings.ToLower(c.Log.Level)]; !ok {
		return fmt.Errorf("config: unknown Log.Level %q", c.Log.Level)
	}
	switch c.Storage.Backend {
	case "", storage.BackendLevelDB, storage.BackendBolt:
	default:
		return fmt.Errorf("config: unknown Storage.Backend %q", c.Storage.Backend)
	}
	switch strings.ToLower(c.History.Driver) {
	case "":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.History.DSN) == "" {
			return fmt.Errorf("config: History.DSN is required for driver %q", c.History.Driver)
		}
	default:
		return fmt.Errorf("config: unknown History.Driver %q", c.History.Driver)
	}
	return nil
}

// AdminAddress decodes the configured genesis admin.
func (c *Config) AdminAddress() (crypto.Address, error) {
	admin := strings.TrimSpace(c.Admin)
	if admin == "" {
		return crypto.Address{}, fmt.Errorf("config: Admin is required")
	}
	addr, err := crypto.DecodeAddress(admin)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("config: invalid Admin: %w", err)
	}
	return addr, nil
}

// GenesisParams converts the protocol section into engine genesis parameters.
func (c *Config) GenesisParams() (credit.GenesisParams, error) {
	admin, err := c.AdminAddress()
	if err != nil {
		return credit.GenesisParams{}, err
	}
	return credit.GenesisParams{
		Admin:               admin,
		InterestRatePercent: c.Protocol.InterestRatePercent,
		LoanDurationDays:    c.Protocol.LoanDurationDays,
		LockDurationDays:    c.Protocol.LockDurationDays,
	}, nil
}

// Allocation is a decoded genesis balance.
type Allocation struct {
	Address crypto.Address
	Amount  *big.Int
}

// ParsedGenesisBalances decodes every genesis balance entry.
func (c *Config) ParsedGenesisBalances() ([]Allocation, error) {
	out := make([]Allocation, 0, len(c.GenesisBalances))
	for i, entry := range c.GenesisBalances {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(entry.Address))
		if err != nil {
			return nil, fmt.Errorf("config: GenesisBalances[%d].Address: %w", i, err)
		}
		amount, err := parseUintAmount(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("config: GenesisBalances[%d].Amount: %w", i, err)
		}
		out = append(out, Allocation{Address: addr, Amount: amount})
	}
	return out, nil
}

func parseUintAmount(value string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must be non-negative")
	}
	return amount, nil
}
