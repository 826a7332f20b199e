package config

import "time"

// Protocol holds the genesis values of the admin-tunable parameters.
type Protocol struct {
	InterestRatePercent uint64 `toml:"InterestRatePercent"`
	LoanDurationDays    uint64 `toml:"LoanDurationDays"`
	LockDurationDays    uint64 `toml:"LockDurationDays"`
}

// GenesisBalance credits Amount base units to Address when the ledger starts
// from an empty data directory.
type GenesisBalance struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

// Log controls the process log sink. An empty File keeps logs on stdout.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// History selects the balance oracle. An empty Driver reads balance history
// from the ledger itself; "sqlite" or "postgres" use the SQL snapshot index.
type History struct {
	Driver         string `toml:"Driver"`
	DSN            string `toml:"DSN"`
	EarliestHeight uint64 `toml:"EarliestHeight"`
}

// Storage selects the ledger database: "leveldb" (a directory) or "bolt"
// (a single file).
type Storage struct {
	Backend string `toml:"Backend"`
}

// Config is the node configuration loaded from TOML.
type Config struct {
	DataDir      string    `toml:"DataDir"`
	ServiceFile  string    `toml:"ServiceFile"`
	Environment  string    `toml:"Environment"`
	GenesisTime  time.Time `toml:"GenesisTime"`
	Admin        string    `toml:"Admin"`
	AdminKeyFile string    `toml:"AdminKeyFile,omitempty"`

	Protocol        Protocol         `toml:"Protocol"`
	GenesisBalances []GenesisBalance `toml:"GenesisBalances,omitempty"`
	Storage         Storage          `toml:"Storage"`
	Log             Log              `toml:"Log"`
	History         History          `toml:"History"`
}
