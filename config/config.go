package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"creditpool/crypto"
	"creditpool/native/credit"
	"creditpool/storage"

	"github.com/BurntSushi/toml"
)

const (
	defaultDataDir     = "./creditpool-data"
	defaultServiceFile = "creditd.yaml"
	defaultAdminKey    = "admin.key"
)

// Load loads the configuration from the given path. When the file does not
// exist a default configuration is written, including a freshly generated
// admin key stored next to it.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: %s has unknown field %s", path, undecoded[0].String())
	}
	if !meta.IsDefined("Protocol", "InterestRatePercent") {
		cfg.Protocol.InterestRatePercent = credit.DefaultInterestRatePercent
	}
	if !meta.IsDefined("Protocol", "LoanDurationDays") {
		cfg.Protocol.LoanDurationDays = credit.DefaultLoanDurationDays
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize fills optional fields left empty in the file.
func (c *Config) normalize() {
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.ServiceFile) == "" {
		c.ServiceFile = defaultServiceFile
	}
	c.Environment = strings.TrimSpace(c.Environment)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = storage.BackendLevelDB
	}
	c.History.Driver = strings.ToLower(strings.TrimSpace(c.History.Driver))
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keyPath := filepath.Join(filepath.Dir(path), defaultAdminKey)
	if err := WriteKeyFile(keyPath, key); err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:      defaultDataDir,
		ServiceFile:  defaultServiceFile,
		Environment:  "dev",
		GenesisTime:  time.Now().UTC().Truncate(time.Second),
		Admin:        key.PubKey().Address().String(),
		AdminKeyFile: keyPath,
		Protocol: Protocol{
			InterestRatePercent: credit.DefaultInterestRatePercent,
			LoanDurationDays:    credit.DefaultLoanDurationDays,
			LockDurationDays:    credit.DefaultLockDurationDays,
		},
	}
	cfg.normalize()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteKeyFile stores key as hex with owner-only permissions.
func WriteKeyFile(path string, key *crypto.PrivateKey) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(hex.EncodeToString(key.Bytes())+"\n"), 0o600)
}

// ReadKeyFile loads a hex encoded private key written by Load or keygen.
func ReadKeyFile(path string) (*crypto.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("config: key file %s: %w", path, err)
	}
	return crypto.PrivateKeyFromBytes(decoded)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
