package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"relicpool/core/types"
)

// Config is the node configuration loaded from TOML.
type Config struct {
	ListenAddress string       `toml:"ListenAddress"`
	DataDir       string       `toml:"DataDir"`
	Backend       string       `toml:"Backend"`
	Deployer      string       `toml:"Deployer"`
	Pools         []PoolConfig `toml:"Pools"`
}

// PoolConfig declares one pool instance to provision (or rehydrate) at boot.
type PoolConfig struct {
	RewardToken  string            `toml:"RewardToken"`
	Collection   string            `toml:"Collection"`
	Admin        string            `toml:"Admin"`
	EmissionRate string            `toml:"EmissionRate"`
	Salt         uint64            `toml:"Salt"`
	Scores       map[string]string `toml:"Scores"`
}

const (
	// BackendLevelDB selects the LevelDB storage backend.
	BackendLevelDB = "leveldb"
	// BackendBolt selects the bbolt storage backend.
	BackendBolt = "bolt"
	// BackendMemory selects the in-memory backend (testing only).
	BackendMemory = "memory"
)

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8645",
		DataDir:       "./relicpool-data",
		Backend:       BackendLevelDB,
		Deployer:      "0x0000000000000000000000000000000000000001",
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks addresses, rates, and backend selection.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("config: ListenAddress is required")
	}
	switch c.Backend {
	case BackendLevelDB, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Backend != BackendMemory && c.DataDir == "" {
		return fmt.Errorf("config: DataDir is required for backend %q", c.Backend)
	}
	if _, err := types.ParseAddress(c.Deployer); err != nil {
		return fmt.Errorf("config: Deployer: %w", err)
	}
	for i := range c.Pools {
		if err := c.Pools[i].validate(); err != nil {
			return fmt.Errorf("config: pool %d: %w", i, err)
		}
	}
	return nil
}

func (p *PoolConfig) validate() error {
	if _, err := types.ParseAddress(p.RewardToken); err != nil {
		return fmt.Errorf("RewardToken: %w", err)
	}
	if _, err := types.ParseAddress(p.Collection); err != nil {
		return fmt.Errorf("Collection: %w", err)
	}
	if _, err := types.ParseAddress(p.Admin); err != nil {
		return fmt.Errorf("Admin: %w", err)
	}
	if _, err := p.ParseEmissionRate(); err != nil {
		return err
	}
	for asset, score := range p.Scores {
		if _, ok := new(big.Int).SetString(score, 10); !ok {
			return fmt.Errorf("Scores[%s]: invalid amount %q", asset, score)
		}
	}
	return nil
}

// ParseEmissionRate decodes the pool's emission rate as a positive integer.
func (p *PoolConfig) ParseEmissionRate() (*big.Int, error) {
	rate, ok := new(big.Int).SetString(p.EmissionRate, 10)
	if !ok {
		return nil, fmt.Errorf("EmissionRate: invalid amount %q", p.EmissionRate)
	}
	if rate.Sign() <= 0 {
		return nil, fmt.Errorf("EmissionRate: must be positive, got %s", rate)
	}
	return rate, nil
}
