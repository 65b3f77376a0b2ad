package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Submitter SubmitterConfig `mapstructure:"submitter"`
	Chains    []ChainConfig   `mapstructure:"chains"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Swap      SwapConfig      `mapstructure:"swap"`
	Fees      FeeConfig       `mapstructure:"fees"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Shutdown  ShutdownConfig  `mapstructure:"shutdown"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig contains settings for the optional terminal-order archive.
// Leave Host empty to run without an archive.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// SubmitterConfig holds the RPC endpoint and signing key for transaction
// submission. Leave RPCURL empty to run without a wallet session; order
// operations then fail with a not-connected error.
type SubmitterConfig struct {
	RPCURL     string `mapstructure:"rpc_url"`
	PrivateKey string `mapstructure:"private_key"`
}

// ChainConfig describes one supported chain for the registry
type ChainConfig struct {
	ID             string         `mapstructure:"id"`
	Name           string         `mapstructure:"name"`
	ChainID        int64          `mapstructure:"chain_id"`
	RPCURL         string         `mapstructure:"rpc_url"`
	ExplorerURL    string         `mapstructure:"explorer_url"`
	NativeCurrency CurrencyConfig `mapstructure:"native_currency"`
}

// CurrencyConfig describes a chain's native currency
type CurrencyConfig struct {
	Name     string `mapstructure:"name"`
	Symbol   string `mapstructure:"symbol"`
	Decimals int    `mapstructure:"decimals"`
}

// BridgeConfig contains bridge orchestration settings
type BridgeConfig struct {
	StepTimeout     time.Duration   `mapstructure:"step_timeout"`
	BridgeContract  string          `mapstructure:"bridge_contract"`
	Durations       []DurationEntry `mapstructure:"durations"`
	DefaultDuration time.Duration   `mapstructure:"default_duration"`
}

// DurationEntry holds the expected bridging time for one directed chain pair.
// New pairs are added here, not in code.
type DurationEntry struct {
	Source   string        `mapstructure:"source"`
	Target   string        `mapstructure:"target"`
	Duration time.Duration `mapstructure:"duration"`
}

// SwapConfig contains swap order settings
type SwapConfig struct {
	SwapContract   string        `mapstructure:"swap_contract"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

// FeeConfig contains fee estimation settings
type FeeConfig struct {
	// BaseRate is the bridging fee rate as a decimal string, e.g. "0.001" for 0.1%.
	BaseRate string `mapstructure:"base_rate"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ShutdownConfig contains graceful shutdown settings
type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Chains) == 0 {
		config.Chains = DefaultChains()
	}
	if len(config.Bridge.Durations) == 0 {
		config.Bridge.Durations = DefaultDurations()
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	// Database defaults
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "bridge_archive")

	// Bridge defaults
	viper.SetDefault("bridge.step_timeout", "120s")
	viper.SetDefault("bridge.default_duration", "10m")

	// Swap defaults
	viper.SetDefault("swap.confirm_timeout", "120s")

	// Fee defaults
	viper.SetDefault("fees.base_rate", "0.001")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")

	// Shutdown defaults
	viper.SetDefault("shutdown.timeout", "30s")
}

func validate(config *Config) error {
	if config.Bridge.StepTimeout <= 0 {
		return fmt.Errorf("bridge.step_timeout must be positive")
	}
	if config.Bridge.DefaultDuration <= 0 {
		return fmt.Errorf("bridge.default_duration must be positive")
	}
	seen := make(map[string]bool, len(config.Chains))
	for _, chain := range config.Chains {
		if chain.ID == "" {
			return fmt.Errorf("chain entry missing id")
		}
		if seen[chain.ID] {
			return fmt.Errorf("duplicate chain id: %s", chain.ID)
		}
		seen[chain.ID] = true
	}
	return nil
}

// DefaultChains returns the built-in chain catalog, used when the config
// file does not override it.
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{
			ID: "ethereum", Name: "Ethereum", ChainID: 1,
			RPCURL: "https://mainnet.infura.io/v3/", ExplorerURL: "https://etherscan.io",
			NativeCurrency: CurrencyConfig{Name: "Ether", Symbol: "ETH", Decimals: 18},
		},
		{
			ID: "polygon", Name: "Polygon", ChainID: 137,
			RPCURL: "https://polygon-rpc.com", ExplorerURL: "https://polygonscan.com",
			NativeCurrency: CurrencyConfig{Name: "MATIC", Symbol: "MATIC", Decimals: 18},
		},
		{
			ID: "arbitrum", Name: "Arbitrum One", ChainID: 42161,
			RPCURL: "https://arb1.arbitrum.io/rpc", ExplorerURL: "https://arbiscan.io",
			NativeCurrency: CurrencyConfig{Name: "Ether", Symbol: "ETH", Decimals: 18},
		},
		{
			ID: "optimism", Name: "Optimism", ChainID: 10,
			RPCURL: "https://mainnet.optimism.io", ExplorerURL: "https://optimistic.etherscan.io",
			NativeCurrency: CurrencyConfig{Name: "Ether", Symbol: "ETH", Decimals: 18},
		},
		{
			ID: "base", Name: "Base", ChainID: 8453,
			RPCURL: "https://mainnet.base.org", ExplorerURL: "https://basescan.org",
			NativeCurrency: CurrencyConfig{Name: "Ether", Symbol: "ETH", Decimals: 18},
		},
		{
			ID: "avalanche", Name: "Avalanche C-Chain", ChainID: 43114,
			RPCURL: "https://api.avax.network/ext/bc/C/rpc", ExplorerURL: "https://snowtrace.io",
			NativeCurrency: CurrencyConfig{Name: "Avalanche", Symbol: "AVAX", Decimals: 18},
		},
	}
}

// DefaultDurations returns the built-in directed-pair duration table.
func DefaultDurations() []DurationEntry {
	return []DurationEntry{
		{Source: "ethereum", Target: "polygon", Duration: 15 * time.Minute},
		{Source: "ethereum", Target: "arbitrum", Duration: 10 * time.Minute},
		{Source: "ethereum", Target: "optimism", Duration: 5 * time.Minute},
		{Source: "ethereum", Target: "base", Duration: 5 * time.Minute},
		{Source: "polygon", Target: "ethereum", Duration: 30 * time.Minute},
		{Source: "arbitrum", Target: "ethereum", Duration: 7 * time.Minute},
		{Source: "optimism", Target: "ethereum", Duration: 7 * time.Minute},
		{Source: "base", Target: "ethereum", Duration: 7 * time.Minute},
	}
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
