package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ahmadzakiakmal/internnft-chain/staking"
)

// EnvPrefix namespaces every environment variable read here,
// e.g. INTERN_RPC_ENDPOINT.
const EnvPrefix = "INTERN"

// MaxPollInterval keeps the relay well inside one oracle round. A withdraw
// reads from the round its block time falls in, so that round has to be on
// chain within seconds of starting.
const MaxPollInterval = time.Duration(staking.DefaultRoundPeriod) * time.Second / 3

// RelayConfig holds configuration for the beacon relay
type RelayConfig struct {
	// drand HTTP API, e.g. https://api.drand.sh
	DrandEndpoint string `mapstructure:"drand_endpoint"`
	// CometBFT RPC the submit_beacon transactions are broadcast to
	RPCEndpoint string `mapstructure:"rpc_endpoint"`

	OracleContract string `mapstructure:"oracle_contract"`
	// Worker is the sender the oracle accepts beacons from
	Worker string `mapstructure:"worker"`

	PollInterval time.Duration `mapstructure:"poll_interval"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	// Backfill is how many rounds below the latest are submitted at startup
	Backfill uint64 `mapstructure:"backfill"`
}

// LoadgenConfig holds configuration for the load generator
type LoadgenConfig struct {
	// Game API of the node under load, e.g. http://127.0.0.1:5000
	APIEndpoint string `mapstructure:"api_endpoint"`

	Workers     int           `mapstructure:"workers"`
	Duration    time.Duration `mapstructure:"duration"`
	StakingType string        `mapstructure:"staking_type"`
	// StakeBlocks is how many blocks a worker waits between stake and withdraw
	StakeBlocks int           `mapstructure:"stake_blocks"`
	BlockTime   time.Duration `mapstructure:"block_time"`

	MintDenom  string `mapstructure:"mint_denom"`
	MintAmount uint64 `mapstructure:"mint_amount"`

	RecordsDir string `mapstructure:"records_dir"`
}

var relayDefaults = map[string]any{
	"drand_endpoint":  "https://api.drand.sh",
	"rpc_endpoint":    "http://localhost:26657",
	"oracle_contract": "oracle",
	"worker":          "relay",
	"poll_interval":   "3s",
	"http_timeout":    "10s",
	"backfill":        0,
}

var loadgenDefaults = map[string]any{
	"api_endpoint": "http://127.0.0.1:5000",
	"workers":      10,
	"duration":     "30s",
	"staking_type": staking.TypeGold,
	"stake_blocks": 1,
	"block_time":   "1s",
	"mint_denom":   "uluna",
	"mint_amount":  0,
	"records_dir":  "./records",
}

// LoadRelayConfig loads relay configuration from environment variables with defaults
func LoadRelayConfig() (*RelayConfig, error) {
	var cfg RelayConfig
	if err := load(relayDefaults, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadLoadgenConfig loads load generator configuration from environment variables with defaults
func LoadLoadgenConfig() (*LoadgenConfig, error) {
	var cfg LoadgenConfig
	if err := load(loadgenDefaults, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(defaults map[string]any, out any) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

// Validate checks if required configuration is present
func (c *RelayConfig) Validate() error {
	if c.DrandEndpoint == "" {
		return fmt.Errorf("%s_DRAND_ENDPOINT is required", EnvPrefix)
	}
	if c.RPCEndpoint == "" {
		return fmt.Errorf("%s_RPC_ENDPOINT is required", EnvPrefix)
	}
	if c.OracleContract == "" {
		return fmt.Errorf("%s_ORACLE_CONTRACT is required", EnvPrefix)
	}
	if c.Worker == "" {
		return fmt.Errorf("%s_WORKER is required", EnvPrefix)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%s_POLL_INTERVAL must be positive", EnvPrefix)
	}
	if c.PollInterval > MaxPollInterval {
		return fmt.Errorf("%s_POLL_INTERVAL must be at most %s", EnvPrefix, MaxPollInterval)
	}
	return nil
}

// Validate checks if required configuration is present
func (c *LoadgenConfig) Validate() error {
	if c.APIEndpoint == "" {
		return fmt.Errorf("%s_API_ENDPOINT is required", EnvPrefix)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%s_WORKERS must be positive", EnvPrefix)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%s_DURATION must be positive", EnvPrefix)
	}
	if c.StakingType != staking.TypeGold && c.StakingType != staking.TypeExperience {
		return fmt.Errorf("%s_STAKING_TYPE must be gold or experience, got %q", EnvPrefix, c.StakingType)
	}
	if c.StakeBlocks < 0 {
		return fmt.Errorf("%s_STAKE_BLOCKS must not be negative", EnvPrefix)
	}
	return nil
}
