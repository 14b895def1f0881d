// Package config exposes strongly typed settings for the marketplace flow loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Literal values the flow uses when the YAML leaves a field empty.
const (
	DefaultRPCURL          = "http://127.0.0.1:8545"
	DefaultArtifactsDir    = "artifacts"
	DefaultTokenContract   = "TIM"
	DefaultMarketContract  = "MarketPlace"
	DefaultTokenURI        = "sample ipfs url"
	DefaultMarketplaceArg  = "0x737554B2685FA84898c4F166b9F3e88E22Ef5435"
	DefaultQuantity        = 200
	DefaultPrice           = "10000000000000000000"
	DefaultDuration        = 12
	DefaultOwnerKeyEnv     = "OWNER_PRIVATE_KEY"
	DefaultBuyerKeyEnv     = "BUYER_PRIVATE_KEY"
	DefaultReceiptTimeout  = 60
	DefaultPollIntervalMs  = 250
	DefaultGasMultiplier   = 1.2
	EnvRPCURL              = "MARKET_RPC_URL"
	EnvArtifactsDir        = "MARKET_ARTIFACTS_DIR"
	defaultAppName         = "keresverse-market"
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	maxReasonableGasFactor = 10
)

// App captures process-wide runtime settings such as name, metrics, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|console
}

// Chain describes how to reach the JSON-RPC node and how patiently to wait for it.
type Chain struct {
	RPCURL             string  `yaml:"rpc_url"`
	ChainID            int64   `yaml:"chain_id"` // 0 asks the node
	ReceiptTimeoutSecs int     `yaml:"receipt_timeout_secs"`
	PollIntervalMs     int     `yaml:"poll_interval_ms"`
	GasMultiplier      float64 `yaml:"gas_multiplier"`
}

// ReceiptTimeout converts the configured seconds into a duration.
func (c Chain) ReceiptTimeout() time.Duration {
	return time.Duration(c.ReceiptTimeoutSecs) * time.Second
}

// PollInterval converts the configured milliseconds into a duration.
func (c Chain) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Artifacts points at compiled contract output and names the two factories.
type Artifacts struct {
	Dir                 string `yaml:"dir"`
	TokenContract       string `yaml:"token_contract"`
	MarketplaceContract string `yaml:"marketplace_contract"`
}

// Deploy holds constructor arguments.
type Deploy struct {
	TokenURI       string `yaml:"token_uri"`
	MarketplaceArg string `yaml:"marketplace_arg"`
}

// Order describes the sale order registered by the owner and filled by the buyer.
type Order struct {
	ID        uint64 `yaml:"id"`
	TokenID   uint64 `yaml:"token_id"`
	Quantity  uint64 `yaml:"quantity"`
	Active    *bool  `yaml:"active"`
	Price     string `yaml:"price_wei"`
	StartTime uint64 `yaml:"start_time"`
	Duration  uint64 `yaml:"duration"`
}

// IsActive reports the configured active flag, true when unset.
func (o Order) IsActive() bool {
	return o.Active == nil || *o.Active
}

// Wallet names the environment variables that carry the signing keys.
type Wallet struct {
	OwnerKeyEnv string `yaml:"owner_key_env"`
	BuyerKeyEnv string `yaml:"buyer_key_env"`
}

// Risk bounds how much value a single payable call may carry.
type Risk struct {
	MaxValue string `yaml:"max_value_wei"`
}

// Report configures the optional JSONL run log.
type Report struct {
	Path string `yaml:"path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Chain     Chain     `yaml:"chain"`
	Artifacts Artifacts `yaml:"artifacts"`
	Deploy    Deploy    `yaml:"deploy"`
	Order     Order     `yaml:"order"`
	Wallet    Wallet    `yaml:"wallet"`
	Risk      Risk      `yaml:"risk"`
	Report    Report    `yaml:"report"`
}

// Default returns a config populated with the stock flow values.
// Numeric order fields where zero is meaningful are only set here, so YAML
// decoded on top of Default keeps an explicit 0.
func Default() *Config {
	cfg := &Config{
		Order: Order{Quantity: DefaultQuantity, Duration: DefaultDuration},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads a YAML file from disk, fills defaults, and applies env overrides.
func Load(path string) (*Config, error) {
	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()
	return config, nil
}

// LoadFile reads a YAML file on top of Default without consulting the
// environment; use it when the result is written back with Save.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.ApplyDefaults()
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyDefaults fills every empty field with the stock flow value.
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = defaultAppName
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultLogLevel
	}
	if c.App.LogFormat == "" {
		c.App.LogFormat = defaultLogFormat
	}
	if c.Chain.RPCURL == "" {
		c.Chain.RPCURL = DefaultRPCURL
	}
	if c.Chain.ReceiptTimeoutSecs <= 0 {
		c.Chain.ReceiptTimeoutSecs = DefaultReceiptTimeout
	}
	if c.Chain.PollIntervalMs <= 0 {
		c.Chain.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Chain.GasMultiplier <= 0 {
		c.Chain.GasMultiplier = DefaultGasMultiplier
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = DefaultArtifactsDir
	}
	if c.Artifacts.TokenContract == "" {
		c.Artifacts.TokenContract = DefaultTokenContract
	}
	if c.Artifacts.MarketplaceContract == "" {
		c.Artifacts.MarketplaceContract = DefaultMarketContract
	}
	if c.Deploy.TokenURI == "" {
		c.Deploy.TokenURI = DefaultTokenURI
	}
	if c.Deploy.MarketplaceArg == "" {
		c.Deploy.MarketplaceArg = DefaultMarketplaceArg
	}
	if c.Order.Price == "" {
		c.Order.Price = DefaultPrice
	}
	if c.Wallet.OwnerKeyEnv == "" {
		c.Wallet.OwnerKeyEnv = DefaultOwnerKeyEnv
	}
	if c.Wallet.BuyerKeyEnv == "" {
		c.Wallet.BuyerKeyEnv = DefaultBuyerKeyEnv
	}
}

// ApplyEnv lets the process environment override the node and artifact locations.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvRPCURL); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv(EnvArtifactsDir); v != "" {
		c.Artifacts.Dir = v
	}
}

// Validate rejects values the flow could not send to a node.
func (c *Config) Validate() error {
	var errs []error
	if !common.IsHexAddress(c.Deploy.MarketplaceArg) {
		errs = append(errs, fmt.Errorf("deploy.marketplace_arg %q is not an address", c.Deploy.MarketplaceArg))
	}
	if _, err := ParseWei(c.Order.Price); err != nil {
		errs = append(errs, fmt.Errorf("order.price_wei: %w", err))
	}
	if c.Risk.MaxValue != "" {
		if _, err := ParseWei(c.Risk.MaxValue); err != nil {
			errs = append(errs, fmt.Errorf("risk.max_value_wei: %w", err))
		}
	}
	if c.Chain.GasMultiplier < 1 || c.Chain.GasMultiplier > maxReasonableGasFactor {
		errs = append(errs, fmt.Errorf("chain.gas_multiplier %.2f outside [1, %d]", c.Chain.GasMultiplier, maxReasonableGasFactor))
	}
	if c.Wallet.OwnerKeyEnv == c.Wallet.BuyerKeyEnv {
		errs = append(errs, errors.New("wallet.owner_key_env and wallet.buyer_key_env must differ"))
	}
	return errors.Join(errs...)
}
