package fleet

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-fleet/internal/utils"
	"github.com/rxtech-lab/argo-fleet/pkg/errors"
)

const (
	// DefaultReconcileInterval is how often the fleet squares controller
	// state with broker positions.
	DefaultReconcileInterval = 30 * time.Second
	// DefaultWarmupBars is the history window loaded per symbol at startup.
	DefaultWarmupBars = 50
	// DefaultSignalPeriod is the moving average window for the entry signal.
	DefaultSignalPeriod = 20
)

// SymbolConfig configures one symbol in the fleet.
type SymbolConfig struct {
	Symbol string `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Trading symbol (e.g. BTCUSDT or AAPL)" validate:"required"`
	// Budget is the quote notional spent per entry.
	Budget float64 `yaml:"budget" json:"budget" jsonschema:"title=Budget,description=Quote notional spent per entry" validate:"required,gt=0"`
	// QuantityPrecision is the number of decimals kept when sizing an entry.
	// Zero buys whole units.
	QuantityPrecision int `yaml:"quantity_precision" json:"quantityPrecision" jsonschema:"title=Quantity Precision,description=Decimals kept when sizing an entry (0 buys whole units)" validate:"gte=0"`
}

// GatewayConfig configures the broker connection.
type GatewayConfig struct {
	Provider   string `yaml:"provider" json:"provider" jsonschema:"title=Provider,description=Gateway provider,enum=binance-live,enum=binance-paper" validate:"required,oneof=binance-live binance-paper"`
	ApiKey     string `yaml:"api_key" json:"apiKey" jsonschema:"title=API Key" keychain:"true" validate:"required"`
	SecretKey  string `yaml:"secret_key" json:"secretKey" jsonschema:"title=Secret Key" keychain:"true" validate:"required"`
	BaseURL    string `yaml:"base_url,omitempty" json:"baseUrl,omitempty" jsonschema:"title=Base URL,description=Override the REST endpoint"`
	QuoteAsset string `yaml:"quote_asset,omitempty" json:"quoteAsset,omitempty" jsonschema:"title=Quote Asset,default=USDT"`
}

// MarketDataConfig configures the bar feed.
type MarketDataConfig struct {
	Provider string `yaml:"provider" json:"provider" jsonschema:"title=Provider,description=Market data provider,enum=binance,enum=polygon,enum=replay" validate:"required,oneof=binance polygon replay"`
	ApiKey   string `yaml:"api_key,omitempty" json:"apiKey,omitempty" jsonschema:"title=API Key,description=Required for polygon" keychain:"true"`
	// Endpoint is the replay server address, required for the replay provider.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" jsonschema:"title=Endpoint,description=Replay server websocket endpoint"`
	Interval string `yaml:"interval" json:"interval" jsonschema:"title=Interval,default=1m" validate:"required,oneof=1s 1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M"`
}

// Config is the top-level trader configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level,omitempty" json:"logLevel,omitempty" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Gateway    GatewayConfig    `yaml:"gateway" json:"gateway" validate:"required"`
	MarketData MarketDataConfig `yaml:"market_data" json:"marketData" validate:"required"`
	Symbols    []SymbolConfig   `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols" validate:"required,min=1,dive"`
	// SignalPeriod is the moving average window for the entry signal.
	SignalPeriod int `yaml:"signal_period,omitempty" json:"signalPeriod,omitempty" jsonschema:"title=Signal Period,default=20" validate:"gte=0"`
	// PriceIncrement is the minimum profit over cost basis when selling.
	PriceIncrement float64 `yaml:"price_increment,omitempty" json:"priceIncrement,omitempty" jsonschema:"title=Price Increment,default=0.01" validate:"gte=0"`
	// ReconcileInterval is how often broker positions are re-checked.
	ReconcileInterval time.Duration `yaml:"reconcile_interval,omitempty" json:"reconcileInterval,omitempty" jsonschema:"title=Reconcile Interval,default=30s"`
	// WarmupBars is the history window loaded per symbol before going live.
	WarmupBars int `yaml:"warmup_bars,omitempty" json:"warmupBars,omitempty" jsonschema:"title=Warmup Bars,default=50" validate:"gte=0"`
	// DataPath is the DuckDB bar archive used for warmup history.
	DataPath string `yaml:"data_path,omitempty" json:"dataPath,omitempty" jsonschema:"title=Data Path,description=DuckDB bar archive for warmup history"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid fleet config", err)
	}

	if c.MarketData.Provider == "polygon" && c.MarketData.ApiKey == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "polygon market data requires an api key")
	}

	if c.MarketData.Provider == "replay" && c.MarketData.Endpoint == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "replay market data requires an endpoint")
	}

	return nil
}

// applyDefaults fills unset optional fields.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.SignalPeriod == 0 {
		c.SignalPeriod = DefaultSignalPeriod
	}

	if c.PriceIncrement == 0 {
		c.PriceIncrement = 0.01
	}

	if c.ReconcileInterval == 0 {
		c.ReconcileInterval = DefaultReconcileInterval
	}

	if c.WarmupBars == 0 {
		c.WarmupBars = DefaultWarmupBars
	}
}

// ParseConfig parses a YAML configuration document, applies defaults and
// validates it.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse fleet config", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config file", err)
	}

	return ParseConfig(data)
}

// GetConfigSchema returns the JSON schema for the trader configuration.
func GetConfigSchema() (string, error) {
	//nolint:exhaustruct // Empty struct is intentional for schema generation
	return utils.ToJSONSchema(Config{})
}
