package gateway

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/argo-fleet/pkg/errors"
)

// DefaultQuoteAsset is the quote asset assumed when none is configured.
const DefaultQuoteAsset = "USDT"

// BinanceGatewayConfig contains configuration for the Binance gateway.
type BinanceGatewayConfig struct {
	ApiKey    string `json:"apiKey" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey string `json:"secretKey" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	BaseURL   string `json:"baseUrl,omitempty" jsonschema:"title=Base URL,description=Override the REST endpoint (takes precedence over the testnet flag)"`
	// QuoteAsset is appended to base assets when deriving trading symbols
	// from account balances, e.g. BTC + USDT -> BTCUSDT.
	QuoteAsset string `json:"quoteAsset,omitempty" jsonschema:"title=Quote Asset,description=Quote asset used to derive trading symbols from balances,default=USDT"`
}

// Validate validates the BinanceGatewayConfig struct.
func (c *BinanceGatewayConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance gateway config", err)
	}

	return nil
}

// ParseBinanceConfig parses a JSON configuration string into a BinanceGatewayConfig.
func ParseBinanceConfig(jsonConfig string) (*BinanceGatewayConfig, error) {
	var config BinanceGatewayConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse binance config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.QuoteAsset == "" {
		config.QuoteAsset = DefaultQuoteAsset
	}

	return &config, nil
}
