// Package gateway abstracts the broker behind a small surface the controllers
// depend on. All position and order state lives at the broker; the gateway
// only queries and submits, it never caches.
package gateway

import (
	"context"
	"fmt"
	"iter"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/internal/utils"
)

// Gateway is the broker surface used by symbol controllers.
type Gateway interface {
	// SubmitOrder submits an order and returns the broker's view of it.
	SubmitOrder(ctx context.Context, order types.ExecuteOrder) (types.Order, error)
	// GetOrder fetches the current state of an order by broker order ID.
	GetOrder(ctx context.Context, symbol string, orderID string) (types.Order, error)
	// GetPosition returns the position for a symbol, or None when flat.
	GetPosition(ctx context.Context, symbol string) (optional.Option[types.Position], error)
	// ListPositions returns every open position on the account.
	ListPositions(ctx context.Context) ([]types.Position, error)
	// LastTrade returns the most recent trade price for a symbol.
	LastTrade(ctx context.Context, symbol string) (float64, error)
}

// OrderUpdateSource streams order update notifications from the broker.
type OrderUpdateSource interface {
	// StreamOrderUpdates yields order updates until ctx is done or the
	// stream fails. A yielded error terminates the sequence.
	StreamOrderUpdates(ctx context.Context) iter.Seq2[types.OrderUpdate, error]
}

type ProviderType string

const (
	ProviderBinancePaper ProviderType = "binance-paper"
	ProviderBinanceLive  ProviderType = "binance-live"
)

type ProviderInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	IsPaperTrading bool   `json:"isPaperTrading"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderBinancePaper: {
		Name:           string(ProviderBinancePaper),
		DisplayName:    "Binance Testnet",
		Description:    "Binance testnet for paper trading without real funds",
		IsPaperTrading: true,
	},
	ProviderBinanceLive: {
		Name:           string(ProviderBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance live environment for real-funds trading",
		IsPaperTrading: false,
	},
}

func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	return providers
}

// GetProviderInfo returns metadata for a specific gateway provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, fmt.Errorf("unsupported gateway provider: %s", providerName)
	}

	return info, nil
}

// GetProviderConfigSchema returns the JSON schema for a provider's configuration.
func GetProviderConfigSchema(providerName string) (string, error) {
	switch ProviderType(providerName) {
	case ProviderBinancePaper, ProviderBinanceLive:
		return utils.ToJSONSchema(BinanceGatewayConfig{
			ApiKey:     "",
			SecretKey:  "",
			BaseURL:    "",
			QuoteAsset: "",
		})
	default:
		return "", fmt.Errorf("unsupported gateway provider: %s", providerName)
	}
}

// NewGateway creates a gateway based on the provider type.
func NewGateway(providerType ProviderType, config any) (Gateway, error) {
	switch providerType {
	case ProviderBinancePaper:
		cfg, ok := config.(*BinanceGatewayConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for binance paper gateway")
		}

		return NewBinanceGateway(*cfg, true) // useTestnet=true

	case ProviderBinanceLive:
		cfg, ok := config.(*BinanceGatewayConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for binance live gateway")
		}

		return NewBinanceGateway(*cfg, false) // useTestnet=false

	default:
		return nil, fmt.Errorf("unsupported gateway provider: %s", providerType)
	}
}
