package gateway

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/internal/utils"
	"github.com/rxtech-lab/argo-fleet/pkg/errors"
)

const (
	// BinanceDecimalPrecision is a default decimal precision used as a fallback.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC) for BTC-like assets.
	// Production systems should use symbol-specific precision from Binance exchange info (e.g. LOT_SIZE, PRICE_FILTER).
	BinanceDecimalPrecision = 8

	// recentTradeLookback bounds the number of trades fetched when
	// reconstructing the average entry price of a position.
	recentTradeLookback = 100
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetOrderService interface for querying a single order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*binance.Order, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// ListPricesService interface for fetching latest trade prices.
type ListPricesService interface {
	Symbol(symbol string) ListPricesService
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// ListTradesService interface for listing account trades.
type ListTradesService interface {
	Symbol(symbol string) ListTradesService
	Limit(limit int) ListTradesService
	Do(ctx context.Context) ([]*binance.TradeV3, error)
}

// StartUserStreamService interface for opening a user data stream.
type StartUserStreamService interface {
	Do(ctx context.Context) (string, error)
}

// KeepaliveUserStreamService interface for keeping a user data stream alive.
type KeepaliveUserStreamService interface {
	ListenKey(listenKey string) KeepaliveUserStreamService
	Do(ctx context.Context) error
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetOrderService() GetOrderService
	NewGetAccountService() GetAccountService
	NewListPricesService() ListPricesService
	NewListTradesService() ListTradesService
	NewStartUserStreamService() StartUserStreamService
	NewKeepaliveUserStreamService() KeepaliveUserStreamService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

func (r *realBinanceClient) NewListTradesService() ListTradesService {
	return &realListTradesService{service: r.client.NewListTradesService()}
}

func (r *realBinanceClient) NewStartUserStreamService() StartUserStreamService {
	return &realStartUserStreamService{service: r.client.NewStartUserStreamService()}
}

func (r *realBinanceClient) NewKeepaliveUserStreamService() KeepaliveUserStreamService {
	return &realKeepaliveUserStreamService{service: r.client.NewKeepaliveUserStreamService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *binance.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Symbol(symbol string) ListPricesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realListTradesService struct {
	service *binance.ListTradesService
}

func (s *realListTradesService) Symbol(symbol string) ListTradesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListTradesService) Limit(limit int) ListTradesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realListTradesService) Do(ctx context.Context) ([]*binance.TradeV3, error) {
	return s.service.Do(ctx)
}

type realStartUserStreamService struct {
	service *binance.StartUserStreamService
}

func (s *realStartUserStreamService) Do(ctx context.Context) (string, error) {
	return s.service.Do(ctx)
}

type realKeepaliveUserStreamService struct {
	service *binance.KeepaliveUserStreamService
}

func (s *realKeepaliveUserStreamService) ListenKey(listenKey string) KeepaliveUserStreamService {
	s.service = s.service.ListenKey(listenKey)

	return s
}

func (s *realKeepaliveUserStreamService) Do(ctx context.Context) error {
	return s.service.Do(ctx)
}

// BinanceGateway implements Gateway using the Binance spot API.
// It is stateless - all position and order data is fetched directly from Binance.
type BinanceGateway struct {
	client           BinanceClient
	decimalPrecision int
	quoteAsset       string
}

// NewBinanceGateway creates a new Binance gateway.
// If useTestnet is true, connects to Binance Testnet (https://testnet.binance.vision/).
// If config.BaseURL is set, it takes precedence over useTestnet.
func NewBinanceGateway(config BinanceGatewayConfig, useTestnet bool) (*BinanceGateway, error) {
	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)

	// Set custom base URL if provided (takes precedence over useTestnet)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	quoteAsset := config.QuoteAsset
	if quoteAsset == "" {
		quoteAsset = DefaultQuoteAsset
	}

	return &BinanceGateway{
		client:           &realBinanceClient{client: client},
		decimalPrecision: BinanceDecimalPrecision,
		quoteAsset:       quoteAsset,
	}, nil
}

// newBinanceGatewayWithClient creates a new Binance gateway with a custom client.
// This is used for testing with mock clients.
func newBinanceGatewayWithClient(client BinanceClient) *BinanceGateway {
	return &BinanceGateway{
		client:           client,
		decimalPrecision: BinanceDecimalPrecision,
		quoteAsset:       DefaultQuoteAsset,
	}
}

// SubmitOrder submits an order to Binance and returns the broker's view of it.
// The order's client-assigned ID is forwarded so fills on the update stream can
// be matched back to the submission.
func (b *BinanceGateway) SubmitOrder(ctx context.Context, order types.ExecuteOrder) (types.Order, error) {
	empty := types.Order{} //nolint:exhaustruct // zero value returned on error

	if err := order.Validate(); err != nil {
		return empty, err
	}

	var side binance.SideType

	switch order.Side {
	case types.PurchaseTypeBuy:
		side = binance.SideTypeBuy
	case types.PurchaseTypeSell:
		side = binance.SideTypeSell
	default:
		return empty, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", order.Side)
	}

	var orderType binance.OrderType

	switch order.OrderType {
	case types.OrderTypeMarket:
		orderType = binance.OrderTypeMarket
	case types.OrderTypeLimit:
		orderType = binance.OrderTypeLimit
	default:
		return empty, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order type: %s", order.OrderType)
	}

	roundedQuantity := utils.RoundToDecimalPrecision(order.Quantity, b.decimalPrecision)
	if roundedQuantity <= 0 {
		return empty, errors.Newf(errors.ErrCodeInvalidQuantity,
			"order quantity %.8f is too small after rounding to %d decimal places",
			order.Quantity, b.decimalPrecision)
	}

	orderService := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(orderType).
		Quantity(strconv.FormatFloat(roundedQuantity, 'f', b.decimalPrecision, 64)).
		NewClientOrderID(order.ID)

	// For limit orders, add price and time in force. Binance spot has no
	// session-scoped orders, so day orders are submitted as GTC.
	if order.OrderType == types.OrderTypeLimit {
		orderService = orderService.
			Price(strconv.FormatFloat(order.Price, 'f', -1, 64)).
			TimeInForce(binance.TimeInForceTypeGTC)
	}

	resp, err := orderService.Do(ctx)
	if err != nil {
		return empty, errors.Wrap(errors.ErrCodeSubmitFailed, "failed to place order on Binance", err)
	}

	return convertCreateOrderResponse(resp), nil
}

// GetOrder fetches the current state of an order by broker order ID.
func (b *BinanceGateway) GetOrder(ctx context.Context, symbol string, orderID string) (types.Order, error) {
	empty := types.Order{} //nolint:exhaustruct // zero value returned on error

	binanceOrderID, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return empty, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order ID format", err)
	}

	order, err := b.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(binanceOrderID).
		Do(ctx)
	if err != nil {
		return empty, errors.Wrap(errors.ErrCodeOrderQueryFailed, "failed to get order from Binance", err)
	}

	return convertBinanceOrder(order), nil
}

// GetPosition returns the position for a trading symbol, or None when flat.
// The symbol's base asset balance is the position quantity; the average entry
// price is reconstructed from the most recent buy trades covering it.
func (b *BinanceGateway) GetPosition(ctx context.Context, symbol string) (optional.Option[types.Position], error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return optional.None[types.Position](), errors.Wrap(errors.ErrCodePositionQuery, "failed to get account info from Binance", err)
	}

	baseAsset := strings.TrimSuffix(symbol, b.quoteAsset)

	for _, balance := range account.Balances {
		if balance.Asset != baseAsset {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		total := free + locked

		if total <= 0 {
			return optional.None[types.Position](), nil
		}

		return optional.Some(types.Position{
			Symbol:        symbol,
			Quantity:      total,
			AvgEntryPrice: b.avgEntryPrice(ctx, symbol, total),
		}), nil
	}

	return optional.None[types.Position](), nil
}

// ListPositions returns every open position on the account, keyed by trading
// symbol. The configured quote asset itself is cash, not a position.
func (b *BinanceGateway) ListPositions(ctx context.Context) ([]types.Position, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePositionQuery, "failed to get account info from Binance", err)
	}

	positions := make([]types.Position, 0)

	for _, balance := range account.Balances {
		if balance.Asset == b.quoteAsset {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		total := free + locked

		if total <= 0 {
			continue
		}

		symbol := balance.Asset + b.quoteAsset
		positions = append(positions, types.Position{
			Symbol:        symbol,
			Quantity:      total,
			AvgEntryPrice: b.avgEntryPrice(ctx, symbol, total),
		})
	}

	return positions, nil
}

// LastTrade returns the most recent trade price for a symbol.
func (b *BinanceGateway) LastTrade(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.client.NewListPricesService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePriceQuery, "failed to get price from Binance", err)
	}

	if len(prices) == 0 {
		return 0, errors.Newf(errors.ErrCodeDataNotFound, "no price returned for symbol: %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePriceQuery, "invalid price returned from Binance", err)
	}

	return price, nil
}

// avgEntryPrice reconstructs the average entry price of a holding by walking
// recent buy trades, newest first, until they cover the held quantity.
// Returns 0 when trades are unavailable; callers treat 0 as unknown cost.
func (b *BinanceGateway) avgEntryPrice(ctx context.Context, symbol string, quantity float64) float64 {
	trades, err := b.client.NewListTradesService().
		Symbol(symbol).
		Limit(recentTradeLookback).
		Do(ctx)
	if err != nil {
		return 0
	}

	remaining := quantity

	var coveredQty, coveredAmount float64

	for i := len(trades) - 1; i >= 0 && remaining > 0; i-- {
		trade := trades[i]
		if !trade.IsBuyer {
			continue
		}

		qty, _ := strconv.ParseFloat(trade.Quantity, 64)
		price, _ := strconv.ParseFloat(trade.Price, 64)

		if qty > remaining {
			qty = remaining
		}

		coveredQty += qty
		coveredAmount += qty * price
		remaining -= qty
	}

	if coveredQty <= 0 {
		return 0
	}

	return coveredAmount / coveredQty
}

// Helper functions

// mapBinanceOrderStatus maps Binance order status to our OrderStatus type.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return types.OrderStatusNew
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypePendingCancel, binance.OrderStatusTypeExpired:
		return types.OrderStatusCanceled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusNew
	}
}

// mapBinanceSide maps a Binance side to our PurchaseType.
func mapBinanceSide(side binance.SideType) types.PurchaseType {
	if side == binance.SideTypeSell {
		return types.PurchaseTypeSell
	}

	return types.PurchaseTypeBuy
}

// convertCreateOrderResponse converts a Binance order creation response to our Order type.
func convertCreateOrderResponse(resp *binance.CreateOrderResponse) types.Order {
	quantity, _ := strconv.ParseFloat(resp.OrigQuantity, 64)
	filled, _ := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	price, _ := strconv.ParseFloat(resp.Price, 64)

	return types.Order{
		OrderID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:         resp.Symbol,
		Side:           mapBinanceSide(resp.Side),
		Quantity:       quantity,
		FilledQuantity: filled,
		Price:          price,
		Status:         mapBinanceOrderStatus(resp.Status),
		Timestamp:      time.UnixMilli(resp.TransactTime),
	}
}

// convertBinanceOrder converts a Binance order to our Order type.
func convertBinanceOrder(bo *binance.Order) types.Order {
	quantity, _ := strconv.ParseFloat(bo.OrigQuantity, 64)
	filled, _ := strconv.ParseFloat(bo.ExecutedQuantity, 64)
	price, _ := strconv.ParseFloat(bo.Price, 64)

	return types.Order{
		OrderID:        strconv.FormatInt(bo.OrderID, 10),
		Symbol:         bo.Symbol,
		Side:           mapBinanceSide(bo.Side),
		Quantity:       quantity,
		FilledQuantity: filled,
		Price:          price,
		Status:         mapBinanceOrderStatus(bo.Status),
		Timestamp:      time.UnixMilli(bo.UpdateTime),
	}
}

// Ensure BinanceGateway implements Gateway.
var _ Gateway = (*BinanceGateway)(nil)
