package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-fleet/internal/types"
)

// Mock implementations for testing

// mockBinanceClient implements BinanceClient interface for testing
type mockBinanceClient struct {
	createOrderService         *mockCreateOrderService
	getOrderService            *mockGetOrderService
	getAccountService          *mockGetAccountService
	listPricesService          *mockListPricesService
	listTradesService          *mockListTradesService
	startUserStreamService     *mockStartUserStreamService
	keepaliveUserStreamService *mockKeepaliveUserStreamService
}

func newMockBinanceClient() *mockBinanceClient {
	return &mockBinanceClient{
		createOrderService:         &mockCreateOrderService{},
		getOrderService:            &mockGetOrderService{},
		getAccountService:          &mockGetAccountService{},
		listPricesService:          &mockListPricesService{},
		listTradesService:          &mockListTradesService{},
		startUserStreamService:     &mockStartUserStreamService{},
		keepaliveUserStreamService: &mockKeepaliveUserStreamService{},
	}
}

func (m *mockBinanceClient) NewCreateOrderService() CreateOrderService {
	return m.createOrderService
}

func (m *mockBinanceClient) NewGetOrderService() GetOrderService {
	return m.getOrderService
}

func (m *mockBinanceClient) NewGetAccountService() GetAccountService {
	return m.getAccountService
}

func (m *mockBinanceClient) NewListPricesService() ListPricesService {
	return m.listPricesService
}

func (m *mockBinanceClient) NewListTradesService() ListTradesService {
	return m.listTradesService
}

func (m *mockBinanceClient) NewStartUserStreamService() StartUserStreamService {
	return m.startUserStreamService
}

func (m *mockBinanceClient) NewKeepaliveUserStreamService() KeepaliveUserStreamService {
	return m.keepaliveUserStreamService
}

// mockCreateOrderService implements CreateOrderService
type mockCreateOrderService struct {
	response      *binance.CreateOrderResponse
	err           error
	symbol        string
	side          binance.SideType
	orderTyp      binance.OrderType
	quantity      string
	price         string
	tif           binance.TimeInForceType
	clientOrderID string
}

func (m *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCreateOrderService) Side(side binance.SideType) CreateOrderService {
	m.side = side
	return m
}

func (m *mockCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	m.orderTyp = orderType
	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity
	return m
}

func (m *mockCreateOrderService) Price(price string) CreateOrderService {
	m.price = price
	return m
}

func (m *mockCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	m.tif = tif
	return m
}

func (m *mockCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	m.clientOrderID = id
	return m
}

func (m *mockCreateOrderService) Do(_ context.Context) (*binance.CreateOrderResponse, error) {
	return m.response, m.err
}

// mockGetOrderService implements GetOrderService
type mockGetOrderService struct {
	order   *binance.Order
	err     error
	symbol  string
	orderID int64
}

func (m *mockGetOrderService) Symbol(symbol string) GetOrderService {
	m.symbol = symbol
	return m
}

func (m *mockGetOrderService) OrderID(orderID int64) GetOrderService {
	m.orderID = orderID
	return m
}

func (m *mockGetOrderService) Do(_ context.Context) (*binance.Order, error) {
	return m.order, m.err
}

// mockGetAccountService implements GetAccountService
type mockGetAccountService struct {
	account *binance.Account
	err     error
}

func (m *mockGetAccountService) Do(_ context.Context) (*binance.Account, error) {
	return m.account, m.err
}

// mockListPricesService implements ListPricesService
type mockListPricesService struct {
	prices []*binance.SymbolPrice
	err    error
	symbol string
}

func (m *mockListPricesService) Symbol(symbol string) ListPricesService {
	m.symbol = symbol
	return m
}

func (m *mockListPricesService) Do(_ context.Context) ([]*binance.SymbolPrice, error) {
	return m.prices, m.err
}

// mockListTradesService implements ListTradesService
type mockListTradesService struct {
	trades []*binance.TradeV3
	err    error
	symbol string
	limit  int
}

func (m *mockListTradesService) Symbol(symbol string) ListTradesService {
	m.symbol = symbol
	return m
}

func (m *mockListTradesService) Limit(limit int) ListTradesService {
	m.limit = limit
	return m
}

func (m *mockListTradesService) Do(_ context.Context) ([]*binance.TradeV3, error) {
	return m.trades, m.err
}

// mockStartUserStreamService implements StartUserStreamService
type mockStartUserStreamService struct {
	listenKey string
	err       error
}

func (m *mockStartUserStreamService) Do(_ context.Context) (string, error) {
	return m.listenKey, m.err
}

// mockKeepaliveUserStreamService implements KeepaliveUserStreamService
type mockKeepaliveUserStreamService struct {
	listenKey string
	err       error
}

func (m *mockKeepaliveUserStreamService) ListenKey(listenKey string) KeepaliveUserStreamService {
	m.listenKey = listenKey
	return m
}

func (m *mockKeepaliveUserStreamService) Do(_ context.Context) error {
	return m.err
}

type BinanceGatewayTestSuite struct {
	suite.Suite

	client  *mockBinanceClient
	gateway *BinanceGateway
}

func TestBinanceGatewaySuite(t *testing.T) {
	suite.Run(t, new(BinanceGatewayTestSuite))
}

func (s *BinanceGatewayTestSuite) SetupTest() {
	s.client = newMockBinanceClient()
	s.gateway = newBinanceGatewayWithClient(s.client)
}

func (s *BinanceGatewayTestSuite) executeOrder() types.ExecuteOrder {
	return types.ExecuteOrder{
		ID:          uuid.New().String(),
		Symbol:      "BTCUSDT",
		Side:        types.PurchaseTypeBuy,
		OrderType:   types.OrderTypeLimit,
		TimeInForce: types.TimeInForceDay,
		Quantity:    0.5,
		Price:       50000,
		Reason:      types.OrderReasonEntrySignal,
	}
}

func (s *BinanceGatewayTestSuite) TestSubmitOrder() {
	s.client.createOrderService.response = &binance.CreateOrderResponse{
		Symbol:           "BTCUSDT",
		OrderID:          12345,
		TransactTime:     1700000000000,
		Price:            "50000",
		OrigQuantity:     "0.5",
		ExecutedQuantity: "0",
		Status:           binance.OrderStatusTypeNew,
		Side:             binance.SideTypeBuy,
	}

	eo := s.executeOrder()
	order, err := s.gateway.SubmitOrder(context.Background(), eo)
	s.Require().NoError(err)

	s.Equal("12345", order.OrderID)
	s.Equal("BTCUSDT", order.Symbol)
	s.Equal(types.PurchaseTypeBuy, order.Side)
	s.Equal(0.5, order.Quantity)
	s.Equal(50000.0, order.Price)
	s.Equal(types.OrderStatusNew, order.Status)

	// The request forwarded to Binance carries the client order ID, GTC time
	// in force and the rounded quantity
	s.Equal(eo.ID, s.client.createOrderService.clientOrderID)
	s.Equal(binance.TimeInForceTypeGTC, s.client.createOrderService.tif)
	s.Equal("0.50000000", s.client.createOrderService.quantity)
	s.Equal("50000", s.client.createOrderService.price)
}

func (s *BinanceGatewayTestSuite) TestSubmitOrderInvalid() {
	eo := s.executeOrder()
	eo.Quantity = 0

	_, err := s.gateway.SubmitOrder(context.Background(), eo)
	s.Require().Error(err)
}

func (s *BinanceGatewayTestSuite) TestSubmitOrderAPIError() {
	s.client.createOrderService.err = errors.New("insufficient balance")

	_, err := s.gateway.SubmitOrder(context.Background(), s.executeOrder())
	s.Require().Error(err)
}

func (s *BinanceGatewayTestSuite) TestGetOrder() {
	s.client.getOrderService.order = &binance.Order{
		Symbol:           "BTCUSDT",
		OrderID:          12345,
		Price:            "50000",
		OrigQuantity:     "0.5",
		ExecutedQuantity: "0.5",
		Status:           binance.OrderStatusTypeFilled,
		Side:             binance.SideTypeBuy,
		UpdateTime:       1700000000000,
	}

	order, err := s.gateway.GetOrder(context.Background(), "BTCUSDT", "12345")
	s.Require().NoError(err)

	s.Equal("12345", order.OrderID)
	s.Equal(types.OrderStatusFilled, order.Status)
	s.Equal(0.5, order.FilledQuantity)
	s.Equal(int64(12345), s.client.getOrderService.orderID)
	s.Equal("BTCUSDT", s.client.getOrderService.symbol)
	s.Equal(time.UnixMilli(1700000000000), order.Timestamp)
}

func (s *BinanceGatewayTestSuite) TestGetOrderInvalidID() {
	_, err := s.gateway.GetOrder(context.Background(), "BTCUSDT", "not-a-number")
	s.Require().Error(err)
}

func (s *BinanceGatewayTestSuite) account(balances ...binance.Balance) *binance.Account {
	return &binance.Account{Balances: balances}
}

func (s *BinanceGatewayTestSuite) TestGetPositionSome() {
	s.client.getAccountService.account = s.account(
		binance.Balance{Asset: "BTC", Free: "0.3", Locked: "0.2"},
		binance.Balance{Asset: "USDT", Free: "1000", Locked: "0"},
	)
	s.client.listTradesService.trades = []*binance.TradeV3{
		{Quantity: "0.5", Price: "48000", IsBuyer: true, Time: 1700000000000},
	}

	pos, err := s.gateway.GetPosition(context.Background(), "BTCUSDT")
	s.Require().NoError(err)
	s.Require().True(pos.IsSome())

	position := pos.Unwrap()
	s.Equal("BTCUSDT", position.Symbol)
	s.Equal(0.5, position.Quantity)
	s.Equal(48000.0, position.AvgEntryPrice)
}

func (s *BinanceGatewayTestSuite) TestGetPositionNone() {
	s.client.getAccountService.account = s.account(
		binance.Balance{Asset: "BTC", Free: "0", Locked: "0"},
		binance.Balance{Asset: "USDT", Free: "1000", Locked: "0"},
	)

	pos, err := s.gateway.GetPosition(context.Background(), "BTCUSDT")
	s.Require().NoError(err)
	s.True(pos.IsNone())
}

func (s *BinanceGatewayTestSuite) TestGetPositionUnknownAsset() {
	s.client.getAccountService.account = s.account(
		binance.Balance{Asset: "USDT", Free: "1000", Locked: "0"},
	)

	pos, err := s.gateway.GetPosition(context.Background(), "ETHUSDT")
	s.Require().NoError(err)
	s.True(pos.IsNone())
}

func (s *BinanceGatewayTestSuite) TestAvgEntryPriceWeighted() {
	s.client.getAccountService.account = s.account(
		binance.Balance{Asset: "BTC", Free: "1.0", Locked: "0"},
	)
	// Newest trade last in the Binance response; lookback walks from the end
	s.client.listTradesService.trades = []*binance.TradeV3{
		{Quantity: "1.0", Price: "40000", IsBuyer: true},
		{Quantity: "0.5", Price: "50000", IsBuyer: false},
		{Quantity: "0.5", Price: "48000", IsBuyer: true},
	}

	pos, err := s.gateway.GetPosition(context.Background(), "BTCUSDT")
	s.Require().NoError(err)
	s.Require().True(pos.IsSome())

	// 0.5 @ 48000 plus 0.5 @ 40000; the sell is skipped
	s.InDelta(44000.0, pos.Unwrap().AvgEntryPrice, 1e-9)
}

func (s *BinanceGatewayTestSuite) TestAvgEntryPriceUnavailable() {
	s.client.getAccountService.account = s.account(
		binance.Balance{Asset: "BTC", Free: "1.0", Locked: "0"},
	)
	s.client.listTradesService.err = errors.New("rate limited")

	pos, err := s.gateway.GetPosition(context.Background(), "BTCUSDT")
	s.Require().NoError(err)
	s.Require().True(pos.IsSome())
	s.Equal(0.0, pos.Unwrap().AvgEntryPrice)
}

func (s *BinanceGatewayTestSuite) TestListPositions() {
	s.client.getAccountService.account = s.account(
		binance.Balance{Asset: "BTC", Free: "0.5", Locked: "0"},
		binance.Balance{Asset: "ETH", Free: "0", Locked: "0"},
		binance.Balance{Asset: "USDT", Free: "1000", Locked: "0"},
	)
	s.client.listTradesService.trades = []*binance.TradeV3{
		{Quantity: "0.5", Price: "48000", IsBuyer: true},
	}

	positions, err := s.gateway.ListPositions(context.Background())
	s.Require().NoError(err)
	s.Require().Len(positions, 1)
	s.Equal("BTCUSDT", positions[0].Symbol)
	s.Equal(0.5, positions[0].Quantity)
}

func (s *BinanceGatewayTestSuite) TestListPositionsAccountError() {
	s.client.getAccountService.err = errors.New("unauthorized")

	_, err := s.gateway.ListPositions(context.Background())
	s.Require().Error(err)
}

func (s *BinanceGatewayTestSuite) TestLastTrade() {
	s.client.listPricesService.prices = []*binance.SymbolPrice{
		{Symbol: "BTCUSDT", Price: "50123.45"},
	}

	price, err := s.gateway.LastTrade(context.Background(), "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(50123.45, price)
	s.Equal("BTCUSDT", s.client.listPricesService.symbol)
}

func (s *BinanceGatewayTestSuite) TestLastTradeEmpty() {
	s.client.listPricesService.prices = []*binance.SymbolPrice{}

	_, err := s.gateway.LastTrade(context.Background(), "BTCUSDT")
	s.Require().Error(err)
}

func (s *BinanceGatewayTestSuite) TestLastTradeError() {
	s.client.listPricesService.err = errors.New("timeout")

	_, err := s.gateway.LastTrade(context.Background(), "BTCUSDT")
	s.Require().Error(err)
}

func (s *BinanceGatewayTestSuite) TestConvertExecutionReport() {
	tests := []struct {
		name          string
		executionType string
		status        string
		wantKind      types.OrderUpdateKind
		wantSkipped   bool
	}{
		{name: "new", executionType: "NEW", status: "NEW", wantKind: types.OrderUpdateKindNew},
		{name: "fill", executionType: "TRADE", status: "FILLED", wantKind: types.OrderUpdateKindFill},
		{name: "partial fill", executionType: "TRADE", status: "PARTIALLY_FILLED", wantKind: types.OrderUpdateKindPartialFill},
		{name: "canceled", executionType: "CANCELED", status: "CANCELED", wantKind: types.OrderUpdateKindCanceled},
		{name: "expired", executionType: "EXPIRED", status: "EXPIRED", wantKind: types.OrderUpdateKindCanceled},
		{name: "rejected", executionType: "REJECTED", status: "REJECTED", wantKind: types.OrderUpdateKindRejected},
		{name: "replace skipped", executionType: "REPLACED", status: "NEW", wantSkipped: true},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			report := &binance.WsOrderUpdate{
				Symbol:          "BTCUSDT",
				Side:            "BUY",
				Volume:          "0.5",
				Price:           "50000",
				ExecutionType:   tt.executionType,
				Status:          tt.status,
				Id:              777,
				FilledVolume:    "0.25",
				TransactionTime: 1700000000000,
			}

			update, ok := convertExecutionReport(report)
			if tt.wantSkipped {
				s.False(ok)

				return
			}

			s.Require().True(ok)
			s.Equal(tt.wantKind, update.Kind)
			s.Equal("777", update.OrderID)
			s.Equal("BTCUSDT", update.Symbol)
			s.Equal(0.25, update.Order.FilledQuantity)
		})
	}
}
