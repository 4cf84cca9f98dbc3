// Package controller holds the per-symbol order lifecycle state machine. Each
// controller cycles a single symbol through to_buy -> buy_submitted -> to_sell
// -> sell_submitted and back, driven by bar closes, order update notifications
// and periodic reconciliation against broker positions.
package controller

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-fleet/internal/gateway"
	"github.com/rxtech-lab/argo-fleet/internal/logger"
	"github.com/rxtech-lab/argo-fleet/internal/series"
	"github.com/rxtech-lab/argo-fleet/internal/strategy"
	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/pkg/errors"
)

// State is the lifecycle state of a symbol controller.
type State string

const (
	// StateToBuy means the controller is flat and watching for an entry signal.
	StateToBuy State = "to_buy"
	// StateBuySubmitted means a buy order is in flight.
	StateBuySubmitted State = "buy_submitted"
	// StateToSell means the position is held and a sell has not been placed yet.
	StateToSell State = "to_sell"
	// StateSellSubmitted means a sell order is in flight.
	StateSellSubmitted State = "sell_submitted"
)

const (
	// DefaultPriceIncrement is the minimum profit added to the cost basis
	// when pricing an exit.
	DefaultPriceIncrement = 0.01
	// DefaultSeriesSize is the number of bars retained per symbol.
	DefaultSeriesSize = 200
)

// Config configures a single symbol controller.
type Config struct {
	// Symbol is the trading symbol this controller owns.
	Symbol string `yaml:"symbol" validate:"required"`
	// Budget is the quote notional spent per entry.
	Budget float64 `yaml:"budget" validate:"required,gt=0"`
	// PriceIncrement is the minimum profit over cost basis when selling.
	PriceIncrement float64 `yaml:"price_increment" validate:"gte=0"`
	// QuantityPrecision is the number of decimals kept when sizing an entry.
	// Zero buys whole units.
	QuantityPrecision int `yaml:"quantity_precision" validate:"gte=0"`
	// SeriesSize is the number of bars retained for signal evaluation.
	SeriesSize int `yaml:"series_size" validate:"gte=0"`
}

// SymbolController drives the order lifecycle for one symbol. All state it
// holds beyond the lifecycle itself is incidental: positions and orders live
// at the broker and are re-fetched whenever a decision needs them.
//
// Bar, order update and reconciliation handlers run under one mutex, so at
// most one transition is in flight per symbol at any time.
type SymbolController struct {
	mu sync.Mutex

	config   Config
	gateway  gateway.Gateway
	detector strategy.Detector
	logger   *logger.Logger
	series   *series.Series

	state State
	// orderID is the broker ID of the in-flight order, empty outside the
	// submitted states.
	orderID string
	// costBasis is the entry price of the current holding, used to floor the
	// exit price. Zero means unknown.
	costBasis float64
	// sellQuantity is the quantity to exit, captured when the buy fills.
	sellQuantity float64
}

// NewSymbolController creates a controller in the to_buy state.
func NewSymbolController(config Config, gw gateway.Gateway, detector strategy.Detector, log *logger.Logger) *SymbolController {
	if config.PriceIncrement <= 0 {
		config.PriceIncrement = DefaultPriceIncrement
	}

	if config.SeriesSize <= 0 {
		config.SeriesSize = DefaultSeriesSize
	}

	return &SymbolController{
		mu:           sync.Mutex{},
		config:       config,
		gateway:      gw,
		detector:     detector,
		logger:       log,
		series:       series.NewSeries(config.SeriesSize),
		state:        StateToBuy,
		orderID:      "",
		costBasis:    0,
		sellQuantity: 0,
	}
}

// Seed preloads historical bars so the detector can evaluate from the first
// live bar instead of waiting a full warmup window.
func (c *SymbolController) Seed(bars []types.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, bar := range bars {
		c.series.Add(bar)
	}

	c.logger.Info("seeded controller",
		zap.String("symbol", c.config.Symbol),
		zap.Int("bars", len(bars)))
}

// Symbol returns the symbol this controller owns.
func (c *SymbolController) Symbol() string {
	return c.config.Symbol
}

// State returns the current lifecycle state.
func (c *SymbolController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// OrderID returns the broker ID of the in-flight order, if any.
func (c *SymbolController) OrderID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.orderID
}

// OnBar records a bar and, when flat, evaluates the entry signal. Bars are
// recorded in every state so the series stays current through a position's
// lifetime.
func (c *SymbolController) OnBar(ctx context.Context, bar types.Bar) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.series.Add(bar)

	if c.state != StateToBuy {
		return nil
	}

	signal := c.detector.Evaluate(c.series)
	if signal.Type != types.SignalTypeEnterLong {
		return nil
	}

	c.logger.Info("entry signal",
		zap.String("symbol", c.config.Symbol),
		zap.String("detector", signal.Name),
		zap.Any("raw", signal.RawValue))

	return c.submitBuy(ctx)
}

// OnOrderUpdate applies a broker order update notification.
//
// A "new" notification can race the broker's own bookkeeping, so the order is
// re-fetched and, if it already filled, handled as a fill. Partial fills are
// only logged: the controller caches no position, so the terminal event that
// follows (fill, or a dead order's position check) fetches the broker's true
// quantities. Updates for an order the controller is not tracking are dropped
// with a warning.
func (c *SymbolController) OnOrderUpdate(ctx context.Context, update types.OrderUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.orderID == "" || update.OrderID != c.orderID {
		c.logger.Warn("order update for untracked order",
			zap.String("symbol", c.config.Symbol),
			zap.String("state", string(c.state)),
			zap.String("event", string(update.Kind)),
			zap.String("order_id", update.OrderID))

		return nil
	}

	switch update.Kind {
	case types.OrderUpdateKindFill:
		return c.handleFill(ctx, update.Order)

	case types.OrderUpdateKindPartialFill:
		c.logger.Info("partial fill",
			zap.String("symbol", c.config.Symbol),
			zap.String("state", string(c.state)),
			zap.String("order_id", update.OrderID),
			zap.Float64("filled", update.Order.FilledQuantity))

		return nil

	case types.OrderUpdateKindCanceled, types.OrderUpdateKindRejected:
		return c.handleDead(ctx, update.Kind)

	case types.OrderUpdateKindNew:
		// The attached snapshot may be stale; ask the broker for the
		// current state before deciding anything.
		order, err := c.gateway.GetOrder(ctx, c.config.Symbol, update.OrderID)
		if err != nil {
			return errors.Wrap(errors.ErrCodeOrderQueryFailed, "failed to resolve new order update", err)
		}

		if order.Status == types.OrderStatusFilled {
			return c.handleFill(ctx, order)
		}

		return nil

	default:
		c.logger.Warn("unexpected order update kind",
			zap.String("symbol", c.config.Symbol),
			zap.String("state", string(c.state)),
			zap.String("event", string(update.Kind)))

		return nil
	}
}

// Reconcile squares the controller's state with the broker. The position is
// supplied by the caller so one account snapshot can serve a whole fleet.
// It recovers every way the controller can stall: a buy that filled without
// a notification, a sell that died silently, and a sell submit that failed.
func (c *SymbolController) Reconcile(ctx context.Context, position optional.Option[types.Position]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateToBuy:
		return nil

	case StateBuySubmitted:
		if position.IsNone() {
			return nil
		}

		pos := position.Unwrap()
		if pos.Quantity <= 0 {
			return nil
		}

		// The buy filled but no notification arrived
		c.logger.Info("reconcile: buy filled while submitted",
			zap.String("symbol", c.config.Symbol),
			zap.String("order_id", c.orderID),
			zap.Float64("quantity", pos.Quantity))

		c.orderID = ""
		c.costBasis = pos.AvgEntryPrice
		c.sellQuantity = pos.Quantity
		c.state = StateToSell

		return c.submitSell(ctx)

	case StateToSell:
		// A previous sell submit failed; retry while the position is
		// still on the book, otherwise go back to watching for entries
		if position.IsNone() || position.Unwrap().Quantity <= 0 {
			c.logger.Warn("reconcile: position gone while waiting to sell",
				zap.String("symbol", c.config.Symbol))

			c.reset()

			return nil
		}

		pos := position.Unwrap()
		c.sellQuantity = pos.Quantity

		if c.costBasis == 0 {
			c.costBasis = pos.AvgEntryPrice
		}

		return c.submitSell(ctx)

	case StateSellSubmitted:
		order, err := c.gateway.GetOrder(ctx, c.config.Symbol, c.orderID)
		if err != nil {
			return errors.Wrap(errors.ErrCodeOrderQueryFailed, "failed to query sell order during reconcile", err)
		}

		switch order.Status {
		case types.OrderStatusFilled:
			c.logger.Info("reconcile: sell filled",
				zap.String("symbol", c.config.Symbol),
				zap.String("order_id", c.orderID))

			c.reset()

			return nil

		case types.OrderStatusCanceled, types.OrderStatusRejected:
			c.logger.Warn("reconcile: sell order dead, resubmitting",
				zap.String("symbol", c.config.Symbol),
				zap.String("order_id", c.orderID),
				zap.String("status", string(order.Status)))

			c.orderID = ""
			c.state = StateToSell

			return c.submitSell(ctx)

		case types.OrderStatusNew, types.OrderStatusPartiallyFilled:
			return nil

		default:
			return nil
		}

	default:
		return nil
	}
}

// handleFill processes a terminal fill for the tracked order. A filled buy
// fetches the position before selling: a limit buy can fill below its limit,
// so the position's average entry price is the real cost basis, not the
// limit price carried on the notification.
func (c *SymbolController) handleFill(ctx context.Context, order types.Order) error {
	switch c.state {
	case StateBuySubmitted:
		quantity := order.FilledQuantity
		if quantity <= 0 {
			quantity = order.Quantity
		}

		costBasis := order.Price

		position, err := c.gateway.GetPosition(ctx, c.config.Symbol)
		if err != nil {
			c.logger.Warn("position query failed after buy fill, using order price as cost basis",
				zap.String("symbol", c.config.Symbol),
				zap.Error(err))
		} else if position.IsSome() && position.Unwrap().Quantity > 0 {
			pos := position.Unwrap()
			costBasis = pos.AvgEntryPrice
			quantity = pos.Quantity
		}

		c.logger.Info("buy filled",
			zap.String("symbol", c.config.Symbol),
			zap.String("order_id", c.orderID),
			zap.Float64("quantity", quantity),
			zap.Float64("cost_basis", costBasis))

		c.orderID = ""
		c.costBasis = costBasis
		c.sellQuantity = quantity
		c.state = StateToSell

		return c.submitSell(ctx)

	case StateSellSubmitted:
		c.logger.Info("sell filled",
			zap.String("symbol", c.config.Symbol),
			zap.String("order_id", c.orderID),
			zap.Float64("price", order.Price))

		c.reset()

		return nil

	case StateToBuy, StateToSell:
		c.logger.Warn("fill in unexpected state",
			zap.String("symbol", c.config.Symbol),
			zap.String("state", string(c.state)),
			zap.String("order_id", order.OrderID))

		return nil

	default:
		return nil
	}
}

// handleDead processes a canceled or rejected notification for the tracked
// order. A dead buy returns to watching for entries unless a partial fill
// already put stock on the book, in which case it is sold; a dead sell is
// resubmitted immediately since the position is still on the book.
func (c *SymbolController) handleDead(ctx context.Context, kind types.OrderUpdateKind) error {
	c.logger.Warn("order dead",
		zap.String("symbol", c.config.Symbol),
		zap.String("state", string(c.state)),
		zap.String("event", string(kind)),
		zap.String("order_id", c.orderID))

	switch c.state {
	case StateBuySubmitted:
		c.orderID = ""

		position, err := c.gateway.GetPosition(ctx, c.config.Symbol)
		if err != nil {
			// Reconciliation will spot any leftover position
			c.state = StateToBuy

			return errors.Wrap(errors.ErrCodePositionQuery, "failed to check position after dead buy", err)
		}

		if position.IsSome() && position.Unwrap().Quantity > 0 {
			pos := position.Unwrap()

			c.logger.Info("dead buy left a partial position, selling it",
				zap.String("symbol", c.config.Symbol),
				zap.Float64("quantity", pos.Quantity))

			c.costBasis = pos.AvgEntryPrice
			c.sellQuantity = pos.Quantity
			c.state = StateToSell

			return c.submitSell(ctx)
		}

		c.state = StateToBuy

		return nil

	case StateSellSubmitted:
		c.orderID = ""
		c.state = StateToSell

		return c.submitSell(ctx)

	case StateToBuy, StateToSell:
		return nil

	default:
		return nil
	}
}

// submitBuy sizes an entry off the latest trade price and submits a limit buy.
// On failure the controller stays in to_buy so the next bar can retry.
// Caller must hold the mutex.
func (c *SymbolController) submitBuy(ctx context.Context) error {
	lastTrade, err := c.gateway.LastTrade(ctx, c.config.Symbol)
	if err != nil {
		return errors.Wrap(errors.ErrCodePriceQuery, "failed to price entry", err)
	}

	quantity := entryQuantity(c.config.Budget, lastTrade, c.config.QuantityPrecision)
	if quantity <= 0 {
		c.logger.Warn("budget too small for one unit",
			zap.String("symbol", c.config.Symbol),
			zap.Float64("budget", c.config.Budget),
			zap.Float64("price", lastTrade))

		return nil
	}

	order := types.ExecuteOrder{
		ID:          uuid.New().String(),
		Symbol:      c.config.Symbol,
		Side:        types.PurchaseTypeBuy,
		OrderType:   types.OrderTypeLimit,
		TimeInForce: types.TimeInForceDay,
		Quantity:    quantity,
		Price:       lastTrade,
		Reason:      types.OrderReasonEntrySignal,
	}

	submitted, err := c.gateway.SubmitOrder(ctx, order)
	if err != nil {
		c.logger.Error("buy submit failed",
			zap.String("symbol", c.config.Symbol),
			zap.Error(err))

		return errors.Wrap(errors.ErrCodeSubmitFailed, "failed to submit buy", err)
	}

	c.orderID = submitted.OrderID
	c.state = StateBuySubmitted

	c.logger.Info("buy submitted",
		zap.String("symbol", c.config.Symbol),
		zap.String("order_id", c.orderID),
		zap.Float64("quantity", quantity),
		zap.Float64("price", lastTrade))

	return nil
}

// submitSell prices the exit at the latest trade, floored at cost basis plus
// the configured increment, and submits a limit sell. On failure the
// controller stays in to_sell so reconciliation retries it.
// Caller must hold the mutex.
func (c *SymbolController) submitSell(ctx context.Context) error {
	lastTrade, err := c.gateway.LastTrade(ctx, c.config.Symbol)
	if err != nil {
		return errors.Wrap(errors.ErrCodePriceQuery, "failed to price exit", err)
	}

	price := exitPrice(lastTrade, c.costBasis, c.config.PriceIncrement)

	order := types.ExecuteOrder{
		ID:          uuid.New().String(),
		Symbol:      c.config.Symbol,
		Side:        types.PurchaseTypeSell,
		OrderType:   types.OrderTypeLimit,
		TimeInForce: types.TimeInForceDay,
		Quantity:    c.sellQuantity,
		Price:       price,
		Reason:      types.OrderReasonExitFill,
	}

	submitted, err := c.gateway.SubmitOrder(ctx, order)
	if err != nil {
		c.logger.Error("sell submit failed",
			zap.String("symbol", c.config.Symbol),
			zap.Error(err))

		return errors.Wrap(errors.ErrCodeSubmitFailed, "failed to submit sell", err)
	}

	c.orderID = submitted.OrderID
	c.state = StateSellSubmitted

	c.logger.Info("sell submitted",
		zap.String("symbol", c.config.Symbol),
		zap.String("order_id", c.orderID),
		zap.Float64("quantity", c.sellQuantity),
		zap.Float64("price", price))

	return nil
}

// reset returns the controller to flat. Caller must hold the mutex.
func (c *SymbolController) reset() {
	c.orderID = ""
	c.costBasis = 0
	c.sellQuantity = 0
	c.state = StateToBuy
}

// entryQuantity sizes an entry as budget/price truncated to the configured
// precision. Decimal arithmetic avoids float truncation buying one unit too
// many near exact multiples.
func entryQuantity(budget, price float64, precision int) float64 {
	if price <= 0 {
		return 0
	}

	quantity := decimal.NewFromFloat(budget).
		Div(decimal.NewFromFloat(price)).
		RoundDown(int32(precision))

	return quantity.InexactFloat64()
}

// exitPrice returns the higher of the latest trade and cost basis plus the
// increment, so an exit never locks in a loss.
func exitPrice(lastTrade, costBasis, increment float64) float64 {
	last := decimal.NewFromFloat(lastTrade)
	floor := decimal.NewFromFloat(costBasis).Add(decimal.NewFromFloat(increment))

	return decimal.Max(last, floor).InexactFloat64()
}
