// Package fleet routes market events to per-symbol controllers. The
// dispatcher owns no trading logic: it fans bars, order updates and
// reconciliation passes out to the controllers registered with it.
package fleet

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-fleet/internal/controller"
	"github.com/rxtech-lab/argo-fleet/internal/gateway"
	"github.com/rxtech-lab/argo-fleet/internal/logger"
	"github.com/rxtech-lab/argo-fleet/internal/types"
)

// Dispatcher routes bars and order updates to symbol controllers and drives
// the periodic reconciliation pass. Registration happens before Run; the
// controller map is read-only afterwards.
type Dispatcher struct {
	mu sync.RWMutex

	controllers map[string]*controller.SymbolController
	gateway     gateway.Gateway
	logger      *logger.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(gw gateway.Gateway, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		mu:          sync.RWMutex{},
		controllers: make(map[string]*controller.SymbolController),
		gateway:     gw,
		logger:      log,
	}
}

// Register adds a controller to the fleet, seeding it with warmup history.
// Registering the same symbol again replaces the previous controller.
func (d *Dispatcher) Register(c *controller.SymbolController, initialBars []types.Bar) {
	if len(initialBars) > 0 {
		c.Seed(initialBars)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.controllers[c.Symbol()] = c

	d.logger.Info("registered symbol",
		zap.String("symbol", c.Symbol()),
		zap.Int("warmup_bars", len(initialBars)))
}

// Symbols returns the registered symbols.
func (d *Dispatcher) Symbols() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	symbols := make([]string, 0, len(d.controllers))
	for symbol := range d.controllers {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// DispatchBar routes a bar to its symbol's controller. Bars for unregistered
// symbols are dropped with a warning; controller errors are logged and do not
// stop the feed.
func (d *Dispatcher) DispatchBar(ctx context.Context, bar types.Bar) {
	c := d.lookup(bar.Symbol)
	if c == nil {
		d.logger.Warn("bar for unregistered symbol",
			zap.String("symbol", bar.Symbol))

		return
	}

	if err := c.OnBar(ctx, bar); err != nil {
		d.logger.Error("bar handling failed",
			zap.String("symbol", bar.Symbol),
			zap.Error(err))
	}
}

// DispatchOrderUpdate routes an order update to its symbol's controller.
func (d *Dispatcher) DispatchOrderUpdate(ctx context.Context, update types.OrderUpdate) {
	c := d.lookup(update.Symbol)
	if c == nil {
		d.logger.Warn("order update for unregistered symbol",
			zap.String("symbol", update.Symbol),
			zap.String("order_id", update.OrderID))

		return
	}

	if err := c.OnOrderUpdate(ctx, update); err != nil {
		d.logger.Error("order update handling failed",
			zap.String("symbol", update.Symbol),
			zap.String("order_id", update.OrderID),
			zap.Error(err))
	}
}

// RunReconciliationTick fetches the account's positions once and reconciles
// every controller against them. One broker call serves the whole fleet.
func (d *Dispatcher) RunReconciliationTick(ctx context.Context) {
	positions, err := d.gateway.ListPositions(ctx)
	if err != nil {
		d.logger.Error("position query failed, skipping reconciliation",
			zap.Error(err))

		return
	}

	bySymbol := make(map[string]types.Position, len(positions))
	for _, pos := range positions {
		bySymbol[pos.Symbol] = pos
	}

	d.mu.RLock()
	controllers := make([]*controller.SymbolController, 0, len(d.controllers))
	for _, c := range d.controllers {
		controllers = append(controllers, c)
	}
	d.mu.RUnlock()

	for _, c := range controllers {
		position := optional.None[types.Position]()
		if pos, ok := bySymbol[c.Symbol()]; ok {
			position = optional.Some(pos)
		}

		if err := c.Reconcile(ctx, position); err != nil {
			d.logger.Error("reconciliation failed",
				zap.String("symbol", c.Symbol()),
				zap.Error(err))
		}
	}
}

// BarStreamFunc opens a bar stream bound to the given context.
type BarStreamFunc func(ctx context.Context) iter.Seq2[types.Bar, error]

// UpdateStreamFunc opens an order update stream bound to the given context.
type UpdateStreamFunc func(ctx context.Context) iter.Seq2[types.OrderUpdate, error]

// Run consumes the bar and order update streams and fires reconciliation on
// the given interval until ctx is canceled or the bar stream ends. Streams
// are opened against a derived context so ending one feed winds down the
// others. Stream errors are logged and consumption continues; the streams
// themselves decide when to give up by ending the sequence.
func (d *Dispatcher) Run(ctx context.Context, bars BarStreamFunc, updates UpdateStreamFunc, reconcileInterval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		// The fleet cannot trade without bars; stop everything when the
		// feed ends
		defer cancel()

		for bar, err := range bars(ctx) {
			if err != nil {
				d.logger.Error("bar stream error", zap.Error(err))

				continue
			}

			d.DispatchBar(ctx, bar)
		}
	}()

	if updates != nil {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for update, err := range updates(ctx) {
				if err != nil {
					d.logger.Error("order update stream error", zap.Error(err))

					continue
				}

				d.DispatchOrderUpdate(ctx, update)
			}
		}()
	}

	if reconcileInterval > 0 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ticker := time.NewTicker(reconcileInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					d.RunReconciliationTick(ctx)
				}
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
}

func (d *Dispatcher) lookup(symbol string) *controller.SymbolController {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.controllers[symbol]
}
