package gateway

import (
	"context"
	"iter"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/pkg/errors"
)

// listenKeyKeepaliveInterval is how often the user data stream listen key is
// refreshed. Binance expires unrefreshed keys after 60 minutes.
const listenKeyKeepaliveInterval = 30 * time.Minute

// StreamOrderUpdates opens a Binance user data stream and yields execution
// reports as order updates. The sequence ends when ctx is canceled or the
// websocket closes; a dropped connection surfaces as a yielded error so the
// caller can decide whether to reconnect. Updates missed while disconnected
// are recovered by the periodic reconciliation pass, not by this stream.
func (b *BinanceGateway) StreamOrderUpdates(ctx context.Context) iter.Seq2[types.OrderUpdate, error] {
	return func(yield func(types.OrderUpdate, error) bool) {
		empty := types.OrderUpdate{} //nolint:exhaustruct // zero value yielded with errors

		listenKey, err := b.client.NewStartUserStreamService().Do(ctx)
		if err != nil {
			yield(empty, errors.Wrap(errors.ErrCodeListenKey, "failed to start Binance user data stream", err))

			return
		}

		done := make(chan struct{})
		defer close(done)

		updates := make(chan types.OrderUpdate, 64)
		wsErrs := make(chan error, 1)

		wsHandler := func(event *binance.WsUserDataEvent) {
			if event.Event != binance.UserDataEventTypeExecutionReport {
				return
			}

			update, ok := convertExecutionReport(&event.OrderUpdate)
			if !ok {
				return
			}

			select {
			case updates <- update:
			case <-done:
			}
		}

		errHandler := func(err error) {
			select {
			case wsErrs <- err:
			default:
			}
		}

		doneC, stopC, err := binance.WsUserDataServe(listenKey, wsHandler, errHandler)
		if err != nil {
			yield(empty, errors.Wrap(errors.ErrCodeStreamConnect, "failed to connect Binance user data stream", err))

			return
		}
		defer close(stopC)

		keepalive := time.NewTicker(listenKeyKeepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-doneC:
				yield(empty, errors.New(errors.ErrCodeStreamClosed, "Binance user data stream closed"))

				return
			case err := <-wsErrs:
				if !yield(empty, errors.Wrap(errors.ErrCodeStreamClosed, "Binance user data stream error", err)) {
					return
				}
			case <-keepalive.C:
				if err := b.client.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(ctx); err != nil {
					if !yield(empty, errors.Wrap(errors.ErrCodeListenKey, "failed to keep Binance listen key alive", err)) {
						return
					}
				}
			case update := <-updates:
				if !yield(update, nil) {
					return
				}
			}
		}
	}
}

// convertExecutionReport maps a Binance execution report to an order update.
// Execution types outside the order lifecycle (e.g. replaces) are skipped.
func convertExecutionReport(report *binance.WsOrderUpdate) (types.OrderUpdate, bool) {
	empty := types.OrderUpdate{} //nolint:exhaustruct // zero value on skipped reports

	var kind types.OrderUpdateKind

	switch report.ExecutionType {
	case "NEW":
		kind = types.OrderUpdateKindNew
	case "TRADE":
		if binance.OrderStatusType(report.Status) == binance.OrderStatusTypeFilled {
			kind = types.OrderUpdateKindFill
		} else {
			kind = types.OrderUpdateKindPartialFill
		}
	case "CANCELED", "EXPIRED":
		kind = types.OrderUpdateKindCanceled
	case "REJECTED":
		kind = types.OrderUpdateKindRejected
	default:
		return empty, false
	}

	quantity, _ := strconv.ParseFloat(report.Volume, 64)
	filled, _ := strconv.ParseFloat(report.FilledVolume, 64)
	price, _ := strconv.ParseFloat(report.Price, 64)
	orderID := strconv.FormatInt(report.Id, 10)

	return types.OrderUpdate{
		Kind:    kind,
		OrderID: orderID,
		Symbol:  report.Symbol,
		Order: types.Order{
			OrderID:        orderID,
			Symbol:         report.Symbol,
			Side:           mapBinanceSide(binance.SideType(report.Side)),
			Quantity:       quantity,
			FilledQuantity: filled,
			Price:          price,
			Status:         mapBinanceOrderStatus(binance.OrderStatusType(report.Status)),
			Timestamp:      time.UnixMilli(report.TransactionTime),
		},
	}, true
}

// Ensure BinanceGateway implements OrderUpdateSource.
var _ OrderUpdateSource = (*BinanceGateway)(nil)
