package provider

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/pkg/marketdata/writer"
)

// binanceKlinePageSize is the maximum number of klines Binance returns per request.
const binanceKlinePageSize = 500

type BinanceClient struct {
	client *binance.Client
	writer writer.BarWriter
}

func NewBinanceClient() (Provider, error) {
	client := binance.NewClient("", "")

	return &BinanceClient{
		client: client,
		writer: nil,
	}, nil
}

func (c *BinanceClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download downloads historical klines for the given ticker and date range from
// Binance and writes them through the configured writer. Pagination follows the
// close time of the last kline per page to avoid duplicates.
func (c *BinanceClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error) {
	interval, err := convertTimespanToBinanceInterval(timespan, multiplier)
	if err != nil {
		return "", fmt.Errorf("failed to convert timespan to Binance interval: %w", err)
	}

	if c.writer == nil {
		return "", fmt.Errorf("writer is not configured")
	}

	if err := c.writer.Initialize(); err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	// Binance API uses milliseconds for timestamps
	startTimeMillis := startDate.UnixMilli()
	endTimeMillis := endDate.UnixMilli()
	currentStartTime := startTimeMillis

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(ticker).
			Interval(interval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Do(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to fetch klines from Binance: %w", err)
		}

		if onProgress != nil {
			onProgress(float64(currentStartTime-startTimeMillis), float64(endTimeMillis-startTimeMillis),
				fmt.Sprintf("Downloading %s klines from Binance", ticker))
		}

		if err := c.processKlines(ticker, klines); err != nil {
			return "", fmt.Errorf("failed to process klines: %w", err)
		}

		// Last page
		if len(klines) < binanceKlinePageSize {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		lastKline := klines[len(klines)-1]
		currentStartTime = lastKline.CloseTime + 1

		if currentStartTime >= endTimeMillis {
			break
		}
	}

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}

// Stream yields final klines for the given symbols over a combined websocket
// connection. In-progress kline updates are skipped; one bar is emitted per
// closed interval.
func (c *BinanceClient) Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		empty := types.Bar{} //nolint:exhaustruct // zero value yielded with errors

		pairs := make(map[string]string, len(symbols))
		for _, symbol := range symbols {
			pairs[symbol] = interval
		}

		done := make(chan struct{})
		defer close(done)

		bars := make(chan types.Bar, 64)
		wsErrs := make(chan error, 1)

		wsHandler := func(event *binance.WsKlineEvent) {
			if !event.Kline.IsFinal {
				return
			}

			bar, err := convertWsKline(event.Symbol, &event.Kline)
			if err != nil {
				return
			}

			select {
			case bars <- bar:
			case <-done:
			}
		}

		errHandler := func(err error) {
			select {
			case wsErrs <- err:
			default:
			}
		}

		doneC, stopC, err := binance.WsCombinedKlineServe(pairs, wsHandler, errHandler)
		if err != nil {
			yield(empty, fmt.Errorf("failed to connect Binance kline stream: %w", err))

			return
		}
		defer close(stopC)

		for {
			select {
			case <-ctx.Done():
				return
			case <-doneC:
				yield(empty, fmt.Errorf("binance kline stream closed"))

				return
			case err := <-wsErrs:
				if !yield(empty, fmt.Errorf("binance kline stream error: %w", err)) {
					return
				}
			case bar := <-bars:
				if !yield(bar, nil) {
					return
				}
			}
		}
	}
}

// processKlines converts Binance kline data to bars and writes them.
func (c *BinanceClient) processKlines(ticker string, klines []*binance.Kline) error {
	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		bar := types.Bar{
			Symbol: ticker,
			Time:   time.UnixMilli(k.OpenTime), // bar start time
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		}

		if err := c.writer.Write(bar); err != nil {
			return fmt.Errorf("failed to write bar: %w", err)
		}
	}

	return nil
}

// convertWsKline converts a websocket kline payload to a bar.
func convertWsKline(symbol string, k *binance.WsKline) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, fmt.Errorf("invalid open price: %w", err) //nolint:exhaustruct // zero value on error
	}

	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	closePrice, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	return types.Bar{
		Symbol: symbol,
		Time:   time.UnixMilli(k.StartTime),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

// convertTimespanToBinanceInterval converts the polygon timespan and multiplier to a Binance interval string.
// Binance intervals: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Minute:
		return fmt.Sprintf("%dm", multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", multiplier), nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", fmt.Errorf("unsupported weekly multiplier for Binance: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", fmt.Errorf("unsupported monthly multiplier for Binance: %d", multiplier)
	default:
		return "", fmt.Errorf("unsupported timespan for Binance: %s", timespan)
	}
}
