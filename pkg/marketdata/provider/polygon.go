package provider

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	polygonws "github.com/polygon-io/client-go/websocket"
	wsmodels "github.com/polygon-io/client-go/websocket/models"
	"github.com/schollz/progressbar/v3"

	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/pkg/marketdata/writer"
)

type PolygonClient struct {
	client *polygon.Client
	apiKey string
	writer writer.BarWriter
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	client := polygon.New(apiKey)

	return &PolygonClient{
		client: client,
		apiKey: apiKey,
		writer: nil,
	}, nil
}

func (c *PolygonClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download downloads aggregates for the given ticker and date range from
// Polygon and writes them through the configured writer.
func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, multiplier int, timespan models.Timespan, onProgress OnDownloadProgress) (path string, err error) {
	if c.writer == nil {
		return "", fmt.Errorf("no writer configured for PolygonClient. Call ConfigWriter first")
	}

	err = c.writer.Initialize()
	if err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	defer func() {
		if cerr := c.writer.Close(); cerr != nil {
			if err == nil {
				err = fmt.Errorf("error closing writer: %w", cerr)
			} else {
				log.Printf("Error closing writer after another error: %v", cerr)
			}
		}
	}()

	totalIterations := int(endDate.Sub(startDate).Hours()/24) + 1

	bar := progressbar.NewOptions(totalIterations, progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", ticker)), progressbar.OptionShowCount())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)

	processedCount := 0

	for iter.Next() {
		agg := iter.Item()

		if onProgress != nil {
			onProgress(float64(processedCount), float64(totalIterations), fmt.Sprintf("Downloading %s", ticker))
		}

		data := types.Bar{
			Symbol: ticker,
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		err = c.writer.Write(data)
		if err != nil {
			return "", fmt.Errorf("failed to write data: %w", err)
		}

		processedCount++
		if processedCount%1000 == 0 {
			currentTime := time.Time(agg.Timestamp)
			daysElapsed := int(currentTime.Sub(startDate).Hours() / 24)
			bar.Set(daysElapsed)
		}
	}

	if iter.Err() != nil {
		return "", fmt.Errorf("error iterating polygon aggregates: %w", iter.Err())
	}

	bar.Finish()
	log.Printf("Finished downloading %d data points for %s.", processedCount, ticker)

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}

// Stream yields minute aggregates for the given symbols from the Polygon
// websocket feed. Polygon publishes minute aggregates only, so any other
// interval is rejected.
func (c *PolygonClient) Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		empty := types.Bar{} //nolint:exhaustruct // zero value yielded with errors

		if interval != "1m" {
			yield(empty, fmt.Errorf("polygon streaming supports 1m interval only, got %s", interval))

			return
		}

		//nolint:exhaustruct // third-party struct with many optional fields
		conn, err := polygonws.New(polygonws.Config{
			APIKey: c.apiKey,
			Feed:   polygonws.RealTime,
			Market: polygonws.Stocks,
		})
		if err != nil {
			yield(empty, fmt.Errorf("failed to create polygon websocket client: %w", err))

			return
		}
		defer conn.Close()

		if err := conn.Connect(); err != nil {
			yield(empty, fmt.Errorf("failed to connect polygon websocket: %w", err))

			return
		}

		if err := conn.Subscribe(polygonws.StocksMinAggs, symbols...); err != nil {
			yield(empty, fmt.Errorf("failed to subscribe to minute aggregates: %w", err))

			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-conn.Error():
				if !yield(empty, fmt.Errorf("polygon websocket error: %w", err)) {
					return
				}
			case out, more := <-conn.Output():
				if !more {
					yield(empty, fmt.Errorf("polygon websocket closed"))

					return
				}

				agg, ok := out.(wsmodels.EquityAgg)
				if !ok {
					continue
				}

				data := types.Bar{
					Symbol: agg.Symbol,
					Time:   time.UnixMilli(agg.StartTimestamp),
					Open:   agg.Open,
					High:   agg.High,
					Low:    agg.Low,
					Close:  agg.Close,
					Volume: agg.Volume,
				}

				if !yield(data, nil) {
					return
				}
			}
		}
	}
}
