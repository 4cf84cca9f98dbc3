package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-fleet/internal/history"
	"github.com/rxtech-lab/argo-fleet/pkg/marketdata/provider"
)

// downloadAction downloads historical bars for a ticker into the DuckDB bar
// archive the trader warms up from.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	ticker := cmd.String("ticker")
	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")
	providerFlag := cmd.String("provider")
	dataPath := cmd.String("data")

	var providerConfig any
	if provider.ProviderType(providerFlag) == provider.ProviderPolygon {
		providerConfig = os.Getenv("POLYGON_API_KEY")
	}

	client, err := provider.NewMarketDataProvider(provider.ProviderType(providerFlag), providerConfig)
	if err != nil {
		return fmt.Errorf("failed to create market data provider: %w", err)
	}

	// The provider initializes and finalizes the writer around the download
	store := history.NewStore(dataPath)
	defer store.Close()

	client.ConfigWriter(store)

	log.Printf("Downloading %s from %s to %s via %s...",
		ticker, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"), providerFlag)

	path, err := client.Download(ctx, ticker, startDate, endDate, 1, models.Minute, nil)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	log.Printf("Download complete: %s", path)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical market data into the bar archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "Ticker symbol to download",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:     "end",
				Aliases:  []string{"e"},
				Usage:    "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:    time.Now(),
				Required: false,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:     "provider",
				Aliases:  []string{"p"},
				Usage:    fmt.Sprintf("Data provider to use (%s or %s)", provider.ProviderPolygon, provider.ProviderBinance),
				Value:    string(provider.ProviderBinance),
				Required: false,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the DuckDB bar archive",
				Value:    "data/bars.duckdb",
				Required: false,
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
