package provider

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/pkg/marketdata/writer"
)

// ReplayClient streams recorded bars from a replay server over a websocket.
// It exists for end-to-end testing: the trader runs unmodified against a fake
// market that replays historical sessions on an accelerated clock.
type ReplayClient struct {
	endpoint string
}

func NewReplayClient(endpoint string) (Provider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid replay endpoint: %w", err)
	}

	return &ReplayClient{
		endpoint: endpoint,
	}, nil
}

// ConfigWriter is a no-op; the replay server already holds recorded data.
func (c *ReplayClient) ConfigWriter(_ writer.BarWriter) {}

// Download is not supported for the replay provider.
func (c *ReplayClient) Download(_ context.Context, _ string, _ time.Time, _ time.Time, _ int, _ models.Timespan, _ OnDownloadProgress) (string, error) {
	return "", fmt.Errorf("replay provider does not support downloads")
}

// Stream connects to the replay server and yields bars until the replay ends
// or ctx is canceled. The server closes the connection when the recorded
// session is exhausted, which ends the sequence without error.
func (c *ReplayClient) Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		empty := types.Bar{} //nolint:exhaustruct // zero value yielded with errors

		streamURL := fmt.Sprintf("%s/v1/stream?symbols=%s&interval=%s",
			strings.TrimRight(c.endpoint, "/"),
			url.QueryEscape(strings.Join(symbols, ",")),
			url.QueryEscape(interval))

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
		if err != nil {
			yield(empty, fmt.Errorf("failed to connect to replay server: %w", err))

			return
		}

		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		// Unblock the read loop when the consumer goes away
		stop := context.AfterFunc(ctx, func() {
			_ = conn.Close()
		})
		defer stop()
		defer conn.Close()

		for {
			var bar types.Bar
			if err := conn.ReadJSON(&bar); err != nil {
				if ctx.Err() != nil {
					return
				}

				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					// Replay finished
					return
				}

				yield(empty, fmt.Errorf("replay stream error: %w", err))

				return
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}
