// Package mockserver hosts a fake market for end-to-end tests. It replays a
// recorded bar session over the same websocket protocol the replay market
// data provider speaks, on an accelerated clock.
package mockserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-fleet/internal/logger"
	"github.com/rxtech-lab/argo-fleet/internal/types"
)

// Server replays recorded bars to websocket clients. Each connection gets the
// full session from the start, filtered to the symbols it asked for.
type Server struct {
	router *mux.Router
	// bars is the recorded session in chronological order.
	bars []types.Bar
	// delay is the playback pause between consecutive bars.
	delay    time.Duration
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a replay server for the given session. Bars are sorted by
// time once at construction.
func NewServer(bars []types.Bar, delay time.Duration, log *logger.Logger) *Server {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	s := &Server{
		router:   mux.NewRouter(),
		bars:     sorted,
		delay:    delay,
		logger:   log,
		upgrader: websocket.Upgrader{}, //nolint:exhaustruct // defaults are fine for a test server
	}

	s.router.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/symbols", s.handleSymbols).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleStream upgrades the connection and replays the session. An empty
// symbols parameter replays everything.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	wanted := parseSymbols(r.URL.Query().Get("symbols"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))

		return
	}
	defer conn.Close()

	ctx := r.Context()

	sent := 0

	for _, bar := range s.bars {
		if len(wanted) > 0 && !wanted[bar.Symbol] {
			continue
		}

		if s.delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.delay):
			}
		}

		if err := conn.WriteJSON(bar); err != nil {
			s.logger.Warn("replay write failed", zap.Error(err))

			return
		}

		sent++
	}

	s.logger.Info("replay finished",
		zap.Int("bars", sent),
		zap.String("remote", r.RemoteAddr))

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay finished"))
}

// handleSymbols lists the distinct symbols in the recorded session.
func (s *Server) handleSymbols(w http.ResponseWriter, _ *http.Request) {
	seen := make(map[string]bool)
	symbols := make([]string, 0)

	for _, bar := range s.bars {
		if !seen[bar.Symbol] {
			seen[bar.Symbol] = true

			symbols = append(symbols, bar.Symbol)
		}
	}

	sort.Strings(symbols)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]string{"symbols": symbols})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func parseSymbols(raw string) map[string]bool {
	wanted := make(map[string]bool)

	for _, symbol := range strings.Split(raw, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol != "" {
			wanted[symbol] = true
		}
	}

	return wanted
}
