package provider

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type StreamConfigTestSuite struct {
	suite.Suite
}

func TestStreamConfigSuite(t *testing.T) {
	suite.Run(t, new(StreamConfigTestSuite))
}

func (s *StreamConfigTestSuite) TestParseBinanceStreamConfig() {
	config, err := ParseBinanceStreamConfig(`{"symbols":["BTCUSDT"],"interval":"1m"}`)
	s.Require().NoError(err)
	s.Equal([]string{"BTCUSDT"}, config.Symbols)
	s.Equal("1m", config.Interval)
}

func (s *StreamConfigTestSuite) TestParseBinanceStreamConfigMissingSymbols() {
	_, err := ParseBinanceStreamConfig(`{"symbols":[],"interval":"1m"}`)
	s.Require().Error(err)
}

func (s *StreamConfigTestSuite) TestParseBinanceStreamConfigBadInterval() {
	_, err := ParseBinanceStreamConfig(`{"symbols":["BTCUSDT"],"interval":"2m"}`)
	s.Require().Error(err)
}

func (s *StreamConfigTestSuite) TestParsePolygonStreamConfig() {
	config, err := ParsePolygonStreamConfig(`{"symbols":["AAPL"],"interval":"1m","apiKey":"key"}`)
	s.Require().NoError(err)
	s.Equal("key", config.ApiKey)
}

func (s *StreamConfigTestSuite) TestParsePolygonStreamConfigMissingKey() {
	_, err := ParsePolygonStreamConfig(`{"symbols":["AAPL"],"interval":"1m"}`)
	s.Require().Error(err)
}

func (s *StreamConfigTestSuite) TestParseReplayStreamConfig() {
	config, err := ParseReplayStreamConfig(`{"symbols":["AAPL"],"interval":"1m","endpoint":"ws://localhost:8080"}`)
	s.Require().NoError(err)
	s.Equal("ws://localhost:8080", config.Endpoint)
}

func (s *StreamConfigTestSuite) TestParseReplayStreamConfigMissingEndpoint() {
	_, err := ParseReplayStreamConfig(`{"symbols":["AAPL"],"interval":"1m"}`)
	s.Require().Error(err)
}

func (s *StreamConfigTestSuite) TestGetStreamConfigSchema() {
	for _, name := range []string{"polygon", "binance", "replay"} {
		schema, err := GetStreamConfigSchema(name)
		s.Require().NoError(err, name)
		s.Contains(schema, "symbols")
	}

	_, err := GetStreamConfigSchema("alpaca")
	s.Require().Error(err)
}

func (s *StreamConfigTestSuite) TestGetStreamKeychainFields() {
	fields, err := GetStreamKeychainFields("polygon")
	s.Require().NoError(err)
	s.Equal([]string{"apiKey"}, fields)

	fields, err = GetStreamKeychainFields("binance")
	s.Require().NoError(err)
	s.Empty(fields)
}

func (s *StreamConfigTestSuite) TestParseStreamConfig() {
	parsed, err := ParseStreamConfig("binance", `{"symbols":["BTCUSDT"],"interval":"1m"}`)
	s.Require().NoError(err)
	s.IsType(&BinanceStreamConfig{}, parsed)

	_, err = ParseStreamConfig("alpaca", `{}`)
	s.Require().Error(err)
}
