package alphasecapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// MarketService covers the public market data endpoints under /api/v1/market.
type MarketService struct {
	client *RestClient
}

func (s *MarketService) Markets(ctx context.Context) ([]Market, error) {
	var markets []Market
	if err := s.client.get(ctx, "/api/v1/market", nil, &markets); err != nil {
		return nil, err
	}

	return markets, nil
}

func (s *MarketService) Tokens(ctx context.Context) ([]Token, error) {
	var tokens []Token
	if err := s.client.get(ctx, "/api/v1/market/tokens", nil, &tokens); err != nil {
		return nil, err
	}

	return tokens, nil
}

func (s *MarketService) Tickers(ctx context.Context) ([]Ticker, error) {
	var tickers []Ticker
	if err := s.client.get(ctx, "/api/v1/market/ticker", nil, &tickers); err != nil {
		return nil, err
	}

	return tickers, nil
}

// Ticker returns the ticker of a single market id.
func (s *MarketService) Ticker(ctx context.Context, marketID string) (*Ticker, error) {
	params := url.Values{}
	params.Set("marketId", marketID)

	var tickers []Ticker
	if err := s.client.get(ctx, "/api/v1/market/ticker", params, &tickers); err != nil {
		return nil, err
	}

	for i := range tickers {
		if tickers[i].MarketID == marketID {
			return &tickers[i], nil
		}
	}

	return nil, errors.Errorf("ticker not found for market: %s", marketID)
}

// Depth returns the orderbook of a market id. limit 0 means the server
// default depth.
func (s *MarketService) Depth(ctx context.Context, marketID string, limit uint32) (*Depth, error) {
	params := url.Values{}
	params.Set("marketId", marketID)
	if limit > 0 {
		params.Set("limit", strconv.FormatUint(uint64(limit), 10))
	}

	var depth Depth
	if err := s.client.get(ctx, "/api/v1/market/depth", params, &depth); err != nil {
		return nil, err
	}

	return &depth, nil
}

// Trades returns recent trades of a market id, newest first.
// limit 0 means the server default of 100.
func (s *MarketService) Trades(ctx context.Context, marketID string, limit uint32) ([]Trade, error) {
	if limit == 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("marketId", marketID)
	params.Set("limit", strconv.FormatUint(uint64(limit), 10))

	var trades []Trade
	if err := s.client.get(ctx, "/api/v1/market/trades", params, &trades); err != nil {
		return nil, err
	}

	return trades, nil
}
