package pricedata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"rankback/internal/types"

	"github.com/adshao/go-binance/v2"
)

// BinanceSource queries daily klines from the Binance REST API. Used for
// crypto datasets; ticker symbols are passed through as-is (e.g. BTCUSDT).
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource creates a Binance-backed market data source. Credentials
// may be empty for public kline endpoints.
func NewBinanceSource(apiKey, secretKey string) *BinanceSource {
	return &BinanceSource{
		client: binance.NewClient(apiKey, secretKey),
	}
}

// Query fetches daily klines for the ticker within [start, end]
func (s *BinanceSource) Query(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(ticker).
		Interval("1d").
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines for %s: %w", ticker, err)
	}

	bars := make([]types.PriceBar, 0, len(klines))
	for _, k := range klines {
		bar, err := parseKline(ticker, k)
		if err != nil {
			return nil, fmt.Errorf("binance kline for %s: %w", ticker, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseKline converts one Binance kline into a price bar
func parseKline(ticker string, k *binance.Kline) (types.PriceBar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid open price: %s", k.Open)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid high price: %s", k.High)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid low price: %s", k.Low)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid close price: %s", k.Close)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid volume: %s", k.Volume)
	}

	return types.NewPriceBar(ticker, time.UnixMilli(k.OpenTime).UTC(), open, high, low, closePrice, volume), nil
}
