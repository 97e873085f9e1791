package types

import (
	"time"
)

// PriceBar represents one daily Open, High, Low, Close, Volume bar
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// NewPriceBar creates a new PriceBar instance
func NewPriceBar(ticker string, date time.Time, open, high, low, close, volume float64) PriceBar {
	return PriceBar{
		Ticker: ticker,
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
}

// GetPrice returns the closing price (commonly used price)
func (b PriceBar) GetPrice() float64 {
	return b.Close
}

// GetRange returns the price range (high - low)
func (b PriceBar) GetRange() float64 {
	return b.High - b.Low
}

// IsBullish returns true if close > open
func (b PriceBar) IsBullish() bool {
	return b.Close > b.Open
}

// IsBearish returns true if close < open
func (b PriceBar) IsBearish() bool {
	return b.Close < b.Open
}

// Closes extracts the close series from an ordered sequence of bars
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}
