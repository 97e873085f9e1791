package storage

import (
	"time"
)

// Run is the persisted summary of one backtest run
type Run struct {
	ID           uint      `gorm:"primaryKey"`
	Dataset      string    `gorm:"index;not null"`
	Mode         string    `gorm:"not null"`
	LookbackDays int       `gorm:"not null"`
	Threshold    float64
	TotalTrades  int
	WinRate      float64
	AvgReturn    float64
	SharpeRatio  float64
	// ProfitFactor holds the serialized value, including the
	// "Infinity" sentinel when the run had no losing trades
	ProfitFactor string
	CreatedAt    time.Time `gorm:"index"`
}

// TableName sets the table name for the Run model
func (Run) TableName() string {
	return "runs"
}

// Trade is one persisted simulated trade belonging to a run
type Trade struct {
	ID                uint   `gorm:"primaryKey"`
	RunID             uint   `gorm:"index;not null"`
	Ticker            string `gorm:"index;not null"`
	EntryDate         time.Time
	ExitDate          time.Time
	EntryPrice        float64 `gorm:"type:decimal(20,8)"`
	ExitPrice         float64 `gorm:"type:decimal(20,8)"`
	ReturnPct         float64
	HoldDays          int
	Tier              string
	Score             float64
	TimingConvergence bool
	MaxDrawdownPct    float64
	Win               bool
	ExitedEarly       bool
}

// TableName sets the table name for the Trade model
func (Trade) TableName() string {
	return "trades"
}

// PriceSeries is one immutable cached price series, stored as a JSON
// payload under its (ticker, start, end) cache key
type PriceSeries struct {
	ID        uint   `gorm:"primaryKey"`
	CacheKey  string `gorm:"uniqueIndex;not null"`
	Ticker    string `gorm:"index;not null"`
	StartDate time.Time
	EndDate   time.Time
	Payload   []byte `gorm:"type:bytea"`
	CreatedAt time.Time
}

// TableName sets the table name for the PriceSeries model
func (PriceSeries) TableName() string {
	return "price_series"
}
