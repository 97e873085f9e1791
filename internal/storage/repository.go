package storage

import (
	"errors"

	"rankback/internal/types"

	"gorm.io/gorm"
)

// RunRepository persists backtest runs and their trades
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun stores a run summary and its trades in one transaction
func (r *RunRepository) SaveRun(dataset, mode string, lookbackDays int, threshold float64, result types.BacktestResult) (*Run, error) {
	run := &Run{
		Dataset:      dataset,
		Mode:         mode,
		LookbackDays: lookbackDays,
		Threshold:    threshold,
		TotalTrades:  result.TotalTrades,
		WinRate:      result.WinRate,
		AvgReturn:    result.AvgReturn,
		SharpeRatio:  result.SharpeRatio,
		ProfitFactor: result.ProfitFactor.String(),
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		for _, trade := range result.Trades {
			record := Trade{
				RunID:             run.ID,
				Ticker:            trade.Ticker,
				EntryDate:         trade.EntryDate,
				ExitDate:          trade.ExitDate,
				EntryPrice:        trade.EntryPrice,
				ExitPrice:         trade.ExitPrice,
				ReturnPct:         trade.ReturnPct,
				HoldDays:          trade.HoldDays,
				Tier:              trade.Tier.String(),
				Score:             trade.Score,
				TimingConvergence: trade.TimingConvergence,
				MaxDrawdownPct:    trade.MaxDrawdownPct,
				Win:               trade.Win,
				ExitedEarly:       trade.ExitedEarly,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RecentRuns retrieves the most recent run summaries
func (r *RunRepository) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := r.db.Order("created_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}

// TradesForRun retrieves all trades belonging to a run
func (r *RunRepository) TradesForRun(runID uint) ([]Trade, error) {
	if runID == 0 {
		return nil, errors.New("invalid run id")
	}
	var trades []Trade
	err := r.db.Where("run_id = ?", runID).Order("exit_date asc").Find(&trades).Error
	return trades, err
}
