package fund

// Report summarizes performance since startup. CurrentValue is the last
// received net liquidation, so it reads zero until the first account update.
type Report struct {
	InitialCash      float64 `json:"initial_cash"`
	CurrentValue     float64 `json:"current_value"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	TotalTrades      int     `json:"total_trades"`
	CurrentPositions int     `json:"current_positions"`
	CashBalance      float64 `json:"cash_balance"`
}

func (f *Fund) PerformanceReport() Report {
	account := f.broker.Account()
	initial := f.cfg.Trading.InitialCash

	returnPct := 0.0
	if initial > 0 {
		returnPct = (account.NetLiquidation - initial) / initial * 100
	}

	return Report{
		InitialCash:      initial,
		CurrentValue:     account.NetLiquidation,
		TotalReturnPct:   returnPct,
		TotalTrades:      f.executor.TradeCount(),
		CurrentPositions: len(f.broker.PositionSnapshot()),
		CashBalance:      account.Cash,
	}
}
