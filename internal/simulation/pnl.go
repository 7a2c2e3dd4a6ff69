package simulation

// Dollars holds the dollar P&L of a simulated trade.
type Dollars struct {
	Shares        float64
	DollarPnL     float64 // on the leveraged exposure
	BaseDollarPnL float64 // on position size alone
}

// Price converts a price result into dollars for a position size.
// applyLeverage multiplies the position size by leverage; callers whose size
// already embeds leverage (compounding mode) must pass false.
func Price(r Result, positionSize, leverage float64, applyLeverage bool) Dollars {
	if !r.Entered || r.EntryPrice <= 0 {
		return Dollars{}
	}

	exposure := positionSize
	if applyLeverage {
		exposure = positionSize * leverage
	}
	shares := exposure / r.EntryPrice

	return Dollars{
		Shares:        shares,
		DollarPnL:     shares * r.PriceMove,
		BaseDollarPnL: positionSize / r.EntryPrice * r.PriceMove,
	}
}
