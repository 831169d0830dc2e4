package trader

import (
	"github.com/shopspring/decimal"

	"tradehub/internal/models"
)

// Controller is the surface the web layer drives trades and strategies
// through. Mutations that target an id report the affected symbol or
// strategy name and whether the id was known; unknown ids are a plain
// negative result, not an error.
type Controller interface {
	Trades() []models.TradeOpen
	Strategies() []models.Strategy
	PublicStrategies() []models.PublicStrategy
	VirtualBalances() map[models.WalletType]map[string]decimal.Decimal

	SetTradeStopped(id string, stopped bool) (string, bool)
	SetTradeHODL(id string, hodl bool) (string, bool)
	CloseTrade(id string) (string, bool)
	DeleteTrade(id string) (string, bool)
	SetStrategyStopped(id string, stopped bool) (string, bool)
	SetVirtualWalletFunds(amount decimal.Decimal) error
	ResetVirtualBalances()
	TopUpBNBFloat(wallet models.WalletType, asset string) (string, error)
}

// Emitter reports executed signals back upstream.
type Emitter interface {
	EmitSignalTraded(symbol, strategyID, strategyName string, quantity decimal.Decimal, tradingType models.TradingType) error
}
