package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradingType distinguishes real money trading from virtual (simulated) trading.
type TradingType string

const (
	TradingTypeReal    TradingType = "real"
	TradingTypeVirtual TradingType = "virtual"
)

// PositionType is the directional exposure of a trade.
type PositionType string

const (
	PositionLong  PositionType = "LONG"
	PositionShort PositionType = "SHORT"
)

// ActionType is the kind of operation a transaction records. Only buys and
// sells participate in trade summaries; loan and repay actions come from
// margin wallet management.
type ActionType string

const (
	ActionBuy   ActionType = "BUY"
	ActionSell  ActionType = "SELL"
	ActionLoan  ActionType = "LOAN"
	ActionRepay ActionType = "REPAY"
)

// SourceType records what triggered a transaction.
type SourceType string

const (
	SourceSignal    SourceType = "SIGNAL"
	SourceManual    SourceType = "MANUAL"
	SourceRebalance SourceType = "REBALANCE"
)

// WalletType identifies which exchange wallet funds move through.
type WalletType string

const (
	WalletSpot   WalletType = "spot"
	WalletMargin WalletType = "margin"
)

// Wallets lists all wallet types in display order.
func Wallets() []WalletType {
	return []WalletType{WalletSpot, WalletMargin}
}

// BalanceSnapshot is one day of opening and closing balances for a
// (trading type, coin) pair. Snapshots are append only; once recorded they
// are filtered and aggregated but never mutated.
type BalanceSnapshot struct {
	Date          time.Time
	OpenBalance   decimal.Decimal
	CloseBalance  decimal.Decimal
	EstimatedFees *decimal.Decimal // nil when no fee estimate was recorded
}

// Transaction is a single historical operation as persisted by the store.
// The store returns transactions in descending timestamp order.
type Transaction struct {
	ID           string
	Timestamp    time.Time
	Action       ActionType
	PositionType PositionType
	Source       SourceType
	// SymbolAsset is "BASE/QUOTE" for buy and sell transactions and a bare
	// asset name for wallet actions such as loans.
	SymbolAsset  string
	StrategyID   string
	StrategyName string
	TradingType  TradingType
	Value        *decimal.Decimal
	ProfitLoss   *decimal.Decimal
}

// QuoteAsset returns the quote component of SymbolAsset, or an empty string
// when the transaction does not reference a symbol pair.
func (t Transaction) QuoteAsset() string {
	if i := strings.Index(t.SymbolAsset, "/"); i >= 0 {
		return t.SymbolAsset[i+1:]
	}
	return ""
}

// TradeOpen is a currently open trade as tracked by the trading engine.
type TradeOpen struct {
	ID           string
	Symbol       string
	StrategyID   string
	StrategyName string
	PositionType PositionType
	TradingType  TradingType
	Quantity     decimal.Decimal
	Cost         decimal.Decimal
	BuyPrice     *decimal.Decimal
	SellPrice    *decimal.Decimal
	Wallet       WalletType
	Timestamp    time.Time
	IsStopped    bool
	IsHodl       bool
}

// NewTradeOpen assigns a fresh identifier to a trade. All remaining fields
// are filled in by the trading engine.
func NewTradeOpen(symbol, strategyID, strategyName string, position PositionType, tradingType TradingType) TradeOpen {
	return TradeOpen{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		StrategyID:   strategyID,
		StrategyName: strategyName,
		PositionType: position,
		TradingType:  tradingType,
		Timestamp:    time.Now(),
	}
}

// Strategy is a signal strategy the user is subscribed to.
type Strategy struct {
	ID           string
	Name         string
	TradingType  TradingType
	TradeAmount  decimal.Decimal
	IsActive     bool
	IsStopped    bool
	LossTradeRun int
}

// PublicStrategy is the read-only view of a strategy published on the hub.
// Unlike Strategy it carries no user state, so it exposes no start or stop
// toggles.
type PublicStrategy struct {
	ID   string
	Name string
}
