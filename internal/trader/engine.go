package trader

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradehub/internal/hub"
	"tradehub/internal/models"
	"tradehub/internal/notify"
	"tradehub/internal/store"
	"tradehub/logger"
)

// feeRate is the estimated exchange fee charged per fill, recorded into
// the balance history so the PnL view can add it back.
var feeRate = decimal.RequireFromString("0.001")

// Config for the paper trading engine.
type Config struct {
	// QuoteAsset denominates balances and trade amounts, e.g. USDT.
	QuoteAsset string
	// VirtualFunds is the funding level virtual wallets reset to.
	VirtualFunds decimal.Decimal
	// BNBFreeFloat enables fee-asset top ups when positive.
	BNBFreeFloat float64
	// MarginEnabled exposes the margin wallet.
	MarginEnabled bool
}

// Engine tracks open trades, strategies and wallet balances in memory
// and executes hub signals as paper fills against its own balances. It
// records every fill into the history store so the reporting pages have
// data to aggregate.
type Engine struct {
	cfg      Config
	store    store.Store
	log      *logger.Entry
	now      func() time.Time
	emitter  Emitter
	notifier notify.Notifier

	mu         sync.RWMutex
	trades     []*models.TradeOpen
	strategies []*models.Strategy
	public     map[string]models.PublicStrategy
	balances   map[models.TradingType]map[models.WalletType]map[string]decimal.Decimal
}

func NewEngine(cfg Config, st store.Store) *Engine {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	e := &Engine{
		cfg:    cfg,
		store:  st,
		log:    logger.GetLogger().WithComponent("trader"),
		now:    time.Now,
		public: map[string]models.PublicStrategy{},
		balances: map[models.TradingType]map[models.WalletType]map[string]decimal.Decimal{
			models.TradingTypeReal:    {},
			models.TradingTypeVirtual: {},
		},
	}
	e.resetVirtualLocked()
	return e
}

// SetEmitter wires the upstream notifier. Must be called before signals
// are handled; a nil emitter drops traded notifications.
func (e *Engine) SetEmitter(emitter Emitter) {
	e.mu.Lock()
	e.emitter = emitter
	e.mu.Unlock()
}

// SetNotifier wires user notifications for closed trades.
func (e *Engine) SetNotifier(n notify.Notifier) {
	e.mu.Lock()
	e.notifier = n
	e.mu.Unlock()
}

// Handlers returns the hub handler set bound to this engine.
func (e *Engine) Handlers() hub.Handlers {
	return hub.Handlers{
		UserPayload:       e.OnUserPayload,
		BuySignal:         e.OnBuySignal,
		SellSignal:        e.OnSellSignal,
		CloseTradedSignal: e.OnCloseTradedSignal,
		StopTradedSignal:  e.OnStopTradedSignal,
	}
}

// OnUserPayload replaces the strategy set with the hub's view of what
// this client follows, preserving local stop flags across updates.
func (e *Engine) OnUserPayload(strategies []hub.StrategyPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stopped := map[string]bool{}
	lossRuns := map[string]int{}
	for _, s := range e.strategies {
		stopped[s.ID] = s.IsStopped
		lossRuns[s.ID] = s.LossTradeRun
	}

	next := make([]*models.Strategy, 0, len(strategies))
	for _, p := range strategies {
		e.public[p.StrategyID] = models.PublicStrategy{ID: p.StrategyID, Name: p.StrategyName}
		tradingType := models.TradingTypeVirtual
		if p.TradingType == string(models.TradingTypeReal) {
			tradingType = models.TradingTypeReal
		}
		next = append(next, &models.Strategy{
			ID:           p.StrategyID,
			Name:         p.StrategyName,
			TradingType:  tradingType,
			TradeAmount:  decimal.NewFromFloat(p.BuyAmount),
			IsActive:     p.Trading,
			IsStopped:    stopped[p.StrategyID],
			LossTradeRun: lossRuns[p.StrategyID],
		})
	}
	e.strategies = next
	e.log.WithFields(logger.Fields{"strategies": len(next)}).Info("strategy payload applied")
	return nil
}

// OnBuySignal opens a long position for a new signal, or closes an open
// short for a repeat one.
func (e *Engine) OnBuySignal(signal hub.Signal, receivedAt time.Time) error {
	if signal.IsNew {
		return e.open(signal, models.PositionLong, models.ActionBuy, receivedAt)
	}
	return e.close(signal, models.PositionShort, models.ActionBuy, receivedAt, false)
}

// OnSellSignal opens a short for a new signal, or closes an open long.
func (e *Engine) OnSellSignal(signal hub.Signal, receivedAt time.Time) error {
	if signal.IsNew {
		return e.open(signal, models.PositionShort, models.ActionSell, receivedAt)
	}
	return e.close(signal, models.PositionLong, models.ActionSell, receivedAt, false)
}

// OnCloseTradedSignal force-closes the matching trade regardless of
// direction.
func (e *Engine) OnCloseTradedSignal(signal hub.Signal, receivedAt time.Time) error {
	if err := e.close(signal, models.PositionLong, models.ActionSell, receivedAt, true); err == nil {
		return nil
	}
	return e.close(signal, models.PositionShort, models.ActionBuy, receivedAt, true)
}

// OnStopTradedSignal discards the matching trade without trading.
func (e *Engine) OnStopTradedSignal(signal hub.Signal, _ time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, t := range e.trades {
		if t.StrategyID == signal.StrategyID && t.Symbol == signal.Symbol {
			e.trades = append(e.trades[:i], e.trades[i+1:]...)
			e.log.WithFields(logger.Fields{"trade": t.ID, "symbol": t.Symbol}).Info("trade stopped by hub")
			return nil
		}
	}
	return fmt.Errorf("no open trade for strategy %s on %s", signal.StrategyID, signal.Symbol)
}

func (e *Engine) open(signal hub.Signal, position models.PositionType, action models.ActionType, receivedAt time.Time) error {
	price, err := decimal.NewFromString(signal.Price)
	if err != nil {
		return fmt.Errorf("invalid signal price %q: %w", signal.Price, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	strategy := e.findStrategy(signal.StrategyID)
	if strategy == nil {
		return fmt.Errorf("signal for unknown strategy %s", signal.StrategyID)
	}
	if !strategy.IsActive || strategy.IsStopped {
		return fmt.Errorf("strategy %s is not trading", strategy.ID)
	}

	symbol := signal.Symbol
	trade := models.NewTradeOpen(symbol, strategy.ID, strategy.Name, position, strategy.TradingType)
	trade.Timestamp = receivedAt
	trade.Quantity = strategy.TradeAmount.Div(price)
	trade.Cost = strategy.TradeAmount
	trade.Wallet = models.WalletSpot
	if position == models.PositionLong {
		trade.BuyPrice = &price
	} else {
		trade.SellPrice = &price
	}
	e.trades = append(e.trades, &trade)

	e.fill(strategy, symbol, action, position, models.SourceSignal, strategy.TradeAmount, nil, receivedAt)
	e.emit(symbol, strategy, trade.Quantity)
	return nil
}

func (e *Engine) close(signal hub.Signal, position models.PositionType, action models.ActionType, receivedAt time.Time, force bool) error {
	price, err := decimal.NewFromString(signal.Price)
	if err != nil {
		return fmt.Errorf("invalid signal price %q: %w", signal.Price, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, t := range e.trades {
		if t.StrategyID != signal.StrategyID || t.Symbol != signal.Symbol || t.PositionType != position {
			continue
		}
		if t.IsStopped && !force {
			return fmt.Errorf("trade %s is stopped", t.ID)
		}
		if t.IsHodl && !e.profitable(t, price) {
			e.log.WithFields(logger.Fields{"trade": t.ID}).Info("holding trade through unprofitable close signal")
			return nil
		}

		strategy := e.findStrategy(t.StrategyID)
		value := t.Quantity.Mul(price)
		pnl := e.profit(t, price)
		e.trades = append(e.trades[:i], e.trades[i+1:]...)
		e.fill(strategy, t.Symbol, action, position, models.SourceSignal, value, &pnl, receivedAt)
		if strategy != nil {
			if pnl.IsNegative() {
				strategy.LossTradeRun++
			} else {
				strategy.LossTradeRun = 0
			}
			e.emit(t.Symbol, strategy, t.Quantity)
		}
		e.notifyClose(t, pnl)
		return nil
	}
	return fmt.Errorf("no open %s trade for strategy %s on %s", position, signal.StrategyID, signal.Symbol)
}

// notifyClose reports a closed trade to the user without blocking the
// signal path. Delivery failures are logged, not propagated.
func (e *Engine) notifyClose(t *models.TradeOpen, pnl decimal.Decimal) {
	if e.notifier == nil {
		return
	}
	msg := notify.Message{
		Subject: fmt.Sprintf("Closed %s %s trade", t.Symbol, t.PositionType),
		Content: fmt.Sprintf("Strategy %s closed its %s %s position for a profit/loss of %s.",
			t.StrategyName, t.Symbol, t.PositionType, pnl),
		ContentHTML: fmt.Sprintf("<p>Strategy <b>%s</b> closed its %s %s position for a profit/loss of <b>%s</b>.</p>",
			t.StrategyName, t.Symbol, t.PositionType, pnl),
	}
	notifier := e.notifier
	log := e.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := notifier.Notify(ctx, msg); err != nil {
			log.WithError(err).Warn("failed to send close notification")
		}
	}()
}

func (e *Engine) profitable(t *models.TradeOpen, price decimal.Decimal) bool {
	return !e.profit(t, price).IsNegative()
}

func (e *Engine) profit(t *models.TradeOpen, price decimal.Decimal) decimal.Decimal {
	entry := t.BuyPrice
	if t.PositionType == models.PositionShort {
		entry = t.SellPrice
	}
	if entry == nil {
		return decimal.Zero
	}
	diff := price.Sub(*entry)
	if t.PositionType == models.PositionShort {
		diff = diff.Neg()
	}
	return diff.Mul(t.Quantity)
}

// fill records the transaction and moves the quote balance, writing a
// balance snapshot so the PnL history tracks every fill.
func (e *Engine) fill(strategy *models.Strategy, symbol string, action models.ActionType, position models.PositionType, source models.SourceType, value decimal.Decimal, pnl *decimal.Decimal, at time.Time) {
	tradingType := models.TradingTypeVirtual
	strategyID, strategyName := "", ""
	if strategy != nil {
		tradingType = strategy.TradingType
		strategyID, strategyName = strategy.ID, strategy.Name
	}

	txn := models.Transaction{
		ID:           symbol + "-" + at.Format("20060102150405.000"),
		Timestamp:    at,
		Action:       action,
		PositionType: position,
		Source:       source,
		SymbolAsset:  symbolAsset(symbol, e.cfg.QuoteAsset),
		StrategyID:   strategyID,
		StrategyName: strategyName,
		TradingType:  tradingType,
		Value:        &value,
		ProfitLoss:   pnl,
	}
	e.store.RecordTransaction(txn)

	wallet := e.wallet(tradingType, models.WalletSpot)
	before := wallet[e.cfg.QuoteAsset]
	delta := value
	if action == models.ActionBuy {
		delta = delta.Neg()
	}
	if pnl != nil {
		delta = *pnl
	}
	fees := value.Mul(feeRate)
	after := before.Add(delta).Sub(fees)
	wallet[e.cfg.QuoteAsset] = after

	e.store.RecordBalance(store.BalanceKey{TradingType: tradingType, Asset: e.cfg.QuoteAsset}, models.BalanceSnapshot{
		Date:          at,
		OpenBalance:   before,
		CloseBalance:  after,
		EstimatedFees: &fees,
	})
}

func (e *Engine) emit(symbol string, strategy *models.Strategy, quantity decimal.Decimal) {
	if e.emitter == nil {
		return
	}
	if err := e.emitter.EmitSignalTraded(symbol, strategy.ID, strategy.Name, quantity, strategy.TradingType); err != nil {
		e.log.WithError(err).Warn("failed to report traded signal")
	}
}

func (e *Engine) findStrategy(id string) *models.Strategy {
	for _, s := range e.strategies {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (e *Engine) wallet(tradingType models.TradingType, wallet models.WalletType) map[string]decimal.Decimal {
	wallets := e.balances[tradingType]
	m := wallets[wallet]
	if m == nil {
		m = map[string]decimal.Decimal{}
		wallets[wallet] = m
	}
	return m
}

// symbolAsset derives the BASE/QUOTE form from an exchange symbol like
// BTCUSDT, falling back to the raw symbol when the quote suffix does
// not match.
func symbolAsset(symbol, quote string) string {
	if base, ok := strings.CutSuffix(symbol, quote); ok && base != "" {
		return base + "/" + quote
	}
	return symbol
}

// Trades returns a snapshot of the open trades.
func (e *Engine) Trades() []models.TradeOpen {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.TradeOpen, 0, len(e.trades))
	for _, t := range e.trades {
		out = append(out, *t)
	}
	return out
}

// Strategies returns a snapshot of the followed strategies.
func (e *Engine) Strategies() []models.Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		out = append(out, *s)
	}
	return out
}

// PublicStrategies returns every strategy ever seen on the hub payload,
// sorted by name. Entries survive the user unfollowing a strategy.
func (e *Engine) PublicStrategies() []models.PublicStrategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.PublicStrategy, 0, len(e.public))
	for _, p := range e.public {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// VirtualBalances returns a snapshot of the virtual wallets.
func (e *Engine) VirtualBalances() map[models.WalletType]map[string]decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := map[models.WalletType]map[string]decimal.Decimal{}
	for wallet, assets := range e.balances[models.TradingTypeVirtual] {
		copied := make(map[string]decimal.Decimal, len(assets))
		for asset, amount := range assets {
			copied[asset] = amount
		}
		out[wallet] = copied
	}
	return out
}

func (e *Engine) SetTradeStopped(id string, stopped bool) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.trades {
		if t.ID == id {
			t.IsStopped = stopped
			return t.Symbol, true
		}
	}
	return "", false
}

func (e *Engine) SetTradeHODL(id string, hodl bool) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.trades {
		if t.ID == id {
			t.IsHodl = hodl
			return t.Symbol, true
		}
	}
	return "", false
}

// CloseTrade closes at the entry price, since no market feed is
// attached. The close is recorded as a manual transaction.
func (e *Engine) CloseTrade(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.trades {
		if t.ID != id {
			continue
		}
		strategy := e.findStrategy(t.StrategyID)
		action := models.ActionSell
		if t.PositionType == models.PositionShort {
			action = models.ActionBuy
		}
		value := t.Cost
		pnl := decimal.Zero
		e.trades = append(e.trades[:i], e.trades[i+1:]...)
		e.fill(strategy, t.Symbol, action, t.PositionType, models.SourceManual, value, &pnl, e.now())
		return t.Symbol, true
	}
	return "", false
}

func (e *Engine) DeleteTrade(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.trades {
		if t.ID == id {
			e.trades = append(e.trades[:i], e.trades[i+1:]...)
			return t.Symbol, true
		}
	}
	return "", false
}

func (e *Engine) SetStrategyStopped(id string, stopped bool) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.strategies {
		if s.ID == id {
			s.IsStopped = stopped
			return s.Name, true
		}
	}
	return "", false
}

// SetVirtualWalletFunds changes the virtual funding level and resets
// the virtual wallets to it.
func (e *Engine) SetVirtualWalletFunds(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("virtual funds must be positive, got %s", amount)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.VirtualFunds = amount
	e.resetVirtualLocked()
	return nil
}

// ResetVirtualBalances restores every virtual wallet to the configured
// funding level and drops open virtual trades.
func (e *Engine) ResetVirtualBalances() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetVirtualLocked()
	kept := e.trades[:0]
	for _, t := range e.trades {
		if t.TradingType != models.TradingTypeVirtual {
			kept = append(kept, t)
		}
	}
	e.trades = kept
	e.log.Info("virtual balances reset")
}

func (e *Engine) resetVirtualLocked() {
	e.balances[models.TradingTypeVirtual] = map[models.WalletType]map[string]decimal.Decimal{
		models.WalletSpot: {e.cfg.QuoteAsset: e.cfg.VirtualFunds},
	}
	if e.cfg.MarginEnabled {
		e.balances[models.TradingTypeVirtual][models.WalletMargin] = map[string]decimal.Decimal{
			e.cfg.QuoteAsset: e.cfg.VirtualFunds,
		}
	}
}

// TopUpBNBFloat simulates converting a slice of the given asset into
// BNB so exchange fees keep getting paid from the fee asset.
func (e *Engine) TopUpBNBFloat(wallet models.WalletType, asset string) (string, error) {
	if e.cfg.BNBFreeFloat <= 0 {
		return "", fmt.Errorf("BNB free float is not enabled")
	}
	if wallet == models.WalletMargin && !e.cfg.MarginEnabled {
		return "", fmt.Errorf("margin wallet is disabled")
	}
	e.log.WithFields(logger.Fields{"wallet": wallet, "asset": asset}).Info("topping up BNB float")
	return fmt.Sprintf("Topping up %s BNB to %v using %s.", wallet, e.cfg.BNBFreeFloat, asset), nil
}
