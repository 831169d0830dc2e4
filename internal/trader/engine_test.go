package trader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradehub/internal/hub"
	"tradehub/internal/models"
	"tradehub/internal/store"
)

type emitSpy struct {
	mu    sync.Mutex
	calls []string
}

func (e *emitSpy) EmitSignalTraded(symbol, strategyID, _ string, _ decimal.Decimal, _ models.TradingType) error {
	e.mu.Lock()
	e.calls = append(e.calls, strategyID+":"+symbol)
	e.mu.Unlock()
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *emitSpy) {
	t.Helper()
	st := store.NewMemoryStore(0)
	e := NewEngine(Config{QuoteAsset: "USDT", VirtualFunds: decimal.NewFromInt(1000)}, st)
	spy := &emitSpy{}
	e.SetEmitter(spy)
	if err := e.OnUserPayload([]hub.StrategyPayload{
		{StrategyID: "471", StrategyName: "Momentum", Trading: true, TradingType: "virtual", BuyAmount: 100},
	}); err != nil {
		t.Fatal(err)
	}
	return e, st, spy
}

func buySignal(isNew bool, price string) hub.Signal {
	return hub.Signal{StrategyID: "471", StrategyName: "Momentum", Symbol: "BTCUSDT", Price: price, IsNew: isNew}
}

func TestBuySignalOpensLong(t *testing.T) {
	e, st, spy := newTestEngine(t)
	now := time.Now()

	if err := e.OnBuySignal(buySignal(true, "50"), now); err != nil {
		t.Fatal(err)
	}

	trades := e.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected one open trade, got %+v", trades)
	}
	if trades[0].PositionType != models.PositionLong || !trades[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("trade = %+v", trades[0])
	}

	txns, err := st.TransactionPage(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 1 || txns[0].Action != models.ActionBuy || txns[0].SymbolAsset != "BTC/USDT" {
		t.Fatalf("transaction = %+v", txns)
	}
	if len(spy.calls) != 1 || spy.calls[0] != "471:BTCUSDT" {
		t.Fatalf("traded signal not emitted, got %v", spy.calls)
	}
}

func TestSellSignalClosesLongWithProfit(t *testing.T) {
	e, st, _ := newTestEngine(t)
	now := time.Now()

	if err := e.OnBuySignal(buySignal(true, "50"), now); err != nil {
		t.Fatal(err)
	}
	if err := e.OnSellSignal(buySignal(false, "60"), now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	if len(e.Trades()) != 0 {
		t.Fatalf("trade should be closed, got %+v", e.Trades())
	}
	txns, err := st.TransactionPage(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	// Newest first: the closing sell.
	if txns[0].Action != models.ActionSell || txns[0].ProfitLoss == nil {
		t.Fatalf("close transaction = %+v", txns[0])
	}
	// Bought 2 @ 50, sold @ 60.
	if !txns[0].ProfitLoss.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("profit = %v, want 20", txns[0].ProfitLoss)
	}
}

func TestLossRunTracking(t *testing.T) {
	e, _, _ := newTestEngine(t)
	now := time.Now()

	if err := e.OnBuySignal(buySignal(true, "50"), now); err != nil {
		t.Fatal(err)
	}
	if err := e.OnSellSignal(buySignal(false, "40"), now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	strategies := e.Strategies()
	if strategies[0].LossTradeRun != 1 {
		t.Fatalf("loss run = %d, want 1", strategies[0].LossTradeRun)
	}
}

func TestHodlSkipsUnprofitableClose(t *testing.T) {
	e, _, _ := newTestEngine(t)
	now := time.Now()

	if err := e.OnBuySignal(buySignal(true, "50"), now); err != nil {
		t.Fatal(err)
	}
	id := e.Trades()[0].ID
	if _, ok := e.SetTradeHODL(id, true); !ok {
		t.Fatal("trade not found")
	}

	if err := e.OnSellSignal(buySignal(false, "40"), now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if len(e.Trades()) != 1 {
		t.Fatal("held trade must survive an unprofitable close signal")
	}

	if err := e.OnSellSignal(buySignal(false, "55"), now.Add(2*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if len(e.Trades()) != 0 {
		t.Fatal("held trade should close once profitable")
	}
}

func TestStoppedTradeIgnoresSignals(t *testing.T) {
	e, _, _ := newTestEngine(t)
	now := time.Now()

	if err := e.OnBuySignal(buySignal(true, "50"), now); err != nil {
		t.Fatal(err)
	}
	id := e.Trades()[0].ID
	e.SetTradeStopped(id, true)

	if err := e.OnSellSignal(buySignal(false, "60"), now.Add(time.Minute)); err == nil {
		t.Fatal("stopped trade should reject the close signal")
	}

	// A close_traded_signal still forces the close.
	if err := e.OnCloseTradedSignal(buySignal(false, "60"), now.Add(2*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if len(e.Trades()) != 0 {
		t.Fatalf("forced close should remove the trade, got %+v", e.Trades())
	}
}

func TestStopTradedSignalDiscardsWithoutTrading(t *testing.T) {
	e, st, _ := newTestEngine(t)
	now := time.Now()

	if err := e.OnBuySignal(buySignal(true, "50"), now); err != nil {
		t.Fatal(err)
	}
	if err := e.OnStopTradedSignal(buySignal(false, "50"), now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	if len(e.Trades()) != 0 {
		t.Fatal("stop signal should discard the trade")
	}
	txns, err := st.TransactionPage(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 1 {
		t.Fatalf("no closing transaction should be recorded, got %+v", txns)
	}
}

func TestPublicStrategyCatalogue(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if err := e.OnUserPayload([]hub.StrategyPayload{
		{StrategyID: "472", StrategyName: "Reversal", Trading: true, TradingType: "virtual", BuyAmount: 50},
	}); err != nil {
		t.Fatal(err)
	}

	// The followed set is replaced, the catalogue keeps every strategy seen.
	if got := len(e.Strategies()); got != 1 {
		t.Fatalf("followed strategies = %d, want 1", got)
	}
	public := e.PublicStrategies()
	if len(public) != 2 {
		t.Fatalf("public strategies = %d, want 2", len(public))
	}
	if public[0].Name != "Momentum" || public[1].Name != "Reversal" {
		t.Fatalf("public catalogue order = %+v", public)
	}
}

func TestUnknownStrategyRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)
	signal := hub.Signal{StrategyID: "999", Symbol: "BTCUSDT", Price: "50", IsNew: true}
	if err := e.OnBuySignal(signal, time.Now()); err == nil {
		t.Fatal("signals for unknown strategies must be rejected")
	}
}

func TestVirtualBalanceLifecycle(t *testing.T) {
	e, st, _ := newTestEngine(t)
	now := time.Now()

	if err := e.OnBuySignal(buySignal(true, "50"), now); err != nil {
		t.Fatal(err)
	}
	balances := e.VirtualBalances()
	// 1000 - 100 cost - 0.1 fee.
	if got := balances[models.WalletSpot]["USDT"]; !got.Equal(decimal.RequireFromString("899.9")) {
		t.Fatalf("spot USDT = %s, want 899.9", got)
	}

	history := st.BalanceHistory(store.BalanceKey{TradingType: models.TradingTypeVirtual, Asset: "USDT"})
	if len(history) != 1 || history[0].EstimatedFees == nil {
		t.Fatalf("fill should record a balance snapshot with fees, got %+v", history)
	}

	e.ResetVirtualBalances()
	if got := e.VirtualBalances()[models.WalletSpot]["USDT"]; !got.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("reset should restore funding, got %s", got)
	}
	if len(e.Trades()) != 0 {
		t.Fatal("reset should drop open virtual trades")
	}
}

func TestSetVirtualWalletFunds(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.SetVirtualWalletFunds(decimal.NewFromInt(-5)); err == nil {
		t.Fatal("negative funding must be rejected")
	}
	if err := e.SetVirtualWalletFunds(decimal.NewFromInt(250)); err != nil {
		t.Fatal(err)
	}
	if got := e.VirtualBalances()[models.WalletSpot]["USDT"]; !got.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("funds = %s, want 250", got)
	}
}

func TestTopUpBNBFloat(t *testing.T) {
	st := store.NewMemoryStore(0)
	e := NewEngine(Config{QuoteAsset: "USDT", VirtualFunds: decimal.NewFromInt(1000)}, st)
	if _, err := e.TopUpBNBFloat(models.WalletSpot, "USDT"); err == nil {
		t.Fatal("top up must fail when the float is disabled")
	}

	e = NewEngine(Config{QuoteAsset: "USDT", VirtualFunds: decimal.NewFromInt(1000), BNBFreeFloat: 0.02}, st)
	if _, err := e.TopUpBNBFloat(models.WalletMargin, "USDT"); err == nil {
		t.Fatal("margin top up must fail when margin is disabled")
	}
	msg, err := e.TopUpBNBFloat(models.WalletSpot, "USDT")
	if err != nil {
		t.Fatal(err)
	}
	if msg == "" {
		t.Fatal("top up should describe what it did")
	}
}
