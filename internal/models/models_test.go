package models

import "testing"

func TestQuoteAsset(t *testing.T) {
	cases := []struct {
		symbolAsset string
		want        string
	}{
		{"BTC/USDT", "USDT"},
		{"ETH/BTC", "BTC"},
		{"BNB", ""},
		{"", ""},
	}
	for _, c := range cases {
		tx := Transaction{SymbolAsset: c.symbolAsset}
		if got := tx.QuoteAsset(); got != c.want {
			t.Errorf("QuoteAsset(%q) = %q, want %q", c.symbolAsset, got, c.want)
		}
	}
}

func TestNewTradeOpenAssignsID(t *testing.T) {
	a := NewTradeOpen("BTC/USDT", "s1", "Strategy One", PositionLong, TradingTypeVirtual)
	b := NewTradeOpen("BTC/USDT", "s1", "Strategy One", PositionLong, TradingTypeVirtual)
	if a.ID == "" || b.ID == "" {
		t.Fatalf("expected generated trade IDs, got %q and %q", a.ID, b.ID)
	}
	if a.ID == b.ID {
		t.Fatalf("expected unique trade IDs, both were %q", a.ID)
	}
	if a.Timestamp.IsZero() {
		t.Errorf("expected trade timestamp to be set")
	}
}
