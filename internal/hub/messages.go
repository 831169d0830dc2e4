package hub

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"tradehub/internal/models"
)

// Channel names used on the hub connection.
const (
	ChannelAuthenticated     = "authenticated"
	ChannelUserPayload       = "user_payload"
	ChannelBuySignal         = "buy_signal"
	ChannelSellSignal        = "sell_signal"
	ChannelCloseTradedSignal = "close_traded_signal"
	ChannelStopTradedSignal  = "stop_traded_signal"
)

// envelope is the wire frame: a channel name plus its raw payload.
type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Signal is a trade instruction pushed by the hub.
type Signal struct {
	UserKey      string `json:"key"`
	StrategyID   string `json:"stratid"`
	StrategyName string `json:"stratname"`
	Symbol       string `json:"pair"`
	Price        string `json:"price"`
	Score        string `json:"score"`
	IsNew        bool   `json:"new"`
}

// StrategyPayload is one entry of the user_payload message, describing
// the follower's configuration for a strategy.
type StrategyPayload struct {
	StrategyID   string  `json:"stratid"`
	StrategyName string  `json:"stratname"`
	Trading      bool    `json:"trading"`
	TradingType  string  `json:"trading_type"`
	BuyAmount    float64 `json:"buy_amount"`
}

// SignalTraded confirms back to the hub that a signal was acted on.
type SignalTraded struct {
	APIKey       string             `json:"key"`
	Symbol       string             `json:"pair"`
	StrategyID   string             `json:"stratid"`
	StrategyName string             `json:"stratname"`
	Quantity     string             `json:"qty"`
	TradingType  models.TradingType `json:"trading_type"`
}

func newSignalTraded(apiKey, symbol, strategyID, strategyName string, quantity decimal.Decimal, tradingType models.TradingType) SignalTraded {
	return SignalTraded{
		APIKey:       apiKey,
		Symbol:       symbol,
		StrategyID:   strategyID,
		StrategyName: strategyName,
		Quantity:     quantity.String(),
		TradingType:  tradingType,
	}
}
