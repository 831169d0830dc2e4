package store

import (
	"context"
	"time"

	"tradehub/internal/models"
)

// LogRecord is the persisted form of a captured log entry.
type LogRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// BalanceKey identifies one balance history series.
type BalanceKey struct {
	TradingType models.TradingType
	Asset       string
}

// Store is the history backend. Pages are 1-based and sorted by
// timestamp descending; an empty page means the history is exhausted.
type Store interface {
	RecordTransaction(txn models.Transaction)
	TransactionPage(ctx context.Context, page, size int) ([]models.Transaction, error)

	LogPage(ctx context.Context, page, size int) ([]LogRecord, error)

	RecordBalance(key BalanceKey, snapshot models.BalanceSnapshot)
	BalanceKeys() []BalanceKey
	BalanceHistory(key BalanceKey) []models.BalanceSnapshot
	// DeleteBalanceHistory removes every series for the asset matching
	// tradingType, or all series for the asset when tradingType is
	// empty. It returns the trading types that were removed.
	DeleteBalanceHistory(asset string, tradingType models.TradingType) []models.TradingType
}
