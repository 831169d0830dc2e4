package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"tradehub/internal/models"
)

// MemoryStore keeps history in process memory. Transactions and balance
// snapshots are unbounded for the process lifetime; captured logs are
// bounded to the most recent entries. Safe for concurrent use.
//
// The store implements the logrus Hook interface so it can be attached
// directly to the application's logger.
type MemoryStore struct {
	mu       sync.RWMutex
	txns     []models.Transaction
	logs     []LogRecord
	logLimit int
	balances map[BalanceKey][]models.BalanceSnapshot
	enabled  atomic.Bool
}

func NewMemoryStore(logLimit int) *MemoryStore {
	if logLimit <= 0 {
		logLimit = 1000
	}
	s := &MemoryStore{
		logLimit: logLimit,
		balances: map[BalanceKey][]models.BalanceSnapshot{},
	}
	s.enabled.Store(true)
	return s
}

// RecordTransaction appends to the transaction history. Callers append
// in timestamp order; pages are served newest first.
func (s *MemoryStore) RecordTransaction(txn models.Transaction) {
	s.mu.Lock()
	s.txns = append(s.txns, txn)
	s.mu.Unlock()
}

func (s *MemoryStore) TransactionPage(_ context.Context, page, size int) ([]models.Transaction, error) {
	if page < 1 || size < 1 {
		return nil, fmt.Errorf("invalid page request: page=%d size=%d", page, size)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	end := len(s.txns) - (page-1)*size
	if end <= 0 {
		return nil, nil
	}
	start := end - size
	if start < 0 {
		start = 0
	}
	out := make([]models.Transaction, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, s.txns[i])
	}
	return out, nil
}

func (s *MemoryStore) LogPage(_ context.Context, page, size int) ([]LogRecord, error) {
	if page < 1 || size < 1 {
		return nil, fmt.Errorf("invalid page request: page=%d size=%d", page, size)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	end := len(s.logs) - (page-1)*size
	if end <= 0 {
		return nil, nil
	}
	start := end - size
	if start < 0 {
		start = 0
	}
	out := make([]LogRecord, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, s.logs[i])
	}
	return out, nil
}

func (s *MemoryStore) RecordBalance(key BalanceKey, snapshot models.BalanceSnapshot) {
	s.mu.Lock()
	s.balances[key] = append(s.balances[key], snapshot)
	s.mu.Unlock()
}

func (s *MemoryStore) BalanceKeys() []BalanceKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]BalanceKey, 0, len(s.balances))
	for k := range s.balances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TradingType != keys[j].TradingType {
			return keys[i].TradingType < keys[j].TradingType
		}
		return keys[i].Asset < keys[j].Asset
	})
	return keys
}

func (s *MemoryStore) BalanceHistory(key BalanceKey) []models.BalanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BalanceSnapshot, len(s.balances[key]))
	copy(out, s.balances[key])
	return out
}

func (s *MemoryStore) DeleteBalanceHistory(asset string, tradingType models.TradingType) []models.TradingType {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected []models.TradingType
	for key := range s.balances {
		if key.Asset != asset {
			continue
		}
		if tradingType != "" && key.TradingType != tradingType {
			continue
		}
		delete(s.balances, key)
		affected = append(affected, key.TradingType)
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })
	return affected
}

// Levels implements logrus.Hook.
func (s *MemoryStore) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook, capturing the entry into the bounded log
// history.
func (s *MemoryStore) Fire(entry *logrus.Entry) error {
	if !s.enabled.Load() {
		return nil
	}

	record := LogRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	if component, ok := entry.Data["component"].(string); ok {
		record.Component = component
	}
	if len(entry.Data) > 0 {
		record.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if k == "component" {
				continue
			}
			switch val := v.(type) {
			case error:
				record.Fields[k] = val.Error()
			case fmt.Stringer:
				record.Fields[k] = val.String()
			default:
				record.Fields[k] = val
			}
		}
	}

	s.mu.Lock()
	s.logs = append(s.logs, record)
	if len(s.logs) > s.logLimit {
		s.logs = append([]LogRecord(nil), s.logs[len(s.logs)-s.logLimit:]...)
	}
	s.mu.Unlock()
	return nil
}

// Close stops log capture. Already-captured history stays readable.
func (s *MemoryStore) Close() {
	s.enabled.Store(false)
}
