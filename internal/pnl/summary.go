package pnl

import (
	"context"
	"time"

	"tradehub/internal/models"
)

// TransactionSource serves transaction history in pages sorted by
// timestamp descending. Page numbers start at 1.
type TransactionSource interface {
	TransactionPage(ctx context.Context, page, size int) ([]models.Transaction, error)
}

// Bucket accumulates one hour of activity for one strategy and position
// type. Volumes and profit use plain floats since the result is a
// display aggregate, not a ledger.
type Bucket struct {
	Opened     int     `json:"opened"`
	Closed     int     `json:"closed"`
	BuyVolume  float64 `json:"BUY"`
	SellVolume float64 `json:"SELL"`
	ProfitLoss float64 `json:"profitLoss"`
}

// Summary maps strategy name -> position type -> hour (unix millis) to
// the bucket for that hour. Hour keys are unordered; callers sort
// before display.
type Summary map[string]map[models.PositionType]map[int64]*Bucket

// Summariser walks paged transaction history and aggregates recent
// activity into hourly buckets.
type Summariser struct {
	source   TransactionSource
	pageSize int
	now      func() time.Time
}

func NewSummariser(source TransactionSource, pageSize int) *Summariser {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Summariser{source: source, pageSize: pageSize, now: time.Now}
}

// Summarise aggregates the last windowDays days of buy/sell activity
// for one quote asset and trading type. The window opens at the start
// of the current day minus windowDays-1 days, so a one-day window
// covers today only.
//
// The source is assumed to honor descending timestamp order; the scan
// stops at the first transaction older than the window. Paging is not
// isolated against concurrent writes, so a transaction arriving
// mid-scan can shift pages under the cursor and be skipped.
func (s *Summariser) Summarise(ctx context.Context, quoteAsset string, tradingType models.TradingType, windowDays int) (Summary, error) {
	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	windowStart := day.AddDate(0, 0, -(windowDays - 1))

	summary := Summary{}
	for page := 1; ; page++ {
		txns, err := s.source.TransactionPage(ctx, page, s.pageSize)
		if err != nil {
			return nil, err
		}
		if len(txns) == 0 {
			return summary, nil
		}
		for _, txn := range txns {
			if txn.Timestamp.Before(windowStart) {
				return summary, nil
			}
			if txn.Action != models.ActionBuy && txn.Action != models.ActionSell {
				continue
			}
			if txn.TradingType != tradingType || txn.QuoteAsset() != quoteAsset {
				continue
			}
			summary.bucket(txn).add(txn)
		}
	}
}

func (s Summary) bucket(txn models.Transaction) *Bucket {
	positions := s[txn.StrategyName]
	if positions == nil {
		positions = map[models.PositionType]map[int64]*Bucket{}
		s[txn.StrategyName] = positions
	}
	hours := positions[txn.PositionType]
	if hours == nil {
		hours = map[int64]*Bucket{}
		positions[txn.PositionType] = hours
	}
	hour := txn.Timestamp.Truncate(time.Hour).UnixMilli()
	b := hours[hour]
	if b == nil {
		b = &Bucket{}
		hours[hour] = b
	}
	return b
}

func (b *Bucket) add(txn models.Transaction) {
	switch txn.PositionType {
	case models.PositionShort:
		// Shorts open on the sell side.
		if txn.Action == models.ActionSell {
			b.Opened++
		} else {
			b.Closed++
		}
	default:
		if txn.Action == models.ActionBuy {
			b.Opened++
		} else if txn.Source != models.SourceRebalance {
			// Rebalancing sells are partial and do not close a position.
			b.Closed++
		}
	}

	if txn.Value != nil {
		v, _ := txn.Value.Float64()
		if txn.Action == models.ActionBuy {
			b.BuyVolume += v
		} else {
			b.SellVolume += v
		}
	}
	if txn.ProfitLoss != nil {
		p, _ := txn.ProfitLoss.Float64()
		b.ProfitLoss += p
	}
}
