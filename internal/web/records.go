package web

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tradehub/internal/models"
	"tradehub/internal/pnl"
	"tradehub/internal/report"
	"tradehub/internal/store"
)

// Converters from domain types to report records. Field names are
// camelCase so the renderer's title-casing produces the display
// headings. Optional values map to absent cells rather than zeroes.

func tradeRecords(trades []models.TradeOpen) report.Data {
	records := make([]report.Record, 0, len(trades))
	for _, t := range trades {
		records = append(records, report.Record{
			{Name: "id", Value: report.Text(t.ID)},
			{Name: "symbol", Value: report.Text(t.Symbol)},
			{Name: "strategyName", Value: report.Text(t.StrategyName)},
			{Name: "positionType", Value: report.Text(string(t.PositionType))},
			{Name: "tradingType", Value: report.Text(string(t.TradingType))},
			{Name: "quantity", Value: report.Decimal(t.Quantity)},
			{Name: "cost", Value: report.Decimal(t.Cost)},
			{Name: "buyPrice", Value: optDecimal(t.BuyPrice)},
			{Name: "sellPrice", Value: optDecimal(t.SellPrice)},
			{Name: "wallet", Value: report.Text(string(t.Wallet))},
			{Name: "timestamp", Value: report.Time(t.Timestamp)},
			{Name: "isStopped", Value: report.Bool(t.IsStopped)},
			{Name: "isHodl", Value: report.Bool(t.IsHodl)},
		})
	}
	return report.Leaf(records...)
}

func strategyRecords(strategies []models.Strategy) report.Data {
	records := make([]report.Record, 0, len(strategies))
	for _, s := range strategies {
		records = append(records, report.Record{
			{Name: "id", Value: report.Text(s.ID)},
			{Name: "name", Value: report.Text(s.Name)},
			{Name: "tradingType", Value: report.Text(string(s.TradingType))},
			{Name: "tradeAmount", Value: report.Decimal(s.TradeAmount)},
			{Name: "lossTradeRun", Value: report.Number(float64(s.LossTradeRun))},
			{Name: "isActive", Value: report.Bool(s.IsActive)},
			{Name: "isStopped", Value: report.Bool(s.IsStopped)},
		})
	}
	return report.Leaf(records...)
}

func publicStrategyRecords(strategies []models.PublicStrategy) report.Data {
	records := make([]report.Record, 0, len(strategies))
	for _, s := range strategies {
		records = append(records, report.Record{
			{Name: "id", Value: report.Text(s.ID)},
			{Name: "name", Value: report.Text(s.Name)},
		})
	}
	return report.Leaf(records...)
}

func virtualBalanceData(balances map[models.WalletType]map[string]decimal.Decimal) report.Data {
	wallets := make([]models.WalletType, 0, len(balances))
	for w := range balances {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i] < wallets[j] })

	sections := make([]report.Section, 0, len(wallets))
	for _, w := range wallets {
		assets := make([]string, 0, len(balances[w]))
		for a := range balances[w] {
			assets = append(assets, a)
		}
		sort.Strings(assets)

		records := make([]report.Record, 0, len(assets))
		for _, a := range assets {
			records = append(records, report.Record{
				{Name: "asset", Value: report.Text(a)},
				{Name: "balance", Value: report.Decimal(balances[w][a])},
			})
		}
		sections = append(sections, report.Section{Label: string(w), Child: report.Leaf(records...)})
	}
	return report.Group(sections...)
}

func transactionRecords(txns []models.Transaction) report.Data {
	records := make([]report.Record, 0, len(txns))
	for _, t := range txns {
		records = append(records, report.Record{
			{Name: "timestamp", Value: report.Time(t.Timestamp)},
			{Name: "action", Value: report.Text(string(t.Action))},
			{Name: "positionType", Value: report.Text(string(t.PositionType))},
			{Name: "source", Value: report.Text(string(t.Source))},
			{Name: "symbolAsset", Value: report.Text(t.SymbolAsset)},
			{Name: "strategyName", Value: report.Text(t.StrategyName)},
			{Name: "tradingType", Value: report.Text(string(t.TradingType))},
			{Name: "value", Value: optDecimal(t.Value)},
			{Name: "profitLoss", Value: optDecimal(t.ProfitLoss)},
		})
	}
	return report.Leaf(records...)
}

func logRecords(logs []store.LogRecord) report.Data {
	records := make([]report.Record, 0, len(logs))
	for _, l := range logs {
		records = append(records, report.Record{
			{Name: "timestamp", Value: report.Time(l.Timestamp)},
			{Name: "level", Value: report.Text(l.Level)},
			{Name: "component", Value: report.Text(l.Component)},
			{Name: "message", Value: report.Text(l.Message)},
			{Name: "fields", Value: report.Text(flattenFields(l.Fields))},
		})
	}
	return report.Leaf(records...)
}

func flattenFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

func periodRecords(summaries []pnl.PeriodSummary) report.Data {
	records := make([]report.Record, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, s.Record())
	}
	return report.Leaf(records...)
}

func snapshotRecords(snapshots []models.BalanceSnapshot) report.Data {
	records := make([]report.Record, 0, len(snapshots))
	// Newest first on the page.
	for i := len(snapshots) - 1; i >= 0; i-- {
		s := snapshots[i]
		records = append(records, report.Record{
			{Name: "date", Value: report.Time(s.Date)},
			{Name: "openBalance", Value: report.Decimal(s.OpenBalance)},
			{Name: "closeBalance", Value: report.Decimal(s.CloseBalance)},
			{Name: "estimatedFees", Value: optDecimal(s.EstimatedFees)},
		})
	}
	return report.Leaf(records...)
}

func optDecimal(d *decimal.Decimal) report.Value {
	if d == nil {
		return report.Absent()
	}
	return report.Decimal(*d)
}
