package pnl

import (
	"time"

	"github.com/shopspring/decimal"

	"tradehub/internal/models"
	"tradehub/internal/report"
)

// millisecond count of a non-leap year, used to annualize period returns
const msPerYear = 365 * 24 * 60 * 60 * 1000

// PeriodSummary is one row of the profit-and-loss table. Nil numeric
// fields mean no data was available for the period, which is a normal
// outcome rather than an error.
type PeriodSummary struct {
	Period       string
	Value        *decimal.Decimal
	TotalPercent *decimal.Decimal
	APR          *decimal.Decimal
}

// Record converts the summary into its display form.
func (s PeriodSummary) Record() report.Record {
	rec := report.Record{{Name: "Period", Value: report.Text(s.Period)}}
	rec = append(rec, report.Field{Name: "Value", Value: optDecimal(s.Value)})
	rec = append(rec, report.Field{Name: "Total", Value: optPercent(s.TotalPercent)})
	rec = append(rec, report.Field{Name: "APR", Value: optPercent(s.APR)})
	return rec
}

func optDecimal(d *decimal.Decimal) report.Value {
	if d == nil {
		return report.Absent()
	}
	return report.Decimal(*d)
}

func optPercent(d *decimal.Decimal) report.Value {
	if d == nil {
		return report.Absent()
	}
	return report.Percent(*d)
}

// ComputePeriod summarises an ordered slice of balance snapshots into a
// single row. The balance change is computed from the first snapshot's
// opening balance to the last snapshot's closing balance, with recorded
// fees added back since they reduce the close balance without being a
// market loss. Fees are added back for every asset, including the asset
// the fees were paid in.
func ComputePeriod(label string, snapshots []models.BalanceSnapshot, now time.Time) PeriodSummary {
	summary := PeriodSummary{Period: label}
	if len(snapshots) == 0 {
		return summary
	}

	open := snapshots[0].OpenBalance
	close := snapshots[len(snapshots)-1].CloseBalance
	fees := decimal.Zero
	for _, s := range snapshots {
		if s.EstimatedFees != nil {
			fees = fees.Add(*s.EstimatedFees)
		}
	}

	value := close.Sub(open).Add(fees)
	summary.Value = &value

	if open.IsZero() {
		return summary
	}
	total := value.Div(open).Mul(decimal.NewFromInt(100))
	summary.TotalPercent = &total

	elapsedMs := now.Sub(snapshots[0].Date).Milliseconds()
	if elapsedMs == 0 {
		return summary
	}
	// Multiply before dividing so tiny intermediate quotients are not
	// truncated at the division precision.
	apr := value.Mul(decimal.NewFromInt(msPerYear)).
		Mul(decimal.NewFromInt(100)).
		Div(open).
		Div(decimal.NewFromInt(elapsedMs))
	summary.APR = &apr

	return summary
}
