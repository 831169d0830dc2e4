package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradehub/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestComputePeriodEmpty(t *testing.T) {
	got := ComputePeriod("Today", nil, time.Now())
	if got.Period != "Today" {
		t.Fatalf("label lost: %+v", got)
	}
	if got.Value != nil || got.TotalPercent != nil || got.APR != nil {
		t.Fatalf("empty period must have no numeric fields, got %+v", got)
	}
}

func TestComputePeriodBasic(t *testing.T) {
	d0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := d0.Add(24 * time.Hour)
	snaps := []models.BalanceSnapshot{
		{Date: d0, OpenBalance: dec("100"), CloseBalance: dec("110")},
	}
	got := ComputePeriod("Today", snaps, now)

	if got.Value == nil || !got.Value.Equal(dec("10")) {
		t.Fatalf("value = %v, want 10", got.Value)
	}
	if got.TotalPercent == nil || !got.TotalPercent.Equal(dec("10")) {
		t.Fatalf("totalPercent = %v, want 10", got.TotalPercent)
	}
	// One day of 10% annualizes to 3650%.
	if got.APR == nil || !got.APR.Equal(dec("3650")) {
		t.Fatalf("apr = %v, want 3650", got.APR)
	}
}

func TestComputePeriodAddsFeesBack(t *testing.T) {
	d0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	snaps := []models.BalanceSnapshot{
		{Date: d0, OpenBalance: dec("100"), CloseBalance: dec("100"), EstimatedFees: decPtr("0.5")},
		{Date: d0.Add(time.Hour), OpenBalance: dec("100"), CloseBalance: dec("99"), EstimatedFees: decPtr("0.25")},
	}
	got := ComputePeriod("Today", snaps, d0.Add(2*time.Hour))

	// close(99) - open(100) + fees(0.75)
	if got.Value == nil || !got.Value.Equal(dec("-0.25")) {
		t.Fatalf("value = %v, want -0.25", got.Value)
	}
}

func TestComputePeriodZeroOpen(t *testing.T) {
	d0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	snaps := []models.BalanceSnapshot{
		{Date: d0, OpenBalance: dec("0"), CloseBalance: dec("5")},
	}
	got := ComputePeriod("Today", snaps, d0.Add(time.Hour))

	if got.Value == nil || !got.Value.Equal(dec("5")) {
		t.Fatalf("value = %v, want 5", got.Value)
	}
	if got.TotalPercent != nil || got.APR != nil {
		t.Fatalf("zero open balance must leave percentages absent, got %+v", got)
	}
}

func TestComputePeriodZeroElapsed(t *testing.T) {
	d0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	snaps := []models.BalanceSnapshot{
		{Date: d0, OpenBalance: dec("100"), CloseBalance: dec("110")},
	}
	got := ComputePeriod("Today", snaps, d0)

	if got.TotalPercent == nil {
		t.Fatal("totalPercent should still be present with zero elapsed time")
	}
	if got.APR != nil {
		t.Fatalf("apr must be absent with zero elapsed time, got %v", got.APR)
	}
}

func TestPeriodSummaryRecord(t *testing.T) {
	s := PeriodSummary{Period: "Today"}
	rec := s.Record()

	if v, ok := rec.Lookup("Period"); !ok || v.Text() != "Today" {
		t.Fatalf("missing Period field: %+v", rec)
	}
	for _, name := range []string{"Value", "Total", "APR"} {
		v, ok := rec.Lookup(name)
		if !ok || !v.IsAbsent() {
			t.Fatalf("%s should render absent, got %+v", name, rec)
		}
	}
}
