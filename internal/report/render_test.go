package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testRenderer() *Renderer {
	r := New(Config{MaxColors: 3, Precision: 8})
	r.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRenderLeafColumnUnion(t *testing.T) {
	r := testRenderer()
	data := Leaf(
		Record{{Name: "symbol", Value: Text("BTC/USDT")}},
		Record{{Name: "symbol", Value: Text("ETH/USDT")}, {Name: "profitLoss", Value: Decimal(decimal.NewFromInt(3))}},
	)
	out := r.RenderTable(PageLogMemory, data, 0, false)

	if !strings.Contains(out, "<th>Symbol</th><th>Profit Loss</th>") {
		t.Fatalf("expected union of columns in first-seen order, got %q", out)
	}
	// First record has no profitLoss, so its row gets an empty cell.
	if !strings.Contains(out, ">BTC/USDT</td><td></td>") {
		t.Fatalf("missing record should render an empty cell, got %q", out)
	}
}

func TestRenderLeafColorizesLowCardinalityColumns(t *testing.T) {
	r := testRenderer()
	data := Leaf(
		Record{{Name: "strategy", Value: Text("alpha")}},
		Record{{Name: "strategy", Value: Text("beta")}},
		Record{{Name: "strategy", Value: Text("alpha")}},
	)
	out := r.RenderTable(PageLogMemory, data, 0, false)

	first := strings.Index(out, "hsl(")
	if first < 0 {
		t.Fatal("expected colored cells for a low-cardinality column")
	}
	// Same value must get the same color on every occurrence.
	alpha := "style='color:" + makeColor(0, 2) + "'>alpha"
	if strings.Count(out, alpha) != 2 {
		t.Fatalf("expected both alpha cells to share a color, got %q", out)
	}
}

func TestRenderLeafSkipsSingleValueColumns(t *testing.T) {
	r := testRenderer()
	data := Leaf(
		Record{{Name: "strategy", Value: Text("alpha")}},
		Record{{Name: "strategy", Value: Text("alpha")}},
	)
	out := r.RenderTable(PageLogMemory, data, 0, false)

	if strings.Contains(out, "hsl(") {
		t.Fatalf("column with a single distinct value must keep the default color, got %q", out)
	}
}

func TestRenderLeafSkipsHighCardinalityColumns(t *testing.T) {
	r := testRenderer()
	recs := make([]Record, 5)
	for i, v := range []string{"a", "b", "c", "d", "e"} {
		recs[i] = Record{{Name: "id", Value: Text(v)}}
	}
	out := r.RenderTable(PageLogMemory, Leaf(recs...), 0, false)

	if strings.Contains(out, "hsl(") {
		t.Fatalf("column with more than MaxColors values must not be colored, got %q", out)
	}
}

func TestRenderCellFormats(t *testing.T) {
	r := testRenderer()
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	data := Leaf(Record{
		{Name: "time", Value: Time(ts)},
		{Name: "value", Value: Decimal(decimal.RequireFromString("-1.50000000"))},
		{Name: "percent", Value: Percent(decimal.RequireFromString("2.10000000"))},
		{Name: "isHodl", Value: Bool(true)},
		{Name: "count", Value: Number(3)},
	})
	out := r.RenderTable(PageLogMemory, data, 0, false)

	if !strings.Contains(out, "title='1714555800000'") {
		t.Fatalf("timestamp cell should carry the epoch millis tooltip, got %q", out)
	}
	if !strings.Contains(out, "<td style='color:red'>-1.5</td>") {
		t.Fatalf("negative decimal should be red with trailing zeros trimmed, got %q", out)
	}
	if !strings.Contains(out, "<td>2.1%</td>") {
		t.Fatalf("positive percent should be plain with a %% suffix, got %q", out)
	}
	if !strings.Contains(out, "<td style='color:blue'>true</td>") {
		t.Fatalf("true boolean should be blue, got %q", out)
	}
	if !strings.Contains(out, "<td>3</td>") {
		t.Fatalf("number cell should use shortest form, got %q", out)
	}
}

func TestRenderDataBreadcrumbs(t *testing.T) {
	r := testRenderer()
	data := Group(
		Section{Label: "Balance History", Child: Group(
			Section{Label: "real", Child: Leaf(
				Record{{Name: "Period", Value: Text("Today")}},
			)},
		)},
	)
	out := r.RenderTable(PagePnL, data, 0, false)

	if !strings.Contains(out, "<h3>Balance History : real : </h3>") {
		t.Fatalf("nested sections should join into one breadcrumb heading, got %q", out)
	}
}

func TestRenderPagePagination(t *testing.T) {
	r := testRenderer()

	out := r.RenderPage(PageTransDB, "<table></table>", 1, true)
	if !strings.Contains(out, "location.href='/trans?db=2&'\">Next") {
		t.Fatalf("next button should target the following page, got %q", out)
	}
	if !strings.Contains(out, "disabled>&lt; Prev") {
		t.Fatalf("prev button should be disabled on the first page, got %q", out)
	}

	out = r.RenderPage(PageTransDB, "<table></table>", 3, false)
	if !strings.Contains(out, "location.href='/trans?db=2&'\"") {
		t.Fatalf("prev button should target the preceding page, got %q", out)
	}
	if !strings.Contains(out, "disabled>Next &gt;") {
		t.Fatalf("next button should be disabled when no further data exists, got %q", out)
	}
}

func TestRenderPageEmptyContent(t *testing.T) {
	r := testRenderer()
	out := r.RenderPage(PageLogDB, "", 2, true)

	if !strings.Contains(out, "No data yet.") {
		t.Fatalf("empty content should render a placeholder, got %q", out)
	}
	if !strings.Contains(out, "disabled>Next &gt;") {
		t.Fatalf("empty content should disable the next button, got %q", out)
	}
}

func TestMakeTitleCase(t *testing.T) {
	cases := map[string]string{
		"profitLoss": "Profit Loss",
		"id":         "ID",
		"strategyId": "Strategy ID",
		"symbol":     "Symbol",
		"isHodl":     "Is Hodl",
	}
	for in, want := range cases {
		if got := makeTitleCase(in); got != want {
			t.Fatalf("makeTitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
