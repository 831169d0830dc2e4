package report

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config carries the rendering knobs. Zero values are replaced with
// sensible defaults by New.
type Config struct {
	// Title prefixes every page title.
	Title string
	// MaxColors bounds the number of distinct values a text column may
	// hold before colorization is skipped for it.
	MaxColors int
	// Precision is the number of decimal places shown for decimal cells
	// before trailing zeros are trimmed.
	Precision int32
	// AuthToken, when set, is appended to every generated link so that
	// navigation survives password-protected deployments.
	AuthToken string
	// BNBFreeFloat enables the fee-asset top-up buttons on the PnL page
	// when positive.
	BNBFreeFloat float64
	// MarginEnabled exposes the margin wallet top-up button.
	MarginEnabled bool
}

// Renderer turns Data trees into self-contained HTML pages.
type Renderer struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Renderer {
	if cfg.Title == "" {
		cfg.Title = "TradeHub"
	}
	if cfg.MaxColors <= 0 {
		cfg.MaxColors = 8
	}
	if cfg.Precision <= 0 {
		cfg.Precision = 8
	}
	return &Renderer{cfg: cfg, now: time.Now}
}

// RenderTable renders a full page around the tabular form of data.
// current is the 1-based page number of store-backed views, or 0 for
// unpaginated pages. hasMore reports whether a further page exists.
func (r *Renderer) RenderTable(page PageKind, data Data, current int, hasMore bool) string {
	return r.RenderPage(page, r.renderData(page, data, nil), current, hasMore)
}

// RenderPage wraps pre-rendered body content with the shared chrome:
// title, menu, timestamp, page-level commands and pagination.
func (r *Renderer) RenderPage(page PageKind, content string, current int, hasMore bool) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(htmlEscape(r.cfg.Title + ": " + string(page)))
	b.WriteString("</title>")
	b.WriteString("<meta name='robots' content='noindex'>")
	b.WriteString("<link rel='stylesheet' href='/css/main.css'>")
	b.WriteString("</head><body>")

	b.WriteString("<div class='menu'>")
	for _, p := range pageOrder {
		b.WriteString(r.menuButton(p, p == page))
	}
	b.WriteString("</div>")

	b.WriteString("<div class='generated'>Generated ")
	b.WriteString(r.now().Format("2006-01-02 15:04:05"))
	b.WriteString("</div>")

	b.WriteString(r.pageCommands(page))

	if content != "" {
		b.WriteString("<pre><code>")
		b.WriteString(content)
		b.WriteString("</code></pre>")
	} else {
		b.WriteString("<p>No data yet.</p>")
		hasMore = false
	}

	if current > 0 {
		b.WriteString("<div class='pages'>")
		b.WriteString(r.pageButton(page, current, false, current <= 1))
		b.WriteString(r.pageButton(page, current, true, !hasMore))
		b.WriteString("</div>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

func (r *Renderer) menuButton(page PageKind, active bool) string {
	disabled := ""
	if active {
		disabled = " disabled"
	}
	return "<button onclick=\"location.href='" + r.pageURL(page, 1) + "'\"" + disabled + ">" +
		htmlEscape(string(page)) + "</button>"
}

// pageButton renders one half of the prev/next pagination pair.
func (r *Renderer) pageButton(page PageKind, current int, next bool, disabled bool) string {
	num := current - 1
	label := "&lt; Prev"
	if next {
		num = current + 1
		label = "Next &gt;"
	}
	if num <= 0 {
		disabled = true
	}
	attr := ""
	if disabled {
		attr = " disabled"
	}
	return "<button onclick=\"location.href='" + r.pageURL(page, num) + "'\"" + attr + ">" + label + "</button>"
}

// renderData walks the Data tree. Group nodes contribute their label to
// the breadcrumb and recurse, leaf nodes render as a table headed by the
// accumulated breadcrumb.
func (r *Renderer) renderData(page PageKind, d Data, crumb []string) string {
	if d.IsGroup() {
		var b strings.Builder
		for _, s := range d.Sections() {
			b.WriteString(r.renderData(page, s.Child, append(crumb, s.Label)))
		}
		return b.String()
	}
	return r.renderLeaf(page, d.Records(), crumb)
}

func (r *Renderer) renderLeaf(page PageKind, records []Record, crumb []string) string {
	if len(records) == 0 {
		return ""
	}

	// Ordered union of every column seen across the records.
	var cols []string
	seen := map[string]bool{}
	for _, rec := range records {
		for _, f := range rec {
			if !seen[f.Name] {
				seen[f.Name] = true
				cols = append(cols, f.Name)
			}
		}
	}

	// Collect the distinct text values per column. One extra value beyond
	// the limit is kept so overflowed columns are detectable.
	distinct := map[string]map[string]bool{}
	for _, rec := range records {
		for _, f := range rec {
			if f.Value.Kind() != KindText || f.Value.Text() == "" {
				continue
			}
			set := distinct[f.Name]
			if set == nil {
				set = map[string]bool{}
				distinct[f.Name] = set
			}
			if len(set) <= r.cfg.MaxColors {
				set[f.Value.Text()] = true
			}
		}
	}
	palette := map[string][]string{}
	for name, set := range distinct {
		if len(set) > r.cfg.MaxColors {
			continue
		}
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		palette[name] = values
	}

	var b strings.Builder
	if len(crumb) > 0 {
		b.WriteString("<h3>")
		b.WriteString(htmlEscape(strings.Join(crumb, " : ") + " : "))
		b.WriteString("</h3>")
	}
	b.WriteString(r.crumbCommands(page, crumb))

	b.WriteString("<table><tr>")
	for _, c := range cols {
		b.WriteString("<th>" + htmlEscape(makeTitleCase(c)) + "</th>")
	}
	if hasRowCommands(page) {
		b.WriteString("<th></th>")
	}
	b.WriteString("</tr>")

	for _, rec := range records {
		b.WriteString("<tr>")
		for _, c := range cols {
			v, _ := rec.Lookup(c)
			b.WriteString(r.renderCell(c, v, palette))
		}
		if hasRowCommands(page) {
			b.WriteString("<td>" + r.rowCommands(page, rec) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

func (r *Renderer) renderCell(col string, v Value, palette map[string][]string) string {
	switch v.Kind() {
	case KindAbsent:
		return "<td></td>"
	case KindTime:
		ts := v.Time()
		return "<td class='timestamp' title='" + strconv.FormatInt(ts.UnixMilli(), 10) + "'>" +
			ts.Format("2006-01-02 15:04:05") + "</td>"
	case KindDecimal:
		style := ""
		if v.Decimal().IsNegative() {
			style = " style='color:red'"
		}
		return "<td" + style + ">" + r.formatDecimal(v.Decimal()) + "</td>"
	case KindPercent:
		style := ""
		if v.Decimal().IsNegative() {
			style = " style='color:red'"
		}
		return "<td" + style + ">" + r.formatDecimal(v.Decimal()) + "%</td>"
	case KindBool:
		style := ""
		if v.Bool() {
			style = " style='color:blue'"
		}
		return "<td" + style + ">" + strconv.FormatBool(v.Bool()) + "</td>"
	case KindNumber:
		return "<td>" + strconv.FormatFloat(v.Number(), 'f', -1, 64) + "</td>"
	default:
		text := v.Text()
		style := ""
		if values, ok := palette[col]; ok && text != "" {
			for i, candidate := range values {
				if candidate == text {
					if c := makeColor(i, len(values)); c != "" {
						style = " style='color:" + c + "'"
					}
					break
				}
			}
		}
		return "<td" + style + ">" + htmlEscape(text) + "</td>"
	}
}

// formatDecimal renders with the configured precision then trims
// trailing zeros so whole numbers stay short.
func (r *Renderer) formatDecimal(d decimal.Decimal) string {
	s := d.StringFixed(r.cfg.Precision)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}

// makeColor spreads n of total values around the hue wheel starting at
// blue, keeping saturation and lightness fixed for legibility. A column
// with a single distinct value keeps the default text color.
func makeColor(n, total int) string {
	if total <= 1 {
		return ""
	}
	hue := math.Mod(225+float64(n)*(360/float64(total)), 360)
	return fmt.Sprintf("hsl(%.0f, 100%%, 40%%)", hue)
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// makeTitleCase turns a camelCase field name into a display heading,
// special-casing the ID abbreviation.
func makeTitleCase(name string) string {
	words := strings.Fields(camelBoundary.ReplaceAllString(name, "$1 $2"))
	for i, w := range words {
		if strings.EqualFold(w, "id") {
			words[i] = "ID"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&#39;",
	`"`, "&#34;",
)

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
