package report

import (
	"strconv"
	"strings"
)

// PageKind identifies one dashboard page. The value doubles as the page
// title shown in the menu.
type PageKind string

const (
	PageTrades      PageKind = "Trades"
	PageStrategies  PageKind = "Strategies"
	PageVirtual     PageKind = "Virtual Balances"
	PageLogMemory   PageKind = "Log"
	PageLogDB       PageKind = "Log History"
	PageTransMemory PageKind = "Transactions"
	PageTransDB     PageKind = "Transaction History"
	PagePnL         PageKind = "Profit and Loss"
)

// pageOrder fixes the menu layout.
var pageOrder = []PageKind{
	PageTrades,
	PageStrategies,
	PageVirtual,
	PageTransMemory,
	PageTransDB,
	PagePnL,
	PageLogMemory,
	PageLogDB,
}

// pageURLs maps each page to its route. "%d" is replaced with the requested
// page number for the paginated store-backed views.
var pageURLs = map[PageKind]string{
	PageTrades:      "/trades?",
	PageStrategies:  "/strategies?",
	PageVirtual:     "/virtual?",
	PageLogMemory:   "/log?",
	PageLogDB:       "/log?db=%d&",
	PageTransMemory: "/trans?",
	PageTransDB:     "/trans?db=%d&",
	PagePnL:         "/pnl?",
}

// pageURL builds the link for a page at a given page number, carrying the
// auth token when one is configured.
func (r *Renderer) pageURL(page PageKind, num int) string {
	url := strings.Replace(pageURLs[page], "%d", strconv.Itoa(num), 1)
	return url + r.cfg.AuthToken
}

// commandRoot is the prefix command buttons append their query to.
func (r *Renderer) commandRoot(page PageKind) string {
	root := pageURLs[page]
	if r.cfg.AuthToken != "" {
		root += r.cfg.AuthToken + "&"
	}
	return root
}
