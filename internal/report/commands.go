package report

import "tradehub/internal/models"

// Command buttons are plain GET links guarded by a javascript confirm,
// so the report stays usable from any browser without scripting beyond
// the confirm dialog itself.

func hasRowCommands(page PageKind) bool {
	return page == PageTrades || page == PageStrategies
}

// rowCommands renders the per-row action buttons for the pages that
// support them. Buttons toggle based on the row's current state.
func (r *Renderer) rowCommands(page PageKind, rec Record) string {
	root := r.commandRoot(page)
	switch page {
	case PageTrades:
		id := textField(rec, "id")
		if id == "" {
			return ""
		}
		out := ""
		if boolField(rec, "isHodl") {
			out += makeButton("Release",
				"Are you sure you want to release trade "+id+" back to normal signal handling?",
				root+"release="+id)
		} else {
			out += makeButton("HODL",
				"Are you sure you want to Hold On for Dear Life to trade "+id+" until a profitable close signal?",
				root+"hodl="+id)
		}
		if boolField(rec, "isStopped") {
			out += makeButton("Resume",
				"Are you sure you want to resume signal handling for trade "+id+"?",
				root+"start="+id)
		} else {
			out += makeButton("Stop",
				"Are you sure you want to stop signal handling for trade "+id+"?",
				root+"stop="+id)
		}
		out += makeButton("Close",
			"Are you sure you want to close trade "+id+" at the current market price?",
			root+"close="+id)
		out += makeButton("Delete",
			"Are you sure you want to delete trade "+id+" without trading?",
			root+"delete="+id)
		return out
	case PageStrategies:
		if _, ok := rec.Lookup("isActive"); !ok {
			return ""
		}
		id := textField(rec, "id")
		if id == "" {
			return ""
		}
		if boolField(rec, "isStopped") {
			return makeButton("Resume",
				"Are you sure you want to resume trading for strategy "+id+"?",
				root+"start="+id)
		}
		return makeButton("Shut Down",
			"Are you sure you want to stop trading for strategy "+id+" and close its open trades?",
			root+"stop="+id)
	default:
		return ""
	}
}

// crumbCommands renders the buttons attached to a breadcrumb heading.
// Only the per-asset balance history sections of the PnL page carry any.
func (r *Renderer) crumbCommands(page PageKind, crumb []string) string {
	if page != PagePnL || len(crumb) != 3 || crumb[0] != "Balance History" {
		return ""
	}
	tradingType := crumb[1]
	asset := crumb[2]
	root := r.commandRoot(page)

	out := makeButton("Reset",
		"Are you sure you want to delete the "+tradingType+" PnL and balance history for "+asset+"?",
		root+"reset="+asset+":"+tradingType)

	if r.cfg.BNBFreeFloat > 0 && tradingType == string(models.TradingTypeReal) && asset != "BNB" {
		for _, wallet := range models.Wallets() {
			if wallet == models.WalletMargin && !r.cfg.MarginEnabled {
				continue
			}
			out += makeButton("Top Up "+string(wallet)+" BNB",
				"Are you sure you want to top up the "+string(wallet)+" BNB balance using "+asset+"?",
				root+"topup="+asset+":"+string(wallet))
		}
	}
	return "<div class='commands'>" + out + "</div>"
}

// pageCommands renders the buttons that act on a whole page.
func (r *Renderer) pageCommands(page PageKind) string {
	if page != PageVirtual {
		return ""
	}
	root := r.commandRoot(page)
	return "<div class='commands'>" + makeButton("Reset",
		"Are you sure you want to reset all virtual balances to their configured funding levels?",
		root+"reset=virtual") + "</div>"
}

func makeButton(name, question, action string) string {
	return "<button onclick=\"if (confirm('" + htmlEscape(question) + "')) location.href='" + action + "'\">" +
		htmlEscape(name) + "</button>"
}

func textField(rec Record, name string) string {
	if v, ok := rec.Lookup(name); ok && v.Kind() == KindText {
		return v.Text()
	}
	return ""
}

func boolField(rec Record, name string) bool {
	if v, ok := rec.Lookup(name); ok && v.Kind() == KindBool {
		return v.Bool()
	}
	return false
}
