package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a closed lot as an Org-mode block. Structured facts
// live in the PROPERTIES drawer so they stay searchable.
func FormatTradeOrg(t TradeRecord) string {
	opened := t.OpenTime.UTC().Format(time.DateOnly)
	closed := t.CloseTime.UTC().Format(time.DateOnly)

	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s (%s)\n", t.Symbol, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":RUN_ID: %s\n", t.RunID)
	fmt.Fprintf(&b, ":LOT_ID: %s\n", t.LotID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":SHARES: %d\n", t.Shares)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.4f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.4f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":OPEN_DATE: %s\n", opened)
	fmt.Fprintf(&b, ":CLOSE_DATE: %s\n", closed)
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.RealizedPL)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
