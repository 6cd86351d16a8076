package tradingview

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jwtly10/crossbot/internal/position"
)

func allowDump() bool {
	// DEBUG_DUMP=1 enables the Pine Script dump
	if os.Getenv("DEBUG_DUMP") == "1" {
		slog.Info("DEBUG_DUMP=1, dumping Pine Script to stdout")
		return true
	}
	return false
}

func DumpPineScript(trades []position.Trade) {
	if !allowDump() {
		return
	}
	WritePineScript(os.Stdout, trades)
}

func WritePineScript(w io.Writer, trades []position.Trade) {
	fmt.Fprint(w, generateTradePinescript(trades))
}

// generateTradePinescript returns Pine Script plotting an entry label below
// the bar and an exit label above it for every trade. A position still open
// at the end gets a grey marker at the last bar.
func generateTradePinescript(trades []position.Trade) string {
	var sb strings.Builder

	sb.WriteString("// ============================================\n")
	sb.WriteString("// TRADE VALIDATION MARKERS\n")
	sb.WriteString("// ============================================\n\n")

	for _, trade := range trades {
		entryText := fmt.Sprintf("#%d LONG\\nEntry: %.5f\\nQty: %.5f",
			trade.ID, trade.EntryPrice, trade.Quantity)

		fmt.Fprintf(&sb, "t%d_entry = time == %s\n", trade.ID, formatPineTimestamp(trade.EntryTime))
		fmt.Fprintf(&sb, "plotshape(t%d_entry, title=\"#%d LONG Entry\", location=location.bottom, color=color.blue, style=shape.labelup, size=size.small, text=\"%s\", textcolor=color.white)\n\n",
			trade.ID, trade.ID, entryText)

		exitText := fmt.Sprintf("#%d EXIT\\nExit: %.5f\\nP&L: %.2f%%\\n%s",
			trade.ID, trade.ExitPrice, trade.PnLPercent, trade.ExitReason)
		title := "EXIT"
		if trade.Open {
			title = "OPEN"
		}

		fmt.Fprintf(&sb, "t%d_exit = time == %s\n", trade.ID, formatPineTimestamp(trade.ExitTime))
		fmt.Fprintf(&sb, "plotshape(t%d_exit, title=\"#%d %s\", location=location.top, color=%s, style=shape.labeldown, size=size.small, text=\"%s\", textcolor=color.white)\n\n",
			trade.ID, trade.ID, title, exitColor(trade), exitText)
	}

	return sb.String()
}

func exitColor(trade position.Trade) string {
	switch {
	case trade.Open:
		return "color.gray"
	case trade.ExitReason == position.ReasonTrailingStop && trade.PnL < 0:
		return "color.red"
	case trade.ExitReason == position.ReasonDeathCross:
		return "color.orange"
	default:
		return "color.green"
	}
}

func formatPineTimestamp(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("timestamp(\"UTC\", %d, %d, %d, %d, %d)",
		utc.Year(), int(utc.Month()), utc.Day(), utc.Hour(), utc.Minute())
}
