package notify

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/sweepwatch/engine/internal/models"
)

// RenderSummary writes a per-run summary table of fired notifications,
// intended for dry runs and local inspection.
func RenderSummary(w io.Writer, notifications []models.Notification) {
	if len(notifications) == 0 {
		fmt.Fprintf(w, "[%s] no signals fired\n", time.Now().Format("15:04:05"))
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Category", "Symbol", "Side", "Strike", "Expiration", "Premium", "Vol/OI", "Moneyness", "Time"})

	for _, n := range notifications {
		strike := fmtStrike(n.Strike)
		expiration := fmtUSDate(n.Expiration)
		if n.IsRange() {
			strike = fmt.Sprintf("%s-%s", fmtStrike(n.Strike), fmtStrike(n.StrikeHi))
			expiration = fmt.Sprintf("%s→%s", fmtUSDate(n.Expiration), fmtUSDate(n.ExpirationHi))
		}
		table.Append([]string{
			string(n.Category),
			n.Symbol,
			string(n.Side),
			strike,
			expiration,
			"$" + fmtMoney(n.Premium),
			fmt.Sprintf("%.2f", n.VolOIRatio),
			n.Moneyness,
			n.TradeTime,
		})
	}

	table.Render()
}
