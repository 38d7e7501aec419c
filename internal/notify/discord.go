package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sweepwatch/engine/internal/models"
)

const (
	colorCall = 0x2ecc71
	colorPut  = 0xe74c3c
)

// Discord posts notifications as embeds to per-category webhooks. A category
// with no configured webhook is silently skipped.
type Discord struct {
	webhooks   map[models.Category]string
	httpClient *http.Client
}

// NewDiscord creates a Discord webhook notifier.
func NewDiscord(webhookLarge, webhookGolden, webhookCluster string, timeout time.Duration) *Discord {
	return &Discord{
		webhooks: map[models.Category]string{
			models.CategoryLarge:   webhookLarge,
			models.CategoryGolden:  webhookGolden,
			models.CategoryCluster: webhookCluster,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []embedField `json:"fields"`
	Footer struct {
		Text string `json:"text"`
	} `json:"footer"`
}

type webhookPayload struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

// Send posts the notification to its category's webhook.
func (d *Discord) Send(ctx context.Context, n models.Notification) error {
	webhook := d.webhooks[n.Category]
	if webhook == "" {
		return nil
	}

	payload := webhookPayload{Embeds: []embed{makeEmbed(n)}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func makeEmbed(n models.Notification) embed {
	color := colorCall
	if n.Side == models.Put {
		color = colorPut
	}

	tradeTime := n.TradeTime
	if tradeTime == "" {
		tradeTime = "—"
	}

	e := embed{
		Title: title(n),
		Color: color,
		Fields: []embedField{
			{Name: "Premium ~$", Value: fmtMoney(n.Premium), Inline: true},
			{Name: "Vol / OI", Value: fmt.Sprintf("%.2f", n.VolOIRatio), Inline: true},
			{Name: "Last / Bid-Ask", Value: fmt.Sprintf("%s / %s-%s", fmtPrice(n.Last), fmtPrice(n.Bid), fmtPrice(n.Ask)), Inline: true},
			{Name: "Moneyness", Value: n.Moneyness, Inline: true},
			{Name: "Trade Time", Value: tradeTime, Inline: true},
			{Name: "Link", Value: n.DeepLink, Inline: false},
		},
	}
	e.Footer.Text = "Source: Barchart Unusual Options (free)"
	return e
}

func fmtPrice(v float64) string {
	if math.IsNaN(v) {
		return "—"
	}
	return fmt.Sprintf("%.2f", v)
}

// fmtMoney renders a dollar amount with thousands separators.
func fmtMoney(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, ch := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
