package finance

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Snapshot aggregates mirrored rows into totals, spending windows, and a
// text summary suitable for prompt injection.
type Snapshot struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Totals      SnapshotTotals    `json:"totals"`
	Spending    SnapshotSpending  `json:"spending"`
	Recurring   SnapshotRecurring `json:"recurring"`
	Accounts    []AccountSummary  `json:"accounts"`
	Insights    []string          `json:"insights"`
	Summary     string            `json:"summary"`
}

// SnapshotTotals holds net-worth arithmetic over the account list.
type SnapshotTotals struct {
	TotalAssets      float64 `json:"total_assets"`
	TotalLiabilities float64 `json:"total_liabilities"`
	NetWorth         float64 `json:"net_worth"`
	LiquidCash       float64 `json:"liquid_cash"`
	Invested         float64 `json:"invested"`
}

// SnapshotSpending holds 30-day and prior-30-day spending windows.
type SnapshotSpending struct {
	Last30Days       float64           `json:"last_30_days"`
	Prior30Days      float64           `json:"prior_30_days"`
	PercentChange    float64           `json:"percent_change"`
	AverageDaily     float64           `json:"average_daily"`
	Income30Days     float64           `json:"income_30_days"`
	NetCashFlow      float64           `json:"net_cash_flow"`
	TopCategories    []CategorySpend   `json:"top_categories"`
	LargestPurchases []PurchaseSummary `json:"largest_purchases"`
}

// CategorySpend is one row of the top-categories breakdown.
type CategorySpend struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Percent  int     `json:"percent"` // share of 30-day spending, 0 when total is 0
}

// PurchaseSummary is one of the largest 30-day purchases.
type PurchaseSummary struct {
	Name     string    `json:"name"`
	Amount   float64   `json:"amount"`
	Date     time.Time `json:"date"`
	Category string    `json:"category"`
}

// SnapshotRecurring summarizes expense-type recurring charges.
type SnapshotRecurring struct {
	Count        int               `json:"count"`
	MonthlyTotal float64           `json:"monthly_total"`
	Upcoming     []RecurringCharge `json:"upcoming"` // non-nil next due, soonest first
	Largest      []RecurringCharge `json:"largest"`  // by expected amount
}

// AccountSummary is the per-account slice of the snapshot.
type AccountSummary struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Balance float64 `json:"balance"`
}

// liabilityTypes partition accounts for net-worth purposes. Everything not
// listed here counts as an asset.
var liabilityTypes = map[string]bool{
	"credit":          true,
	"loan":            true,
	"mortgage":        true,
	"liability":       true,
	"other liability": true,
}

// Text heuristics that knock credit-card payments and transfers out of the
// expense set even when the row is typed as an expense.
var transferPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bach\b.*\b(payment|pymt|transfer)\b`),
	regexp.MustCompile(`(?i)\bpayment\b.*\bthank you\b`),
	regexp.MustCompile(`(?i)\bonline transfer\b`),
	regexp.MustCompile(`(?i)\b(payment|pymt|pay|autopay|epay)\b.*\b(chase|amex|american express|citi|capital one|discover|barclays|wells fargo|bank of america|synchrony|us bank|usaa)\b`),
	regexp.MustCompile(`(?i)\b(chase|amex|american express|citi|capital one|discover|barclays|wells fargo|bank of america|synchrony|us bank|usaa)\b.*\b(payment|pymt|autopay|epay)\b`),
	regexp.MustCompile(`(?i)\b(venmo|zelle|cash app|cashapp|paypal)\b`),
}

func looksLikeTransfer(text string) bool {
	for _, p := range transferPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// isExpense applies the full expense filter: typed expense, positive amount,
// not flagged or worded as a transfer, and not categorized Income/Transfer.
func isExpense(t Transaction) bool {
	if t.Type != TypeExpense || t.Amount <= 0 || t.IsTransfer || t.Excluded {
		return false
	}
	if looksLikeTransfer(t.Description + " " + t.MerchantName) {
		return false
	}
	cat := t.EffectiveCategory()
	return cat != "Income" && cat != "Transfer"
}

// isIncome checks only the effective category label. This is deliberately
// asymmetric with isExpense: a row typed income but categorized otherwise is
// not counted, matching existing behavior.
func isIncome(t Transaction) bool {
	return t.EffectiveCategory() == "Income"
}

// BuildSnapshot aggregates already-fetched rows. Transactions are expected
// to cover the trailing 60 days; rows outside both windows are ignored.
func BuildSnapshot(accounts []Account, recurring []RecurringCharge, txs []Transaction, now time.Time) *Snapshot {
	s := &Snapshot{GeneratedAt: now}

	s.Totals = buildTotals(accounts)
	s.Spending = buildSpending(txs, now)
	s.Recurring = buildRecurring(recurring)
	s.Accounts = summarizeAccounts(accounts)
	s.Insights = buildInsights(s.Spending, s.Recurring)
	s.Summary = renderSummary(s)

	return s
}

func balanceOr(primary, fallback *float64) float64 {
	if primary != nil {
		return *primary
	}
	if fallback != nil {
		return *fallback
	}
	return 0
}

func buildTotals(accounts []Account) SnapshotTotals {
	var t SnapshotTotals
	for _, a := range accounts {
		typ := strings.ToLower(a.Type)
		if liabilityTypes[typ] {
			t.TotalLiabilities += math.Abs(balanceOr(a.CurrentBalance, a.AvailableBalance))
			continue
		}
		t.TotalAssets += balanceOr(a.CurrentBalance, a.AvailableBalance)
		switch typ {
		case "depository":
			t.LiquidCash += balanceOr(a.AvailableBalance, a.CurrentBalance)
		case "investment":
			t.Invested += balanceOr(a.CurrentBalance, a.AvailableBalance)
		}
	}
	t.NetWorth = t.TotalAssets - t.TotalLiabilities
	return t
}

func buildSpending(txs []Transaction, now time.Time) SnapshotSpending {
	var sp SnapshotSpending

	cutoff30 := now.AddDate(0, 0, -30)
	cutoff60 := now.AddDate(0, 0, -60)

	byCategory := make(map[string]float64)
	var current []Transaction

	for _, t := range txs {
		in30 := !t.Date.Before(cutoff30) && !t.Date.After(now)
		inPrior := t.Date.Before(cutoff30) && !t.Date.Before(cutoff60)

		if isExpense(t) {
			if in30 {
				sp.Last30Days += t.Amount
				byCategory[t.EffectiveCategory()] += t.Amount
				current = append(current, t)
			} else if inPrior {
				sp.Prior30Days += t.Amount
			}
		}
		if isIncome(t) && in30 {
			sp.Income30Days += math.Abs(t.Amount)
		}
	}

	if sp.Prior30Days > 0 {
		sp.PercentChange = (sp.Last30Days - sp.Prior30Days) / sp.Prior30Days * 100
	}
	sp.AverageDaily = sp.Last30Days / 30
	sp.NetCashFlow = sp.Income30Days - sp.Last30Days

	// Top 4 categories with integer share of total spending.
	for cat, amount := range byCategory {
		sp.TopCategories = append(sp.TopCategories, CategorySpend{Category: cat, Amount: amount})
	}
	sort.Slice(sp.TopCategories, func(i, j int) bool {
		if sp.TopCategories[i].Amount != sp.TopCategories[j].Amount {
			return sp.TopCategories[i].Amount > sp.TopCategories[j].Amount
		}
		return sp.TopCategories[i].Category < sp.TopCategories[j].Category
	})
	if len(sp.TopCategories) > 4 {
		sp.TopCategories = sp.TopCategories[:4]
	}
	for i := range sp.TopCategories {
		if sp.Last30Days > 0 {
			sp.TopCategories[i].Percent = int(math.Round(sp.TopCategories[i].Amount / sp.Last30Days * 100))
		}
	}

	// Top 3 purchases by amount.
	sort.Slice(current, func(i, j int) bool { return current[i].Amount > current[j].Amount })
	if len(current) > 3 {
		current = current[:3]
	}
	for _, t := range current {
		sp.LargestPurchases = append(sp.LargestPurchases, PurchaseSummary{
			Name:     t.DisplayName(),
			Amount:   t.Amount,
			Date:     t.Date,
			Category: t.EffectiveCategory(),
		})
	}

	return sp
}

// monthlyEquivalent converts an expected charge to a monthly figure.
func monthlyEquivalent(c RecurringCharge) float64 {
	switch c.Frequency {
	case FrequencyWeekly:
		return c.ExpectedAmount * 4.33
	case FrequencyBiweekly:
		return c.ExpectedAmount * 2.17
	case FrequencyQuarterly:
		return c.ExpectedAmount / 3
	case FrequencyYearly:
		return c.ExpectedAmount / 12
	default:
		return c.ExpectedAmount
	}
}

func buildRecurring(all []RecurringCharge) SnapshotRecurring {
	var r SnapshotRecurring

	var expenses []RecurringCharge
	for _, c := range all {
		if c.TransactionType != TypeExpense {
			continue
		}
		expenses = append(expenses, c)
		r.MonthlyTotal += monthlyEquivalent(c)
	}
	r.Count = len(expenses)

	upcoming := make([]RecurringCharge, len(expenses))
	copy(upcoming, expenses)
	sort.SliceStable(upcoming, func(i, j int) bool {
		a, b := upcoming[i].NextDueDate, upcoming[j].NextDueDate
		if a == nil {
			return false // nils sort last
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
	for _, c := range upcoming {
		if c.NextDueDate == nil || len(r.Upcoming) == 5 {
			break
		}
		r.Upcoming = append(r.Upcoming, c)
	}

	largest := make([]RecurringCharge, len(expenses))
	copy(largest, expenses)
	sort.SliceStable(largest, func(i, j int) bool {
		return largest[i].ExpectedAmount > largest[j].ExpectedAmount
	})
	if len(largest) > 5 {
		largest = largest[:5]
	}
	r.Largest = largest

	return r
}

func summarizeAccounts(accounts []Account) []AccountSummary {
	out := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountSummary{
			Name:    a.Name,
			Type:    a.Type,
			Balance: balanceOr(a.CurrentBalance, a.AvailableBalance),
		})
	}
	return out
}

func buildInsights(sp SnapshotSpending, rec SnapshotRecurring) []string {
	var insights []string

	if sp.Prior30Days > 0 {
		change := sp.Last30Days - sp.Prior30Days
		if math.Abs(change) > sp.Prior30Days*0.10 {
			direction := "up"
			if change < 0 {
				direction = "down"
			}
			insights = append(insights, fmt.Sprintf(
				"Spending is %s %.0f%% versus the prior 30 days (%s vs %s).",
				direction, math.Abs(sp.PercentChange),
				FormatCurrency(sp.Last30Days, CurrencyOptions{}),
				FormatCurrency(sp.Prior30Days, CurrencyOptions{})))
		}
	}

	if rec.Count > 0 && sp.Last30Days > 0 {
		share := rec.MonthlyTotal / sp.Last30Days * 100
		insights = append(insights, fmt.Sprintf(
			"Recurring charges run about %s/month across %d charges, roughly %.0f%% of your 30-day spending.",
			FormatCurrency(rec.MonthlyTotal, CurrencyOptions{}), rec.Count, share))
	}

	return insights
}

// renderSummary produces the human-readable block handed to the advice
// prompt.
func renderSummary(s *Snapshot) string {
	fc := func(v float64) string { return FormatCurrency(v, CurrencyOptions{}) }
	var b strings.Builder

	fmt.Fprintf(&b, "Net worth: %s (assets %s, liabilities %s)\n",
		fc(s.Totals.NetWorth), fc(s.Totals.TotalAssets), fc(s.Totals.TotalLiabilities))
	fmt.Fprintf(&b, "Liquid cash: %s, invested: %s\n", fc(s.Totals.LiquidCash), fc(s.Totals.Invested))
	fmt.Fprintf(&b, "Last 30 days: spent %s, earned %s, net cash flow %s (avg %s/day)\n",
		fc(s.Spending.Last30Days), fc(s.Spending.Income30Days),
		FormatCurrency(s.Spending.NetCashFlow, CurrencyOptions{IncludeSign: true}),
		FormatCurrency(s.Spending.AverageDaily, CurrencyOptions{Decimals: 2}))

	if len(s.Spending.TopCategories) > 0 {
		b.WriteString("Top spending categories:\n")
		for _, c := range s.Spending.TopCategories {
			fmt.Fprintf(&b, "- %s: %s (%d%%)\n", c.Category, fc(c.Amount), c.Percent)
		}
	}
	if len(s.Spending.LargestPurchases) > 0 {
		b.WriteString("Largest purchases:\n")
		for _, p := range s.Spending.LargestPurchases {
			fmt.Fprintf(&b, "- %s: %s on %s\n", p.Name, FormatCurrency(p.Amount, CurrencyOptions{Decimals: 2}), p.Date.Format("Jan 2"))
		}
	}
	if s.Recurring.Count > 0 {
		fmt.Fprintf(&b, "Recurring: %d expense charges, about %s/month\n", s.Recurring.Count, fc(s.Recurring.MonthlyTotal))
		for _, c := range s.Recurring.Upcoming {
			fmt.Fprintf(&b, "- %s %s due %s\n", c.Name, FormatCurrency(c.ExpectedAmount, CurrencyOptions{Decimals: 2}), c.NextDueDate.Format("Jan 2"))
		}
	}
	for _, in := range s.Insights {
		fmt.Fprintf(&b, "Insight: %s\n", in)
	}

	return strings.TrimRight(b.String(), "\n")
}
