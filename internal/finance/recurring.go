package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// subscriptionKeywords mark merchants that are almost certainly
// subscription services regardless of charge size.
var subscriptionKeywords = []string{
	"netflix", "spotify", "hulu", "disney", "hbo", "max", "paramount",
	"peacock", "youtube", "audible", "apple", "icloud", "adobe", "dropbox",
	"patreon", "substack", "gym", "fitness", "prime", "openai", "chatgpt",
}

// groupKey normalizes a merchant identity: lower-case the merchant name
// (falling back to the description) and strip every non-alphanumeric rune,
// so "NETFLIX.COM" and "Netflix" land in the same group.
func groupKey(t Transaction) string {
	name := t.MerchantName
	if name == "" {
		name = t.Description
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectRecurring groups an expense history by normalized merchant identity
// and emits one candidate per group with at least two occurrences. The
// result is derived data: callers upsert it by (owner, name, account) and
// regenerate it on every run.
func DetectRecurring(txs []Transaction, now time.Time) []RecurringCharge {
	groups := make(map[string][]Transaction)
	var order []string

	for _, t := range txs {
		if t.Type != TypeExpense || t.Amount <= 0 {
			continue
		}
		key := groupKey(t)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	var charges []RecurringCharge
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue // a single occurrence carries no pattern signal
		}

		sort.Slice(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		var sum float64
		for _, t := range group {
			sum += t.Amount
		}
		avgAmount := sum / float64(len(group))
		lastAmount := group[len(group)-1].Amount

		var gapSum float64
		for i := 1; i < len(group); i++ {
			gapSum += group[i].Date.Sub(group[i-1].Date).Hours() / 24
		}
		meanGap := gapSum / float64(len(group)-1)

		frequency := classifyGap(meanGap)
		name := group[0].DisplayName()
		last := group[len(group)-1].Date

		charges = append(charges, RecurringCharge{
			UserID:           group[0].UserID,
			AccountID:        group[0].AccountID,
			Name:             name,
			ExpectedAmount:   lastAmount,
			AverageAmount:    avgAmount,
			Frequency:        frequency,
			StartDate:        group[0].Date,
			LastDate:         last,
			NextDueDate:      NextDueDate(&last, frequency, now),
			TransactionType:  TypeExpense,
			IsActive:         true,
			IsSubscription:   looksLikeSubscription(name, avgAmount),
			TotalOccurrences: len(group),
			Notes:            fmt.Sprintf("Detected from %d occurrences", len(group)),
		})
	}

	return charges
}

// classifyGap buckets a mean day-gap into a frequency label. Comparisons are
// strict less-than: boundary gaps of exactly 10, 20, 45, or 100 days belong
// to the lower bucket.
func classifyGap(meanGap float64) string {
	switch {
	case meanGap < 10:
		return FrequencyWeekly
	case meanGap < 20:
		return FrequencyBiweekly
	case meanGap < 45:
		return FrequencyMonthly
	case meanGap < 100:
		return FrequencyQuarterly
	default:
		return FrequencyYearly
	}
}

// looksLikeSubscription flags a charge as a likely subscription when the
// merchant matches a known service or the average charge is small. The 100
// threshold is in whatever currency unit the amounts arrived in.
func looksLikeSubscription(name string, avgAmount float64) bool {
	lower := strings.ToLower(name)
	for _, kw := range subscriptionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return avgAmount < 100
}
