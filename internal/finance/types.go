// Package finance implements transaction classification, recurring-charge
// detection, and financial snapshot building.
package finance

import "time"

// Transaction type values stored in the mirror.
const (
	TypeExpense  = "expense"
	TypeIncome   = "income"
	TypeTransfer = "transfer"
)

// CategoryUncategorized is returned when no classification rule matches.
const CategoryUncategorized = "Uncategorized"

// Transaction is a mirrored bank transaction. Amounts follow the aggregator
// convention: positive = outflow/expense, negative = inflow/income.
type Transaction struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	AccountID        string    `json:"account_id"`
	Amount           float64   `json:"amount"`
	Date             time.Time `json:"date"`
	Description      string    `json:"description"`
	MerchantName     string    `json:"merchant_name,omitempty"`
	Type             string    `json:"type"`
	Category         string    `json:"category,omitempty"`          // user-assigned, wins
	ProviderCategory string    `json:"provider_category,omitempty"` // aggregator-assigned
	IsTransfer       bool      `json:"is_transfer"`
	Excluded         bool      `json:"excluded"`
	Pending          bool      `json:"pending"`
	Notes            string    `json:"notes,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EffectiveCategory returns the user category if set, then the provider
// category, then "Uncategorized".
func (t Transaction) EffectiveCategory() string {
	if t.Category != "" {
		return t.Category
	}
	if t.ProviderCategory != "" {
		return t.ProviderCategory
	}
	return CategoryUncategorized
}

// DisplayName returns the merchant name, falling back to the description.
func (t Transaction) DisplayName() string {
	if t.MerchantName != "" {
		return t.MerchantName
	}
	return t.Description
}

// Connection is a link to one institution at the aggregator. The access
// token is sealed by the vault before it reaches storage.
type Connection struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ItemID          string     `json:"item_id"`
	InstitutionID   string     `json:"institution_id,omitempty"`
	InstitutionName string     `json:"institution_name,omitempty"`
	AccessToken     string     `json:"-"` // sealed
	SyncCursor      string     `json:"-"`
	Status          string     `json:"status"`
	LastSynced      *time.Time `json:"last_synced,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Connection status values.
const (
	ConnectionActive = "active"
	ConnectionError  = "error"
)

// Account is a mirrored bank account. Balances are nullable because the
// aggregator omits whichever side a given institution does not report.
type Account struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	ConnectionID     string     `json:"connection_id"`
	Name             string     `json:"name"`
	OfficialName     string     `json:"official_name,omitempty"`
	Type             string     `json:"type"`    // depository, credit, loan, investment, ...
	Subtype          string     `json:"subtype"` // checking, savings, credit card, ...
	Mask             string     `json:"mask,omitempty"`
	InstitutionName  string     `json:"institution_name,omitempty"`
	CurrentBalance   *float64   `json:"current_balance,omitempty"`
	AvailableBalance *float64   `json:"available_balance,omitempty"`
	CurrencyCode     string     `json:"currency_code,omitempty"`
	LastSynced       *time.Time `json:"last_synced,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// RecurringCharge is a detected repeating charge. Rows are regenerated
// (upserted by owner+name+account) on every detection run; the detector never
// deactivates stale rows itself.
type RecurringCharge struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	AccountID        string     `json:"account_id"`
	Name             string     `json:"name"`
	ExpectedAmount   float64    `json:"expected_amount"` // most recent occurrence
	AverageAmount    float64    `json:"average_amount"`
	Frequency        string     `json:"frequency"`
	StartDate        time.Time  `json:"start_date"`
	LastDate         time.Time  `json:"last_transaction_date"`
	NextDueDate      *time.Time `json:"next_due_date,omitempty"`
	TransactionType  string     `json:"transaction_type"`
	IsActive         bool       `json:"is_active"`
	IsSubscription   bool       `json:"is_subscription"`
	TotalOccurrences int        `json:"total_occurrences"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Recurring charge frequency labels.
const (
	FrequencyWeekly    = "weekly"
	FrequencyBiweekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)
