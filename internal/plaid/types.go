package plaid

// Account is an account as reported by the aggregator.
type Account struct {
	AccountID    string  `json:"account_id"`
	Name         string  `json:"name"`
	OfficialName string  `json:"official_name"`
	Type         string  `json:"type"`    // depository, credit, loan, investment
	Subtype      string  `json:"subtype"` // checking, savings, credit card, ...
	Mask         string  `json:"mask"`
	Balances     Balance `json:"balances"`
}

// Balance holds reported balances; Plaid omits whichever side an
// institution does not supply, hence the pointers.
type Balance struct {
	Current         *float64 `json:"current"`
	Available       *float64 `json:"available"`
	Limit           *float64 `json:"limit"`
	IsoCurrencyCode string   `json:"iso_currency_code"`
}

// Item is a bank connection.
type Item struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

// AccountsResponse from /accounts/get.
type AccountsResponse struct {
	Accounts  []Account `json:"accounts"`
	Item      Item      `json:"item"`
	RequestID string    `json:"request_id"`
}

// Transaction as reported by the aggregator. Amounts are positive for
// outflows and negative for inflows.
type Transaction struct {
	TransactionID           string                  `json:"transaction_id"`
	AccountID               string                  `json:"account_id"`
	Amount                  float64                 `json:"amount"`
	Date                    string                  `json:"date"` // 2006-01-02
	Name                    string                  `json:"name"`
	MerchantName            string                  `json:"merchant_name"`
	Category                []string                `json:"category"`
	Pending                 bool                    `json:"pending"`
	IsoCurrencyCode         string                  `json:"iso_currency_code"`
	PersonalFinanceCategory PersonalFinanceCategory `json:"personal_finance_category"`
}

// PersonalFinanceCategory is Plaid's enriched categorization.
type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// RemovedTransaction identifies a transaction deleted upstream.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// SyncResponse from /transactions/sync.
type SyncResponse struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
	RequestID  string               `json:"request_id"`
}

// Institution metadata from /institutions/get_by_id.
type Institution struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	PrimaryColor  string `json:"primary_color"`
}
