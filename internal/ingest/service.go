// Package ingest pulls data from the bank aggregator into the local mirror.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clarityfin/clarity/internal/finance"
	"github.com/clarityfin/clarity/internal/logging"
	"github.com/clarityfin/clarity/internal/plaid"
	"github.com/clarityfin/clarity/internal/storage"
	"github.com/clarityfin/clarity/internal/vault"
)

// Aggregator is the subset of the Plaid client the service needs.
type Aggregator interface {
	ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.ExchangeResponse, error)
	GetAccounts(ctx context.Context, accessToken string) (*plaid.AccountsResponse, error)
	SyncAll(ctx context.Context, accessToken, cursor string) (*plaid.SyncResponse, error)
	GetInstitution(ctx context.Context, institutionID string) (*plaid.Institution, error)
	RemoveItem(ctx context.Context, accessToken string) error
}

// Event describes a mirror change for interested listeners.
type Event struct {
	Type         string `json:"type"` // "sync_complete", "connection_added", "connection_removed"
	UserID       string `json:"user_id"`
	ConnectionID string `json:"connection_id,omitempty"`
	Added        int    `json:"added,omitempty"`
	Modified     int    `json:"modified,omitempty"`
	Removed      int    `json:"removed,omitempty"`
}

// Service owns the exchange-sync-classify pipeline.
type Service struct {
	aggregator   Aggregator
	vault        *vault.Vault
	connections  *storage.ConnectionStore
	accounts     *storage.AccountStore
	transactions *storage.TransactionStore
	recurring    *storage.RecurringStore

	// OnEvent, when set, is called after each mirror change.
	OnEvent func(Event)
}

// NewService creates an ingest service.
func NewService(aggregator Aggregator, v *vault.Vault, db *storage.DB) *Service {
	return &Service{
		aggregator:   aggregator,
		vault:        v,
		connections:  storage.NewConnectionStore(db),
		accounts:     storage.NewAccountStore(db),
		transactions: storage.NewTransactionStore(db),
		recurring:    storage.NewRecurringStore(db),
	}
}

func (s *Service) emit(e Event) {
	if s.OnEvent != nil {
		s.OnEvent(e)
	}
}

// LinkInstitution exchanges a public token from the Link flow, seals the
// access token, stores the connection and runs an initial sync.
func (s *Service) LinkInstitution(ctx context.Context, userID, publicToken string) (*finance.Connection, error) {
	exchange, err := s.aggregator.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, fmt.Errorf("exchange public token: %w", err)
	}

	sealed, err := s.vault.SealString(exchange.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}

	accounts, err := s.aggregator.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}

	conn := &finance.Connection{
		ID:            uuid.NewString(),
		UserID:        userID,
		ItemID:        exchange.ItemID,
		InstitutionID: accounts.Item.InstitutionID,
		AccessToken:   sealed,
		Status:        finance.ConnectionActive,
	}

	if accounts.Item.InstitutionID != "" {
		if inst, err := s.aggregator.GetInstitution(ctx, accounts.Item.InstitutionID); err == nil {
			conn.InstitutionName = inst.Name
		} else {
			logging.Warn("institution lookup failed: %v", err)
		}
	}

	if err := s.connections.Create(conn); err != nil {
		return nil, fmt.Errorf("store connection: %w", err)
	}

	s.upsertAccounts(userID, conn, accounts.Accounts)

	if _, err := s.SyncConnection(ctx, conn.ID); err != nil {
		logging.Warn("initial sync failed for %s: %v", conn.ID, err)
	}

	s.emit(Event{Type: "connection_added", UserID: userID, ConnectionID: conn.ID})
	return conn, nil
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	ConnectionID string `json:"connection_id"`
	Added        int    `json:"added"`
	Modified     int    `json:"modified"`
	Removed      int    `json:"removed"`
}

// SyncConnection drains the transactions feed for one connection, refreshes
// balances, reclassifies new rows and regenerates recurring charges.
func (s *Service) SyncConnection(ctx context.Context, connectionID string) (*SyncResult, error) {
	conn, err := s.connections.GetByID(connectionID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.vault.OpenString(conn.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("unseal access token: %w", err)
	}

	sync, err := s.aggregator.SyncAll(ctx, accessToken, conn.SyncCursor)
	if err != nil {
		s.connections.SetStatus(conn.ID, finance.ConnectionError)
		return nil, fmt.Errorf("sync transactions: %w", err)
	}

	now := time.Now().UTC()

	if accounts, err := s.aggregator.GetAccounts(ctx, accessToken); err == nil {
		s.upsertAccounts(conn.UserID, conn, accounts.Accounts)
	} else {
		logging.Warn("balance refresh failed for %s: %v", conn.ID, err)
	}

	for _, pt := range append(sync.Added, sync.Modified...) {
		tx := mapTransaction(conn.UserID, pt)
		if err := s.transactions.Upsert(&tx); err != nil {
			return nil, fmt.Errorf("store transaction %s: %w", tx.ID, err)
		}
	}
	for _, removed := range sync.Removed {
		if err := s.transactions.Delete(removed.TransactionID); err != nil {
			return nil, fmt.Errorf("remove transaction %s: %w", removed.TransactionID, err)
		}
	}

	if err := s.connections.UpdateSyncState(conn.ID, sync.NextCursor, now); err != nil {
		return nil, fmt.Errorf("update sync state: %w", err)
	}

	if err := s.RegenerateRecurring(conn.UserID, now); err != nil {
		logging.Warn("recurring regeneration failed: %v", err)
	}

	result := &SyncResult{
		ConnectionID: conn.ID,
		Added:        len(sync.Added),
		Modified:     len(sync.Modified),
		Removed:      len(sync.Removed),
	}

	logging.WithFields(map[string]interface{}{
		"connection": conn.ID,
		"added":      result.Added,
		"modified":   result.Modified,
		"removed":    result.Removed,
	}).Info("sync complete")

	s.emit(Event{
		Type:         "sync_complete",
		UserID:       conn.UserID,
		ConnectionID: conn.ID,
		Added:        result.Added,
		Modified:     result.Modified,
		Removed:      result.Removed,
	})

	return result, nil
}

// SyncUser syncs every connection belonging to a user. Individual failures
// are logged and skipped so one broken bank does not block the rest.
func (s *Service) SyncUser(ctx context.Context, userID string) ([]SyncResult, error) {
	conns, err := s.connections.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	var results []SyncResult
	for _, conn := range conns {
		res, err := s.SyncConnection(ctx, conn.ID)
		if err != nil {
			logging.Error("sync failed for connection %s: %v", conn.ID, err)
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

// RemoveConnection invalidates the access token upstream and deletes the
// connection with its mirrored accounts and transactions.
func (s *Service) RemoveConnection(ctx context.Context, connectionID string) error {
	conn, err := s.connections.GetByID(connectionID)
	if err != nil {
		return err
	}

	if accessToken, err := s.vault.OpenString(conn.AccessToken); err == nil {
		if err := s.aggregator.RemoveItem(ctx, accessToken); err != nil {
			logging.Warn("upstream item removal failed: %v", err)
		}
	}

	if err := s.connections.Delete(connectionID); err != nil {
		return err
	}

	s.emit(Event{Type: "connection_removed", UserID: conn.UserID, ConnectionID: connectionID})
	return nil
}

// RegenerateRecurring re-runs detection over the user's last year of
// transactions and replaces the stored charges.
func (s *Service) RegenerateRecurring(userID string, now time.Time) error {
	txs, err := s.transactions.ListByUserSince(userID, now.AddDate(-1, 0, 0))
	if err != nil {
		return err
	}

	charges := finance.DetectRecurring(txs, now)
	for i := range charges {
		charges[i].ID = uuid.NewString()
		charges[i].UserID = userID
	}

	return s.recurring.ReplaceForUser(userID, charges)
}

func (s *Service) upsertAccounts(userID string, conn *finance.Connection, accounts []plaid.Account) {
	now := time.Now().UTC()
	for _, pa := range accounts {
		acct := &finance.Account{
			ID:               pa.AccountID,
			UserID:           userID,
			ConnectionID:     conn.ID,
			Name:             pa.Name,
			OfficialName:     pa.OfficialName,
			Type:             pa.Type,
			Subtype:          pa.Subtype,
			Mask:             pa.Mask,
			InstitutionName:  conn.InstitutionName,
			CurrentBalance:   pa.Balances.Current,
			AvailableBalance: pa.Balances.Available,
			CurrencyCode:     pa.Balances.IsoCurrencyCode,
			LastSynced:       &now,
		}
		if err := s.accounts.Upsert(acct); err != nil {
			logging.Error("account upsert failed for %s: %v", pa.AccountID, err)
		}
	}
}

// mapTransaction converts an aggregator transaction into a mirror row with a
// keyword classification attached.
func mapTransaction(userID string, pt plaid.Transaction) finance.Transaction {
	date, err := time.Parse("2006-01-02", pt.Date)
	if err != nil {
		date = time.Now().UTC()
	}

	category := finance.Classify(pt.Name, pt.MerchantName)
	if category == finance.CategoryUncategorized && pt.PersonalFinanceCategory.Primary != "" {
		category = prettyCategory(pt.PersonalFinanceCategory.Primary)
	}

	txType := finance.TypeExpense
	if pt.Amount < 0 {
		txType = finance.TypeIncome
	}

	isTransfer := category == "Transfer" ||
		strings.HasPrefix(pt.PersonalFinanceCategory.Primary, "TRANSFER")
	if isTransfer {
		txType = finance.TypeTransfer
	}

	return finance.Transaction{
		ID:               pt.TransactionID,
		UserID:           userID,
		AccountID:        pt.AccountID,
		Amount:           pt.Amount,
		Date:             date,
		Description:      pt.Name,
		MerchantName:     pt.MerchantName,
		Type:             txType,
		ProviderCategory: category,
		IsTransfer:       isTransfer,
		Pending:          pt.Pending,
	}
}

// prettyCategory turns "FOOD_AND_DRINK" into "Food and Drink".
func prettyCategory(raw string) string {
	words := strings.Split(strings.ToLower(raw), "_")
	for i, w := range words {
		if w == "and" || w == "of" || w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
