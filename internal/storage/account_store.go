package storage

import (
	"database/sql"
	"time"

	"github.com/clarityfin/clarity/internal/finance"
)

// AccountStore handles account persistence.
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new account store.
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

// Upsert inserts or refreshes an account keyed by its aggregator ID.
func (s *AccountStore) Upsert(a *finance.Account) error {
	now := time.Now().UTC()
	a.UpdatedAt = now
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}

	_, err := s.db.conn.Exec(`
		INSERT INTO accounts (
		    id, user_id, connection_id, name, official_name, type, subtype,
		    mask, institution_name, current_balance, available_balance,
		    currency_code, last_synced, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    name = excluded.name,
		    official_name = excluded.official_name,
		    type = excluded.type,
		    subtype = excluded.subtype,
		    mask = excluded.mask,
		    institution_name = excluded.institution_name,
		    current_balance = excluded.current_balance,
		    available_balance = excluded.available_balance,
		    currency_code = excluded.currency_code,
		    last_synced = excluded.last_synced,
		    updated_at = excluded.updated_at
	`,
		a.ID, a.UserID, a.ConnectionID, a.Name, a.OfficialName, a.Type, a.Subtype,
		a.Mask, a.InstitutionName, a.CurrentBalance, a.AvailableBalance,
		a.CurrencyCode, a.LastSynced, a.CreatedAt, a.UpdatedAt,
	)

	return err
}

// GetByID returns an account by ID.
func (s *AccountStore) GetByID(id string) (*finance.Account, error) {
	a, err := s.scanRow(s.db.conn.QueryRow(selectAccount+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// ListByUser returns all accounts for a user.
func (s *AccountStore) ListByUser(userID string) ([]*finance.Account, error) {
	rows, err := s.db.conn.Query(selectAccount+" WHERE user_id = ? ORDER BY name ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*finance.Account
	for rows.Next() {
		a, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListByConnection returns accounts under one connection.
func (s *AccountStore) ListByConnection(connectionID string) ([]*finance.Account, error) {
	rows, err := s.db.conn.Query(selectAccount+" WHERE connection_id = ? ORDER BY name ASC", connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*finance.Account
	for rows.Next() {
		a, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

const selectAccount = `
	SELECT id, user_id, connection_id, name, official_name, type, subtype,
	       mask, institution_name, current_balance, available_balance,
	       currency_code, last_synced, created_at, updated_at
	FROM accounts`

func (s *AccountStore) scanRow(row rowScanner) (*finance.Account, error) {
	a := &finance.Account{}
	var officialName, subtype, mask, institutionName, currencyCode sql.NullString
	var current, available sql.NullFloat64
	var lastSynced sql.NullTime

	err := row.Scan(
		&a.ID, &a.UserID, &a.ConnectionID, &a.Name, &officialName, &a.Type, &subtype,
		&mask, &institutionName, &current, &available,
		&currencyCode, &lastSynced, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.OfficialName = officialName.String
	a.Subtype = subtype.String
	a.Mask = mask.String
	a.InstitutionName = institutionName.String
	a.CurrencyCode = currencyCode.String
	if current.Valid {
		v := current.Float64
		a.CurrentBalance = &v
	}
	if available.Valid {
		v := available.Float64
		a.AvailableBalance = &v
	}
	if lastSynced.Valid {
		t := lastSynced.Time
		a.LastSynced = &t
	}
	return a, nil
}
