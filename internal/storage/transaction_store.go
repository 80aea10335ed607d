package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/clarityfin/clarity/internal/finance"
)

// TransactionStore handles transaction persistence.
type TransactionStore struct {
	db *DB
}

// NewTransactionStore creates a new transaction store.
func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Upsert inserts or refreshes a transaction keyed by its aggregator ID.
// User-editable fields (category, excluded, notes, tags) are preserved on
// conflict so a re-sync never clobbers manual edits.
func (s *TransactionStore) Upsert(t *finance.Transaction) error {
	now := time.Now().UTC()
	t.UpdatedAt = now
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}

	tags, _ := json.Marshal(t.Tags)
	if t.Tags == nil {
		tags = []byte("[]")
	}

	_, err := s.db.conn.Exec(`
		INSERT INTO transactions (
		    id, user_id, account_id, amount, date, description, merchant_name,
		    type, category, provider_category, is_transfer, excluded, pending,
		    notes, tags, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    amount = excluded.amount,
		    date = excluded.date,
		    description = excluded.description,
		    merchant_name = excluded.merchant_name,
		    type = excluded.type,
		    provider_category = excluded.provider_category,
		    is_transfer = excluded.is_transfer,
		    pending = excluded.pending,
		    updated_at = excluded.updated_at
	`,
		t.ID, t.UserID, t.AccountID, t.Amount, t.Date.UTC(), t.Description, t.MerchantName,
		t.Type, t.Category, t.ProviderCategory, t.IsTransfer, t.Excluded, t.Pending,
		t.Notes, string(tags), t.CreatedAt, t.UpdatedAt,
	)

	return err
}

// UpdateUserFields persists the manually editable fields of a transaction.
func (s *TransactionStore) UpdateUserFields(t *finance.Transaction) error {
	t.UpdatedAt = time.Now().UTC()

	tags, _ := json.Marshal(t.Tags)
	if t.Tags == nil {
		tags = []byte("[]")
	}

	res, err := s.db.conn.Exec(`
		UPDATE transactions SET
		    category = ?, is_transfer = ?, excluded = ?, notes = ?, tags = ?,
		    updated_at = ?
		WHERE id = ?
	`, t.Category, t.IsTransfer, t.Excluded, t.Notes, string(tags), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a transaction by ID.
func (s *TransactionStore) GetByID(id string) (*finance.Transaction, error) {
	t, err := s.scanRow(s.db.conn.QueryRow(selectTransaction+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

// ListByUser returns transactions for a user, newest first.
func (s *TransactionStore) ListByUser(userID string, limit, offset int) ([]finance.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.conn.Query(
		selectTransaction+" WHERE user_id = ? ORDER BY date DESC, id ASC LIMIT ? OFFSET ?",
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanAll(rows)
}

// ListByUserSince returns transactions on or after a date, newest first.
func (s *TransactionStore) ListByUserSince(userID string, since time.Time) ([]finance.Transaction, error) {
	rows, err := s.db.conn.Query(
		selectTransaction+" WHERE user_id = ? AND date >= ? ORDER BY date DESC, id ASC",
		userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanAll(rows)
}

// ListByAccount returns transactions for one account, newest first.
func (s *TransactionStore) ListByAccount(accountID string, limit int) ([]finance.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.conn.Query(
		selectTransaction+" WHERE account_id = ? ORDER BY date DESC, id ASC LIMIT ?",
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanAll(rows)
}

// Delete removes a transaction, used when the aggregator reports a removal.
func (s *TransactionStore) Delete(id string) error {
	_, err := s.db.conn.Exec("DELETE FROM transactions WHERE id = ?", id)
	return err
}

// CountByUser returns the user's total transaction count.
func (s *TransactionStore) CountByUser(userID string) (int, error) {
	var count int
	err := s.db.conn.QueryRow("SELECT COUNT(*) FROM transactions WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

const selectTransaction = `
	SELECT id, user_id, account_id, amount, date, description, merchant_name,
	       type, category, provider_category, is_transfer, excluded, pending,
	       notes, tags, created_at, updated_at
	FROM transactions`

func (s *TransactionStore) scanAll(rows *sql.Rows) ([]finance.Transaction, error) {
	var txs []finance.Transaction
	for rows.Next() {
		t, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func (s *TransactionStore) scanRow(row rowScanner) (*finance.Transaction, error) {
	t := &finance.Transaction{}
	var merchantName, category, providerCategory, notes sql.NullString
	var tags string

	err := row.Scan(
		&t.ID, &t.UserID, &t.AccountID, &t.Amount, &t.Date, &t.Description,
		&merchantName, &t.Type, &category, &providerCategory,
		&t.IsTransfer, &t.Excluded, &t.Pending,
		&notes, &tags, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.MerchantName = merchantName.String
	t.Category = category.String
	t.ProviderCategory = providerCategory.String
	t.Notes = notes.String
	json.Unmarshal([]byte(tags), &t.Tags)

	return t, nil
}
