package storage

import (
	"database/sql"
	"time"

	"github.com/clarityfin/clarity/internal/finance"
)

// RecurringStore handles recurring charge persistence.
type RecurringStore struct {
	db *DB
}

// NewRecurringStore creates a new recurring charge store.
func NewRecurringStore(db *DB) *RecurringStore {
	return &RecurringStore{db: db}
}

// Upsert inserts or refreshes a detected charge keyed by owner, account and
// normalized name. Detection runs regenerate rows; manual notes survive.
func (s *RecurringStore) Upsert(c *finance.RecurringCharge) error {
	now := time.Now().UTC()
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	_, err := s.db.conn.Exec(`
		INSERT INTO recurring_charges (
		    id, user_id, account_id, name, expected_amount, average_amount,
		    frequency, start_date, last_date, next_due_date, transaction_type,
		    is_active, is_subscription, total_occurrences, notes,
		    created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, account_id, name) DO UPDATE SET
		    expected_amount = excluded.expected_amount,
		    average_amount = excluded.average_amount,
		    frequency = excluded.frequency,
		    start_date = excluded.start_date,
		    last_date = excluded.last_date,
		    next_due_date = excluded.next_due_date,
		    transaction_type = excluded.transaction_type,
		    is_active = excluded.is_active,
		    is_subscription = excluded.is_subscription,
		    total_occurrences = excluded.total_occurrences,
		    updated_at = excluded.updated_at
	`,
		c.ID, c.UserID, c.AccountID, c.Name, c.ExpectedAmount, c.AverageAmount,
		c.Frequency, c.StartDate.UTC(), c.LastDate.UTC(), c.NextDueDate, c.TransactionType,
		c.IsActive, c.IsSubscription, c.TotalOccurrences, c.Notes,
		c.CreatedAt, c.UpdatedAt,
	)

	return err
}

// ListByUser returns the user's recurring charges ordered by average amount.
func (s *RecurringStore) ListByUser(userID string) ([]finance.RecurringCharge, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, user_id, account_id, name, expected_amount, average_amount,
		       frequency, start_date, last_date, next_due_date, transaction_type,
		       is_active, is_subscription, total_occurrences, notes,
		       created_at, updated_at
		FROM recurring_charges
		WHERE user_id = ?
		ORDER BY average_amount DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []finance.RecurringCharge
	for rows.Next() {
		c := finance.RecurringCharge{}
		var nextDue sql.NullTime
		var notes sql.NullString

		err := rows.Scan(
			&c.ID, &c.UserID, &c.AccountID, &c.Name, &c.ExpectedAmount, &c.AverageAmount,
			&c.Frequency, &c.StartDate, &c.LastDate, &nextDue, &c.TransactionType,
			&c.IsActive, &c.IsSubscription, &c.TotalOccurrences, &notes,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if nextDue.Valid {
			t := nextDue.Time
			c.NextDueDate = &t
		}
		c.Notes = notes.String
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// ReplaceForUser swaps out the user's detected charges in one transaction.
func (s *RecurringStore) ReplaceForUser(userID string, charges []finance.RecurringCharge) error {
	return s.db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM recurring_charges WHERE user_id = ?", userID); err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range charges {
			c := &charges[i]
			c.UpdatedAt = now
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			_, err := tx.Exec(`
				INSERT INTO recurring_charges (
				    id, user_id, account_id, name, expected_amount, average_amount,
				    frequency, start_date, last_date, next_due_date, transaction_type,
				    is_active, is_subscription, total_occurrences, notes,
				    created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				c.ID, userID, c.AccountID, c.Name, c.ExpectedAmount, c.AverageAmount,
				c.Frequency, c.StartDate.UTC(), c.LastDate.UTC(), c.NextDueDate, c.TransactionType,
				c.IsActive, c.IsSubscription, c.TotalOccurrences, c.Notes,
				c.CreatedAt, c.UpdatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
