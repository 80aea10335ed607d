package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/clarityfin/clarity/internal/finance"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("storage: not found")

// ConnectionStore handles institution link persistence.
type ConnectionStore struct {
	db *DB
}

// NewConnectionStore creates a new connection store.
func NewConnectionStore(db *DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

// Create creates a new connection.
func (s *ConnectionStore) Create(conn *finance.Connection) error {
	now := time.Now().UTC()
	conn.CreatedAt = now
	conn.UpdatedAt = now
	if conn.Status == "" {
		conn.Status = finance.ConnectionActive
	}

	_, err := s.db.conn.Exec(`
		INSERT INTO connections (
		    id, user_id, item_id, institution_id, institution_name,
		    access_token, sync_cursor, status, last_synced, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		conn.ID, conn.UserID, conn.ItemID, conn.InstitutionID, conn.InstitutionName,
		conn.AccessToken, conn.SyncCursor, conn.Status, conn.LastSynced,
		conn.CreatedAt, conn.UpdatedAt,
	)

	return err
}

// GetByID returns a connection by ID.
func (s *ConnectionStore) GetByID(id string) (*finance.Connection, error) {
	return s.scanOne(s.db.conn.QueryRow(`
		SELECT id, user_id, item_id, institution_id, institution_name,
		       access_token, sync_cursor, status, last_synced, created_at, updated_at
		FROM connections WHERE id = ?
	`, id))
}

// GetByItemID returns a connection by aggregator item ID.
func (s *ConnectionStore) GetByItemID(itemID string) (*finance.Connection, error) {
	return s.scanOne(s.db.conn.QueryRow(`
		SELECT id, user_id, item_id, institution_id, institution_name,
		       access_token, sync_cursor, status, last_synced, created_at, updated_at
		FROM connections WHERE item_id = ?
	`, itemID))
}

// ListByUser returns all connections for a user.
func (s *ConnectionStore) ListByUser(userID string) ([]*finance.Connection, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, user_id, item_id, institution_id, institution_name,
		       access_token, sync_cursor, status, last_synced, created_at, updated_at
		FROM connections WHERE user_id = ? ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []*finance.Connection
	for rows.Next() {
		c, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// UpdateSyncState records the cursor and timestamp after a successful sync.
func (s *ConnectionStore) UpdateSyncState(id, cursor string, syncedAt time.Time) error {
	_, err := s.db.conn.Exec(`
		UPDATE connections SET sync_cursor = ?, status = ?, last_synced = ?, updated_at = ?
		WHERE id = ?
	`, cursor, finance.ConnectionActive, syncedAt.UTC(), time.Now().UTC(), id)
	return err
}

// SetStatus updates the connection status.
func (s *ConnectionStore) SetStatus(id, status string) error {
	_, err := s.db.conn.Exec(`
		UPDATE connections SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	return err
}

// Delete removes a connection and, via cascade, its accounts and transactions.
func (s *ConnectionStore) Delete(id string) error {
	res, err := s.db.conn.Exec("DELETE FROM connections WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *ConnectionStore) scanOne(row *sql.Row) (*finance.Connection, error) {
	c, err := s.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *ConnectionStore) scanRow(row rowScanner) (*finance.Connection, error) {
	c := &finance.Connection{}
	var institutionID, institutionName sql.NullString
	var lastSynced sql.NullTime

	err := row.Scan(
		&c.ID, &c.UserID, &c.ItemID, &institutionID, &institutionName,
		&c.AccessToken, &c.SyncCursor, &c.Status, &lastSynced,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.InstitutionID = institutionID.String
	c.InstitutionName = institutionName.String
	if lastSynced.Valid {
		t := lastSynced.Time
		c.LastSynced = &t
	}
	return c, nil
}
