package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
)

// SQLiteStore handles SQLite database operations. Used for development
// and tests; production runs on PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/livechat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/livechat.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'waiting'
			CHECK (status IN ('waiting', 'active', 'closed')),
		guest_username TEXT NOT NULL,
		guest_connection_id TEXT NOT NULL DEFAULT '',
		agent_id TEXT,
		customer_name TEXT NOT NULL DEFAULT '',
		organization TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		closed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		online INTEGER NOT NULL DEFAULT 0,
		last_seen_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_status_created ON rooms(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_rooms_guest ON rooms(guest_username, status);
	CREATE INDEX IF NOT EXISTS idx_rooms_agent ON rooms(agent_id, status);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) scanRoomRow(row *sql.Row) (*models.Room, error) {
	room := &models.Room{}
	var status string
	err := row.Scan(
		&room.ID,
		&status,
		&room.Guest.Username,
		&room.Guest.ConnectionID,
		&room.AgentID,
		&room.CustomerName,
		&room.Organization,
		&room.Department,
		&room.CreatedAt,
		&room.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	room.Status = models.RoomStatus(status)
	return room, nil
}

const sqliteRoomColumns = `id, status, guest_username, guest_connection_id, agent_id, customer_name, organization, department, created_at, closed_at`

// CreateRoom creates a new waiting room for a guest request.
func (s *SQLiteStore) CreateRoom(ctx context.Context, id string, guest models.GuestInfo, customerName, organization, department string) (*models.Room, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, status, guest_username, guest_connection_id, customer_name, organization, department, created_at)
		VALUES (?, 'waiting', ?, ?, ?, ?, ?, ?)
	`, id, guest.Username, guest.ConnectionID, customerName, organization, department, now)
	if err != nil {
		return nil, err
	}

	return s.GetRoom(ctx, id)
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.scanRoomRow(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteRoomColumns+` FROM rooms WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// FindOpenRoomByGuest retrieves the newest non-closed room for a guest username.
func (s *SQLiteStore) FindOpenRoomByGuest(ctx context.Context, username string) (*models.Room, error) {
	room, err := s.scanRoomRow(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteRoomColumns+` FROM rooms
		WHERE guest_username = ? AND status IN ('waiting', 'active')
		ORDER BY created_at DESC
		LIMIT 1
	`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// UpdateGuestConnection rewrites the guest's volatile connection id.
func (s *SQLiteStore) UpdateGuestConnection(ctx context.Context, roomID, connectionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET guest_connection_id = ? WHERE id = ?
	`, connectionID, roomID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// AssignAgentIfWaiting performs the conditional waiting->active write.
func (s *SQLiteStore) AssignAgentIfWaiting(ctx context.Context, roomID, agentID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET status = 'active', agent_id = ?
		WHERE id = ? AND status = 'waiting'
	`, agentID, roomID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CloseRoom performs the conditional transition to closed.
func (s *SQLiteStore) CloseRoom(ctx context.Context, roomID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET status = 'closed', closed_at = ?
		WHERE id = ? AND status IN ('waiting', 'active')
	`, time.Now().UTC(), roomID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListWaiting retrieves all waiting rooms, oldest request first.
func (s *SQLiteStore) ListWaiting(ctx context.Context) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteRoomColumns+` FROM rooms
		WHERE status = 'waiting'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectRooms(rows)
}

// ListActiveForAgent retrieves the active rooms assigned to an agent.
func (s *SQLiteStore) ListActiveForAgent(ctx context.Context, agentID string) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteRoomColumns+` FROM rooms
		WHERE status = 'active' AND agent_id = ?
		ORDER BY created_at ASC
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectRooms(rows)
}

func (s *SQLiteStore) collectRooms(rows *sql.Rows) ([]models.Room, error) {
	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		var status string
		err := rows.Scan(
			&room.ID,
			&status,
			&room.Guest.Username,
			&room.Guest.ConnectionID,
			&room.AgentID,
			&room.CustomerName,
			&room.Organization,
			&room.Department,
			&room.CreatedAt,
			&room.ClosedAt,
		)
		if err != nil {
			return nil, err
		}
		room.Status = models.RoomStatus(status)
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// UpsertStaff records a staff identity and marks it online.
func (s *SQLiteStore) UpsertStaff(ctx context.Context, id, name string) (*models.Staff, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (id, name, online, last_seen_at, created_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, online = 1, last_seen_at = excluded.last_seen_at
	`, id, name, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetStaff(ctx, id)
}

// SetStaffOnline updates a staff identity's presence flag.
func (s *SQLiteStore) SetStaffOnline(ctx context.Context, id string, online bool) error {
	onlineInt := 0
	if online {
		onlineInt = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE staff SET online = ?, last_seen_at = ? WHERE id = ?
	`, onlineInt, time.Now().UTC(), id)
	return err
}

// GetStaff retrieves a staff identity by ID.
func (s *SQLiteStore) GetStaff(ctx context.Context, id string) (*models.Staff, error) {
	staff := &models.Staff{}
	var onlineInt int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, online, last_seen_at, created_at
		FROM staff WHERE id = ?
	`, id).Scan(
		&staff.ID,
		&staff.Name,
		&onlineInt,
		&staff.LastSeenAt,
		&staff.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	staff.Online = onlineInt == 1
	return staff, nil
}
