package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const roomColumns = `id, status, guest_username, guest_connection_id, agent_id, customer_name, organization, department, created_at, closed_at`

func scanRoom(row pgx.Row) (*models.Room, error) {
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

// CreateRoom creates a new waiting room for a guest request.
func (s *PostgresStore) CreateRoom(ctx context.Context, id string, guest models.GuestInfo, customerName, organization, department string) (*models.Room, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, status, guest_username, guest_connection_id, customer_name, organization, department)
		VALUES ($1, 'waiting', $2, $3, $4, $5, $6)
		RETURNING `+roomColumns+`
	`, id, guest.Username, guest.ConnectionID, customerName, organization, department)
	return scanRoom(row)
}

// GetRoom retrieves a room by ID.
func (s *PostgresStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := scanRoom(s.pool.QueryRow(ctx, `
		SELECT `+roomColumns+` FROM rooms WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// FindOpenRoomByGuest retrieves the newest non-closed room for a guest
// username, or nil if the guest has no open room.
func (s *PostgresStore) FindOpenRoomByGuest(ctx context.Context, username string) (*models.Room, error) {
	room, err := scanRoom(s.pool.QueryRow(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE guest_username = $1 AND status IN ('waiting', 'active')
		ORDER BY created_at DESC
		LIMIT 1
	`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// UpdateGuestConnection rewrites the guest's volatile connection id after
// a reconnect.
func (s *PostgresStore) UpdateGuestConnection(ctx context.Context, roomID, connectionID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET guest_connection_id = $2 WHERE id = $1
	`, roomID, connectionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// AssignAgentIfWaiting performs the conditional waiting->active write.
// Only the first acceptor sees rows affected; a concurrent second accept
// gets false.
func (s *PostgresStore) AssignAgentIfWaiting(ctx context.Context, roomID, agentID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET status = 'active', agent_id = $2
		WHERE id = $1 AND status = 'waiting'
	`, roomID, agentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CloseRoom performs the conditional transition to closed.
func (s *PostgresStore) CloseRoom(ctx context.Context, roomID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET status = 'closed', closed_at = NOW()
		WHERE id = $1 AND status IN ('waiting', 'active')
	`, roomID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListWaiting retrieves all waiting rooms, oldest request first.
func (s *PostgresStore) ListWaiting(ctx context.Context) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE status = 'waiting'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

// ListActiveForAgent retrieves the active rooms assigned to an agent.
func (s *PostgresStore) ListActiveForAgent(ctx context.Context, agentID string) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE status = 'active' AND agent_id = $1
		ORDER BY created_at ASC
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

func collectRooms(rows pgx.Rows) ([]models.Room, error) {
	var rooms []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

// UpsertStaff records a staff identity, refreshing the display name, and
// marks it online.
func (s *PostgresStore) UpsertStaff(ctx context.Context, id, name string) (*models.Staff, error) {
	staff := &models.Staff{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO staff (id, name, online, last_seen_at)
		VALUES ($1, $2, TRUE, NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, online = TRUE, last_seen_at = NOW()
		RETURNING id, name, online, last_seen_at, created_at
	`, id, name).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Online,
		&staff.LastSeenAt,
		&staff.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return staff, nil
}

// SetStaffOnline updates a staff identity's presence flag.
func (s *PostgresStore) SetStaffOnline(ctx context.Context, id string, online bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE staff SET online = $2, last_seen_at = NOW() WHERE id = $1
	`, id, online)
	return err
}

// GetStaff retrieves a staff identity by ID.
func (s *PostgresStore) GetStaff(ctx context.Context, id string) (*models.Staff, error) {
	staff := &models.Staff{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, online, last_seen_at, created_at
		FROM staff WHERE id = $1
	`, id).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Online,
		&staff.LastSeenAt,
		&staff.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return staff, nil
}
