package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
)

// ReferenceRepository implements reference.Repository backed by PostgreSQL.
// Rooms and shifts are seeded at migration time and rarely change, so the
// queries stay plain reads with no caching layer of their own.
type ReferenceRepository struct {
	conn *Connection
}

// NewReferenceRepository creates a new reference data repository.
func NewReferenceRepository(conn *Connection) *ReferenceRepository {
	return &ReferenceRepository{conn: conn}
}

func scanRoom(row pgx.Row) (*reference.Room, error) {
	var r reference.Room
	if err := row.Scan(&r.ID, &r.Number, &r.Capacity); err != nil {
		return nil, err
	}
	return &r, nil
}

// Shift windows are stored as minutes from midnight.
func scanShift(row pgx.Row) (*reference.Shift, error) {
	var s reference.Shift
	var startMin, endMin int

	if err := row.Scan(&s.ID, &s.Name, &startMin, &endMin); err != nil {
		return nil, err
	}

	s.StartTime = time.Duration(startMin) * time.Minute
	s.EndTime = time.Duration(endMin) * time.Minute
	return &s, nil
}

// GetRoom returns a room by ID.
func (r *ReferenceRepository) GetRoom(ctx context.Context, id string) (*reference.Room, error) {
	room, err := scanRoom(r.conn.pool.QueryRow(ctx,
		`SELECT id, number, capacity FROM rooms WHERE id = $1`, id,
	))
	if err != nil {
		if IsNoRows(err) {
			return nil, reference.ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	return room, nil
}

// GetShift returns a shift by ID.
func (r *ReferenceRepository) GetShift(ctx context.Context, id string) (*reference.Shift, error) {
	shift, err := scanShift(r.conn.pool.QueryRow(ctx,
		`SELECT id, name, start_minutes, end_minutes FROM shifts WHERE id = $1`, id,
	))
	if err != nil {
		if IsNoRows(err) {
			return nil, reference.ErrShiftNotFound
		}
		return nil, fmt.Errorf("get shift: %w", err)
	}

	return shift, nil
}

// ListRooms returns all rooms ordered by number.
func (r *ReferenceRepository) ListRooms(ctx context.Context) ([]*reference.Room, error) {
	rows, err := r.conn.pool.Query(ctx,
		`SELECT id, number, capacity FROM rooms ORDER BY number`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*reference.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room row: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// ListShifts returns all shifts ordered by start time.
func (r *ReferenceRepository) ListShifts(ctx context.Context) ([]*reference.Shift, error) {
	rows, err := r.conn.pool.Query(ctx,
		`SELECT id, name, start_minutes, end_minutes FROM shifts ORDER BY start_minutes`,
	)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var shifts []*reference.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift row: %w", err)
		}
		shifts = append(shifts, shift)
	}

	return shifts, rows.Err()
}
