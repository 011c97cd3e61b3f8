package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"room-broker/domain"

	"github.com/lib/pq"
)

const (
	selectRoomQuery = `
		SELECT r.created_at,
			COALESCE(array_agg(m.connection_id ORDER BY m.position) FILTER (WHERE m.connection_id IS NOT NULL), '{}')
		FROM rooms r
		LEFT JOIN room_members m ON m.room_id = r.id
		WHERE r.id = $1
		GROUP BY r.created_at`

	insertRoomQuery = `
		INSERT INTO rooms (id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	deleteMembersQuery = `DELETE FROM room_members WHERE room_id = $1`

	insertMembersQuery = `
		INSERT INTO room_members (room_id, connection_id, position)
		SELECT $1, member, ord
		FROM unnest($2::text[]) WITH ORDINALITY AS t(member, ord)`

	deleteRoomQuery = `DELETE FROM rooms WHERE id = $1`
)

func (r *Repository) Get(ctx context.Context, roomID string) (domain.Room, error) {
	var (
		createdAt time.Time
		members   pq.StringArray
	)
	err := r.db.QueryRowContext(ctx, selectRoomQuery, roomID).Scan(&createdAt, &members)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("failed to query room: %w", err)
	}

	return domain.Room{
		ID:        roomID,
		Members:   []string(members),
		CreatedAt: createdAt.UTC(),
	}, nil
}

func (r *Repository) Create(ctx context.Context, room domain.Room) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertRoomQuery, room.ID, createdAt(room))
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: room %s already exists", domain.ErrConflict, room.ID)
	}

	if _, err := tx.ExecContext(ctx, insertMembersQuery, room.ID, pq.Array(room.Members)); err != nil {
		return fmt.Errorf("failed to add members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Put replaces the member list of a room, creating the room if needed.
func (r *Repository) Put(ctx context.Context, room domain.Room) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertRoomQuery, room.ID, createdAt(room)); err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteMembersQuery, room.ID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertMembersQuery, room.ID, pq.Array(room.Members)); err != nil {
		return fmt.Errorf("failed to add members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Touch is a no-op: rows are only removed by Delete.
func (r *Repository) Touch(context.Context, string) error { return nil }

func (r *Repository) Delete(ctx context.Context, roomID string) error {
	if _, err := r.db.ExecContext(ctx, deleteRoomQuery, roomID); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}

func createdAt(room domain.Room) time.Time {
	if room.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return room.CreatedAt
}
