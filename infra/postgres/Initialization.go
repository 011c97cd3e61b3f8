package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

const (
	createRoomsTable = `
		CREATE TABLE IF NOT EXISTS rooms (
			id VARCHAR(8) PRIMARY KEY,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`

	createRoomMembersTable = `
		CREATE TABLE IF NOT EXISTS room_members (
			room_id VARCHAR(8) REFERENCES rooms(id) ON DELETE CASCADE NOT NULL,
			connection_id VARCHAR(64) NOT NULL,
			position INT NOT NULL,
			PRIMARY KEY (room_id, connection_id)
		);`

	createIndexes = `
		CREATE INDEX IF NOT EXISTS idx_room_members_room_id ON room_members(room_id);`
)

// initDB creates the room index tables when they are missing.
func initDB(ctx context.Context, db *sql.DB) error {
	tables := []struct {
		name  string
		query string
	}{
		{"rooms", createRoomsTable},
		{"room_members", createRoomMembersTable},
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table.query); err != nil {
			return fmt.Errorf("failed to create '%s' table: %w", table.name, err)
		}
		zap.L().Debug("table ready", zap.String("table", table.name))
	}

	if _, err := db.ExecContext(ctx, createIndexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	zap.L().Info("Database initialized successfully")
	return nil
}
