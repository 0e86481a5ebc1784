// Package room resolves a room's camera endpoints from the shared database.
//
// Rooms are managed by the studio service. The core only needs two columns:
// the camera's RTSP address and the stream key it publishes under.
package room

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = errors.New("room: not found")

	// ErrNoCamera is returned when a room has no camera URL or stream key configured.
	ErrNoCamera = errors.New("room: camera not configured")
)

// Endpoints are the relay addresses for one room.
type Endpoints struct {
	RoomID    string `json:"room_id"`
	SourceURL string `json:"source_url"`
	DestURL   string `json:"dest_url"`
}

// Directory resolves relay endpoints by room ID.
type Directory interface {
	Endpoints(ctx context.Context, roomID string) (Endpoints, error)
}

// SQLiteDirectory reads the rooms table and builds destination URLs from
// publishBase and each room's stream key.
type SQLiteDirectory struct {
	db          *sql.DB
	publishBase string
}

// NewSQLiteDirectory creates a directory publishing under publishBase
// (e.g. "rtmp://127.0.0.1:1935/live").
func NewSQLiteDirectory(db *sql.DB, publishBase string) *SQLiteDirectory {
	return &SQLiteDirectory{db: db, publishBase: strings.TrimRight(publishBase, "/")}
}

// Endpoints returns the room's camera source and relay destination.
func (d *SQLiteDirectory) Endpoints(ctx context.Context, roomID string) (Endpoints, error) {
	var cameraURL, streamKey sql.NullString

	err := d.db.QueryRowContext(ctx,
		`SELECT camera_url, stream_key FROM rooms WHERE id = ?`, roomID,
	).Scan(&cameraURL, &streamKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Endpoints{}, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
		}
		return Endpoints{}, fmt.Errorf("querying room endpoints: %w", err)
	}

	if strings.TrimSpace(cameraURL.String) == "" || strings.TrimSpace(streamKey.String) == "" {
		return Endpoints{}, fmt.Errorf("%w: %s", ErrNoCamera, roomID)
	}

	return Endpoints{
		RoomID:    roomID,
		SourceURL: cameraURL.String,
		DestURL:   d.publishBase + "/" + streamKey.String,
	}, nil
}
