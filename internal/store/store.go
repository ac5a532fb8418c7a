// Package store persists maps, their shape states and state styles, and the
// operator accounts allowed to change them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Map is a stored SVG map. List results leave Document empty.
type Map struct {
	ID        string
	Name      string
	OwnerID   string
	Document  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Store is implemented by the Postgres and SQLite backends.
type Store interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateMap(ctx context.Context, m Map) error
	GetMap(ctx context.Context, id string) (*Map, error)
	ListMaps(ctx context.Context) ([]Map, error)
	UpdateMapDocument(ctx context.Context, id, document string) error
	DeleteMap(ctx context.Context, id string) error

	// SetShapeState upserts the logical state of one shape of a map.
	SetShapeState(ctx context.Context, mapID, shapeID string, state int32) error
	ClearShapeState(ctx context.Context, mapID, shapeID string) error
	ShapeStates(ctx context.Context, mapID string) (map[string]int32, error)

	// SetStateStyle upserts the fill style of a logical state of a map.
	SetStateStyle(ctx context.Context, mapID string, state int32, style string) error
	StateStyles(ctx context.Context, mapID string) (map[int32]string, error)

	Close() error
}

// Open connects to the database named by url. postgres:// and postgresql://
// URLs select Postgres; sqlite: URLs (or bare paths ending in .db) select
// SQLite.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url)
	case strings.HasPrefix(url, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(strings.TrimPrefix(url, "sqlite:"), "//"))
	case strings.HasSuffix(url, ".db"):
		return OpenSQLite(ctx, url)
	}
	return nil, fmt.Errorf("open store: unsupported database url %q", url)
}
