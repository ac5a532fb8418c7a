package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		display_name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS maps (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		document TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shape_states (
		map_id TEXT NOT NULL,
		shape_id TEXT NOT NULL,
		state INTEGER NOT NULL,
		PRIMARY KEY (map_id, shape_id)
	)`,
	`CREATE TABLE IF NOT EXISTS state_styles (
		map_id TEXT NOT NULL,
		state INTEGER NOT NULL,
		style TEXT NOT NULL,
		PRIMARY KEY (map_id, state)
	)`,
}

// SQLite is a Store in a single SQLite file. Timestamps are kept as unix
// milliseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, display_name, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, time.Now().UnixMilli())
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE email = ?`, email)
}

func (s *SQLite) getUser(ctx context.Context, query, arg string) (*User, error) {
	var u User
	var created int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(created)
	return &u, nil
}

func (s *SQLite) CreateMap(ctx context.Context, m Map) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO maps (id, name, owner_id, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.OwnerID, m.Document, now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create map: %w", err)
	}
	return nil
}

func (s *SQLite) GetMap(ctx context.Context, id string) (*Map, error) {
	var m Map
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, document, created_at, updated_at FROM maps WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.OwnerID, &m.Document, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get map: %w", err)
	}
	m.CreatedAt = time.UnixMilli(created)
	m.UpdatedAt = time.UnixMilli(updated)
	return &m, nil
}

func (s *SQLite) ListMaps(ctx context.Context) ([]Map, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM maps ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	defer rows.Close()

	var maps []Map
	for rows.Next() {
		var m Map
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Name, &m.OwnerID, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan map: %w", err)
		}
		m.CreatedAt = time.UnixMilli(created)
		m.UpdatedAt = time.UnixMilli(updated)
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

func (s *SQLite) UpdateMapDocument(ctx context.Context, id, document string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE maps SET document = ?, updated_at = ? WHERE id = ?`, document, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update map document: %w", err)
	}
	return requireRow(res)
}

// DeleteMap removes the map together with its states and styles.
func (s *SQLite) DeleteMap(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete map: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM shape_states WHERE map_id = ?`,
		`DELETE FROM state_styles WHERE map_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete map: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM maps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete map: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) SetShapeState(ctx context.Context, mapID, shapeID string, state int32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shape_states (map_id, shape_id, state) VALUES (?, ?, ?)
		 ON CONFLICT (map_id, shape_id) DO UPDATE SET state = excluded.state`,
		mapID, shapeID, state)
	if err != nil {
		return fmt.Errorf("set shape state: %w", err)
	}
	return nil
}

func (s *SQLite) ClearShapeState(ctx context.Context, mapID, shapeID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM shape_states WHERE map_id = ? AND shape_id = ?`, mapID, shapeID); err != nil {
		return fmt.Errorf("clear shape state: %w", err)
	}
	return nil
}

func (s *SQLite) ShapeStates(ctx context.Context, mapID string) (map[string]int32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT shape_id, state FROM shape_states WHERE map_id = ?`, mapID)
	if err != nil {
		return nil, fmt.Errorf("list shape states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]int32)
	for rows.Next() {
		var id string
		var state int32
		if err := rows.Scan(&id, &state); err != nil {
			return nil, fmt.Errorf("scan shape state: %w", err)
		}
		states[id] = state
	}
	return states, rows.Err()
}

func (s *SQLite) SetStateStyle(ctx context.Context, mapID string, state int32, style string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state_styles (map_id, state, style) VALUES (?, ?, ?)
		 ON CONFLICT (map_id, state) DO UPDATE SET style = excluded.style`,
		mapID, state, style)
	if err != nil {
		return fmt.Errorf("set state style: %w", err)
	}
	return nil
}

func (s *SQLite) StateStyles(ctx context.Context, mapID string) (map[int32]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, style FROM state_styles WHERE map_id = ?`, mapID)
	if err != nil {
		return nil, fmt.Errorf("list state styles: %w", err)
	}
	defer rows.Close()

	styles := make(map[int32]string)
	for rows.Next() {
		var state int32
		var style string
		if err := rows.Scan(&state, &style); err != nil {
			return nil, fmt.Errorf("scan state style: %w", err)
		}
		styles[state] = style
	}
	return styles, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isConstraintViolation(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY)
}
