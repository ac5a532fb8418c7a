package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		display_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS maps (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		document TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS shape_states (
		map_id TEXT NOT NULL REFERENCES maps(id) ON DELETE CASCADE,
		shape_id TEXT NOT NULL,
		state INTEGER NOT NULL,
		PRIMARY KEY (map_id, shape_id)
	)`,
	`CREATE TABLE IF NOT EXISTS state_styles (
		map_id TEXT NOT NULL REFERENCES maps(id) ON DELETE CASCADE,
		state INTEGER NOT NULL,
		style TEXT NOT NULL,
		PRIMARY KEY (map_id, state)
	)`,
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and applies the schema.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u User) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, email, password, display_name) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*User, error) {
	return p.getUser(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`, id)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return p.getUser(ctx, `SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`, email)
}

func (p *Postgres) getUser(ctx context.Context, query, arg string) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) CreateMap(ctx context.Context, m Map) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO maps (id, name, owner_id, document) VALUES ($1, $2, $3, $4)`,
		m.ID, m.Name, m.OwnerID, m.Document)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create map: %w", err)
	}
	return nil
}

func (p *Postgres) GetMap(ctx context.Context, id string) (*Map, error) {
	var m Map
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, document, created_at, updated_at FROM maps WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.OwnerID, &m.Document, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get map: %w", err)
	}
	return &m, nil
}

func (p *Postgres) ListMaps(ctx context.Context) ([]Map, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM maps ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	maps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Map, error) {
		var m Map
		err := row.Scan(&m.ID, &m.Name, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	return maps, nil
}

func (p *Postgres) UpdateMapDocument(ctx context.Context, id, document string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE maps SET document = $2, updated_at = now() WHERE id = $1`, id, document)
	if err != nil {
		return fmt.Errorf("update map document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteMap(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM maps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete map: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetShapeState(ctx context.Context, mapID, shapeID string, state int32) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO shape_states (map_id, shape_id, state) VALUES ($1, $2, $3)
		 ON CONFLICT (map_id, shape_id) DO UPDATE SET state = EXCLUDED.state`,
		mapID, shapeID, state)
	if err != nil {
		return fmt.Errorf("set shape state: %w", err)
	}
	return nil
}

func (p *Postgres) ClearShapeState(ctx context.Context, mapID, shapeID string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM shape_states WHERE map_id = $1 AND shape_id = $2`, mapID, shapeID); err != nil {
		return fmt.Errorf("clear shape state: %w", err)
	}
	return nil
}

func (p *Postgres) ShapeStates(ctx context.Context, mapID string) (map[string]int32, error) {
	rows, err := p.pool.Query(ctx, `SELECT shape_id, state FROM shape_states WHERE map_id = $1`, mapID)
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

func (p *Postgres) SetStateStyle(ctx context.Context, mapID string, state int32, style string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO state_styles (map_id, state, style) VALUES ($1, $2, $3)
		 ON CONFLICT (map_id, state) DO UPDATE SET style = EXCLUDED.style`,
		mapID, state, style)
	if err != nil {
		return fmt.Errorf("set state style: %w", err)
	}
	return nil
}

func (p *Postgres) StateStyles(ctx context.Context, mapID string) (map[int32]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT state, style FROM state_styles WHERE map_id = $1`, mapID)
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
