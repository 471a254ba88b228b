// Package sqlite provides a SQLite-backed polygon store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mapsketch/polystore/internal/polygon"
	"github.com/mapsketch/polystore/internal/storage"
	"github.com/mapsketch/polystore/internal/storage/sqlite/migrations"
)

// Store persists polygon records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite polygon store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts one polygon record and returns it with its assigned id.
// The id column uses AUTOINCREMENT so deleted ids are never handed out again.
func (s *Store) Create(ctx context.Context, draft polygon.Draft) (polygon.Polygon, error) {
	if err := ctx.Err(); err != nil {
		return polygon.Polygon{}, err
	}
	if s == nil || s.sqlDB == nil {
		return polygon.Polygon{}, fmt.Errorf("storage is not configured")
	}
	if err := draft.Validate(); err != nil {
		return polygon.Polygon{}, err
	}

	coords, err := json.Marshal(draft.Coordinates)
	if err != nil {
		return polygon.Polygon{}, fmt.Errorf("encode coordinates: %w", err)
	}
	// Timestamps persist as millis, so truncate up front to keep the returned
	// record identical to what a later read would yield.
	now := time.Now().UTC().Truncate(time.Millisecond)

	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO polygons (name, coordinates, session_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		draft.Name,
		string(coords),
		draft.SessionID,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		return polygon.Polygon{}, fmt.Errorf("create polygon: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return polygon.Polygon{}, fmt.Errorf("create polygon id: %w", err)
	}

	return polygon.Polygon{
		ID:          id,
		Name:        draft.Name,
		Coordinates: draft.Coordinates,
		SessionID:   draft.SessionID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// List returns every polygon across all sessions, ordered by id so repeated
// listings are stable.
func (s *Store) List(ctx context.Context) ([]polygon.Polygon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, coordinates, session_id, created_at, updated_at
		 FROM polygons
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list polygons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	polygons := make([]polygon.Polygon, 0)
	for rows.Next() {
		record, err := scanPolygon(rows)
		if err != nil {
			return nil, err
		}
		polygons = append(polygons, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list polygons rows: %w", err)
	}
	return polygons, nil
}

// Update replaces name and coordinates of one record. It runs inside a
// transaction so the returned polygon reflects exactly the committed state.
func (s *Store) Update(ctx context.Context, id int64, rev polygon.Revision) (polygon.Polygon, error) {
	if err := ctx.Err(); err != nil {
		return polygon.Polygon{}, err
	}
	if s == nil || s.sqlDB == nil {
		return polygon.Polygon{}, fmt.Errorf("storage is not configured")
	}
	if err := rev.Validate(); err != nil {
		return polygon.Polygon{}, err
	}

	coords, err := json.Marshal(rev.Coordinates)
	if err != nil {
		return polygon.Polygon{}, fmt.Errorf("encode coordinates: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return polygon.Polygon{}, fmt.Errorf("update polygon begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var sessionID string
	var createdAt int64
	err = tx.QueryRowContext(
		ctx,
		`SELECT session_id, created_at FROM polygons WHERE id = ?`,
		id,
	).Scan(&sessionID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return polygon.Polygon{}, storage.ErrNotFound
	}
	if err != nil {
		return polygon.Polygon{}, fmt.Errorf("update polygon read: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE polygons SET name = ?, coordinates = ?, updated_at = ? WHERE id = ?`,
		rev.Name,
		string(coords),
		toMillis(now),
		id,
	)
	if err != nil {
		return polygon.Polygon{}, fmt.Errorf("update polygon: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return polygon.Polygon{}, fmt.Errorf("update polygon commit: %w", err)
	}

	return polygon.Polygon{
		ID:          id,
		Name:        rev.Name,
		Coordinates: rev.Coordinates,
		SessionID:   sessionID,
		CreatedAt:   fromMillis(createdAt),
		UpdatedAt:   now,
	}, nil
}

// Delete removes one record permanently.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM polygons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete polygon: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete polygon result: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolygon(row rowScanner) (polygon.Polygon, error) {
	var (
		record    polygon.Polygon
		coords    string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&record.ID, &record.Name, &coords, &record.SessionID, &createdAt, &updatedAt); err != nil {
		return polygon.Polygon{}, fmt.Errorf("scan polygon: %w", err)
	}
	if err := json.Unmarshal([]byte(coords), &record.Coordinates); err != nil {
		return polygon.Polygon{}, fmt.Errorf("decode coordinates: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
