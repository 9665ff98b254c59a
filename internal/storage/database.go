package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"   // Registers the postgres driver
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/dutchdrill/internal/domain"
)

// DB wraps the SQL connection.
type DB struct {
	conn   *sqlx.DB
	driver string
}

// Open connects with driver ("sqlite" or "postgres") and ensures the schema
// is up to date.
func Open(driver, dsn string) (*DB, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite has a single writer; one connection also keeps :memory: databases alive.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn, driver: driver}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Source is a deck origin, either a local path or a Git URL.
type Source struct {
	ID          int64        `db:"id"`
	Path        string       `db:"path"`
	Type        string       `db:"type"`
	LastScanned sql.NullTime `db:"last_scanned"`
}

// InsertSource stores a new source and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	var id int64
	err := db.conn.QueryRowx(db.conn.Rebind(`
		INSERT INTO sources (path, type, last_scanned)
		VALUES (?, ?, ?)
		RETURNING id
	`), path, sourceType, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath returns the source stored under path, or nil.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	err := db.conn.Get(&s, db.conn.Rebind(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`), path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources returns every stored source.
func (db *DB) GetAllSources() ([]Source, error) {
	var sources []Source
	if err := db.conn.Select(&sources, `SELECT id, path, type, last_scanned FROM sources ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	return sources, nil
}

// DeleteSource removes a source and the items synced from it.
func (db *DB) DeleteSource(id int64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin delete of source %d: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(tx.Rebind(`DELETE FROM items WHERE source_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete items of source %d: %w", id, err)
	}
	if _, err := tx.Exec(tx.Rebind(`DELETE FROM sources WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return tx.Commit()
}

// UpdateSourceLastScanned stamps a source as scanned now.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(db.conn.Rebind(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`), time.Now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// ItemRow is a synced deck entry.
type ItemRow struct {
	ID       string        `db:"id"`
	Kind     string        `db:"kind"`
	Prompt   string        `db:"prompt"`
	Answer   string        `db:"answer"`
	Category string        `db:"category"`
	Group    string        `db:"grp"`
	Note     string        `db:"note"`
	SourceID sql.NullInt64 `db:"source_id"`
}

// Item converts the row back into a domain item.
func (r ItemRow) Item() domain.Item {
	return domain.Item{
		ID:       r.ID,
		Kind:     domain.Kind(r.Kind),
		Prompt:   r.Prompt,
		Answer:   r.Answer,
		Category: r.Category,
		Group:    r.Group,
		Note:     r.Note,
	}
}

const itemColumns = `id, kind, prompt, answer, category, grp, note, source_id`

// UpsertItem inserts item or refreshes the stored copy.
func (db *DB) UpsertItem(item domain.Item, sourceID int64) error {
	_, err := db.conn.Exec(db.conn.Rebind(`
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			prompt = excluded.prompt,
			answer = excluded.answer,
			category = excluded.category,
			grp = excluded.grp,
			note = excluded.note,
			source_id = excluded.source_id
	`),
		item.ID,
		string(item.Kind),
		item.Prompt,
		item.Answer,
		item.Category,
		item.Group,
		item.Note,
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s/%s: %w", item.Kind, item.ID, err)
	}
	return nil
}

// FindItem returns the stored item, or nil.
func (db *DB) FindItem(kind domain.Kind, id string) (*ItemRow, error) {
	var row ItemRow
	err := db.conn.Get(&row, db.conn.Rebind(`SELECT `+itemColumns+` FROM items WHERE kind = ? AND id = ?`), string(kind), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find item %s/%s: %w", kind, id, err)
	}
	return &row, nil
}

// GetItemsBySourceID returns every item synced from a source.
func (db *DB) GetItemsBySourceID(sourceID int64) ([]ItemRow, error) {
	var rows []ItemRow
	err := db.conn.Select(&rows, db.conn.Rebind(`SELECT `+itemColumns+` FROM items WHERE source_id = ?`), sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for source ID %d: %w", sourceID, err)
	}
	return rows, nil
}

// AllItems returns every synced item.
func (db *DB) AllItems() ([]domain.Item, error) {
	var rows []ItemRow
	if err := db.conn.Select(&rows, `SELECT `+itemColumns+` FROM items ORDER BY kind, id`); err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	items := make([]domain.Item, len(rows))
	for i, r := range rows {
		items[i] = r.Item()
	}
	return items, nil
}

// DeleteItem removes an item.
func (db *DB) DeleteItem(kind domain.Kind, id string) error {
	_, err := db.conn.Exec(db.conn.Rebind(`DELETE FROM items WHERE kind = ? AND id = ?`), string(kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete item %s/%s: %w", kind, id, err)
	}
	return nil
}
