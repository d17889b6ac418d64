package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"outloud/internal/config"
)

// Store manages item persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the item database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "outloud.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewItemParams captures the fields an ingestion request provides.
type NewItemParams struct {
	Title            string
	SourceType       SourceType
	SourcePath       string
	Voice            string
	CleanupRequested bool
	ContentHash      string
	// RawTextPath pre-seeds the extraction artifact for pasted-text items.
	RawTextPath string
}

// NewItem inserts a freshly queued item.
func (s *Store) NewItem(ctx context.Context, params NewItemParams) (*Item, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO items (
            title, source_type, source_path, voice, stage, status,
            raw_text_path, cleanup_requested, content_hash, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Title,
		string(params.SourceType),
		params.SourcePath,
		params.Voice,
		StageQueued,
		StatusPending,
		nullableString(params.RawTextPath),
		boolToInt(params.CleanupRequested),
		nullableString(params.ContentHash),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindByHash returns the first item matching a content hash, or nil.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Item, error) {
	if hash == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM items WHERE content_hash = ? ORDER BY id LIMIT 1`,
		hash,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	return item, nil
}

// Update persists a full item row.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE items
         SET title = ?, source_type = ?, source_path = ?, voice = ?, stage = ?, status = ?,
             progress_message = ?, progress_percent = ?, error_message = ?,
             raw_text_path = ?, cleaned_text_path = ?, audio_path = ?,
             was_cleaned = ?, cleanup_requested = ?, content_hash = ?,
             updated_at = ?, completed_at = ?
         WHERE id = ?`,
		item.Title,
		string(item.SourceType),
		item.SourcePath,
		item.Voice,
		string(item.Stage),
		string(item.Status),
		nullableString(item.ProgressMessage),
		item.ProgressPercent,
		nullableString(item.ErrorMessage),
		nullableString(item.RawTextPath),
		nullableString(item.CleanedTextPath),
		nullableString(item.AudioPath),
		boolToInt(item.WasCleaned),
		boolToInt(item.CleanupRequested),
		nullableString(item.ContentHash),
		item.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(item.CompletedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %d", ErrNotFound, item.ID)
	}
	return nil
}

// List returns items filtered by stage set (or all items when no stage is provided).
func (s *Store) List(ctx context.Context, stages ...Stage) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM items`
	orderClause := ` ORDER BY created_at`

	if len(stages) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(stages))
		args := make([]any, len(stages))
		for i, stage := range stages {
			args[i] = string(stage)
		}
		query := baseQuery + ` WHERE stage IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListUnfinished returns items that have not reached a terminal stage,
// oldest first.
func (s *Store) ListUnfinished(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM items WHERE stage NOT IN (?, ?) ORDER BY created_at`,
		string(StageReady),
		string(StageError),
	)
	if err != nil {
		return nil, fmt.Errorf("list unfinished items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns a count of items grouped by stage.
func (s *Store) Stats(ctx context.Context) (map[Stage]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(1) FROM items GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Stage]int)
	for rows.Next() {
		var stage Stage
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		stats[stage] = count
	}
	return stats, rows.Err()
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const itemColumns = "id, title, source_type, source_path, voice, stage, status, progress_message, progress_percent, error_message, raw_text_path, cleaned_text_path, audio_path, was_cleaned, cleanup_requested, content_hash, created_at, updated_at, completed_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		title            string
		sourceType       string
		sourcePath       sql.NullString
		voice            string
		stageStr         string
		statusStr        string
		progressMessage  sql.NullString
		progressPercent  sql.NullFloat64
		errorMessage     sql.NullString
		rawTextPath      sql.NullString
		cleanedTextPath  sql.NullString
		audioPath        sql.NullString
		wasCleaned       sql.NullInt64
		cleanupRequested sql.NullInt64
		contentHash      sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		completedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&sourceType,
		&sourcePath,
		&voice,
		&stageStr,
		&statusStr,
		&progressMessage,
		&progressPercent,
		&errorMessage,
		&rawTextPath,
		&cleanedTextPath,
		&audioPath,
		&wasCleaned,
		&cleanupRequested,
		&contentHash,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:               id,
		Title:            title,
		SourceType:       SourceType(sourceType),
		SourcePath:       sourcePath.String,
		Voice:            voice,
		Stage:            Stage(stageStr),
		Status:           Status(statusStr),
		ProgressMessage:  progressMessage.String,
		ProgressPercent:  progressPercent.Float64,
		ErrorMessage:     errorMessage.String,
		RawTextPath:      rawTextPath.String,
		CleanedTextPath:  cleanedTextPath.String,
		AudioPath:        audioPath.String,
		WasCleaned:       wasCleaned.Valid && wasCleaned.Int64 != 0,
		CleanupRequested: cleanupRequested.Valid && cleanupRequested.Int64 != 0,
		ContentHash:      contentHash.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &completed
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
