package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Epistemic-Technology/vetrecords/models"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dbPath+sep+"_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS extractions (
		id TEXT PRIMARY KEY,
		patient_name TEXT,
		labels TEXT NOT NULL,
		document_count INTEGER NOT NULL,
		date_count INTEGER NOT NULL,
		payload TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categorized_dates (
		extraction_id TEXT NOT NULL,
		date_index INTEGER NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		specific_type TEXT,
		source TEXT,
		notes TEXT,
		PRIMARY KEY (extraction_id, date_index),
		FOREIGN KEY (extraction_id) REFERENCES extractions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_extractions_created_at ON extractions(created_at);
	CREATE INDEX IF NOT EXISTS idx_categorized_dates_category ON categorized_dates(extraction_id, category);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveExtraction stores the result and its categorized dates in one transaction
func (s *SQLiteStore) SaveExtraction(ctx context.Context, result *models.ExtractionResult) error {
	if result.ID == "" {
		return fmt.Errorf("extraction has no ID")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}
	labelsJSON, err := json.Marshal(result.Labels())
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// replace rather than upsert so stale dates go with the old row
	if _, err := tx.ExecContext(ctx, `DELETE FROM categorized_dates WHERE extraction_id = ?`, result.ID); err != nil {
		return fmt.Errorf("failed to clear categorized dates: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO extractions (id, patient_name, labels, document_count, date_count, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.ID, result.Patient.Name, string(labelsJSON), len(result.Documents),
		len(result.CategorizedDates), string(payload), result.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert extraction: %w", err)
	}

	for i, d := range result.CategorizedDates {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO categorized_dates (extraction_id, date_index, date, category, specific_type, source, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, result.ID, i, d.Date, string(d.Category), d.SpecificType, d.Source, d.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert categorized date %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExtraction retrieves a result by ID
func (s *SQLiteStore) GetExtraction(ctx context.Context, id string) (*models.ExtractionResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM extractions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query extraction: %w", err)
	}

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction: %w", err)
	}
	return &result, nil
}

// ExtractionExists reports whether a result is stored under id
func (s *SQLiteStore) ExtractionExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check extraction: %w", err)
	}
	return count > 0, nil
}

// Timeline returns the categorized dates of an extraction, newest first.
// An empty category returns every date.
func (s *SQLiteStore) Timeline(ctx context.Context, id string, category models.Category) ([]models.CategorizedDate, error) {
	exists, err := s.ExtractionExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, category, specific_type, source, notes
		FROM categorized_dates
		WHERE extraction_id = ? AND (? = '' OR category = ?)
		ORDER BY date DESC, date_index ASC
	`, id, string(category), string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	dates := []models.CategorizedDate{}
	for rows.Next() {
		var d models.CategorizedDate
		var cat string
		if err := rows.Scan(&d.Date, &cat, &d.SpecificType, &d.Source, &d.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan categorized date: %w", err)
		}
		d.Category = models.Category(cat)
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline: %w", err)
	}
	return dates, nil
}

// ListExtractions returns summaries of every stored result, newest first
func (s *SQLiteStore) ListExtractions(ctx context.Context) ([]models.ExtractionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_name, labels, document_count, date_count, created_at
		FROM extractions
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query extractions: %w", err)
	}
	defer rows.Close()

	summaries := []models.ExtractionSummary{}
	for rows.Next() {
		var sum models.ExtractionSummary
		var labelsJSON, createdAt string
		var patient sql.NullString
		if err := rows.Scan(&sum.ID, &patient, &labelsJSON, &sum.DocumentCount, &sum.DateCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan extraction: %w", err)
		}
		sum.PatientName = patient.String
		if err := json.Unmarshal([]byte(labelsJSON), &sum.Labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extractions: %w", err)
	}
	return summaries, nil
}

// DeleteExtraction removes a result and its categorized dates
func (s *SQLiteStore) DeleteExtraction(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM extractions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var (
	_ Store         = (*SQLiteStore)(nil)
	_ TimelineStore = (*SQLiteStore)(nil)
)
