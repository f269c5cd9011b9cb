package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/vetrecords/internal/config"
	"github.com/Epistemic-Technology/vetrecords/models"
)

// ErrNotFound is returned when no extraction exists for an ID.
var ErrNotFound = errors.New("extraction not found")

// Store defines the interface for storing and retrieving extraction results
type Store interface {
	// SaveExtraction stores or replaces a result under result.ID
	SaveExtraction(ctx context.Context, result *models.ExtractionResult) error

	// GetExtraction retrieves a result by ID
	GetExtraction(ctx context.Context, id string) (*models.ExtractionResult, error)

	// ExtractionExists reports whether a result is stored under id
	ExtractionExists(ctx context.Context, id string) (bool, error)

	// ListExtractions returns summaries of every stored result, newest first
	ListExtractions(ctx context.Context) ([]models.ExtractionSummary, error)

	// DeleteExtraction removes a result
	DeleteExtraction(ctx context.Context, id string) error

	// Close releases the backend
	Close() error
}

// TimelineStore is implemented by backends that can filter categorized dates themselves.
type TimelineStore interface {
	Timeline(ctx context.Context, id string, category models.Category) ([]models.CategorizedDate, error)
}

// Open creates the backend named in cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// DocumentID derives the stable ID of a single document from its content hash.
func DocumentID(sha256Hex string) string {
	return "rec_" + sha256Hex[:min(len(sha256Hex), 16)]
}

// CombinedID derives the ID of a merged extraction. A single document keeps its own ID.
func CombinedID(documentIDs []string) string {
	if len(documentIDs) == 1 {
		return documentIDs[0]
	}
	sum := sha256.Sum256([]byte(strings.Join(documentIDs, ",")))
	return "rec_" + hex.EncodeToString(sum[:])[:16]
}
