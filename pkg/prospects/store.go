package prospects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"igfollow/pkg/logger"
)

const (
	// DriverName is the database/sql driver registered by lib/pq
	DriverName = "postgres"

	existingPKsQuery = `SELECT pk FROM prospects.instagram_prospects WHERE pk = ANY($1)`

	// defaultBatchSize bounds the array bound to a single query
	defaultBatchSize = 1000
)

// Lookup reports which of the given pks are already known prospects
type Lookup interface {
	ExistingPKs(ctx context.Context, pks []string) ([]string, error)
}

// Store reads the prospects table
type Store struct {
	db        *sql.DB
	batchSize int
	logger    logger.Logger
}

// Open connects to the prospects database at url and verifies the connection
func Open(ctx context.Context, url string, log logger.Logger) (*Store, error) {
	return OpenDriver(ctx, DriverName, url, log)
}

// OpenDriver is Open with an explicit database/sql driver name
func OpenDriver(ctx context.Context, driver, url string, log logger.Logger) (*Store, error) {
	if url == "" {
		return nil, errors.New("database url is required")
	}

	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sql connection: %w", err)
	}

	return NewStore(db, log), nil
}

// NewStore wraps an open database handle
func NewStore(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{db: db, batchSize: defaultBatchSize, logger: log}
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// ExistingPKs returns the subset of pks present in prospects.instagram_prospects.
// Results are in database order.
func (s *Store) ExistingPKs(ctx context.Context, pks []string) ([]string, error) {
	var found []string
	for start := 0; start < len(pks); start += s.batchSize {
		end := min(start+s.batchSize, len(pks))
		batch, err := s.queryBatch(ctx, pks[start:end])
		if err != nil {
			return nil, err
		}
		found = append(found, batch...)
	}

	s.logger.DebugWithFields("Prospect lookup complete", map[string]interface{}{
		"queried": len(pks),
		"found":   len(found),
	})
	return found, nil
}

func (s *Store) queryBatch(ctx context.Context, pks []string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, existingPKsQuery, pq.Array(pks))
	if err != nil {
		return nil, fmt.Errorf("query prospects: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var pk string
		if err := rows.Scan(&pk); err != nil {
			return nil, fmt.Errorf("scan prospect pk: %w", err)
		}
		found = append(found, pk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prospects: %w", err)
	}
	return found, nil
}
