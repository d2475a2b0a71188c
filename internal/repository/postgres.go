package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/utils"
)

// PostgresStore is the pgvector-backed listing store.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(dsn string, maxConn, maxIdleConn int) (*PostgresStore, error) {
	// Disable prepared statement caching to avoid "unnamed prepared
	// statement does not exist" errors behind pgbouncer.
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle so the booking ledger can share the pool.
func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

const listingColumns = `
	property_id, location, area, city, bedrooms, bathrooms,
	monthly_rent, yearly_rent, sqft, property_type, furnished, parking,
	amenities, description, url, created_at, updated_at`

// Search performs hybrid search: structured predicates as hard WHERE
// clauses, the query vector for ranking. Ordering is relevance score
// descending with ties broken by ascending yearly rent. Without a vector it
// falls back to full-text ranking over the same predicate set.
func (s *PostgresStore) Search(
	ctx context.Context,
	filter *model.SearchFilter,
	queryVec []float32,
	limit int,
) ([]model.SearchResult, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filter != nil {
		if filter.Bedrooms != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("bedrooms = $%d", argIndex))
			args = append(args, *filter.Bedrooms)
			argIndex++
		}
		if filter.Bathrooms != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("bathrooms = $%d", argIndex))
			args = append(args, *filter.Bathrooms)
			argIndex++
		}
		if filter.MinYearlyRent != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("yearly_rent >= $%d", argIndex))
			args = append(args, *filter.MinYearlyRent)
			argIndex++
		}
		if filter.MaxYearlyRent != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("yearly_rent < $%d", argIndex))
			args = append(args, *filter.MaxYearlyRent)
			argIndex++
		}
		if filter.Location != nil {
			whereClauses = append(whereClauses, fmt.Sprintf(
				"(location ILIKE $%d OR area ILIKE $%d OR city ILIKE $%d)", argIndex, argIndex, argIndex))
			args = append(args, "%"+strings.TrimSpace(*filter.Location)+"%")
			argIndex++
		}
		if filter.Furnished != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("furnished = $%d", argIndex))
			args = append(args, *filter.Furnished)
			argIndex++
		}
		if filter.Parking != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("parking = $%d", argIndex))
			args = append(args, *filter.Parking)
			argIndex++
		}
		// Subset match over the JSONB amenity array, one EXISTS per
		// required amenity, tolerant of alias spellings.
		for _, amenity := range filter.Amenities {
			whereClauses = append(whereClauses, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM jsonb_array_elements_text(amenities) elem WHERE elem ILIKE ANY($%d))",
				argIndex))
			args = append(args, pq.Array(utils.AmenityPatterns(amenity)))
			argIndex++
		}
	}

	whereClause := strings.Join(whereClauses, " AND ")

	var query string
	if len(queryVec) > 0 {
		query = fmt.Sprintf(`
			SELECT %s,
				1 - (embedding <=> $%d) AS score
			FROM listings
			WHERE %s AND embedding IS NOT NULL
			ORDER BY embedding <=> $%d ASC, yearly_rent ASC
			LIMIT $%d
		`, listingColumns, argIndex, whereClause, argIndex, argIndex+1)
		args = append(args, pgvector.NewVector(queryVec), limit)
	} else {
		semantic := ""
		if filter != nil {
			semantic = filter.Query
		}
		query = fmt.Sprintf(`
			SELECT %s,
				ts_rank(search_vector, plainto_tsquery('english', $%d)) AS score
			FROM listings
			WHERE %s
			ORDER BY score DESC, yearly_rent ASC
			LIMIT $%d
		`, listingColumns, argIndex, whereClause, argIndex+1)
		args = append(args, semantic, limit)
	}

	var results []model.SearchResult
	if err := s.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	return results, nil
}

// GetByID retrieves a single listing. Returns (nil, nil) when not found.
func (s *PostgresStore) GetByID(ctx context.Context, propertyID string) (*model.PropertyListing, error) {
	var listing model.PropertyListing
	query := fmt.Sprintf("SELECT %s FROM listings WHERE property_id = $1", listingColumns)
	err := s.db.GetContext(ctx, &listing, query, propertyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// BatchUpdateEmbeddings updates embeddings for multiple listings in one
// transaction.
func (s *PostgresStore) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errs
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		`UPDATE listings SET embedding = $1, updated_at = NOW() WHERE property_id = $2`)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errs
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		if _, err := stmt.ExecContext(ctx, vec, item.PropertyID); err != nil {
			errs = append(errs, fmt.Sprintf("property_id %s: %v", item.PropertyID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}

	return success, errs
}
