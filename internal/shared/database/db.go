package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/giftlist/quickadd/internal/shared/models"
)

type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetAPIKey retrieves an API key by its raw key value
func (db *DB) GetAPIKey(ctx context.Context, rawKey string) (*models.APIKey, error) {
	// Hash the key
	hash := sha256.Sum256([]byte(rawKey))
	keyHash := hex.EncodeToString(hash[:])

	query := `
		SELECT id, user_id, key_hash, key_prefix, name, is_active, created_at
		FROM api_keys
		WHERE key_hash = $1 AND is_active = true
	`

	var apiKey models.APIKey
	err := db.conn.QueryRowContext(ctx, query, keyHash).Scan(
		&apiKey.ID,
		&apiKey.UserID,
		&apiKey.KeyHash,
		&apiKey.KeyPrefix,
		&apiKey.Name,
		&apiKey.IsActive,
		&apiKey.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invalid API key")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &apiKey, nil
}

// GetUsage retrieves the usage ledger row for a user and month.
// Returns (nil, nil) when the user has no usage this month.
func (db *DB) GetUsage(ctx context.Context, userID, monthKey string) (*models.UsageRecord, error) {
	query := `
		SELECT user_id, month_year, tokens_used, cost_cents, request_count, created_at, updated_at
		FROM ai_usage
		WHERE user_id = $1 AND month_year = $2
	`

	var rec models.UsageRecord
	err := db.conn.QueryRowContext(ctx, query, userID, monthKey).Scan(
		&rec.UserID,
		&rec.MonthKey,
		&rec.TokensUsed,
		&rec.CostCents,
		&rec.RequestCount,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &rec, nil
}

// AddUsage additively records one paid request. The increment happens in a
// single statement so concurrent requests for the same user never lose updates.
func (db *DB) AddUsage(ctx context.Context, userID, monthKey string, tokens, costCents int) error {
	query := `
		INSERT INTO ai_usage (user_id, month_year, tokens_used, cost_cents, request_count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (user_id, month_year) DO UPDATE SET
			tokens_used = ai_usage.tokens_used + EXCLUDED.tokens_used,
			cost_cents = ai_usage.cost_cents + EXCLUDED.cost_cents,
			request_count = ai_usage.request_count + 1,
			updated_at = NOW()
	`

	_, err := db.conn.ExecContext(ctx, query, userID, monthKey, tokens, costCents)
	return err
}

// GetLookup retrieves a cache row by query hash.
// Returns (nil, nil) on a miss.
func (db *DB) GetLookup(ctx context.Context, queryHash string) (*models.CachedLookup, error) {
	query := `
		SELECT query_hash, query_text, response_json, created_at, expires_at, hit_count
		FROM ai_cache
		WHERE query_hash = $1
	`

	var lookup models.CachedLookup
	var payloadJSON []byte
	err := db.conn.QueryRowContext(ctx, query, queryHash).Scan(
		&lookup.QueryHash,
		&lookup.QueryText,
		&payloadJSON,
		&lookup.CreatedAt,
		&lookup.ExpiresAt,
		&lookup.HitCount,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := json.Unmarshal(payloadJSON, &lookup.Payload); err != nil {
		return nil, fmt.Errorf("failed to deserialize cached payload: %w", err)
	}

	return &lookup, nil
}

// UpsertLookup stores a cache row, replacing any existing row for the same hash
func (db *DB) UpsertLookup(ctx context.Context, lookup *models.CachedLookup) error {
	payloadJSON, err := json.Marshal(lookup.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	query := `
		INSERT INTO ai_cache (query_hash, query_text, response_json, expires_at, hit_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (query_hash) DO UPDATE SET
			query_text = EXCLUDED.query_text,
			response_json = EXCLUDED.response_json,
			created_at = NOW(),
			expires_at = EXCLUDED.expires_at,
			hit_count = EXCLUDED.hit_count
	`

	_, err = db.conn.ExecContext(ctx, query, lookup.QueryHash, lookup.QueryText, payloadJSON, lookup.ExpiresAt, lookup.HitCount)
	return err
}

// DeleteLookup removes a cache row
func (db *DB) DeleteLookup(ctx context.Context, queryHash string) error {
	query := `DELETE FROM ai_cache WHERE query_hash = $1`
	_, err := db.conn.ExecContext(ctx, query, queryHash)
	return err
}

// IncrementHitCount bumps the hit counter on a cache row
func (db *DB) IncrementHitCount(ctx context.Context, queryHash string) error {
	query := `UPDATE ai_cache SET hit_count = hit_count + 1 WHERE query_hash = $1`
	_, err := db.conn.ExecContext(ctx, query, queryHash)
	return err
}
