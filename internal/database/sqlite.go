// Package database provides SQLite implementation of the Store interface.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rankproof/rankproof/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS proof_records (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			keyword TEXT NOT NULL,
			requester_id TEXT NOT NULL,
			proof_score INTEGER,
			ranking TEXT,
			trend TEXT,
			features TEXT,
			narrative TEXT,
			status TEXT NOT NULL,
			failure_reason TEXT NOT NULL DEFAULT '',
			cost_units INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			completed_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proof_requester ON proof_records(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_proof_domain_keyword ON proof_records(domain, keyword)`,
		`CREATE TABLE IF NOT EXISTS availability_cache (
			domain TEXT PRIMARY KEY,
			available INTEGER NOT NULL,
			premium INTEGER NOT NULL,
			pricing TEXT NOT NULL,
			currency TEXT NOT NULL,
			checked_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rate_limit_windows (
			identity TEXT NOT NULL,
			window_start DATETIME NOT NULL,
			request_count INTEGER NOT NULL,
			PRIMARY KEY (identity, window_start)
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			key_hash TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			requests_per_minute INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			last_used_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(key_hash)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			api_key_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			request_size INTEGER NOT NULL,
			response_code INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_logs(timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateProofRecord stores a newly accepted proof record.
func (s *SQLiteStore) CreateProofRecord(ctx context.Context, record *models.ProofRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proof_records (id, domain, keyword, requester_id, status, failure_reason, cost_units, created_at)
		VALUES (?, ?, ?, ?, ?, '', 0, ?)`,
		record.ID, record.Domain, record.Keyword, record.RequesterID, record.Status, record.CreatedAt,
	)
	return err
}

// FinalizeProofRecord applies the single terminal update for a record.
func (s *SQLiteStore) FinalizeProofRecord(ctx context.Context, record *models.ProofRecord) error {
	var ranking, trend, features any
	if record.Ranking != nil {
		data, _ := json.Marshal(record.Ranking)
		ranking = string(data)
	}
	if record.Trend != nil {
		data, _ := json.Marshal(record.Trend)
		trend = string(data)
	}
	if record.Features != nil {
		data, _ := json.Marshal(record.Features)
		features = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE proof_records
		SET proof_score = ?, ranking = ?, trend = ?, features = ?, narrative = ?,
			status = ?, failure_reason = ?, cost_units = ?, completed_at = ?
		WHERE id = ?`,
		record.ProofScore, ranking, trend, features, record.Narrative,
		record.Status, record.FailureReason, record.CostUnits, record.CompletedAt,
		record.ID,
	)
	return err
}

// GetProofRecord retrieves a proof record by ID.
func (s *SQLiteStore) GetProofRecord(ctx context.Context, id string) (*models.ProofRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, domain, keyword, requester_id, proof_score, ranking, trend, features,
			narrative, status, failure_reason, cost_units, created_at, completed_at
		FROM proof_records WHERE id = ?`, id)
	return scanProofRecord(row)
}

// ListProofRecords returns a requester's records, newest first.
func (s *SQLiteStore) ListProofRecords(ctx context.Context, requesterID string, limit, offset int) ([]*models.ProofRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain, keyword, requester_id, proof_score, ranking, trend, features,
			narrative, status, failure_reason, cost_units, created_at, completed_at
		FROM proof_records WHERE requester_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, requesterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ProofRecord
	for rows.Next() {
		r, err := scanProofRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProofRecord(row rowScanner) (*models.ProofRecord, error) {
	var r models.ProofRecord
	var ranking, trend, features sql.NullString
	err := row.Scan(&r.ID, &r.Domain, &r.Keyword, &r.RequesterID, &r.ProofScore,
		&ranking, &trend, &features, &r.Narrative, &r.Status, &r.FailureReason,
		&r.CostUnits, &r.CreatedAt, &r.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if ranking.Valid {
		r.Ranking = &models.RankingSnapshot{}
		json.Unmarshal([]byte(ranking.String), r.Ranking)
	}
	if trend.Valid {
		r.Trend = &models.TrendSnapshot{}
		json.Unmarshal([]byte(trend.String), r.Trend)
	}
	if features.Valid {
		r.Features = &models.FeatureSnapshot{}
		json.Unmarshal([]byte(features.String), r.Features)
	}
	return &r, nil
}

// GetAvailability retrieves the cached availability row for a domain.
func (s *SQLiteStore) GetAvailability(ctx context.Context, domain string) (*models.CachedAvailability, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT domain, available, premium, pricing, currency, checked_at, expires_at
		FROM availability_cache WHERE domain = ?`, domain)

	var a models.CachedAvailability
	var pricingJSON string
	err := row.Scan(&a.Domain, &a.Available, &a.Premium, &pricingJSON, &a.Currency, &a.CheckedAt, &a.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(pricingJSON), &a.Pricing)
	return &a, nil
}

// UpsertAvailability writes an availability row, replacing any prior row for
// the domain. First computation wins semantically; later writers are
// idempotent overwrites of the same natural key.
func (s *SQLiteStore) UpsertAvailability(ctx context.Context, a *models.CachedAvailability) error {
	pricingJSON, _ := json.Marshal(a.Pricing)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availability_cache (domain, available, premium, pricing, currency, checked_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			available = excluded.available,
			premium = excluded.premium,
			pricing = excluded.pricing,
			currency = excluded.currency,
			checked_at = excluded.checked_at,
			expires_at = excluded.expires_at`,
		a.Domain, a.Available, a.Premium, string(pricingJSON), a.Currency, a.CheckedAt, a.ExpiresAt)
	return err
}

// GetActiveWindow returns the identity's window starting at or after since.
func (s *SQLiteStore) GetActiveWindow(ctx context.Context, identity string, since time.Time) (*models.RateLimitWindow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, window_start, request_count
		FROM rate_limit_windows
		WHERE identity = ? AND window_start >= ?
		ORDER BY window_start DESC LIMIT 1`, identity, since)

	var w models.RateLimitWindow
	err := row.Scan(&w.Identity, &w.WindowStart, &w.RequestCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// IncrementWindow adds one request to an existing window.
func (s *SQLiteStore) IncrementWindow(ctx context.Context, identity string, windowStart time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE rate_limit_windows SET request_count = request_count + 1
		WHERE identity = ? AND window_start = ?`, identity, windowStart)
	return err
}

// ResetWindow deletes the identity's stale windows and opens a fresh one.
func (s *SQLiteStore) ResetWindow(ctx context.Context, identity string, windowStart time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_limit_windows WHERE identity = ?`, identity); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rate_limit_windows (identity, window_start, request_count)
		VALUES (?, ?, 1)`, identity, windowStart); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateAPIKey stores a new API key.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash, name, requests_per_minute, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		key.ID, key.KeyHash, key.Name, key.RequestsPerMinute, key.CreatedAt)
	return err
}

// GetAPIKeyByHash retrieves an API key by its hash.
func (s *SQLiteStore) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key_hash, name, requests_per_minute, created_at, last_used_at
		FROM api_keys WHERE key_hash = ?`, hash)

	var key models.APIKey
	err := row.Scan(&key.ID, &key.KeyHash, &key.Name, &key.RequestsPerMinute,
		&key.CreatedAt, &key.LastUsedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateAPIKeyLastUsed updates the last used timestamp.
func (s *SQLiteStore) UpdateAPIKeyLastUsed(ctx context.Context, id string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, t, id)
	return err
}

// DeleteAPIKey removes an API key.
func (s *SQLiteStore) DeleteAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	return err
}

// ListAPIKeys returns all API keys.
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, requests_per_minute, created_at, last_used_at
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.RequestsPerMinute,
			&k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, err
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// LogRequest stores an audit log entry.
func (s *SQLiteStore) LogRequest(ctx context.Context, log *models.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, api_key_id, endpoint, method, request_size, response_code, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.APIKeyID, log.Endpoint, log.Method, log.RequestSize,
		log.ResponseCode, log.DurationMs, log.Timestamp)
	return err
}

// GetAuditLogs returns paginated audit logs.
func (s *SQLiteStore) GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, api_key_id, endpoint, method, request_size, response_code, duration_ms, timestamp
		FROM audit_logs ORDER BY timestamp DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.APIKeyID, &l.Endpoint, &l.Method,
			&l.RequestSize, &l.ResponseCode, &l.DurationMs, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
