// Package database provides the data access layer.
package database

import (
	"context"
	"time"

	"github.com/rankproof/rankproof/internal/models"
)

// Store defines the interface for data persistence.
type Store interface {
	// Proof records
	CreateProofRecord(ctx context.Context, record *models.ProofRecord) error
	GetProofRecord(ctx context.Context, id string) (*models.ProofRecord, error)
	FinalizeProofRecord(ctx context.Context, record *models.ProofRecord) error
	ListProofRecords(ctx context.Context, requesterID string, limit, offset int) ([]*models.ProofRecord, error)

	// Availability cache rows
	GetAvailability(ctx context.Context, domain string) (*models.CachedAvailability, error)
	UpsertAvailability(ctx context.Context, row *models.CachedAvailability) error

	// Rate-limit windows
	GetActiveWindow(ctx context.Context, identity string, since time.Time) (*models.RateLimitWindow, error)
	IncrementWindow(ctx context.Context, identity string, windowStart time.Time) error
	ResetWindow(ctx context.Context, identity string, windowStart time.Time) error

	// API Keys
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string, t time.Time) error
	DeleteAPIKey(ctx context.Context, id string) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)

	// Audit logs
	LogRequest(ctx context.Context, log *models.AuditLog) error
	GetAuditLogs(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)

	// Lifecycle
	Close() error
	Migrate() error
}
