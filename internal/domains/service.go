package domains

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rankproof/rankproof/internal/apperrors"
	"github.com/rankproof/rankproof/internal/models"
	"github.com/rankproof/rankproof/internal/proof"
)

// Cached "available" outcomes live 1h; "unavailable" outcomes 10min.
const (
	AvailableTTL   = 1 * time.Hour
	UnavailableTTL = 10 * time.Minute
)

// Checker is the slice of the registrar client the service needs.
type Checker interface {
	Check(ctx context.Context, domain string) (*DomainStatus, error)
	Available() bool
}

// AvailabilityStore is the slice of the durable store the service needs.
type AvailabilityStore interface {
	GetAvailability(ctx context.Context, domain string) (*models.CachedAvailability, error)
	UpsertAvailability(ctx context.Context, row *models.CachedAvailability) error
}

// Service runs the cache-then-fetch-then-cache availability pipeline.
type Service struct {
	store   AvailabilityStore
	client  Checker
	limiter *Limiter
}

// NewService creates an availability service.
func NewService(store AvailabilityStore, client Checker, limiter *Limiter) *Service {
	return &Service{store: store, client: client, limiter: limiter}
}

// Check validates, rate-limits, and resolves one availability request.
func (s *Service) Check(ctx context.Context, identity, rawDomain string) (*models.AvailabilityResult, error) {
	domain, err := proof.ValidateDomain(rawDomain)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Admit(ctx, identity); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	row, err := s.store.GetAvailability(ctx, domain)
	if err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Availability cache lookup failed")
	}
	if row != nil && row.ExpiresAt.After(now) {
		return &models.AvailabilityResult{
			Success:    true,
			Domain:     domain,
			Available:  row.Available,
			Premium:    row.Premium,
			Pricing:    row.Pricing,
			Currency:   row.Currency,
			CheckedAt:  row.CheckedAt,
			Source:     "cache",
			TTLSeconds: int(row.ExpiresAt.Sub(now).Seconds()),
		}, nil
	}

	if !s.client.Available() {
		return nil, fmt.Errorf("%w: registry credential missing", apperrors.ErrUpstreamUnavailable)
	}

	status, err := s.client.Check(ctx, domain)
	if err != nil {
		log.Error().Err(err).Str("domain", domain).Msg("Registry lookup failed")
		return nil, fmt.Errorf("%w: registry lookup failed", apperrors.ErrUpstreamUnavailable)
	}

	pricing := PriceTerms(status.BasePrice, status.BaseRenewal)

	ttl := UnavailableTTL
	if status.Available {
		ttl = AvailableTTL
	}

	cached := &models.CachedAvailability{
		Domain:    domain,
		Available: status.Available,
		Premium:   status.Premium,
		Pricing:   pricing,
		Currency:  status.Currency,
		CheckedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.UpsertAvailability(ctx, cached); err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Availability cache write failed")
	}

	return &models.AvailabilityResult{
		Success:    true,
		Domain:     domain,
		Available:  status.Available,
		Premium:    status.Premium,
		Pricing:    pricing,
		Currency:   status.Currency,
		CheckedAt:  now,
		Source:     "live",
		TTLSeconds: int(ttl.Seconds()),
	}, nil
}
