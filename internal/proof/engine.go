package proof

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rankproof/rankproof/internal/apperrors"
	"github.com/rankproof/rankproof/internal/llm"
	"github.com/rankproof/rankproof/internal/models"
)

// Terminal failure reasons written to the record. The timeout reason is
// the only one that names its cause; everything else stays generic and the
// detail goes to the server log.
const (
	reasonTimedOut         = "Request timed out"
	reasonCollectionFailed = "Data collection failed"
)

// ResultCache is the slice of the cache layer the engine needs.
type ResultCache interface {
	Get(ctx context.Context, domain, keyword string) (*models.CachedProof, error)
	Set(ctx context.Context, domain, keyword string, bundle *models.CachedProof) error
}

// RecordStore is the slice of the durable store the engine needs.
type RecordStore interface {
	CreateProofRecord(ctx context.Context, record *models.ProofRecord) error
	FinalizeProofRecord(ctx context.Context, record *models.ProofRecord) error
}

// Engine orchestrates the proof score pipeline: validate, cache lookup,
// aggregate, score, narrate, persist.
type Engine struct {
	store    RecordStore
	cache    ResultCache
	serp     SignalFetcher
	provider llm.Provider

	jointDeadline time.Duration
}

// NewEngine creates a proof engine. provider may be nil, which disables
// narrative generation.
func NewEngine(store RecordStore, cache ResultCache, fetcher SignalFetcher, provider llm.Provider) *Engine {
	return &Engine{
		store:         store,
		cache:         cache,
		serp:          fetcher,
		provider:      provider,
		jointDeadline: JointDeadline,
	}
}

// GenerateProof runs the full pipeline for one request. Every exit path
// after record acceptance finalizes the record exactly once.
func (e *Engine) GenerateProof(ctx context.Context, req models.GenerateProofRequest, requesterID string) (*models.ProofResponse, error) {
	domain, keyword, err := ValidateRequest(req.Domain, req.Keyword)
	if err != nil {
		// Validation failures never create a processing record.
		return nil, err
	}

	if !e.serp.Available() {
		return nil, fmt.Errorf("%w: SERP provider credential missing", apperrors.ErrUpstreamUnavailable)
	}

	recordID := req.ProofRecordID
	if recordID == "" {
		recordID = uuid.New().String()
	}

	record := &models.ProofRecord{
		ID:          recordID,
		Domain:      domain,
		Keyword:     keyword,
		RequesterID: requesterID,
		Status:      models.StatusProcessing,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.CreateProofRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: failed to accept request: %v", apperrors.ErrInternal, err)
	}

	// Fast path: a fresh cached result short-circuits aggregation. The
	// narrative is never restored from cache.
	cached, err := e.cache.Get(ctx, domain, keyword)
	if err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Cache lookup failed, proceeding to aggregation")
	}
	if cached != nil {
		log.Info().Str("id", recordID).Str("domain", domain).Str("keyword", keyword).Msg("Returning cached proof")
		e.complete(ctx, record, cached.ProofScore, &Signals{
			Ranking:  cached.Ranking,
			Trend:    cached.Trend,
			Features: cached.Features,
		}, nil)
		return &models.ProofResponse{
			ProofRecordID: recordID,
			ProofScore:    cached.ProofScore,
			Status:        models.StatusComplete,
			Cached:        true,
		}, nil
	}

	signals, err := e.aggregate(ctx, domain, keyword)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.fail(ctx, record, reasonTimedOut)
			return nil, fmt.Errorf("%w: aggregation deadline elapsed", apperrors.ErrTimeout)
		}
		log.Error().Err(err).Str("id", recordID).Msg("Aggregation failed")
		e.fail(ctx, record, reasonCollectionFailed)
		return nil, fmt.Errorf("%w: aggregation failed", apperrors.ErrInternal)
	}

	score := Score(signals.Ranking, signals.Trend, signals.Features, signals.Ranking.KeywordDifficulty)
	narrative := e.narrate(ctx, domain, keyword, score, signals)

	if err := e.complete(ctx, record, score, signals, narrative); err != nil {
		return nil, fmt.Errorf("%w: failed to persist result", apperrors.ErrInternal)
	}

	if err := e.cache.Set(ctx, domain, keyword, &models.CachedProof{
		ProofScore: score,
		Ranking:    signals.Ranking,
		Trend:      signals.Trend,
		Features:   signals.Features,
		CostUnits:  signals.CostUnits,
		CachedAt:   time.Now().UTC(),
	}); err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Cache write failed")
	}

	log.Info().
		Str("id", recordID).
		Str("domain", domain).
		Str("keyword", keyword).
		Int("score", score).
		Int("cost_units", signals.CostUnits).
		Bool("narrative", narrative != nil).
		Msg("Proof complete")

	return &models.ProofResponse{
		ProofRecordID: recordID,
		ProofScore:    score,
		Status:        models.StatusComplete,
		Cached:        false,
	}, nil
}

// complete applies the successful terminal update.
func (e *Engine) complete(ctx context.Context, record *models.ProofRecord, score int, signals *Signals, narrative *string) error {
	now := time.Now().UTC()
	record.ProofScore = &score
	record.Ranking = &signals.Ranking
	record.Trend = &signals.Trend
	record.Features = &signals.Features
	record.Narrative = narrative
	record.Status = models.StatusComplete
	record.CostUnits = signals.CostUnits
	record.CompletedAt = &now

	if err := e.store.FinalizeProofRecord(ctx, record); err != nil {
		log.Error().Err(err).Str("id", record.ID).Msg("Failed to finalize record")
		return err
	}
	return nil
}

// fail applies the failed terminal update. No score field is ever
// populated on this path.
func (e *Engine) fail(ctx context.Context, record *models.ProofRecord, reason string) {
	now := time.Now().UTC()
	record.Status = models.StatusFailed
	record.FailureReason = reason
	record.CompletedAt = &now

	if err := e.store.FinalizeProofRecord(ctx, record); err != nil {
		log.Error().Err(err).Str("id", record.ID).Msg("Failed to finalize failed record")
	}
}
