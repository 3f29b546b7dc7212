// Package models defines the core data structures used throughout the application.
package models

import (
	"time"
)

// RecordStatus represents the lifecycle state of a proof record.
type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusProcessing RecordStatus = "processing"
	StatusComplete   RecordStatus = "complete"
	StatusFailed     RecordStatus = "failed"
)

// RankedItem is one organic result from the SERP provider.
type RankedItem struct {
	Position              int     `json:"position"`
	URL                   string  `json:"url"`
	Title                 string  `json:"title"`
	EstimatedTrafficValue float64 `json:"estimated_traffic_value"`
}

// RankingSnapshot captures the requested domain's organic position for a keyword.
// DomainRankPosition is nil when the domain does not appear in the top results.
type RankingSnapshot struct {
	DomainRankPosition *int         `json:"domain_rank_position"`
	Items              []RankedItem `json:"items"`
	KeywordDifficulty  int          `json:"keyword_difficulty"`
}

// TrendSnapshot captures rank movement over a 30-day lookback.
// Delta30Day = earliest rank - latest rank; positive means the domain improved.
// Nil when the domain was absent from either end of the window.
type TrendSnapshot struct {
	Delta30Day *int `json:"delta_30_day"`
}

// FeatureSnapshot captures which SERP features appeared for the keyword.
type FeatureSnapshot struct {
	AIOverviewPresent      bool `json:"ai_overview_present"`
	FeaturedSnippetPresent bool `json:"featured_snippet_present"`
	LocalPackPresent       bool `json:"local_pack_present"`
	KnowledgePanelPresent  bool `json:"knowledge_panel_present"`
	AIImpactPercent        int  `json:"ai_impact_percent"`
}

// ProofRecord is the durable record of one proof computation. It is created
// on request acceptance and mutated exactly once to a terminal state.
type ProofRecord struct {
	ID            string           `json:"id"`
	Domain        string           `json:"domain"`
	Keyword       string           `json:"keyword"`
	RequesterID   string           `json:"requester_id"`
	ProofScore    *int             `json:"proof_score"`
	Ranking       *RankingSnapshot `json:"ranking,omitempty"`
	Trend         *TrendSnapshot   `json:"trend,omitempty"`
	Features      *FeatureSnapshot `json:"features,omitempty"`
	Narrative     *string          `json:"narrative"`
	Status        RecordStatus     `json:"status"`
	FailureReason string           `json:"failure_reason,omitempty"`
	CostUnits     int              `json:"cost_units"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// ProofResponse is the API response for a proof generation request.
type ProofResponse struct {
	ProofRecordID string       `json:"proof_record_id"`
	ProofScore    int          `json:"proof_score"`
	Status        RecordStatus `json:"status"`
	Cached        bool         `json:"cached"`
}

// CachedProof is the bundle stored in the result cache. The narrative is
// deliberately excluded; cache hits always return a nil narrative.
type CachedProof struct {
	ProofScore int             `json:"proof_score"`
	Ranking    RankingSnapshot `json:"ranking"`
	Trend      TrendSnapshot   `json:"trend"`
	Features   FeatureSnapshot `json:"features"`
	CostUnits  int             `json:"cost_units"`
	CachedAt   time.Time       `json:"cached_at"`
}

// TermPricing is the registration/renewal price pair for one term length.
type TermPricing struct {
	Registration float64 `json:"registration"`
	Renewal      float64 `json:"renewal"`
}

// AvailabilityResult is the outcome of a domain availability check.
type AvailabilityResult struct {
	Success    bool                `json:"success"`
	Domain     string              `json:"domain"`
	Available  bool                `json:"available"`
	Premium    bool                `json:"premium"`
	Pricing    map[int]TermPricing `json:"pricing"`
	Currency   string              `json:"currency"`
	CheckedAt  time.Time           `json:"checked_at"`
	Source     string              `json:"source"` // "cache" or "live"
	TTLSeconds int                 `json:"ttl_seconds"`
}

// CachedAvailability is a per-domain availability row with an explicit expiry.
type CachedAvailability struct {
	Domain    string              `json:"domain"`
	Available bool                `json:"available"`
	Premium   bool                `json:"premium"`
	Pricing   map[int]TermPricing `json:"pricing"`
	Currency  string              `json:"currency"`
	CheckedAt time.Time           `json:"checked_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// RateLimitWindow is one identity's active sliding window.
type RateLimitWindow struct {
	Identity     string    `json:"identity"`
	WindowStart  time.Time `json:"window_start"`
	RequestCount int       `json:"request_count"`
}

// APIKey represents an API key for authentication. The key ID doubles as
// the requester identity for record ownership and rate limiting.
type APIKey struct {
	ID                string     `json:"id"`
	KeyHash           string     `json:"-"` // Never expose
	Name              string     `json:"name"`
	RequestsPerMinute int        `json:"requests_per_minute"`
	CreatedAt         time.Time  `json:"created_at"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
}

// AuditLog represents an API request audit entry.
type AuditLog struct {
	ID           string    `json:"id"`
	APIKeyID     string    `json:"api_key_id"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	RequestSize  int64     `json:"request_size"`
	ResponseCode int       `json:"response_code"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// GenerateProofRequest is the request body for proof generation.
type GenerateProofRequest struct {
	Domain        string `json:"domain"`
	Keyword       string `json:"keyword"`
	ProofRecordID string `json:"proof_record_id,omitempty"`
}

// CheckDomainRequest is the request body for availability checks.
type CheckDomainRequest struct {
	Domain string `json:"domain"`
}
