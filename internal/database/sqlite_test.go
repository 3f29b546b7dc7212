package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rankproof/rankproof/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProofRecordLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := &models.ProofRecord{
		ID:          "rec-1",
		Domain:      "acme.com",
		Keyword:     "emergency plumber",
		RequesterID: "key-1",
		Status:      models.StatusProcessing,
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.CreateProofRecord(ctx, record); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.GetProofRecord(ctx, "rec-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Status != models.StatusProcessing {
		t.Fatalf("expected processing record, got %+v", got)
	}
	if got.ProofScore != nil {
		t.Fatalf("score must be absent before finalization")
	}

	rank := 3
	delta := 7
	score := 95
	narrative := "Acme ranks in the local top three and is still climbing."
	now := time.Now().UTC()

	record.ProofScore = &score
	record.Ranking = &models.RankingSnapshot{DomainRankPosition: &rank, KeywordDifficulty: 35}
	record.Trend = &models.TrendSnapshot{Delta30Day: &delta}
	record.Features = &models.FeatureSnapshot{LocalPackPresent: true, AIImpactPercent: 10}
	record.Narrative = &narrative
	record.Status = models.StatusComplete
	record.CostUnits = 3
	record.CompletedAt = &now

	if err := store.FinalizeProofRecord(ctx, record); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	got, err = store.GetProofRecord(ctx, "rec-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != models.StatusComplete {
		t.Fatalf("expected complete, got %s", got.Status)
	}
	if got.ProofScore == nil || *got.ProofScore != 95 {
		t.Fatalf("score not persisted: %+v", got.ProofScore)
	}
	if got.Ranking == nil || got.Ranking.DomainRankPosition == nil || *got.Ranking.DomainRankPosition != 3 {
		t.Fatalf("ranking snapshot not round-tripped: %+v", got.Ranking)
	}
	if got.Trend == nil || got.Trend.Delta30Day == nil || *got.Trend.Delta30Day != 7 {
		t.Fatalf("trend snapshot not round-tripped: %+v", got.Trend)
	}
	if got.Narrative == nil || *got.Narrative != narrative {
		t.Fatalf("narrative not round-tripped")
	}
	if got.CostUnits != 3 {
		t.Fatalf("expected cost units 3, got %d", got.CostUnits)
	}
}

func TestGetProofRecordMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetProofRecord(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing record")
	}
}

func TestListProofRecordsScopedToRequester(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, requester := range []string{"key-1", "key-1", "key-2"} {
		record := &models.ProofRecord{
			ID:          "rec-" + string(rune('a'+i)),
			Domain:      "acme.com",
			Keyword:     "plumber",
			RequesterID: requester,
			Status:      models.StatusProcessing,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := store.CreateProofRecord(ctx, record); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	records, err := store.ListProofRecords(ctx, "key-1", 10, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for key-1, got %d", len(records))
	}
	if records[0].ID != "rec-b" {
		t.Fatalf("expected newest first, got %s", records[0].ID)
	}
}

func TestAvailabilityUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &models.CachedAvailability{
		Domain:    "acme.com",
		Available: true,
		Pricing:   map[int]models.TermPricing{1: {Registration: 10, Renewal: 12}},
		Currency:  "USD",
		CheckedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.UpsertAvailability(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &models.CachedAvailability{
		Domain:    "acme.com",
		Available: false,
		Currency:  "USD",
		CheckedAt: now.Add(2 * time.Hour),
		ExpiresAt: now.Add(2*time.Hour + 10*time.Minute),
	}
	if err := store.UpsertAvailability(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := store.GetAvailability(ctx, "acme.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Available {
		t.Fatalf("second write should have replaced the row: %+v", got)
	}
}

func TestRateLimitWindowRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)

	if err := store.ResetWindow(ctx, "key-1", start); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	window, err := store.GetActiveWindow(ctx, "key-1", start.Add(-time.Minute))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if window == nil || window.RequestCount != 1 {
		t.Fatalf("expected a fresh window at count 1, got %+v", window)
	}

	if err := store.IncrementWindow(ctx, "key-1", window.WindowStart); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	window, err = store.GetActiveWindow(ctx, "key-1", start.Add(-time.Minute))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if window.RequestCount != 2 {
		t.Fatalf("expected count 2, got %d", window.RequestCount)
	}

	// A cutoff after the window start hides the row.
	window, err = store.GetActiveWindow(ctx, "key-1", start.Add(time.Minute))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if window != nil {
		t.Fatalf("stale cutoff should return no window")
	}
}

func TestAPIKeyLookupByHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := &models.APIKey{
		ID:                "key-1",
		KeyHash:           "abc123",
		Name:              "test key",
		RequestsPerMinute: 60,
		CreatedAt:         time.Now().UTC(),
	}
	if err := store.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.GetAPIKeyByHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.ID != "key-1" {
		t.Fatalf("expected key-1, got %+v", got)
	}

	got, err = store.GetAPIKeyByHash(ctx, "missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for an unknown hash")
	}
}
