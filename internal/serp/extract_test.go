package serp

import "testing"

func TestExtractRankingFirstMatchWins(t *testing.T) {
	result := &OrganicResult{
		Items: []OrganicItem{
			{Position: 1, URL: "https://directory.example/listings"},
			{Position: 2, URL: "https://www.acme-plumbing.com/emergency"},
			{Position: 3, URL: "https://blog.acme-plumbing.com/tips"},
		},
		KeywordDifficulty: 42,
	}

	snapshot := ExtractRanking("acme-plumbing.com", result)
	if snapshot.DomainRankPosition == nil {
		t.Fatalf("expected a rank position")
	}
	if *snapshot.DomainRankPosition != 2 {
		t.Fatalf("expected first match at rank 2, got %d", *snapshot.DomainRankPosition)
	}
	if len(snapshot.Items) != 3 {
		t.Fatalf("all items should be retained, got %d", len(snapshot.Items))
	}
	if snapshot.KeywordDifficulty != 42 {
		t.Fatalf("keyword difficulty not carried: %d", snapshot.KeywordDifficulty)
	}
}

func TestExtractRankingSubstringContainment(t *testing.T) {
	// Containment matching means a longer host that embeds the domain
	// still counts. This pins the documented behavior.
	result := &OrganicResult{
		Items: []OrganicItem{
			{Position: 1, URL: "https://not-acme-plumbing.com/"},
		},
	}

	snapshot := ExtractRanking("acme-plumbing.com", result)
	if snapshot.DomainRankPosition == nil || *snapshot.DomainRankPosition != 1 {
		t.Fatalf("substring containment should match embedded domains")
	}
}

func TestExtractRankingAbsentDomain(t *testing.T) {
	result := &OrganicResult{
		Items: []OrganicItem{
			{Position: 1, URL: "https://one.example/"},
			{Position: 2, URL: "https://two.example/"},
		},
	}

	snapshot := ExtractRanking("acme.com", result)
	if snapshot.DomainRankPosition != nil {
		t.Fatalf("expected nil rank when domain never appears, got %d", *snapshot.DomainRankPosition)
	}
}

func TestExtractRankingMissingPositions(t *testing.T) {
	result := &OrganicResult{
		Items: []OrganicItem{
			{URL: "https://one.example/"},
			{URL: "https://acme.com/"},
		},
	}

	snapshot := ExtractRanking("acme.com", result)
	if snapshot.DomainRankPosition == nil || *snapshot.DomainRankPosition != 2 {
		t.Fatalf("list order should supply missing positions")
	}
}

func TestExtractTrendDelta(t *testing.T) {
	observations := []RankObservation{
		{Date: "2026-08-01", Domain: "acme.com", Position: 12},
		{Date: "2026-08-10", Domain: "other.example", Position: 1},
		{Date: "2026-08-15", Domain: "acme.com", Position: 8},
		{Date: "2026-08-29", Domain: "acme.com", Position: 5},
	}

	snapshot := ExtractTrend("acme.com", observations)
	if snapshot.Delta30Day == nil {
		t.Fatalf("expected a delta")
	}
	// Earliest 12, latest 5: the domain climbed 7 places.
	if *snapshot.Delta30Day != 7 {
		t.Fatalf("expected +7, got %d", *snapshot.Delta30Day)
	}
}

func TestExtractTrendDecline(t *testing.T) {
	observations := []RankObservation{
		{Date: "2026-08-01", Domain: "acme.com", Position: 3},
		{Date: "2026-08-29", Domain: "acme.com", Position: 11},
	}

	snapshot := ExtractTrend("acme.com", observations)
	if snapshot.Delta30Day == nil || *snapshot.Delta30Day != -8 {
		t.Fatalf("expected -8 for a falling domain")
	}
}

func TestExtractTrendDomainNeverAppears(t *testing.T) {
	observations := []RankObservation{
		{Date: "2026-08-01", Domain: "other.example", Position: 1},
	}

	snapshot := ExtractTrend("acme.com", observations)
	if snapshot.Delta30Day != nil {
		t.Fatalf("expected nil delta when the domain never appears")
	}
}

func TestExtractTrendSingleObservation(t *testing.T) {
	observations := []RankObservation{
		{Date: "2026-08-15", Domain: "acme.com", Position: 6},
	}

	snapshot := ExtractTrend("acme.com", observations)
	if snapshot.Delta30Day == nil || *snapshot.Delta30Day != 0 {
		t.Fatalf("a single sighting is a zero delta, not an absence")
	}
}

func TestExtractFeaturesUnion(t *testing.T) {
	scan := &FeatureScan{
		Items: []FeatureItem{
			{Type: "ai_overview", Position: 1},
			{Type: "organic", Position: 2},
		},
		ItemTypes: []string{"map_pack", "knowledge_graph"},
	}

	snapshot := ExtractFeatures(scan)
	if !snapshot.AIOverviewPresent {
		t.Fatalf("ai_overview item tag should set the flag")
	}
	if !snapshot.LocalPackPresent {
		t.Fatalf("map_pack in the aggregate list should set local pack")
	}
	if !snapshot.KnowledgePanelPresent {
		t.Fatalf("knowledge_graph should set knowledge panel")
	}
	if snapshot.FeaturedSnippetPresent {
		t.Fatalf("featured snippet was never seen")
	}
}

func TestExtractFeaturesAIImpact(t *testing.T) {
	cases := []struct {
		name  string
		items []FeatureItem
		want  int
	}{
		{
			name:  "all organic",
			items: []FeatureItem{{Type: "organic", Position: 1}, {Type: "organic", Position: 2}},
			want:  0,
		},
		{
			name: "three non-organic in top ten",
			items: []FeatureItem{
				{Type: "ai_overview", Position: 1},
				{Type: "featured_snippet", Position: 2},
				{Type: "local_pack", Position: 3},
				{Type: "organic", Position: 4},
			},
			want: 30,
		},
		{
			name: "below top ten ignored",
			items: []FeatureItem{
				{Type: "ai_overview", Position: 11},
				{Type: "organic", Position: 1},
			},
			want: 0,
		},
		{
			name: "capped at one hundred",
			items: []FeatureItem{
				{Type: "ad", Position: 1}, {Type: "ad", Position: 2}, {Type: "ad", Position: 3},
				{Type: "ad", Position: 4}, {Type: "ad", Position: 5}, {Type: "ad", Position: 6},
				{Type: "ad", Position: 7}, {Type: "ad", Position: 8}, {Type: "ad", Position: 9},
				{Type: "ad", Position: 10}, {Type: "ad", Position: 10},
			},
			want: 100,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snapshot := ExtractFeatures(&FeatureScan{Items: tc.items})
			if snapshot.AIImpactPercent != tc.want {
				t.Fatalf("expected %d%%, got %d%%", tc.want, snapshot.AIImpactPercent)
			}
		})
	}
}

func TestClampPercent(t *testing.T) {
	if got := clampPercent(-5); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := clampPercent(140); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if got := clampPercent(55); got != 55 {
		t.Fatalf("expected 55, got %d", got)
	}
}
