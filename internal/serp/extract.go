package serp

import (
	"math"
	"strings"

	"github.com/rankproof/rankproof/internal/models"
)

// featureVocabulary maps SERP feature flags to the type tags that imply
// them. Matching is case-insensitive substring containment against both
// per-item type tags and the aggregate item-type list.
var featureVocabulary = map[string][]string{
	"ai_overview":      {"ai_overview"},
	"featured_snippet": {"featured_snippet"},
	"local_pack":       {"local_pack", "map_pack"},
	"knowledge_panel":  {"knowledge_panel", "knowledge_graph"},
}

// ExtractRanking builds a RankingSnapshot from the organic result list.
// DomainRankPosition is the 1-indexed rank of the first item whose URL
// contains the domain as a substring; all top items are retained whether
// or not they match.
func ExtractRanking(domain string, result *OrganicResult) models.RankingSnapshot {
	snapshot := models.RankingSnapshot{
		KeywordDifficulty: clampPercent(result.KeywordDifficulty),
	}

	needle := strings.ToLower(domain)
	for i, item := range result.Items {
		if i >= rankingLimit {
			break
		}
		position := item.Position
		if position == 0 {
			position = i + 1
		}
		snapshot.Items = append(snapshot.Items, models.RankedItem{
			Position:              position,
			URL:                   item.URL,
			Title:                 item.Title,
			EstimatedTrafficValue: item.EstimatedTrafficValue,
		})
		if snapshot.DomainRankPosition == nil && strings.Contains(strings.ToLower(item.URL), needle) {
			rank := position
			snapshot.DomainRankPosition = &rank
		}
	}
	return snapshot
}

// ExtractTrend computes the 30-day rank delta for the domain. The delta is
// earliest rank minus latest rank, so a positive value means the domain
// climbed. Nil when the domain never appears in the window.
func ExtractTrend(domain string, observations []RankObservation) models.TrendSnapshot {
	needle := strings.ToLower(domain)

	var earliest, latest *int
	for i := range observations {
		obs := observations[i]
		if !strings.Contains(strings.ToLower(obs.Domain), needle) {
			continue
		}
		rank := obs.Position
		if earliest == nil {
			earliest = &rank
		}
		latest = &rank
	}

	if earliest == nil || latest == nil {
		return models.TrendSnapshot{}
	}
	delta := *earliest - *latest
	return models.TrendSnapshot{Delta30Day: &delta}
}

// ExtractFeatures unions feature matches from per-item type tags and the
// aggregate item-type list, and computes the AI impact percentage from the
// share of non-organic items in the top 10 positions.
func ExtractFeatures(scan *FeatureScan) models.FeatureSnapshot {
	var snapshot models.FeatureSnapshot

	tags := make([]string, 0, len(scan.Items)+len(scan.ItemTypes))
	for _, item := range scan.Items {
		tags = append(tags, item.Type)
	}
	tags = append(tags, scan.ItemTypes...)

	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for feature, needles := range featureVocabulary {
			for _, needle := range needles {
				if !strings.Contains(lower, needle) {
					continue
				}
				switch feature {
				case "ai_overview":
					snapshot.AIOverviewPresent = true
				case "featured_snippet":
					snapshot.FeaturedSnippetPresent = true
				case "local_pack":
					snapshot.LocalPackPresent = true
				case "knowledge_panel":
					snapshot.KnowledgePanelPresent = true
				}
			}
		}
	}

	nonOrganic := 0
	for _, item := range scan.Items {
		if item.Position < 1 || item.Position > 10 {
			continue
		}
		if !strings.Contains(strings.ToLower(item.Type), "organic") {
			nonOrganic++
		}
	}
	snapshot.AIImpactPercent = int(math.Min(100, math.Round(100*float64(nonOrganic)/10)))

	return snapshot
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
