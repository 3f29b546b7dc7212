package proof

import (
	"math"

	"github.com/rankproof/rankproof/internal/models"
)

// Rubric weights. The four sub-scores are the only inputs to the final
// score; nothing else may influence it.
const (
	weightRank       = 0.40
	weightTrend      = 0.30
	weightAIImpact   = 0.20
	weightDifficulty = 0.10
)

// Score computes the proof score from the three snapshots and the keyword
// difficulty. It is a pure function: identical inputs always produce the
// identical integer.
func Score(ranking models.RankingSnapshot, trend models.TrendSnapshot, features models.FeatureSnapshot, keywordDifficulty int) int {
	weighted := rankSubScore(ranking.DomainRankPosition)*weightRank +
		trendSubScore(trend.Delta30Day)*weightTrend +
		aiImpactSubScore(features)*weightAIImpact +
		difficultySubScore(keywordDifficulty)*weightDifficulty

	score := int(math.Round(weighted))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// rankSubScore: 100/97/94 at ranks 1-3, linear 90->50 across 4-10,
// linear 45->5 across 11-20, zero beyond rank 20 or when absent.
func rankSubScore(position *int) float64 {
	if position == nil {
		return 0
	}
	rank := *position
	switch {
	case rank == 1:
		return 100
	case rank == 2:
		return 97
	case rank == 3:
		return 94
	case rank >= 4 && rank <= 10:
		return 90 - float64(rank-4)*(40.0/6.0)
	case rank >= 11 && rank <= 20:
		return 45 - float64(rank-11)*(40.0/9.0)
	default:
		return 0
	}
}

// trendSubScore: unknown movement is scored as neutral 50.
func trendSubScore(delta *int) float64 {
	if delta == nil {
		return 50
	}
	d := *delta
	switch {
	case d > 5:
		return 100
	case d >= 1:
		return 70
	case d == 0:
		return 50
	case d >= -5:
		return 30
	default:
		return 0
	}
}

// aiImpactSubScore: a SERP without an AI overview scores full marks
// regardless of the impact percentage.
func aiImpactSubScore(features models.FeatureSnapshot) float64 {
	if !features.AIOverviewPresent {
		return 100
	}
	switch {
	case features.AIImpactPercent < 20:
		return 70
	case features.AIImpactPercent <= 40:
		return 40
	default:
		return 10
	}
}

func difficultySubScore(kd int) float64 {
	switch {
	case kd < 30:
		return 100
	case kd <= 50:
		return 70
	case kd <= 70:
		return 40
	default:
		return 20
	}
}
