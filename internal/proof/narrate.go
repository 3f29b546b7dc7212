package proof

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rankproof/rankproof/internal/llm"
)

const (
	narrativeTimeout = 8 * time.Second

	// Responses shorter than this are treated as malformed.
	minNarrativeLength = 20
)

const narrativeSystemPrompt = `You are a confident sales copywriter for an SEO visibility product.
Write exactly 2-3 plain-text sentences summarizing how strong this domain's search presence is for the keyword.
Reference the concrete numbers you are given. No markdown, no bullet points, no headings.`

// narrate produces the optional sales narrative. Any failure - missing
// credential, timeout, provider error, malformed response - yields nil and
// is never fatal to the record.
func (e *Engine) narrate(ctx context.Context, domain, keyword string, score int, signals *Signals) *string {
	if e.provider == nil {
		return nil
	}

	nctx, cancel := context.WithTimeout(ctx, narrativeTimeout)
	defer cancel()

	response, err := e.provider.CompleteWithSystem(nctx, narrativeSystemPrompt, buildNarrativePrompt(domain, keyword, score, signals), llm.DefaultCompletionOptions())
	if err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Narrative generation failed")
		return nil
	}

	narrative := strings.TrimSpace(response)
	if len(narrative) < minNarrativeLength {
		log.Warn().Str("domain", domain).Msg("Narrative response too short, discarding")
		return nil
	}
	return &narrative
}

func buildNarrativePrompt(domain, keyword string, score int, signals *Signals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Domain: %s\nKeyword: %s\nProof score: %d/100\n", domain, keyword, score)

	if pos := signals.Ranking.DomainRankPosition; pos != nil {
		fmt.Fprintf(&b, "Current organic rank: %d\n", *pos)
	} else {
		b.WriteString("Current organic rank: not in top 20\n")
	}

	if delta := signals.Trend.Delta30Day; delta != nil {
		fmt.Fprintf(&b, "30-day rank movement: %+d positions\n", *delta)
	} else {
		b.WriteString("30-day rank movement: no data\n")
	}

	if signals.Features.AIOverviewPresent {
		fmt.Fprintf(&b, "AI overview present, impacting %d%% of top results\n", signals.Features.AIImpactPercent)
	} else {
		b.WriteString("No AI overview on this SERP\n")
	}

	fmt.Fprintf(&b, "Keyword difficulty: %d/100\n", signals.Ranking.KeywordDifficulty)
	return b.String()
}
