package match

import "bidtrack/models"

// Confidence tiers for a resolved match.
const (
	TierExact  = "exact"
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
	TierNone   = "none"
)

// Tier cutoffs
const (
	exactThreshold  = 0.95
	highThreshold   = 0.85
	mediumThreshold = 0.5
	lowThreshold    = 0.3
)

// Candidate is one catalog entry the resolver ranks against.
type Candidate struct {
	ProjectID  int
	ClientName string
	Name       string
}

// Resolve ranks candidates against an incoming (client, survey name) pair and
// returns the best one with its combined score and confidence tier.
//
// Survey names discriminate better than client names, which repeat across many
// bids, so the name score carries the larger weight. When both component
// scores clear 0.7 the combined score gets a 1.1x boost, capped at 1.0.
// Ties keep the first candidate encountered (strict > comparison).
// Pure query: no side effects, all mutation stays with the caller.
func Resolve(clientText, nameText string, candidates []Candidate) (*Candidate, float64, string) {
	var best *Candidate
	bestScore := 0.0

	for i := range candidates {
		c := &candidates[i]
		clientScore := Score(clientText, c.ClientName)
		nameScore := Score(nameText, c.Name)

		combined := clientScore*0.4 + nameScore*0.6
		if clientScore > 0.7 && nameScore > 0.7 {
			combined = min(1.0, combined*1.1)
		}

		if combined > bestScore {
			bestScore = combined
			best = c
		}
	}

	return best, bestScore, Classify(bestScore)
}

// Classify maps a combined score onto a confidence tier.
func Classify(score float64) string {
	switch {
	case score >= exactThreshold:
		return TierExact
	case score >= highThreshold:
		return TierHigh
	case score >= mediumThreshold:
		return TierMedium
	case score >= lowThreshold:
		return TierLow
	default:
		return TierNone
	}
}

// MatchCompetitor maps free-text winner names onto the fixed competitor list,
// comparing against both code and label. Accepted at 0.6 and above.
func MatchCompetitor(winner string) (string, bool) {
	if Normalize(winner) == "" {
		return "", false
	}

	best := ""
	bestScore := 0.0
	for _, choice := range models.CompetitorChoices {
		score := max(Score(winner, choice.Code), Score(winner, choice.Label))
		if score > bestScore {
			bestScore = score
			best = choice.Code
		}
	}

	if bestScore >= 0.6 {
		return best, true
	}
	return "", false
}
