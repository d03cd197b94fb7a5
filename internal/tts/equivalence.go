package tts

import "media-dubber/internal/domain"

// NearestVoice implements §4.6's cross-provider voice equivalence
// fallback: same language, then same gender, then same quality tier,
// then same tone tag, breaking ties by lower price. It is a plain
// deterministic scan over the candidate list, never a reflective
// feature probe at request time, per §9's design note.
func NearestVoice(candidates []domain.VoiceProfile, source domain.VoiceProfile) domain.VoiceProfile {
	if len(candidates) == 0 {
		return domain.VoiceProfile{}
	}

	best := candidates[0]
	bestScore := equivalenceScore(source, best)

	for _, c := range candidates[1:] {
		score := equivalenceScore(source, c)
		if score > bestScore || (score == bestScore && c.PricePer1k < best.PricePer1k) {
			best = c
			bestScore = score
		}
	}
	return best
}

// equivalenceScore counts how many of {language, gender, tier, tone}
// match, in that priority order, weighted so an earlier-priority match
// always outweighs any combination of later ones.
func equivalenceScore(source, candidate domain.VoiceProfile) int {
	score := 0
	if source.Language == candidate.Language {
		score += 8
	}
	if source.Gender == candidate.Gender {
		score += 4
	}
	if source.Tier == candidate.Tier {
		score += 2
	}
	if source.ToneTag != "" && source.ToneTag == candidate.ToneTag {
		score++
	}
	return score
}

// Reflexive reports whether a voice always maps to itself under
// equivalence when queried against its own provider's catalog,
// satisfying the reflexivity invariant.
func Reflexive(catalog []domain.VoiceProfile, v domain.VoiceProfile) bool {
	return NearestVoice(catalog, v).VoiceID == v.VoiceID
}
