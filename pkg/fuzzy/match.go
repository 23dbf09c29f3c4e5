package fuzzy

// Candidate is one raw search result reduced to the fields the matcher
// compares against the target.
type Candidate struct {
	Artist string
	Title  string
}

// Scorer computes a distance between a candidate and the target; lower is
// better. All inputs arrive already normalized. Platform-specific
// heuristics plug in here without touching the selection rules.
type Scorer func(candArtist, candTitle, targetArtist, targetTitle string) int

// EditDistanceScorer sums the Levenshtein distance over artist and title.
// It is the default scorer.
func EditDistanceScorer(candArtist, candTitle, targetArtist, targetTitle string) int {
	return Distance(candArtist, targetArtist) + Distance(candTitle, targetTitle)
}

// BestMatch picks the candidate that best matches the target artist and
// title, returning its index. Selection rules, in order:
//
//  1. A single candidate wins outright.
//  2. The first candidate whose normalized artist and title both equal
//     the target exactly wins, regardless of scorer.
//  3. Otherwise the scorer's minimum wins; ties keep the earliest
//     candidate.
//
// Returns -1 for an empty candidate list.
func (n *Normalizer) BestMatch(candidates []Candidate, artist, title string, score Scorer) int {
	if len(candidates) == 0 {
		return -1
	}
	if len(candidates) == 1 {
		return 0
	}
	if score == nil {
		score = EditDistanceScorer
	}

	targetArtist := n.NormalizeArtist(artist)
	targetTitle := n.NormalizeTitle(title)

	normalized := make([]Candidate, len(candidates))
	for i, cand := range candidates {
		normalized[i] = Candidate{
			Artist: n.NormalizeArtist(cand.Artist),
			Title:  n.NormalizeTitle(cand.Title),
		}
	}

	for i, cand := range normalized {
		if cand.Artist == targetArtist && cand.Title == targetTitle {
			return i
		}
	}

	best := 0
	bestScore := score(normalized[0].Artist, normalized[0].Title, targetArtist, targetTitle)
	for i := 1; i < len(normalized); i++ {
		s := score(normalized[i].Artist, normalized[i].Title, targetArtist, targetTitle)
		if s < bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}
