package search

import (
	"sort"
)

// Combine merges lexical and semantic result sets into one ranked list
// under final = alpha*semantic + beta*lexical.
//
// Alpha is bounded to [0,1]; beta is an unbounded boost (default 10.0).
// The weights are deliberately not normalized: lexical exact-matches
// are meant to dominate when both sides fire.
//
// Zero-weight exclusion: with beta == 0 only awards present in the
// semantic map survive, with alpha == 0 only awards present in the
// lexical map survive. When both weights are nonzero every award in
// the union is scored, the missing side contributing 0.
func Combine(lexical, semantic []Result, alpha, beta float64, topK int) []HybridResult {
	// Per-award lexical score (best when an award somehow repeats).
	lexByAward := make(map[string]Result, len(lexical))
	for _, r := range lexical {
		if prev, ok := lexByAward[r.AwardID]; !ok || r.LexicalScore > prev.LexicalScore {
			lexByAward[r.AwardID] = r
		}
	}

	// Per-award semantic score: the max across that award's chunks,
	// not a sum or average.
	semByAward := make(map[string]Result, len(semantic))
	for _, r := range semantic {
		if prev, ok := semByAward[r.AwardID]; !ok || r.SemanticScore > prev.SemanticScore {
			semByAward[r.AwardID] = r
		}
	}

	// Candidate set: union of both maps, lexical order first for
	// stability.
	var candidates []string
	seen := make(map[string]bool, len(lexByAward)+len(semByAward))
	for _, r := range lexical {
		if !seen[r.AwardID] {
			seen[r.AwardID] = true
			candidates = append(candidates, r.AwardID)
		}
	}
	for _, r := range semantic {
		if !seen[r.AwardID] {
			seen[r.AwardID] = true
			candidates = append(candidates, r.AwardID)
		}
	}

	var results []HybridResult
	for _, id := range candidates {
		lex, hasLex := lexByAward[id]
		sem, hasSem := semByAward[id]

		if beta == 0 && !hasSem {
			continue
		}
		if alpha == 0 && !hasLex {
			continue
		}

		final := alpha*sem.SemanticScore + beta*lex.LexicalScore
		results = append(results, HybridResult{
			Result:     mergeResults(lex, hasLex, sem, hasSem),
			FinalScore: final,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// mergeResults builds the merged record: the semantic result is the
// base (more complete by default), then present lexical display fields
// overlay it. Lexical wins ties on display fields but never on the two
// component scores.
func mergeResults(lex Result, hasLex bool, sem Result, hasSem bool) Result {
	if !hasSem {
		return lex
	}
	merged := sem
	if !hasLex {
		return merged
	}

	merged.LexicalScore = lex.LexicalScore

	if lex.Snippet != "" {
		merged.Snippet = lex.Snippet
	}
	if lex.Award.Title != "" {
		merged.Award.Title = lex.Award.Title
	}
	if lex.Award.Abstract != "" {
		merged.Award.Abstract = lex.Award.Abstract
	}
	if lex.Award.Agency != "" {
		merged.Award.Agency = lex.Award.Agency
	}
	if lex.Award.Status != "" {
		merged.Award.Status = lex.Award.Status
	}
	if lex.Award.Institution != "" {
		merged.Award.Institution = lex.Award.Institution
	}
	if lex.Award.PIName != "" {
		merged.Award.PIName = lex.Award.PIName
	}
	if lex.Award.StartDate != "" {
		merged.Award.StartDate = lex.Award.StartDate
	}
	if lex.Award.EndDate != "" {
		merged.Award.EndDate = lex.Award.EndDate
	}
	if lex.Award.URL != "" {
		merged.Award.URL = lex.Award.URL
	}
	if lex.Award.TotalAmount != 0 {
		merged.Award.TotalAmount = lex.Award.TotalAmount
	}
	return merged
}
