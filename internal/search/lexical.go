package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/grantsight/grantsight/internal/store"
)

// Lexical scoring weights. The formula is deterministic and bounded to
// [0,1]: an exact title match short-circuits at 1.0, otherwise a
// phrase-in-title bonus plus term-coverage contributions are summed
// and clamped.
const (
	phraseInTitleWeight    = 0.8
	titleCoverageWeight    = 0.5
	abstractCoverageWeight = 0.2
)

// Snippet window sizes in characters.
const (
	snippetBefore = 50
	snippetAfter  = 150
	snippetMax    = 200
)

// defaultCandidateLimit bounds the ILIKE candidate fetch.
const defaultCandidateLimit = 200

// Lexical performs substring and term-coverage search over award
// titles and abstracts.
type Lexical struct {
	awards         store.AwardStore
	candidateLimit int
}

// NewLexical creates a lexical searcher.
func NewLexical(awards store.AwardStore) *Lexical {
	return &Lexical{awards: awards, candidateLimit: defaultCandidateLimit}
}

// Search returns up to topK scored results for query. Awards scoring
// zero are excluded.
func (l *Lexical) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	candidates, err := l.awards.SearchCandidates(ctx, query, l.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	terms := strings.Fields(strings.ToLower(query))

	var results []Result
	for _, a := range candidates {
		score := scoreAward(query, a.Title, a.Abstract)
		if score == 0 {
			continue
		}
		results = append(results, Result{
			AwardID:      a.AwardID,
			Snippet:      extractSnippet(a.Abstract, terms),
			LexicalScore: score,
			Award:        a,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].LexicalScore > results[j].LexicalScore
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// scoreAward computes the lexical relevance of one award in [0,1].
func scoreAward(query, title, abstract string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	t := strings.ToLower(title)
	ab := strings.ToLower(abstract)

	if t == q {
		return 1.0
	}

	score := 0.0
	if strings.Contains(t, q) {
		score += phraseInTitleWeight
	}

	terms := strings.Fields(q)
	score += termCoverage(terms, t) * titleCoverageWeight
	score += termCoverage(terms, ab) * abstractCoverageWeight

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// termCoverage returns the fraction of terms present in text.
func termCoverage(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	found := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

// extractSnippet returns a window of the abstract around the first
// query term occurrence, with ellipses. When no term is found the
// text's head is returned, truncated to the maximum snippet length.
func extractSnippet(abstract string, terms []string) string {
	abstract = strings.TrimSpace(abstract)
	if abstract == "" {
		return ""
	}

	lower := strings.ToLower(abstract)
	runes := []rune(abstract)

	for _, term := range terms {
		bytePos := strings.Index(lower, term)
		if bytePos < 0 {
			continue
		}
		runePos := utf8.RuneCountInString(lower[:bytePos])

		start := max(0, runePos-snippetBefore)
		end := min(len(runes), runePos+snippetAfter)

		snippet := string(runes[start:end])
		if start > 0 {
			snippet = "..." + snippet
		}
		if end < len(runes) {
			snippet += "..."
		}
		return snippet
	}

	if len(runes) > snippetMax {
		return string(runes[:snippetMax]) + "..."
	}
	return abstract
}
