package rerank

import (
	"context"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure Lexical implements the interface.
var _ driven.Reranker = (*Lexical)(nil)

// BM25 parameters.
const (
	defaultK1 = 1.2
	defaultB  = 0.75
)

// Lexical scores candidates with Okapi BM25, treating the candidate set as
// the corpus. It makes no network calls and is deterministic.
type Lexical struct {
	k1 float64
	b  float64
}

// NewLexical creates a BM25 reranker with the usual k1=1.2, b=0.75.
func NewLexical() *Lexical {
	return &Lexical{k1: defaultK1, b: defaultB}
}

// Rerank scores every candidate against the query terms.
func (l *Lexical) Rerank(_ context.Context, query string, candidates []domain.ScoredChunk, topN int) ([]domain.ScoredChunk, error) {
	if topN <= 0 || len(candidates) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	terms := uniqueTerms(tokenize(query))
	docs := make([]map[string]int, len(candidates))
	lengths := make([]int, len(candidates))
	df := make(map[string]int, len(terms))
	total := 0

	for i, c := range candidates {
		tokens := tokenize(c.Content)
		tf := make(map[string]int)
		for _, tok := range tokens {
			tf[tok]++
		}
		for _, t := range terms {
			if tf[t] > 0 {
				df[t]++
			}
		}
		docs[i] = tf
		lengths[i] = len(tokens)
		total += len(tokens)
	}

	n := float64(len(candidates))
	avgLen := float64(total) / n
	if avgLen == 0 {
		avgLen = 1
	}

	out := make([]domain.ScoredChunk, len(candidates))
	for i, c := range candidates {
		var score float64
		for _, t := range terms {
			f := float64(docs[i][t])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[t])+0.5)/(float64(df[t])+0.5))
			norm := 1 - l.b + l.b*float64(lengths[i])/avgLen
			score += idf * f * (l.k1 + 1) / (f + l.k1*norm)
		}
		out[i] = domain.ScoredChunk{Chunk: c.Chunk, Score: score}
	}

	sortByScore(out)
	return out[:min(topN, len(out))], nil
}

// Name returns "lexical".
func (l *Lexical) Name() string {
	return string(domain.RerankerLexical)
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// sortByScore orders by descending score, keeping input order for ties.
func sortByScore(chunks []domain.ScoredChunk) {
	slices.SortStableFunc(chunks, func(a, b domain.ScoredChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
}
