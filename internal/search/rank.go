// Package search ranks in-memory candidate lists against a free-text query.
//
// Matching is literal: queries are lower-cased and trimmed, then compared with
// strings functions only, so characters such as "(" or "*" carry no meaning.
package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
)

// Rule weights, highest tier first. Weights of all matching rules are summed.
const (
	WeightExactPrimary      = 1000
	WeightExactSecondary    = 900
	WeightPrefixPrimary     = 800
	WeightPrefixSecondary   = 700
	WeightWordPrimary       = 650
	WeightContainsPrimary   = 600
	WeightContainsSecondary = 500
	WeightContainsTertiary  = 400

	TokenBonusPrimary   = 50
	TokenBonusSecondary = 40
	TokenBonusTertiary  = 30

	minTokenLength = 3
)

// Query is a free-text query plus exact-match attribute filters.
type Query struct {
	Text    string
	Filters map[string]string
}

// Fields is the searchable projection of a candidate.
type Fields struct {
	Primary     string
	Secondary   string
	Description string
	Tertiary    string
	Attrs       map[string]string
}

// Normalize lower-cases and trims a query string.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Rank filters candidates by q.Filters and, when q.Text is set, keeps only
// those with a positive score ordered by descending score. Equal scores keep
// their input order. The input slice is never modified.
func Rank[T any](candidates []T, q Query, fields func(T) Fields) []T {
	text := Normalize(q.Text)
	filters := activeFilters(q.Filters)

	if text == "" && len(filters) == 0 {
		return candidates
	}

	type scored struct {
		item  T
		score int
	}
	matches := make([]scored, 0, len(candidates))
	tokens := tokenize(text)
	for _, candidate := range candidates {
		f := fields(candidate)
		if !matchesFilters(f.Attrs, filters) {
			continue
		}
		if text == "" {
			matches = append(matches, scored{item: candidate})
			continue
		}
		s := score(f, text, tokens)
		if s <= 0 {
			continue
		}
		matches = append(matches, scored{item: candidate, score: s})
	}

	if text != "" {
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].score > matches[j].score
		})
	}

	out := make([]T, len(matches))
	for i, m := range matches {
		out[i] = m.item
	}
	return out
}

// Score exposes the relevance of a single candidate for q.
func Score(f Fields, q string) int {
	text := Normalize(q)
	if text == "" {
		return 0
	}
	return score(f, text, tokenize(text))
}

func score(f Fields, q string, tokens []string) int {
	primary := strings.ToLower(f.Primary)
	secondary := strings.ToLower(f.Secondary)
	description := strings.ToLower(f.Description)
	tertiary := strings.ToLower(f.Tertiary)

	total := 0
	if primary == q {
		total += WeightExactPrimary
	}
	if secondary == q {
		total += WeightExactSecondary
	}
	if strings.HasPrefix(primary, q) {
		total += WeightPrefixPrimary
	}
	if strings.HasPrefix(secondary, q) {
		total += WeightPrefixSecondary
	}
	if wordPrefix(primary, q) {
		total += WeightWordPrimary
	}
	if strings.Contains(primary, q) {
		total += WeightContainsPrimary
	}
	if strings.Contains(secondary, q) || strings.Contains(description, q) {
		total += WeightContainsSecondary
	}
	if strings.Contains(tertiary, q) {
		total += WeightContainsTertiary
	}

	for _, token := range tokens {
		if strings.Contains(primary, token) {
			total += TokenBonusPrimary
		}
		if strings.Contains(secondary, token) {
			total += TokenBonusSecondary
		}
		if strings.Contains(tertiary, token) {
			total += TokenBonusTertiary
		}
	}
	return total
}

// wordPrefix reports whether q equals or prefixes a whitespace token of s.
func wordPrefix(s, q string) bool {
	for _, word := range strings.Fields(s) {
		if strings.HasPrefix(word, q) {
			return true
		}
	}
	return false
}

func tokenize(q string) []string {
	words := strings.Fields(q)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) >= minTokenLength {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func activeFilters(filters map[string]string) map[string]string {
	active := make(map[string]string, len(filters))
	for name, value := range filters {
		if value != "" {
			active[name] = value
		}
	}
	return active
}

func matchesFilters(attrs, filters map[string]string) bool {
	for name, want := range filters {
		if attrs[name] != want {
			return false
		}
	}
	return true
}

// CourseFields projects a course: name, then code, then description.
func CourseFields(c models.Course) Fields {
	return Fields{
		Primary:     c.Name,
		Secondary:   c.Code,
		Description: c.Description,
		Tertiary:    c.Code,
		Attrs: map[string]string{
			"branch": c.Branch,
			"code":   c.Code,
		},
	}
}

// SyllabusFields projects a syllabus: title, then subject and description,
// then course code.
func SyllabusFields(s models.Syllabus) Fields {
	return Fields{
		Primary:     s.Title,
		Secondary:   s.Subject,
		Description: s.Description,
		Tertiary:    s.CourseCode,
		Attrs: map[string]string{
			"course":   s.CourseCode,
			"branch":   s.Branch,
			"semester": strconv.Itoa(s.Semester),
		},
	}
}
