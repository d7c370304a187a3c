package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Daethyra/Murphy/internal/domain"
)

// Match pairs a matching message with its immediate transcript neighbours.
// Prev and Next are attached by transcript position for display only; they
// never affect matching.
type Match struct {
	Message domain.Message
	Prev    *domain.Message
	Next    *domain.Message
}

// Evaluate applies the parsed terms and filters against a transcript and
// returns the matches in transcript order. Errors (a wildcard that compiles
// to an invalid pattern) are returned to the caller; the retrieval tool
// boundary renders them as a human-readable string so an agent turn never
// crashes on a degenerate query.
func Evaluate(transcript []domain.Message, terms []Term, f Filters) ([]Match, error) {
	var matched []int
	for i, msg := range transcript {
		if f.Role != "" && msg.Role != f.Role {
			continue
		}
		if !dateOK(msg, f) {
			continue
		}
		ok, err := contentMatches(msg.Content, terms, f)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, i)
		}
	}

	// Earliest matches are kept; no re-sorting by relevance.
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	matches := make([]Match, 0, len(matched))
	for _, i := range matched {
		m := Match{Message: transcript[i]}
		if i > 0 {
			m.Prev = &transcript[i-1]
		}
		if i < len(transcript)-1 {
			m.Next = &transcript[i+1]
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// dateOK applies the after/before/on filters. A zero timestamp passes every
// date filter (fail-open), matching the loader's best-effort posture.
func dateOK(msg domain.Message, f Filters) bool {
	if msg.Timestamp.IsZero() {
		return true
	}
	if !f.After.IsZero() && msg.Timestamp.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && msg.Timestamp.After(f.Before) {
		return false
	}
	if !f.OnDate.IsZero() {
		y1, m1, d1 := msg.Timestamp.Date()
		y2, m2, d2 := f.OnDate.Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}

func contentMatches(content string, terms []Term, f Filters) (bool, error) {
	// An exact phrase replaces term evaluation entirely. Folding applies to
	// the phrase filter only; plain terms are literal substring matches.
	if f.ExactPhrase != "" {
		phrase := f.ExactPhrase
		if !f.CaseSensitive {
			return strings.Contains(strings.ToLower(content), strings.ToLower(phrase)), nil
		}
		return strings.Contains(content, phrase), nil
	}

	// No terms at all: structural filters alone decide.
	if len(terms) == 0 {
		return true, nil
	}

	// Left-to-right boolean fold. The running result is seeded directly by
	// the first non-operator term regardless of the pending operator.
	var result, seeded bool
	op := "and"
	for _, t := range terms {
		if t.Kind == TermOperator {
			op = t.Text
			continue
		}

		var present bool
		if t.Kind == TermWildcard {
			ok, err := wildcardMatch(content, t.Text)
			if err != nil {
				return false, err
			}
			present = ok
		} else {
			present = strings.Contains(content, t.Text)
		}

		if !seeded {
			result = present
			seeded = true
			continue
		}
		switch op {
		case "and":
			result = result && present
		case "or":
			result = result || present
		case "not":
			result = result && !present
		}
	}
	return result, nil
}

// wildcardMatch treats * as "zero or more characters" and anchors the
// pattern at word boundaries, so `foo*` matches "foobar" but not "barfoo".
func wildcardMatch(content, pattern string) (bool, error) {
	re, err := regexp.Compile(`\b` + strings.ReplaceAll(pattern, "*", ".*") + `\b`)
	if err != nil {
		return false, fmt.Errorf("invalid wildcard pattern %q: %w", pattern, err)
	}
	return re.MatchString(content), nil
}
