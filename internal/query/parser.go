// Package query implements the chat-history search mini-language: keyword
// terms, AND/OR/NOT boolean operators, wildcards, and typed filters for role,
// date range, case sensitivity, result limit and exact phrase.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/Daethyra/Murphy/internal/domain"
)

// TermKind classifies a parsed query term.
type TermKind int

const (
	TermLiteral TermKind = iota
	TermWildcard
	TermOperator
)

// Term is one positional element of the query's term stream. Operators keep
// their position because boolean evaluation is left-to-right with
// operator-switches-mode semantics.
type Term struct {
	Text string
	Kind TermKind
}

// Filters are the typed filters extracted from a query string. Zero values
// mean "unset" throughout.
type Filters struct {
	Role          domain.Role
	After         time.Time
	Before        time.Time
	OnDate        time.Time
	CaseSensitive bool
	Limit         int
	ExactPhrase   string
}

const dateLayout = "2006-01-02"

// Parse tokenizes a search string on whitespace and splits it into a term
// stream and a filter set. Filter syntax is consumed eagerly and removed from
// the stream, so evaluation only ever sees literal terms and operators.
// Malformed filter values (bad dates, non-numeric limits) are silently
// ignored and leave the filter unset.
//
// Exact phrases only work for single tokens: `"foo"` sets the phrase filter,
// but `"foo bar"` is split by whitespace tokenization before the quotes are
// seen. That is a known limitation of the query syntax, kept as-is.
func Parse(q string) ([]Term, Filters) {
	var terms []Term
	var f Filters

	for _, tok := range strings.Fields(q) {
		lower := strings.ToLower(tok)
		switch {
		case lower == "and" || lower == "or" || lower == "not":
			// Operators stay in the term stream so evaluation sees them
			// positionally.
			terms = append(terms, Term{Text: lower, Kind: TermOperator})
		case strings.HasPrefix(tok, "user:"):
			f.Role = domain.RoleUser
		case strings.HasPrefix(tok, "assistant:"):
			f.Role = domain.RoleAssistant
		case strings.HasPrefix(tok, "after:"):
			if t, err := time.Parse(dateLayout, tok[len("after:"):]); err == nil {
				f.After = t
			}
		case strings.HasPrefix(tok, "before:"):
			if t, err := time.Parse(dateLayout, tok[len("before:"):]); err == nil {
				f.Before = t
			}
		case strings.HasPrefix(tok, "on:"):
			if t, err := time.Parse(dateLayout, tok[len("on:"):]); err == nil {
				f.OnDate = t
			}
		case strings.HasPrefix(tok, "case:"):
			v := strings.ToLower(tok[len("case:"):])
			f.CaseSensitive = v == "true" || v == "yes"
		case strings.HasPrefix(tok, "limit:"):
			if n, err := strconv.Atoi(tok[len("limit:"):]); err == nil {
				f.Limit = n
			}
		case len(tok) >= 2 && strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`):
			f.ExactPhrase = tok[1 : len(tok)-1]
		default:
			kind := TermLiteral
			if strings.Contains(tok, "*") {
				kind = TermWildcard
			}
			terms = append(terms, Term{Text: tok, Kind: kind})
		}
	}
	return terms, f
}
