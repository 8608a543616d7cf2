// Package search ranks listing candidates against a free-text query. It is
// small and deterministic:
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Stateless Ranker, safe for concurrent use
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|.
//
// The database narrows the candidate set first (see Terms); the Ranker only
// orders what it is given.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Document is a rankable item. Text is typically "title + description".
type Document struct {
	ID   string
	Text string
}

// Result is a ranked document id with its similarity score.
type Result struct {
	ID    string
	Score float64
}

// DefaultStopwords are dropped from queries and documents unless overridden.
var DefaultStopwords = []string{
	"a", "an", "and", "for", "in", "of", "on", "or", "the", "to", "with",
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords  map[string]struct{}
	maxResults int
}

func defaultConfig() config {
	c := config{}
	WithStopwords(DefaultStopwords)(&c)
	return c
}

// WithStopwords replaces the stop-word list. An empty list disables removal.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		} else {
			c.stopwords = nil
		}
	}
}

// WithMaxResults caps the number of results Rank returns.
func WithMaxResults(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

// Ranker scores documents against queries.
type Ranker struct {
	cfg config
}

// NewRanker builds a Ranker with the given options applied over defaults.
func NewRanker(opts ...Option) *Ranker {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Ranker{cfg: cfg}
}

// Terms returns the distinct, sorted query tokens after stop-word removal.
// Callers use them to pre-filter candidates (e.g. SQL LIKE clauses).
func (r *Ranker) Terms(q string) []string {
	toks := tokenize(q, r.cfg.stopwords)
	out := make([]string, 0, len(toks))
	for t := range toks {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Rank returns the documents that share at least one token with q, best
// first. Ties break on shorter text, then on ID.
func (r *Ranker) Rank(q string, docs []Document) []Result {
	if len(docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	qTokens := tokenize(q, r.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		id       string
		score    float64
		lenRunes int
	}

	buf := make([]scored, 0, len(docs))
	for _, d := range docs {
		dTokens := tokenize(normalizeWhitespace(d.Text), r.cfg.stopwords)
		over := overlap(qTokens, dTokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(dTokens) - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{
			id:       d.ID,
			score:    float64(over) / union,
			lenRunes: utf8.RuneCountInString(d.Text),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].id < buf[b].id
	})

	k := len(buf)
	if r.cfg.maxResults > 0 && k > r.cfg.maxResults {
		k = r.cfg.maxResults
	}
	out := make([]Result, k)
	for i := 0; i < k; i++ {
		out[i] = Result{ID: buf[i].id, Score: buf[i].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
