package reconcile

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// LexicalReconciler matches names without a model. Passes run in order and
// each only considers fields still unmatched:
//
//  1. exact text
//  2. normalized text (width, case, punctuation and spaces folded)
//  3. alias groups
//  4. containment, when exactly one source qualifies
type LexicalReconciler struct {
	groups map[string][]int
}

// NewLexicalReconciler builds a reconciler from an alias table. Each key and
// its synonyms form one group; any two names in the same group match.
func NewLexicalReconciler(aliases map[string][]string) *LexicalReconciler {
	l := &LexicalReconciler{groups: make(map[string][]int)}
	id := 0
	for name, synonyms := range aliases {
		for _, n := range append([]string{name}, synonyms...) {
			key := Normalize(n)
			if key == "" {
				continue
			}
			l.groups[key] = append(l.groups[key], id)
		}
		id++
	}
	return l
}

// Reconcile implements Reconciler. It never fails.
func (l *LexicalReconciler) Reconcile(_ context.Context, source, target []string) (Correspondence, error) {
	out := make(Correspondence)
	used := make(map[int]bool)

	normSource := make([]string, len(source))
	for i, s := range source {
		normSource[i] = Normalize(s)
	}

	passes := []func(t, nt string) int{
		func(t, _ string) int {
			return firstUnused(source, used, func(i int) bool { return strings.TrimSpace(source[i]) == strings.TrimSpace(t) })
		},
		func(_, nt string) int {
			return firstUnused(source, used, func(i int) bool { return nt != "" && normSource[i] == nt })
		},
		func(_, nt string) int {
			return firstUnused(source, used, func(i int) bool { return l.sameGroup(normSource[i], nt) })
		},
		func(_, nt string) int {
			return onlyUnused(source, used, func(i int) bool { return contains(normSource[i], nt) })
		},
	}

	for _, pass := range passes {
		for _, t := range target {
			if _, done := out[t]; done {
				continue
			}
			if i := pass(t, Normalize(t)); i >= 0 {
				out[t] = source[i]
				used[i] = true
			}
		}
	}
	return out, nil
}

func (l *LexicalReconciler) sameGroup(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	for _, ga := range l.groups[a] {
		for _, gb := range l.groups[b] {
			if ga == gb {
				return true
			}
		}
	}
	return false
}

func firstUnused(source []string, used map[int]bool, match func(int) bool) int {
	for i := range source {
		if !used[i] && match(i) {
			return i
		}
	}
	return -1
}

func onlyUnused(source []string, used map[int]bool, match func(int) bool) int {
	found := -1
	for i := range source {
		if used[i] || !match(i) {
			continue
		}
		if found >= 0 {
			return -1
		}
		found = i
	}
	return found
}

// contains reports whether one name embeds the other. Both must be at least
// two runes so single characters do not match everything.
func contains(a, b string) bool {
	if utf8.RuneCountInString(a) < 2 || utf8.RuneCountInString(b) < 2 {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Normalize folds a field name for comparison: NFKC width folding, lower
// case, punctuation, symbols and spaces removed.
func Normalize(name string) string {
	name = strings.ToLower(norm.NFKC.String(name))
	var b strings.Builder
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
