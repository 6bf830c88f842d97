// Package reconcile pairs source field names with target field names.
// A Correspondence is keyed by target; each source field is used at most once.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackzampolin/formshelf/internal/record"
)

// ErrMalformedCorrespondence is returned when a matcher's output is not a
// flat {target: source} object.
var ErrMalformedCorrespondence = fmt.Errorf("%w: field correspondence", record.ErrMalformed)

// Reconciler maps target field names onto source field names.
type Reconciler interface {
	Reconcile(ctx context.Context, source, target []string) (Correspondence, error)
}

// Correspondence maps a target field name to the source field it came from.
type Correspondence map[string]string

// Filter returns the subset of c whose keys are in target and values in
// source, with each source used once. Ties go to the earlier target.
func (c Correspondence) Filter(source, target []string) Correspondence {
	sources := make(map[string]struct{}, len(source))
	for _, s := range source {
		sources[strings.TrimSpace(s)] = struct{}{}
	}

	out := make(Correspondence)
	used := make(map[string]struct{})
	for _, t := range target {
		t = strings.TrimSpace(t)
		if _, done := out[t]; done {
			continue
		}
		s, ok := c[t]
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if _, ok := sources[s]; !ok {
			continue
		}
		if _, taken := used[s]; taken {
			continue
		}
		out[t] = s
		used[s] = struct{}{}
	}
	return out
}

// Apply renames rec onto the target vocabulary. Fields without a
// correspondence are dropped.
func (c Correspondence) Apply(rec record.Record) record.Record {
	out := make(record.Record, len(c))
	for target, source := range c {
		if v, ok := rec[source]; ok {
			out[target] = v
		}
	}
	return out
}

// Targets returns the matched target names, sorted.
func (c Correspondence) Targets() []string {
	names := make([]string, 0, len(c))
	for t := range c {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// Unmatched returns the source and target names c does not cover, in input order.
func (c Correspondence) Unmatched(source, target []string) (sources, targets []string) {
	used := make(map[string]struct{}, len(c))
	for _, s := range c {
		used[s] = struct{}{}
	}
	for _, s := range source {
		if _, ok := used[s]; !ok {
			sources = append(sources, s)
		}
	}
	for _, t := range target {
		if _, ok := c[t]; !ok {
			targets = append(targets, t)
		}
	}
	return sources, targets
}

// Chain runs reconcilers in order. Each later reconciler only sees the
// fields earlier ones left unmatched.
type Chain []Reconciler

// Reconcile implements Reconciler.
func (ch Chain) Reconcile(ctx context.Context, source, target []string) (Correspondence, error) {
	out := make(Correspondence)
	for _, r := range ch {
		src, tgt := out.Unmatched(source, target)
		if len(src) == 0 || len(tgt) == 0 {
			break
		}
		got, err := r.Reconcile(ctx, src, tgt)
		if err != nil {
			return nil, err
		}
		for t, s := range got.Filter(src, tgt) {
			out[t] = s
		}
	}
	return out, nil
}
