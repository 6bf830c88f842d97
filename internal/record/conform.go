package record

import (
	"fmt"
	"sort"
	"strings"
)

// Policy controls what Conform does with fields outside the target lists.
type Policy string

const (
	// PolicyDrop silently removes unmatched fields.
	PolicyDrop Policy = "drop"
	// PolicyStrict rejects a result that carries unmatched fields.
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a policy name. Empty means PolicyDrop.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown unmatched policy %q (want drop or strict)", s)
	}
}

// Conform enforces the output contract on a result: main keys are a subset
// of mainFields, child keys a subset of childFields, string values are
// trimmed, null values and empty child rows are removed, and children is
// nil when no rows remain. The input is not modified.
func Conform(r *Result, mainFields, childFields []string, policy Policy) (*Result, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil result", ErrMalformed)
	}

	mainSet := toSet(mainFields)
	childSet := toSet(childFields)

	out := &Result{}
	main, err := conformRecord(r.Main, mainSet, policy, "main")
	if err != nil {
		return nil, err
	}
	out.Main = main

	for i, row := range r.Children {
		child, err := conformRecord(row, childSet, policy, fmt.Sprintf("children[%d]", i))
		if err != nil {
			return nil, err
		}
		if len(child) == 0 {
			continue
		}
		out.Children = append(out.Children, child)
	}

	return out, nil
}

// conformRecord keeps allowed keys. Keys differing only by surrounding
// spaces collapse onto one field: the exact key wins, then the first in
// sorted order; under PolicyStrict two filled variants are malformed.
func conformRecord(in Record, allowed map[string]struct{}, policy Policy, where string) (Record, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ei, ej := keys[i] == strings.TrimSpace(keys[i]), keys[j] == strings.TrimSpace(keys[j])
		if ei != ej {
			return ei
		}
		return keys[i] < keys[j]
	})

	out := make(Record, len(in))
	from := make(map[string]string, len(in))
	for _, k := range keys {
		name := strings.TrimSpace(k)
		if _, ok := allowed[name]; !ok {
			if policy == PolicyStrict {
				return nil, fmt.Errorf("%w: %s field %q is not a target field", ErrMalformed, where, k)
			}
			continue
		}
		v := normalizeValue(in[k])
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if prev, dup := from[name]; dup {
			if policy == PolicyStrict {
				return nil, fmt.Errorf("%w: %s keys %q and %q both name field %q", ErrMalformed, where, prev, k, name)
			}
			continue
		}
		from[name] = k
		out[name] = v
	}
	return out, nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.TrimSpace(n)] = struct{}{}
	}
	return set
}
