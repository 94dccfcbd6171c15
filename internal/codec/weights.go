package codec

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"discovery/internal/model"
)

// SplitTarget is the total a percentage split is expected to reach
const SplitTarget = 100

// Percentage split

func normalizeSplit(q *model.Question, v interface{}) interface{} {
	weights, ok := toWeights(v)
	if !ok {
		return v
	}
	keys := q.OptionValues()
	if len(keys) == 0 {
		return weights
	}
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[k] = weights[k]
	}
	return out
}

func renderSplit(q *model.Question, v interface{}) string {
	weights, ok := toWeights(v)
	if !ok {
		return html.EscapeString(stringify(v))
	}
	keys := q.OptionValues()
	if len(keys) == 0 {
		keys = sortedKeys(weights)
	}
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		label, found := q.OptionLabel(k)
		if !found {
			label = k
		}
		lines = append(lines, fmt.Sprintf("%s: %d%%", html.EscapeString(label), weights[k]))
	}
	return strings.Join(lines, LineBreak)
}

func validateSplit(_ *model.Question, v interface{}) []string {
	weights, ok := toWeights(v)
	if !ok {
		return []string{"Weights must be whole percentages"}
	}
	var hints []string
	for _, k := range sortedKeys(weights) {
		if w := weights[k]; w < 0 || w > 100 {
			hints = append(hints, fmt.Sprintf("Weight for %s must be between 0 and 100", k))
		}
	}
	if total := SplitTotal(weights); total != SplitTarget {
		hints = append(hints, fmt.Sprintf("Total must equal 100%% (currently %d%%)", total))
	}
	return hints
}

// SplitTotal sums a percentage split answer. Non-numeric entries count as zero.
func SplitTotal(v interface{}) int {
	weights, _ := toWeights(v)
	total := 0
	for _, w := range weights {
		total += w
	}
	return total
}

func toWeights(v interface{}) (map[string]int, bool) {
	switch val := v.(type) {
	case map[string]int:
		return val, true
	case map[string]float64:
		out := make(map[string]int, len(val))
		for k, w := range val {
			out[k] = int(w)
		}
		return out, true
	case map[string]interface{}:
		out := make(map[string]int, len(val))
		ok := true
		for k, w := range val {
			n, isInt := toInt(w)
			if !isInt {
				if f, isFloat := w.(float64); isFloat {
					n = int(f + 0.5)
				} else {
					ok = false
				}
			}
			out[k] = n
		}
		return out, ok
	}
	return nil, false
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Priority ranking

func normalizeRankingAnswer(q *model.Question, v interface{}) interface{} {
	order, _ := NormalizeRanking(v, q.OptionValues())
	return order
}

// NormalizeRanking brings a stored ranking answer to the canonical full key
// order. Legacy weight maps are ordered by descending weight with ties kept in
// catalog order; arrays missing catalog keys get them appended. changed
// reports whether the result differs from the stored shape.
func NormalizeRanking(v interface{}, keys []string) ([]string, bool) {
	switch val := v.(type) {
	case []string, []interface{}:
		items, _ := toStringSlice(val)
		return completeRanking(items, keys)
	case map[string]interface{}, map[string]int, map[string]float64:
		weights, _ := toWeights(val)
		return rankByWeight(weights, keys), true
	}
	return append([]string(nil), keys...), true
}

func completeRanking(items, keys []string) ([]string, bool) {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(keys))
	changed := false
	for _, k := range items {
		if seen[k] {
			changed = true
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	for _, k := range keys {
		if !seen[k] {
			out = append(out, k)
			changed = true
		}
	}
	return out, changed
}

func rankByWeight(weights map[string]int, keys []string) []string {
	out := append([]string(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool {
		return weights[out[i]] > weights[out[j]]
	})
	return out
}

func renderRanking(q *model.Question, v interface{}) string {
	items, ok := toStringSlice(v)
	if !ok {
		return html.EscapeString(stringify(v))
	}
	lines := make([]string, len(items))
	for i, k := range items {
		label, found := q.OptionLabel(k)
		if !found {
			label = k
		}
		lines[i] = fmt.Sprintf("%d. %s", i+1, html.EscapeString(label))
	}
	return strings.Join(lines, LineBreak)
}

func isISODate(s string) bool {
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}
