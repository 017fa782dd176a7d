package vision

import "sort"

// NormalizeLabels drops labels below minConfidence, collapses duplicate names
// keeping the occurrence with the highest confidence, and orders the result
// by confidence descending (name ascending on ties, for stable output).
func NormalizeLabels(labels []Label, minConfidence float64) []Label {
	best := make(map[string]Label, len(labels))
	for _, l := range labels {
		if l.Confidence < minConfidence {
			continue
		}
		if cur, ok := best[l.Name]; !ok || l.Confidence > cur.Confidence {
			best[l.Name] = l
		}
	}

	out := make([]Label, 0, len(best))
	for _, l := range best {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	return out
}
