package scenario

// ParseEdits applies free-text per-feature edits to a copy of current.  Text
// that does not parse keeps the current value, and features outside the
// snapshot are ignored.
func ParseEdits(edits map[string]string, current FeatureVector, snap *Snapshot) FeatureVector {
	out := current.Clone()
	if snap == nil {
		return out
	}
	for feature, text := range edits {
		if !snap.Known(feature) {
			continue
		}
		prev, ok := out[feature]
		if !ok {
			m, _ := snap.Lookup(feature)
			prev = m.Median
		}
		out[feature] = ParseWithFallback(text, prev)
	}
	return out
}
