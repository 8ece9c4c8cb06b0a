package scenario

// ActiveSet is the ordered set of features exposed for editing.  Operations
// return a new set and leave the receiver untouched.
type ActiveSet struct {
	items []string
}

// NewActiveSet builds a set from features, dropping blanks and duplicates.
func NewActiveSet(features ...string) ActiveSet {
	var s ActiveSet
	for _, f := range features {
		if f == "" || s.Contains(f) {
			continue
		}
		s.items = append(s.items, f)
	}
	return s
}

// DefaultActiveSet holds the first n features of the snapshot.
func DefaultActiveSet(snap *Snapshot, n int) ActiveSet {
	if snap == nil || n <= 0 {
		return ActiveSet{}
	}
	names := snap.FeatureNames()
	if n < len(names) {
		names = names[:n]
	}
	return NewActiveSet(names...)
}

// Add appends feature when the snapshot knows it and it is not already
// present.
func (s ActiveSet) Add(feature string, snap *Snapshot) ActiveSet {
	if snap == nil || !snap.Known(feature) || s.Contains(feature) {
		return s.clone()
	}
	out := s.clone()
	out.items = append(out.items, feature)
	return out
}

// Remove drops feature.  Removing a non-member returns an equal set.
func (s ActiveSet) Remove(feature string) ActiveSet {
	out := ActiveSet{items: make([]string, 0, len(s.items))}
	for _, f := range s.items {
		if f != feature {
			out.items = append(out.items, f)
		}
	}
	return out
}

// Contains reports membership.
func (s ActiveSet) Contains(feature string) bool {
	for _, f := range s.items {
		if f == feature {
			return true
		}
	}
	return false
}

// Features returns the members in insertion order.
func (s ActiveSet) Features() []string {
	return append([]string(nil), s.items...)
}

func (s ActiveSet) Len() int { return len(s.items) }

// Equal compares members and order.
func (s ActiveSet) Equal(other ActiveSet) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if s.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

func (s ActiveSet) clone() ActiveSet {
	return ActiveSet{items: append([]string(nil), s.items...)}
}
