package scenario

import (
	"sync"
	"time"

	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// Snapshot is an immutable view of the feature metadata and input guidance
// published by the prediction service.
type Snapshot struct {
	order    []string
	features map[string]FeatureMeta
	guidance map[string]GuidanceRange
	loadedAt time.Time
}

// NewSnapshot builds a Snapshot.  Features keep their first-seen order; a
// repeated name overwrites the earlier entry.  Entries with an empty name are
// dropped and non-finite bounds are zeroed so DefaultVector stays finite.
func NewSnapshot(features []FeatureMeta, guidance map[string]GuidanceRange) *Snapshot {
	s := &Snapshot{
		order:    make([]string, 0, len(features)),
		features: make(map[string]FeatureMeta, len(features)),
		guidance: make(map[string]GuidanceRange, len(guidance)),
		loadedAt: time.Now(),
	}
	for _, f := range features {
		if f.Feature == "" {
			continue
		}
		if _, seen := s.features[f.Feature]; !seen {
			s.order = append(s.order, f.Feature)
		}
		s.features[f.Feature] = sanitizeMeta(f)
	}
	for key, g := range guidance {
		if key == "" {
			continue
		}
		g.Key = key
		s.guidance[key] = sanitizeGuidance(g)
	}
	return s
}

func finiteOrZero(f float64) float64 {
	if isFinite(f) {
		return f
	}
	return 0
}

func sanitizeMeta(f FeatureMeta) FeatureMeta {
	f.Min = finiteOrZero(f.Min)
	f.Max = finiteOrZero(f.Max)
	f.Median = finiteOrZero(f.Median)
	f.Mean = finiteOrZero(f.Mean)
	return f
}

func sanitizeGuidance(g GuidanceRange) GuidanceRange {
	g.Min = finiteOrZero(g.Min)
	g.Max = finiteOrZero(g.Max)
	g.Median = finiteOrZero(g.Median)
	return g
}

// DefaultVector maps every known feature to its median.
func (s *Snapshot) DefaultVector() FeatureVector {
	v := make(FeatureVector, len(s.order))
	for _, name := range s.order {
		v[name] = s.features[name].Median
	}
	return v
}

// Lookup returns the metadata for feature.
func (s *Snapshot) Lookup(feature string) (FeatureMeta, bool) {
	m, ok := s.features[feature]
	return m, ok
}

// Known reports whether feature is part of the model.
func (s *Snapshot) Known(feature string) bool {
	_, ok := s.features[feature]
	return ok
}

// Guidance returns the range hint for an input key.
func (s *Snapshot) Guidance(key string) (GuidanceRange, bool) {
	g, ok := s.guidance[key]
	return g, ok
}

// GuidanceMap returns a copy of every guidance range keyed by input key.
func (s *Snapshot) GuidanceMap() map[string]GuidanceRange {
	out := make(map[string]GuidanceRange, len(s.guidance))
	for k, g := range s.guidance {
		out[k] = g
	}
	return out
}

// Features returns the feature metadata in published order.
func (s *Snapshot) Features() []FeatureMeta {
	out := make([]FeatureMeta, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.features[name])
	}
	return out
}

// FeatureNames returns the feature names in published order.
func (s *Snapshot) FeatureNames() []string {
	return append([]string(nil), s.order...)
}

// Len is the number of known features.
func (s *Snapshot) Len() int { return len(s.order) }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Registry holds the current Snapshot.  Loads replace the pointer under a
// write lock so readers never observe a partially built snapshot.
type Registry struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewRegistry returns a Registry holding an empty snapshot.
func NewRegistry() *Registry {
	return &Registry{snap: NewSnapshot(nil, nil)}
}

// Load builds a new snapshot from features and guidance and makes it current.
func (r *Registry) Load(features []FeatureMeta, guidance map[string]GuidanceRange) *Snapshot {
	snap := NewSnapshot(features, guidance)
	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
	return snap
}

// Snapshot returns the current snapshot.  It is never nil.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Ready returns the current snapshot, or ErrCodeRegistryEmpty when no feature
// metadata has been loaded yet.
func (r *Registry) Ready() (*Snapshot, error) {
	snap := r.Snapshot()
	if snap.Len() == 0 {
		return nil, errors.New(errors.ErrCodeRegistryEmpty, "feature metadata has not been loaded")
	}
	return snap, nil
}
