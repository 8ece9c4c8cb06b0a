// Package query turns sparse filter state into the canonical query
// parameters of the suburb listing, opportunities feed, report export and
// nearest-ROI endpoints.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Top-N bounds and defaults.
const (
	MinTopN                  = 5
	MaxTopN                  = 200
	DefaultListingTopN       = 30
	DefaultOpportunitiesTopN = 20
	DefaultNearestTopN       = 5
)

// Query parameter names.
const (
	ParamName     = "name"
	ParamMinROI   = "min_roi"
	ParamMaxPrice = "max_price"
	ParamMinSEIFA = "min_seifa"
	ParamTopN     = "top_n"
	ParamROI      = "roi"
)

// FilterCriteria is the analyst's current filter state.  Nil bounds and a
// blank name impose no constraint; TopN 0 means "use the default".
type FilterCriteria struct {
	Name     string   `json:"name,omitempty"`
	MinROI   *float64 `json:"min_roi,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	MinSEIFA *float64 `json:"min_seifa,omitempty"`
	TopN     int      `json:"top_n,omitempty"`
}

// Float returns a pointer to v, for building FilterCriteria literals.
func Float(v float64) *float64 { return &v }

// ClampTopN bounds n to [MinTopN, MaxTopN].
func ClampTopN(n int) int {
	if n < MinTopN {
		return MinTopN
	}
	if n > MaxTopN {
		return MaxTopN
	}
	return n
}

// Builder produces filter queries with a fixed default top_n.  The listing
// and report export share one Builder so a downloaded report always matches
// the rows on screen.
type Builder struct {
	defaultTopN int
}

// NewBuilder returns a Builder whose default top_n is clamped into range.
func NewBuilder(defaultTopN int) *Builder {
	return &Builder{defaultTopN: ClampTopN(defaultTopN)}
}

// DefaultTopN is the top_n emitted when the criteria leave it unset.
func (b *Builder) DefaultTopN() int { return b.defaultTopN }

// Build maps criteria to query parameters.  Only present criteria are
// emitted; top_n is always emitted.
func (b *Builder) Build(c FilterCriteria) url.Values {
	v := url.Values{}
	if name := strings.TrimSpace(c.Name); name != "" {
		v.Set(ParamName, name)
	}
	setFloat(v, ParamMinROI, c.MinROI)
	setFloat(v, ParamMaxPrice, c.MaxPrice)
	setFloat(v, ParamMinSEIFA, c.MinSEIFA)

	topN := b.defaultTopN
	if c.TopN != 0 {
		topN = ClampTopN(c.TopN)
	}
	v.Set(ParamTopN, strconv.Itoa(topN))
	return v
}

// Opportunities builds the opportunities feed query, which carries top_n only.
func (b *Builder) Opportunities(topN int) url.Values {
	return b.Build(FilterCriteria{TopN: topN})
}

func setFloat(v url.Values, key string, f *float64) {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return
	}
	v.Set(key, formatFloat(*f))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseCriteria reads FilterCriteria back from query parameters, as sent by
// an HTTP caller.  Unparseable numbers are treated as absent.
func ParseCriteria(v url.Values) FilterCriteria {
	c := FilterCriteria{Name: strings.TrimSpace(v.Get(ParamName))}
	c.MinROI = parseFloat(v.Get(ParamMinROI))
	c.MaxPrice = parseFloat(v.Get(ParamMaxPrice))
	c.MinSEIFA = parseFloat(v.Get(ParamMinSEIFA))
	if n, err := strconv.Atoi(strings.TrimSpace(v.Get(ParamTopN))); err == nil {
		c.TopN = n
	}
	return c
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
