package query

import (
	"net/url"
	"strconv"
)

// BuildNearestQuery packages a comparables lookup around a predicted ROI.
// topN <= 0 selects DefaultNearestTopN.
func BuildNearestQuery(roi float64, topN int) url.Values {
	if topN <= 0 {
		topN = DefaultNearestTopN
	}
	return url.Values{
		ParamROI:  {formatFloat(roi)},
		ParamTopN: {strconv.Itoa(topN)},
	}
}
