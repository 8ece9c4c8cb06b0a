package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// MaxNamesLimit caps SuburbsClient.Names.
const MaxNamesLimit = 1000

// ReportFormat selects the export endpoint.
type ReportFormat string

const (
	ReportCSV ReportFormat = "csv"
	ReportPDF ReportFormat = "pdf"
)

// ParseReportFormat accepts "csv" or "pdf" in any case.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ReportCSV, ReportPDF:
		return f, nil
	default:
		return "", errors.Newf(errors.ErrCodeReportFormatInvalid, "unsupported report format %q", s)
	}
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Suburb is one row of the ranked listing.
type Suburb struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Rent       float64 `json:"rent"`
	ROI        float64 `json:"roi"`
	SEIFAScore float64 `json:"seifa_score"`
}

// OpportunitySummary aggregates the opportunities feed.
type OpportunitySummary struct {
	AvgROIPercentTopN   float64 `json:"avg_roi_percent_top_n"`
	MedianROIPercentAll float64 `json:"median_roi_percent_all"`
	MaxROIPercent       float64 `json:"max_roi_percent"`
	SuburbsAnalyzed     int     `json:"suburbs_analyzed"`
}

// Opportunity is a top-ranked suburb with insight tags.
type Opportunity struct {
	Name        string   `json:"name"`
	ROI         float64  `json:"roi"`
	Price       float64  `json:"price"`
	Rent        float64  `json:"rent"`
	SEIFAScore  float64  `json:"seifa_score"`
	Top20Flag   float64  `json:"Top20_Flag"`
	InsightTags []string `json:"insight_tags"`
}

// OpportunitiesResponse is returned by GET /api/opportunities.
type OpportunitiesResponse struct {
	Summary       OpportunitySummary `json:"summary"`
	Opportunities []Opportunity      `json:"opportunities"`
}

// Comparable is a suburb whose ROI is close to a target value.  ROIDiff is
// the signed gap computed by the service.
type Comparable struct {
	Name    string  `json:"name"`
	ROI     float64 `json:"roi"`
	ROIDiff float64 `json:"roi_diff"`
	Price   float64 `json:"price"`
	Rent    float64 `json:"rent"`
}

// NearestResponse is returned by GET /api/suburbs-near-roi.
type NearestResponse struct {
	TargetROI float64      `json:"target_roi"`
	Suburbs   []Comparable `json:"suburbs"`
}

// ---------------------------------------------------------------------------
// SuburbsClient
// ---------------------------------------------------------------------------

// SuburbsClient exposes suburb listing, search and export endpoints.
type SuburbsClient struct {
	client *Client
}

// Names returns suburb names matching q.  limit 0 leaves the server default;
// larger values are capped at MaxNamesLimit.
// GET /api/suburb-names
func (sc *SuburbsClient) Names(ctx context.Context, q string, limit int) ([]string, error) {
	if limit < 0 {
		return nil, invalidArg("limit must not be negative")
	}
	query := url.Values{}
	if q = strings.TrimSpace(q); q != "" {
		query.Set("q", q)
	}
	if limit > MaxNamesLimit {
		limit = MaxNamesLimit
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Names []string `json:"names"`
	}
	if err := sc.client.get(ctx, "/api/suburb-names", query, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// List returns the ranked suburb listing for a filter query.
// GET /api/suburbs
func (sc *SuburbsClient) List(ctx context.Context, query url.Values) ([]Suburb, error) {
	var resp []Suburb
	if err := sc.client.get(ctx, "/api/suburbs", query, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Opportunities returns the top-N opportunity feed.
// GET /api/opportunities
func (sc *SuburbsClient) Opportunities(ctx context.Context, query url.Values) (*OpportunitiesResponse, error) {
	var resp OpportunitiesResponse
	if err := sc.client.get(ctx, "/api/opportunities", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NearestROI returns suburbs whose ROI is closest to the query's roi.
// GET /api/suburbs-near-roi
func (sc *SuburbsClient) NearestROI(ctx context.Context, query url.Values) (*NearestResponse, error) {
	if query.Get("roi") == "" {
		return nil, invalidArg("roi is required")
	}
	var resp NearestResponse
	if err := sc.client.get(ctx, "/api/suburbs-near-roi", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReportURL builds the download link for a report with the given filters.
// Nothing is fetched.
// GET /api/report/{csv|pdf}
func (sc *SuburbsClient) ReportURL(format ReportFormat, query url.Values) (string, error) {
	if format != ReportCSV && format != ReportPDF {
		return "", errors.Newf(errors.ErrCodeReportFormatInvalid, "unsupported report format %q", format)
	}
	return sc.client.endpoint("/api/report/"+string(format), query), nil
}
