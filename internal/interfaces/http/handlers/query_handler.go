package handlers

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/SuburbROI-Intelligence/internal/application/query"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/client"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// SuburbSource is the slice of the ROI API the query handler proxies.
// *client.SuburbsClient satisfies it.
type SuburbSource interface {
	Names(ctx context.Context, q string, limit int) ([]string, error)
	List(ctx context.Context, query url.Values) ([]client.Suburb, error)
	Opportunities(ctx context.Context, query url.Values) (*client.OpportunitiesResponse, error)
	ReportURL(format client.ReportFormat, query url.Values) (string, error)
}

// QueryHandler builds canonical filter queries and proxies the listing,
// names and opportunities endpoints with them.
type QueryHandler struct {
	listing       *query.Builder
	opportunities *query.Builder
	nearestTopN   int
	suburbs       SuburbSource
}

// NewQueryHandler creates a new QueryHandler.  The report link is built from
// the listing builder so exports match the listing.
func NewQueryHandler(listing, opportunities *query.Builder, nearestTopN int, suburbs SuburbSource) *QueryHandler {
	return &QueryHandler{
		listing:       listing,
		opportunities: opportunities,
		nearestTopN:   nearestTopN,
		suburbs:       suburbs,
	}
}

// QueryResponse is a built query, encoded and as a flat map.
type QueryResponse struct {
	Query  string            `json:"query"`
	Params map[string]string `json:"params"`
}

func newQueryResponse(v url.Values) QueryResponse {
	params := make(map[string]string, len(v))
	for k := range v {
		params[k] = v.Get(k)
	}
	return QueryResponse{Query: v.Encode(), Params: params}
}

// BuildListingQuery handles GET /api/v1/query/listing.
func (h *QueryHandler) BuildListingQuery(c *gin.Context) {
	ok(c, newQueryResponse(h.listing.Build(query.ParseCriteria(c.Request.URL.Query()))))
}

// BuildOpportunitiesQuery handles GET /api/v1/query/opportunities.
func (h *QueryHandler) BuildOpportunitiesQuery(c *gin.Context) {
	topN, _, err := queryInt(c, query.ParamTopN)
	if err != nil {
		writeAppError(c, err)
		return
	}
	ok(c, newQueryResponse(h.opportunities.Opportunities(topN)))
}

// BuildNearestQuery handles GET /api/v1/query/nearest.  roi is a fraction
// and is required.
func (h *QueryHandler) BuildNearestQuery(c *gin.Context) {
	roi, err := requiredROI(c)
	if err != nil {
		writeAppError(c, err)
		return
	}
	topN, set, err := queryInt(c, query.ParamTopN)
	if err != nil {
		writeAppError(c, err)
		return
	}
	if !set {
		topN = h.nearestTopN
	}
	ok(c, newQueryResponse(query.BuildNearestQuery(roi, topN)))
}

// ReportURLResponse is a report download link.
type ReportURLResponse struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

// ReportURL handles GET /api/v1/report-url?format=csv|pdf plus the listing
// filters.  Nothing is downloaded.
func (h *QueryHandler) ReportURL(c *gin.Context) {
	format, err := client.ParseReportFormat(c.DefaultQuery("format", string(client.ReportCSV)))
	if err != nil {
		writeAppError(c, err)
		return
	}
	link, err := h.suburbs.ReportURL(format, h.listing.Build(query.ParseCriteria(c.Request.URL.Query())))
	if err != nil {
		writeAppError(c, err)
		return
	}
	ok(c, ReportURLResponse{Format: string(format), URL: link})
}

// ListSuburbs handles GET /api/v1/suburbs.
func (h *QueryHandler) ListSuburbs(c *gin.Context) {
	q := h.listing.Build(query.ParseCriteria(c.Request.URL.Query()))
	rows, err := h.suburbs.List(c.Request.Context(), q)
	if err != nil {
		writeAppError(c, err)
		return
	}
	if rows == nil {
		rows = []client.Suburb{}
	}
	ok(c, gin.H{"query": q.Encode(), "suburbs": rows})
}

// SuburbNames handles GET /api/v1/suburbs/names?q=&limit=.
func (h *QueryHandler) SuburbNames(c *gin.Context) {
	limit, _, err := queryInt(c, "limit")
	if err != nil {
		writeAppError(c, err)
		return
	}
	names, err := h.suburbs.Names(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		writeAppError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	ok(c, gin.H{"names": names})
}

// Opportunities handles GET /api/v1/opportunities?top_n=.
func (h *QueryHandler) Opportunities(c *gin.Context) {
	topN, _, err := queryInt(c, query.ParamTopN)
	if err != nil {
		writeAppError(c, err)
		return
	}
	resp, err := h.suburbs.Opportunities(c.Request.Context(), h.opportunities.Opportunities(topN))
	if err != nil {
		writeAppError(c, err)
		return
	}
	ok(c, resp)
}

func requiredROI(c *gin.Context) (float64, error) {
	raw := strings.TrimSpace(c.Query(query.ParamROI))
	if raw == "" {
		return 0, errors.InvalidParam("roi is required")
	}
	roi, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(roi) || math.IsInf(roi, 0) {
		return 0, errors.InvalidParam("roi must be a finite number").WithDetail(raw)
	}
	return roi, nil
}
