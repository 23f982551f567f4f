package ui

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
	"retailpulse/domain/grouping"
	"retailpulse/domain/ledger"
)

func (s *Server) handleListDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": s.analytics.DatasetIDs()})
}

func (s *Server) handleDatasetInfo(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	ds, err := s.analytics.Dataset(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                    ds.ID,
		"loaded_at":             ds.LoadedAt,
		"sales_rows":            len(ds.Sales),
		"product_rows":          len(ds.Products),
		"transfer_rows":         len(ds.Transfers),
		"dropped_sales_rows":    ds.DroppedSalesRows,
		"dropped_product_rows":  ds.DroppedProductRows,
		"dropped_transfer_rows": ds.DroppedTransferRows,
	})
}

func (s *Server) handleKpis(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	spec, err := parseFilter(c)
	if err != nil {
		renderError(c, err)
		return
	}
	result, err := s.analytics.Kpis(id, spec)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBreakdown(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	spec, err := parseFilter(c)
	if err != nil {
		renderError(c, err)
		return
	}

	dim := grouping.Dimension(c.DefaultQuery("dimension", string(grouping.DimStore)))
	by := grouping.ValueField(c.DefaultQuery("by", string(grouping.ByRevenue)))
	stacked := c.Query("stacked") == "true"

	var (
		rows []grouping.GroupedResult
	)
	switch {
	case c.Query("top") != "":
		n, convErr := strconv.Atoi(c.Query("top"))
		if convErr != nil || n <= 0 {
			renderError(c, core.NewValidationError("top", "must be a positive integer"))
			return
		}
		rows, err = s.analytics.TopGroups(id, spec, dim, n, by)
	case c.Query("bottom") != "":
		n, convErr := strconv.Atoi(c.Query("bottom"))
		if convErr != nil || n <= 0 {
			renderError(c, core.NewValidationError("bottom", "must be a positive integer"))
			return
		}
		rows, err = s.analytics.BottomGroups(id, spec, dim, n, by)
	default:
		rows, err = s.analytics.Breakdown(id, spec, dim, stacked)
	}
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dimension": dim, "rows": rows})
}

func (s *Server) handleTopStores(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	spec, err := parseFilter(c)
	if err != nil {
		renderError(c, err)
		return
	}
	n, err := strconv.Atoi(c.DefaultQuery("n", "50"))
	if err != nil || n <= 0 {
		renderError(c, core.NewValidationError("n", "must be a positive integer"))
		return
	}
	by := grouping.ValueField(c.DefaultQuery("by", string(grouping.ByRevenue)))

	rows, err := s.analytics.TopStoresStacked(id, spec, n, by)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) handleRotation(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	spec, err := parseFilter(c)
	if err != nil {
		renderError(c, err)
		return
	}
	stats, err := s.analytics.Rotation(id, spec)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleMargins(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	spec, err := parseFilter(c)
	if err != nil {
		renderError(c, err)
		return
	}
	summary, err := s.analytics.Margins(id, spec)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleSalesVsTransfers(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	spec, err := parseFilter(c)
	if err != nil {
		renderError(c, err)
		return
	}
	flows, err := s.analytics.SalesVsTransfers(id, spec)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": flows})
}

func (s *Server) handleReport(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	spec, err := parseFilter(c)
	if err != nil {
		renderError(c, err)
		return
	}

	if c.Query("format") == "markdown" {
		md, err := s.reports.Markdown(id, spec)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}

	htmlDoc, err := s.reports.HTML(id, spec)
	if err != nil {
		renderError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", htmlDoc)
}

type runForecastRequest struct {
	Pipeline     string `json:"pipeline" binding:"required"`
	TargetSeason string `json:"target_season" binding:"required"`
}

func (s *Server) handleRunForecast(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	var req runForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pipeline and target_season are required"})
		return
	}

	job, err := s.forecasts.Run(c.Request.Context(), id, req.Pipeline, req.TargetSeason)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status, "sequence": job.Sequence})
}

func (s *Server) handleGetJob(c *gin.Context) {
	jobID, err := core.ParseJobID(c.Param("jobId"))
	if err != nil {
		renderError(c, core.NewValidationError("jobId", err.Error()))
		return
	}
	job, err := s.forecasts.Job(c.Request.Context(), jobID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobView(job))
}

func (s *Server) handleLatestJob(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	job, err := s.forecasts.Latest(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobView(job))
}

func (s *Server) handleJobHistory(c *gin.Context) {
	id, ok := datasetID(c)
	if !ok {
		return
	}
	jobs, err := s.forecasts.History(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	views := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, jobView(job))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": views})
}

// jobView shapes a job for the API, attaching retry advice to failures.
func jobView(job *forecast.Job) gin.H {
	view := gin.H{
		"id":               job.ID,
		"dataset_id":       job.DatasetID,
		"sequence":         job.Sequence,
		"status":           job.Status,
		"pipeline":         job.Pipeline,
		"target_season":    job.TargetSeason,
		"progress_percent": job.ProgressPercent,
		"processed_count":  job.ProcessedCount,
		"total_count":      job.TotalCount,
		"created_at":       job.CreatedAt,
		"updated_at":       job.UpdatedAt,
	}
	if job.EstimatedSecondsRemaining != nil {
		view["estimated_seconds_remaining"] = *job.EstimatedSecondsRemaining
	}
	if job.Result != nil {
		view["result"] = job.Result
	}
	if job.Error != nil {
		view["error"] = gin.H{
			"class":   job.Error.Class,
			"message": job.Error.Message,
			"advice":  job.Error.Advice(),
		}
	}
	return view
}

func datasetID(c *gin.Context) (core.DatasetID, bool) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		renderError(c, core.NewValidationError("id", err.Error()))
		return "", false
	}
	return id, true
}

// parseFilter builds a FilterSpec from query parameters.
func parseFilter(c *gin.Context) (ledger.FilterSpec, error) {
	spec := ledger.FilterSpec{
		Season:     c.Query("season"),
		FamilyMode: ledger.FamilyMode(c.DefaultQuery("family_mode", string(ledger.FamilyAll))),
		Family:     c.Query("family"),
	}

	if raw := c.Query("stores"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				spec.StoreIDs = append(spec.StoreIDs, core.NormalizeStoreID(part))
			}
		}
	}
	if raw := c.Query("date_from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return spec, core.NewValidationError("date_from", "expected YYYY-MM-DD")
		}
		spec.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return spec, core.NewValidationError("date_to", "expected YYYY-MM-DD")
		}
		spec.DateTo = &t
	}
	return spec, spec.Validate()
}

// renderError maps domain errors to HTTP status codes.
func renderError(c *gin.Context, err error) {
	switch {
	case core.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case core.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
