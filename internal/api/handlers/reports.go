package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"yardops/internal/blob"
	"yardops/internal/core"

	"github.com/gin-gonic/gin"
)

func reportFilter(c *gin.Context) (core.ReportFilter, error) {
	f := core.ReportFilter{Driver: c.Query("driver")}
	var err error
	if f.From, err = parseTime(c.Query("from")); err != nil {
		return f, fmt.Errorf("from: %w", err)
	}
	if f.To, err = parseEndTime(c.Query("to")); err != nil {
		return f, fmt.Errorf("to: %w", err)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("to is before from")
	}
	return f, nil
}

// KPIs handles GET /reports/kpis.
func (h *Handler) KPIs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"logistics": h.Svc.LogisticsKPIs(),
		"drivers":   h.Svc.DriverKPIs(),
	})
}

// Locations handles GET /reports/locations.
func (h *Handler) Locations(c *gin.Context) {
	total, counts := h.Svc.LocationCounts()
	c.JSON(http.StatusOK, gin.H{"total": total, "locations": counts})
}

// DriverTasks handles GET /reports/driver-tasks.
func (h *Handler) DriverTasks(c *gin.Context) {
	c.JSON(http.StatusOK, h.Svc.DriverTasks())
}

// OperatorQueue handles GET /reports/operator-queue.
func (h *Handler) OperatorQueue(c *gin.Context) {
	c.JSON(http.StatusOK, h.Svc.OperatorQueue())
}

// Turnaround handles GET /reports/turnaround?driver=&from=&to=.
func (h *Handler) Turnaround(c *gin.Context) {
	f, err := reportFilter(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	out := h.Svc.Turnaround(f)
	if out == nil {
		out = []core.TurnaroundEntry{}
	}
	c.JSON(http.StatusOK, out)
}

// Performance handles GET /reports/performance?driver=&from=&to=.
func (h *Handler) Performance(c *gin.Context) {
	f, err := reportFilter(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	out := h.Svc.DriverPerformance(f)
	if out == nil {
		out = []core.DriverPerformance{}
	}
	c.JSON(http.StatusOK, out)
}

// ExportReport handles POST /reports/export: it builds a report with the
// query filter and writes it to the archive.
func (h *Handler) ExportReport(c *gin.Context) {
	if h.Archive == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: "report archive not configured", Code: "unavailable"})
		return
	}
	f, err := reportFilter(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	info, err := h.Archive.Export(c.Request.Context(), h.Svc.BuildReport(f))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// ArchivedReports handles GET /reports/archive?day=2006-01-02.
func (h *Handler) ArchivedReports(c *gin.Context) {
	if h.Archive == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: "report archive not configured", Code: "unavailable"})
		return
	}
	list, err := h.Archive.List(c.Request.Context(), c.Query("day"))
	if err != nil {
		h.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ArchivedReport handles GET /reports/archive/report?key=.
func (h *Handler) ArchivedReport(c *gin.Context) {
	if h.Archive == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: "report archive not configured", Code: "unavailable"})
		return
	}
	key := c.Query("key")
	if key == "" {
		h.badRequest(c, fmt.Errorf("key is required"))
		return
	}
	report, err := h.Archive.Load(c.Request.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Error: err.Error(), Code: "not_found"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
