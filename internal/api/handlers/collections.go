package handlers

import (
	"net/http"
	"yardops/internal/core"
	"yardops/pkg/domain"

	"github.com/gin-gonic/gin"
)

type collectionPayload struct {
	DriverID  string `json:"driverId" binding:"required"`
	BookingID string `json:"bookingId" binding:"required"`
	ChassisID string `json:"chassisId" binding:"required"`
	Qty       int    `json:"qty" binding:"required"`
}

type collectPayload struct {
	Serial string  `json:"serial" binding:"required"`
	Tare   float64 `json:"tare" binding:"required"`
}

// ValidateCollection handles POST /collections/validate. It reports the
// effective quantity without writing anything.
func (h *Handler) ValidateCollection(c *gin.Context) {
	var p collectionPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	plan, err := h.Svc.ValidateCollection(core.CollectionRequest(p))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qty": plan.Qty, "remaining": plan.Remaining})
}

// CreateCollection handles POST /collections.
func (h *Handler) CreateCollection(c *gin.Context) {
	var p collectionPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	col, _, err := h.Svc.CreateCollection(c.Request.Context(), core.CollectionRequest(p))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, col)
}

// Collect handles POST /collections/:id/collect.
func (h *Handler) Collect(c *gin.Context) {
	var p collectPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	container, _, err := h.Svc.Collect(c.Request.Context(), c.Param("id"), p.Serial, p.Tare)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, container)
}

// CollectionProgress handles GET /collections/:id/progress.
func (h *Handler) CollectionProgress(c *gin.Context) {
	col, ok := h.Svc.Cache().FindCollection(c.Param("id"))
	if !ok {
		h.fail(c, domain.NotFoundError{Kind: domain.KindCollection, ID: c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, h.Svc.CollectionProgress(col))
}
