package handlers

import (
	"net/http"
	"time"
	"yardops/internal/core"
	"yardops/pkg/domain"

	"github.com/gin-gonic/gin"
)

type bookingPayload struct {
	Number        string    `json:"number" binding:"required"`
	Qty           int       `json:"qty" binding:"required"`
	Type          string    `json:"type" binding:"required"`
	Deadline      time.Time `json:"deadline" binding:"required"`
	ContainerSize string    `json:"containerSize" binding:"required"`
}

type bookingPatchPayload struct {
	Number        *string    `json:"number"`
	Qty           *int       `json:"qty"`
	Type          *string    `json:"type"`
	Deadline      *time.Time `json:"deadline"`
	ContainerSize *string    `json:"containerSize"`
}

// CreateBooking handles POST /bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	var p bookingPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	b, _, err := h.Svc.CreateBooking(c.Request.Context(), core.BookingInput(p))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// UpdateBooking handles PATCH /bookings/:id.
func (h *Handler) UpdateBooking(c *gin.Context) {
	var p bookingPatchPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	b, _, err := h.Svc.UpdateBooking(c.Request.Context(), c.Param("id"), core.BookingPatch(p))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// OpenBookings handles GET /bookings/open.
func (h *Handler) OpenBookings(c *gin.Context) {
	open := h.Svc.OpenBookings()
	if open == nil {
		open = []*domain.Booking{}
	}
	c.JSON(http.StatusOK, open)
}

// BookingProgress handles GET /bookings/:id/progress.
func (h *Handler) BookingProgress(c *gin.Context) {
	b, ok := h.Svc.Cache().FindBooking(c.Param("id"))
	if !ok {
		h.fail(c, domain.NotFoundError{Kind: domain.KindBooking, ID: c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, h.Svc.BookingProgress(b))
}
