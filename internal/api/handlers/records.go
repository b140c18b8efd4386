package handlers

import (
	"net/http"
	"yardops/pkg/domain"

	"github.com/gin-gonic/gin"
)

// List returns a handler for GET /<kind>, sorted the way the kind defines.
func (h *Handler) List(kind domain.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"kind":    kind,
			"version": h.Svc.Cache().Version(kind),
			"records": h.Svc.Cache().Sorted(kind),
		})
	}
}

// Get returns a handler for GET /<kind>/:id.
func (h *Handler) Get(kind domain.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := h.Svc.Cache().Find(kind, c.Param("id"))
		if !ok {
			h.fail(c, domain.NotFoundError{Kind: kind, ID: c.Param("id")})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// Delete returns a handler for DELETE /<kind>/:id. Containers cascade.
func (h *Handler) Delete(kind domain.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := h.Svc.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
			h.fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// LastDeleted handles GET /undo: the record the next undo would restore.
func (h *Handler) LastDeleted(c *gin.Context) {
	item, ok := h.Svc.Cache().LastDeleted()
	if !ok {
		h.fail(c, domain.ErrNothingToUndo)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":      item.Kind,
		"id":        item.ID,
		"deletedAt": item.DeletedAt,
		"original":  item.Original,
	})
}

// Undo handles POST /undo.
func (h *Handler) Undo(c *gin.Context) {
	rec, _, err := h.Svc.Undo(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
