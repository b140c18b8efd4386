package handlers

import (
	"net/http"
	"yardops/internal/core"
	"yardops/pkg/domain"

	"github.com/gin-gonic/gin"
)

type containerPayload struct {
	Serial   string                 `json:"serial" binding:"required"`
	Type     string                 `json:"type"`
	Location string                 `json:"location"`
	Status   domain.ContainerStatus `json:"status"`
	Driver   string                 `json:"driver"`
}

type containerPatchPayload struct {
	Type     *string                 `json:"type"`
	Location *string                 `json:"location"`
	Status   *domain.ContainerStatus `json:"status"`
	Driver   *string                 `json:"driver"`
}

type actionPayload struct {
	Action      core.YardAction `json:"action" binding:"required"`
	Destination string          `json:"destination"`
}

// CreateContainer handles POST /containers for manual entry.
func (h *Handler) CreateContainer(c *gin.Context) {
	var p containerPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	container, _, err := h.Svc.CreateContainer(c.Request.Context(), core.ContainerInput(p))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, container)
}

// UpdateContainer handles PATCH /containers/:id.
func (h *Handler) UpdateContainer(c *gin.Context) {
	var p containerPatchPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	container, _, err := h.Svc.UpdateContainer(c.Request.Context(), c.Param("id"), core.ContainerPatch(p))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, container)
}

// ContainerActions handles GET /containers/:id/actions.
func (h *Handler) ContainerActions(c *gin.Context) {
	container, ok := h.Svc.Cache().FindContainer(c.Param("id"))
	if !ok {
		h.fail(c, domain.NotFoundError{Kind: domain.KindContainer, ID: c.Param("id")})
		return
	}
	actions := core.AvailableActions(container)
	if actions == nil {
		actions = []core.YardAction{}
	}
	c.JSON(http.StatusOK, gin.H{"status": container.Status, "actions": actions})
}

// ApplyAction handles POST /containers/:id/actions.
func (h *Handler) ApplyAction(c *gin.Context) {
	var p actionPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	container, _, err := h.Svc.Transition(c.Request.Context(), c.Param("id"), p.Action, p.Destination)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, container)
}

// Destinations handles GET /destinations: the tilter and operator locations
// yard actions can target.
func (h *Handler) Destinations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tilters":   names(h.Svc.TilterDestinations()),
		"operators": names(h.Svc.OperatorDestinations()),
	})
}

func names(locations []*domain.Location) []string {
	out := make([]string, 0, len(locations))
	for _, l := range locations {
		out = append(out, l.Name)
	}
	return out
}
