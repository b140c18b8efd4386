package handlers

import (
	"context"
	"net/http"
	"yardops/internal/core"
	"yardops/pkg/domain"

	"github.com/gin-gonic/gin"
)

type driverPayload struct {
	Name     string  `json:"name"`
	IDNumber string  `json:"idNumber"`
	Plate    string  `json:"plate"`
	Weight   float64 `json:"weight"`
}

type chassisPayload struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Is40ft bool    `json:"is40ft"`
	Is2x20 bool    `json:"is2x20"`
}

type locationPayload struct {
	Name     string `json:"name"`
	IsTilter bool   `json:"isTilter"`
}

type statusPayload struct {
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
}

type containerTypePayload struct {
	Name string `json:"name"`
}

// CreateDriver handles POST /drivers. Reference forms are validated by the
// engine so operators see its messages.
func (h *Handler) CreateDriver(c *gin.Context) {
	saveReference(h, c, "", func(ctx context.Context, _ string, p driverPayload) (*domain.Driver, error) {
		d, _, err := h.Svc.CreateDriver(ctx, core.DriverInput(p))
		return d, err
	})
}

func (h *Handler) UpdateDriver(c *gin.Context) {
	saveReference(h, c, c.Param("id"), func(ctx context.Context, id string, p driverPayload) (*domain.Driver, error) {
		d, _, err := h.Svc.UpdateDriver(ctx, id, core.DriverInput(p))
		return d, err
	})
}

func (h *Handler) CreateChassis(c *gin.Context) {
	saveReference(h, c, "", func(ctx context.Context, _ string, p chassisPayload) (*domain.Chassis, error) {
		ch, _, err := h.Svc.CreateChassis(ctx, core.ChassisInput(p))
		return ch, err
	})
}

func (h *Handler) UpdateChassis(c *gin.Context) {
	saveReference(h, c, c.Param("id"), func(ctx context.Context, id string, p chassisPayload) (*domain.Chassis, error) {
		ch, _, err := h.Svc.UpdateChassis(ctx, id, core.ChassisInput(p))
		return ch, err
	})
}

func (h *Handler) CreateLocation(c *gin.Context) {
	saveReference(h, c, "", func(ctx context.Context, _ string, p locationPayload) (*domain.Location, error) {
		l, _, err := h.Svc.CreateLocation(ctx, core.LocationInput(p))
		return l, err
	})
}

func (h *Handler) UpdateLocation(c *gin.Context) {
	saveReference(h, c, c.Param("id"), func(ctx context.Context, id string, p locationPayload) (*domain.Location, error) {
		l, _, err := h.Svc.UpdateLocation(ctx, id, core.LocationInput(p))
		return l, err
	})
}

func (h *Handler) CreateStatus(c *gin.Context) {
	saveReference(h, c, "", func(ctx context.Context, _ string, p statusPayload) (*domain.Status, error) {
		st, _, err := h.Svc.CreateStatus(ctx, core.StatusInput(p))
		return st, err
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	saveReference(h, c, c.Param("id"), func(ctx context.Context, id string, p statusPayload) (*domain.Status, error) {
		st, _, err := h.Svc.UpdateStatus(ctx, id, core.StatusInput(p))
		return st, err
	})
}

func (h *Handler) CreateContainerType(c *gin.Context) {
	saveReference(h, c, "", func(ctx context.Context, _ string, p containerTypePayload) (*domain.ContainerType, error) {
		t, _, err := h.Svc.CreateContainerType(ctx, core.ContainerTypeInput(p))
		return t, err
	})
}

func (h *Handler) UpdateContainerType(c *gin.Context) {
	saveReference(h, c, c.Param("id"), func(ctx context.Context, id string, p containerTypePayload) (*domain.ContainerType, error) {
		t, _, err := h.Svc.UpdateContainerType(ctx, id, core.ContainerTypeInput(p))
		return t, err
	})
}

// saveReference binds P and runs save. An empty id means create.
func saveReference[P any, T domain.Record](h *Handler, c *gin.Context, id string, save func(context.Context, string, P) (T, error)) {
	var p P
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	rec, err := save(c.Request.Context(), id, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	c.JSON(status, rec)
}
