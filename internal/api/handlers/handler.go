// Package handlers exposes the yard workflow engine over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"yardops/internal/archive"
	"yardops/internal/core"
	"yardops/pkg/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler carries the collaborators every route needs.
type Handler struct {
	Svc     *core.Service
	Archive *archive.Archiver
	Log     *zap.Logger
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string   `json:"error"`
	Code      string   `json:"code"`
	Field     string   `json:"field,omitempty"`
	Completed []string `json:"completed,omitempty"`
}

// fail maps engine errors to HTTP statuses:
// 400 bad input, 404 missing, 409 illegal state, 422 business rule, 502 store.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		ve domain.ValidationError
		nf domain.NotFoundError
		te domain.TransitionError
		qe domain.QuantityExceededError
		ce domain.ChassisCapabilityError
		rv domain.RuleViolationError
		pw domain.PartialWriteError
		sw domain.StoreWriteError
	)
	body := errorBody{Error: err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &ve):
		status, body.Code, body.Field = http.StatusBadRequest, "validation", ve.Field
	case errors.As(err, &nf):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.As(err, &te):
		status, body.Code = http.StatusConflict, "transition"
	case errors.Is(err, domain.ErrNothingToUndo):
		status, body.Code = http.StatusConflict, "nothing_to_undo"
	case errors.As(err, &qe):
		status, body.Code = http.StatusUnprocessableEntity, "quantity_exceeded"
	case errors.As(err, &ce):
		status, body.Code = http.StatusUnprocessableEntity, "chassis_capability"
	case errors.As(err, &rv):
		status, body.Code = http.StatusUnprocessableEntity, "rule_violation"
	case errors.As(err, &pw):
		status, body.Code, body.Completed = http.StatusBadGateway, "partial_write", pw.Completed
	case errors.As(err, &sw):
		status, body.Code = http.StatusBadGateway, "store_write"
	default:
		body.Code = "internal"
	}
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "bad_request"})
}

// parseTime accepts RFC 3339 timestamps or plain dates. Empty means zero.
func parseTime(v string) (time.Time, error) {
	t, _, err := parseDate(v)
	return t, err
}

// parseEndTime is parseTime for inclusive upper bounds: a plain date covers
// the whole day.
func parseEndTime(v string) (time.Time, error) {
	t, dateOnly, err := parseDate(v)
	if err != nil || !dateOnly {
		return t, err
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

func parseDate(v string) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	return t, err == nil, err
}
