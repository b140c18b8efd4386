package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"yardops/pkg/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFailMapsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{Log: zap.NewNop()}
	disk := errors.New("disk full")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.ValidationError{Field: "qty", Message: "quantity must be greater than zero"}, http.StatusBadRequest, "validation"},
		{"not found", fmt.Errorf("find: %w", domain.NotFoundError{Kind: domain.KindBooking, ID: "b1"}), http.StatusNotFound, "not_found"},
		{"transition", domain.TransitionError{ContainerID: "c1", From: domain.StatusLoaded, Action: "deliver"}, http.StatusConflict, "transition"},
		{"nothing to undo", domain.ErrNothingToUndo, http.StatusConflict, "nothing_to_undo"},
		{"quantity", domain.QuantityExceededError{Remaining: 1}, http.StatusUnprocessableEntity, "quantity_exceeded"},
		{"chassis", domain.ChassisCapabilityError{Message: "This chassis cannot handle 2 containers."}, http.StatusUnprocessableEntity, "chassis_capability"},
		{"rule", domain.RuleViolationError{}, http.StatusUnprocessableEntity, "rule_violation"},
		{"partial", domain.PartialWriteError{Completed: []string{"create container"}, Failed: "link collection", Err: disk}, http.StatusBadGateway, "partial_write"},
		{"store", domain.StoreWriteError{Op: "create_booking", Err: disk}, http.StatusBadGateway, "store_write"},
		{"unknown", disk, http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			h.fail(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.err.Error(), body.Error)
		})
	}
}

func TestFailCarriesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{Log: zap.NewNop()}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.fail(c, domain.PartialWriteError{Completed: []string{"create container"}, Failed: "assign booking", Err: errors.New("timeout")})
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"create container"}, body.Completed)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	h.fail(c, domain.ValidationError{Field: "serial", Message: "container serial is required"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "serial", body.Field)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseTime("2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseTime(" 2026-05-01T08:30:00+02:00 ")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 5, 1, 6, 30, 0, 0, time.UTC)))

	_, err = parseTime("May 1st")
	assert.Error(t, err)
}

func TestParseEndTimeCoversWholeDay(t *testing.T) {
	got, err := parseEndTime("2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 23, 59, 59, 999999999, time.UTC), got)

	got, err = parseEndTime("2026-05-01T08:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC), got)

	got, err = parseEndTime("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseEndTime("tomorrow")
	assert.Error(t, err)
}
