package pipeline

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Stages the ops API may trigger. Seeding and feed acquisition stay on the
// CLI; the API surface only re-runs the engine stages.
var triggerable = map[string]bool{
	StageLoad:      true,
	StageTransform: true,
	StageQA:        true,
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/runs/:stage", h.TriggerRun)
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:id", h.GetRun)
}

// TriggerRun executes one stage synchronously and returns its audit row. A
// concurrent trigger gets 409 rather than queueing.
func (h *Handler) TriggerRun(c echo.Context) error {
	stage := c.Param("stage")
	if !triggerable[stage] {
		return echo.NewHTTPError(http.StatusBadRequest, "stage must be one of load, transform, qa")
	}

	run, err := h.svc.Execute(c.Request().Context(), stage)
	switch {
	case errors.Is(err, ErrRunActive):
		return echo.NewHTTPError(http.StatusConflict, "a run is already active")
	case errors.Is(err, ErrUnknownStage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		// The stage failed but its run row captured the error; return both
		// the failure and the audit trail.
		if run != nil {
			return c.JSON(http.StatusInternalServerError, run)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, run)
}

func (h *Handler) ListRuns(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	runs, err := h.svc.Recent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if runs == nil {
		runs = []Run{}
	}
	return c.JSON(http.StatusOK, runs)
}

func (h *Handler) GetRun(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid run id")
	}

	run, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrRunNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, run)
}
