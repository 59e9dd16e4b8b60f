package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	portssvc "github.com/SscSPs/timesheet_app/internal/core/ports/services"
	"github.com/SscSPs/timesheet_app/internal/dto"
	"github.com/SscSPs/timesheet_app/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// timesheetHandler handles HTTP requests related to an employee's own timesheet.
type timesheetHandler struct {
	timesheetService portssvc.TimesheetSvcFacade
}

// newTimesheetHandler creates a new timesheetHandler.
func newTimesheetHandler(ts portssvc.TimesheetSvcFacade) *timesheetHandler {
	return &timesheetHandler{
		timesheetService: ts,
	}
}

// RegisterTimesheetRoutes registers routes related to timesheets.
// pollMiddleware is applied to the polling status route only.
func RegisterTimesheetRoutes(rg *gin.RouterGroup, timesheetService portssvc.TimesheetSvcFacade, pollMiddleware ...gin.HandlerFunc) {
	h := newTimesheetHandler(timesheetService)

	timesheet := rg.Group("/timesheet")
	{
		timesheet.POST("/clock-in", h.clockIn)
		timesheet.POST("/clock-out", h.clockOut)
		timesheet.POST("/breaks/start", h.startBreak)
		timesheet.POST("/breaks/end", h.endBreak)
		timesheet.POST("/unavailable/start", h.startUnavailable)
		timesheet.POST("/unavailable/end", h.endUnavailable)
		timesheet.GET("/status", h.getStatus)
		timesheet.GET("/status/poll", append(pollMiddleware, h.pollStatus)...)
		timesheet.GET("/history", h.listHistory)
	}
}

// clockIn godoc
// @Summary Clock in
// @Description Opens today's time entry, or reactivates it after a clock-out. Fails with 409 and forceAvailable=true while another entry is open, unless force is set.
// @Tags timesheet
// @Accept  json
// @Produce  json
// @Param   request body dto.ClockInRequest false "Clock-in options"
// @Success 200 {object} dto.TimeEntryResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 409 {object} dto.ErrorResponse "Another entry is open, or the transition is not allowed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/clock-in [post]
func (h *timesheetHandler) clockIn(c *gin.Context) {
	logger, employeeID, ok := requestIdentity(c)
	if !ok {
		return
	}
	var req dto.ClockInRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Failed to bind JSON for ClockIn", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, bindErrorResponse(err))
		return
	}

	entry, err := h.timesheetService.ClockIn(c.Request.Context(), employeeID, domain.ClockInOptions{Force: req.Force})
	if err != nil {
		respondWithError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTimeEntryResponse(entry))
}

// clockOut godoc
// @Summary Clock out
// @Description Submits the open time entry and stores the hours worked.
// @Tags timesheet
// @Produce  json
// @Success 200 {object} dto.TimeEntryResponse
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/clock-out [post]
func (h *timesheetHandler) clockOut(c *gin.Context) {
	h.transition(c, h.timesheetService.ClockOut)
}

// startBreak godoc
// @Summary Start a break
// @Tags timesheet
// @Produce  json
// @Success 200 {object} dto.TimeEntryResponse
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/breaks/start [post]
func (h *timesheetHandler) startBreak(c *gin.Context) {
	h.transition(c, h.timesheetService.StartBreak)
}

// endBreak godoc
// @Summary End the running break
// @Tags timesheet
// @Produce  json
// @Success 200 {object} dto.TimeEntryResponse
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/breaks/end [post]
func (h *timesheetHandler) endBreak(c *gin.Context) {
	h.transition(c, h.timesheetService.EndBreak)
}

// startUnavailable godoc
// @Summary Become unavailable
// @Description Marks the employee unavailable. The reason defaults to "Not specified".
// @Tags timesheet
// @Accept  json
// @Produce  json
// @Param   request body dto.StartUnavailableRequest false "Reason"
// @Success 200 {object} dto.TimeEntryResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/unavailable/start [post]
func (h *timesheetHandler) startUnavailable(c *gin.Context) {
	logger, employeeID, ok := requestIdentity(c)
	if !ok {
		return
	}
	var req dto.StartUnavailableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Failed to bind JSON for StartUnavailable", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, bindErrorResponse(err))
		return
	}

	entry, err := h.timesheetService.StartUnavailable(c.Request.Context(), employeeID, req.Reason)
	if err != nil {
		respondWithError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTimeEntryResponse(entry))
}

// endUnavailable godoc
// @Summary End the unavailable period
// @Tags timesheet
// @Produce  json
// @Success 200 {object} dto.TimeEntryResponse
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/unavailable/end [post]
func (h *timesheetHandler) endUnavailable(c *gin.Context) {
	h.transition(c, h.timesheetService.EndUnavailable)
}

// getStatus godoc
// @Summary Get timesheet status
// @Description Returns the open entry, today's entry, live hours and recent history.
// @Tags timesheet
// @Produce  json
// @Success 200 {object} dto.StatusResponse
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/status [get]
func (h *timesheetHandler) getStatus(c *gin.Context) {
	logger, employeeID, ok := requestIdentity(c)
	if !ok {
		return
	}
	snapshot, err := h.timesheetService.GetStatus(c.Request.Context(), employeeID)
	if err != nil {
		respondWithError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToStatusResponse(snapshot))
}

// pollStatus godoc
// @Summary Poll timesheet status
// @Description Lightweight, rate limited status without history, for periodic refresh.
// @Tags timesheet
// @Produce  json
// @Success 200 {object} dto.StatusResponse
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/status/poll [get]
func (h *timesheetHandler) pollStatus(c *gin.Context) {
	logger, employeeID, ok := requestIdentity(c)
	if !ok {
		return
	}
	snapshot, err := h.timesheetService.GetLiveStatus(c.Request.Context(), employeeID)
	if err != nil {
		respondWithError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToStatusResponse(snapshot))
}

// listHistory godoc
// @Summary List past time entries
// @Description Pages through the employee's entries, newest first.
// @Tags timesheet
// @Produce  json
// @Param   limit query int false "Page size (1-100)" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.HistoryResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /timesheet/history [get]
func (h *timesheetHandler) listHistory(c *gin.Context) {
	logger, employeeID, ok := requestIdentity(c)
	if !ok {
		return
	}
	var params dto.ListHistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListHistory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, bindErrorResponse(err))
		return
	}

	page, err := h.timesheetService.ListHistory(c.Request.Context(), employeeID, params.NextToken, params.Limit)
	if err != nil {
		respondWithError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToHistoryResponse(page))
}

// transition runs a body-less transition for the authenticated employee.
func (h *timesheetHandler) transition(c *gin.Context, apply func(ctx context.Context, employeeID string) (*domain.TimeEntry, error)) {
	logger, employeeID, ok := requestIdentity(c)
	if !ok {
		return
	}
	entry, err := apply(c.Request.Context(), employeeID)
	if err != nil {
		respondWithError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTimeEntryResponse(entry))
}

// requestIdentity returns the request logger and the authenticated employee,
// answering 401 itself when there is none.
func requestIdentity(c *gin.Context) (*slog.Logger, string, bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	employeeID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Employee ID not found in context")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Code: "NotAuthenticated", Error: "Unauthorized"})
		return logger, "", false
	}
	return logger.With(slog.String("employee_id", employeeID)), employeeID, true
}

// respondWithError maps service errors onto status codes and error bodies.
func respondWithError(c *gin.Context, logger *slog.Logger, err error) {
	var active *domain.AlreadyActiveError
	var invalid *domain.InvalidTransitionError
	switch {
	case errors.As(err, &active):
		logger.Warn("Clock-in blocked by open entry", slog.String("entry_id", active.Entry.ID))
		c.JSON(http.StatusConflict, dto.NewActiveEntryConflict(active))
	case errors.As(err, &invalid):
		logger.Warn("Invalid timesheet transition", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, dto.ErrorResponse{Code: "InvalidTransition", Error: invalid.Error()})
	case apperrors.IsRetryable(err):
		logger.Warn("Concurrent timesheet update", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, dto.ErrorResponse{Code: "Conflict", Error: "The timesheet was changed concurrently, please retry", Retryable: true})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Time entry not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: "NotFound", Error: "Time entry not found"})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "ValidationFailed", Error: err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Code: "NotAuthenticated", Error: "Unauthorized"})
	default:
		logger.Error("Timesheet request failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: "Internal", Error: "Internal server error"})
	}
}

// bindErrorResponse describes request binding failures, per field when the validator produced them.
func bindErrorResponse(err error) dto.ErrorResponse {
	res := dto.ErrorResponse{Code: "ValidationFailed", Error: "Invalid request format: " + err.Error()}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		res.Error = "Invalid request"
		res.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			res.Fields[fe.Field()] = fe.Tag()
		}
	}
	return res
}
