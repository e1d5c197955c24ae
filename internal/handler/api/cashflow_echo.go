package api

import (
	"errors"

	"CashPilot/internal/domain/models"
	domrepo "CashPilot/internal/domain/repository"
	"CashPilot/internal/services/cashflow"
	"CashPilot/internal/usecase"
	xhttp "CashPilot/pkg/http"
	"CashPilot/pkg/http/middleware"
	xlogger "CashPilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CashFlowEchoHandler serves the cash-flow endpoints under /api/v1/cashflow.
type CashFlowEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.CashFlowUseCase
	jobs    domrepo.JobEnqueuer
	limiter middleware.Limiter
	stream  StreamConfig
}

// NewCashFlowEchoHandler builds the handler. jobs and limiter may be nil.
func NewCashFlowEchoHandler(logger *xlogger.Logger, uc *usecase.CashFlowUseCase, jobs domrepo.JobEnqueuer, limiter middleware.Limiter, stream StreamConfig) *CashFlowEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &CashFlowEchoHandler{logger: logger, uc: uc, jobs: jobs, limiter: limiter, stream: stream.withDefaults()}
}

func (h *CashFlowEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/cashflow")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter))
	}
	g.GET("/history", h.History)
	g.GET("/trend", h.Trend)
	g.GET("/projections", h.Projections)
	g.GET("/insights", h.Insights)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/stream", h.Stream)
	g.POST("/refresh", h.Refresh)
}

func (h *CashFlowEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{Months: h.uc.HistoryMonths()}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.GetHistoricalData(c.Request().Context(), req.UserID, req.Months)
	if err != nil {
		return h.fail("history", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CashFlowEchoHandler) Trend(c echo.Context) error {
	req := &models.HistoryRequest{Months: h.uc.HistoryMonths()}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.AnalyzeTrend(c.Request().Context(), req.UserID, req.Months)
	if err != nil {
		return h.fail("trend", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CashFlowEchoHandler) Projections(c echo.Context) error {
	req := &models.ProjectionsRequest{Periods: h.uc.ProjectionPeriods()}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.GenerateProjections(c.Request().Context(), req.UserID, req.Periods)
	if err != nil {
		return h.fail("projections", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CashFlowEchoHandler) Insights(c echo.Context) error {
	req := &models.InsightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.GenerateInsights(c.Request().Context(), req.UserID)
	if err != nil {
		return h.fail("insights", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CashFlowEchoHandler) Dashboard(c echo.Context) error {
	req := &models.DashboardRequest{Months: h.uc.HistoryMonths(), Periods: h.uc.ProjectionPeriods()}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Dashboard(c.Request().Context(), req.UserID, req.Months, req.Periods)
	if err != nil {
		return h.fail("dashboard", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Refresh schedules a background recomputation and answers 202.
func (h *CashFlowEchoHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.jobs == nil {
		return xhttp.ServiceUnavailableError("background refresh is disabled")
	}
	if err := h.jobs.EnqueueRefresh(c.Request().Context(), req.UserID); err != nil {
		h.logger.Error("enqueue refresh failed", xlogger.String("user_id", req.UserID), xlogger.Error(err))
		return xhttp.ServiceUnavailableError("could not schedule refresh").WithError(err)
	}
	return xhttp.AcceptedResponse(c, map[string]string{"user_id": req.UserID, "status": "queued"})
}

// fail maps engine errors: invalid input is a 400, anything else a 500.
func (h *CashFlowEchoHandler) fail(op string, err error) error {
	if errors.Is(err, cashflow.ErrInvalidMonths) || errors.Is(err, cashflow.ErrInvalidPeriods) || errors.Is(err, models.ErrInvalidUserID) {
		return xhttp.BadRequestError(err.Error()).WithError(err)
	}
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.InternalError("could not compute " + op).WithError(err)
}
