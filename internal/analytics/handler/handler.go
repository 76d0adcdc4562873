package handler

import (
	"net/http"
	"strings"
	"time"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/service"
	"advisor_analytics_backend/internal/analytics/transport"
	"advisor_analytics_backend/platform/apperr"
	"advisor_analytics_backend/platform/httpkit"
	"advisor_analytics_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

const defaultForecastDays = 30

// Handler handles HTTP requests for the analytics views
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new analytics handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the analytics routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/matched", h.ListMatched)
	rg.GET("/stats", h.Stats)
	rg.GET("/advisor-completion", h.AdvisorCompletion)
	rg.GET("/forecast", h.Forecast)
	rg.GET("/backcast", h.Backcast)
}

// ListMatched handles GET /api/v1/analytics/matched
func (h *Handler) ListMatched(c *gin.Context) {
	var req transport.MatchedListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	filter, appointmentType, err := buildFilter(req.From, req.To, req.Advisors, req.Type)
	if httpkit.HandleError(c, err) {
		return
	}

	records, err := h.svc.Matched(c.Request.Context(), filter, appointmentType)
	if httpkit.HandleError(c, err) {
		return
	}

	responses := make([]transport.MatchedRecordResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, transport.ToMatchedResponse(r))
	}
	httpkit.OK(c, gin.H{"records": responses})
}

// Stats handles GET /api/v1/analytics/stats
func (h *Handler) Stats(c *gin.Context) {
	var req transport.StatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	filter, appointmentType, err := buildFilter(req.From, req.To, req.Advisors, req.Type)
	if httpkit.HandleError(c, err) {
		return
	}

	result, err := h.svc.Stats(c.Request.Context(), filter, appointmentType)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToStatsResponse(result))
}

// AdvisorCompletion handles GET /api/v1/analytics/advisor-completion
func (h *Handler) AdvisorCompletion(c *gin.Context) {
	var req transport.CompletionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	filter, appointmentType, err := buildFilter(req.From, req.To, req.Advisors, req.Type)
	if httpkit.HandleError(c, err) {
		return
	}

	rows, err := h.svc.AdvisorCompletion(c.Request.Context(), filter, appointmentType)
	if httpkit.HandleError(c, err) {
		return
	}

	responses := make([]transport.CompletionRowResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, transport.CompletionRowResponse(row))
	}
	httpkit.OK(c, gin.H{"advisors": responses})
}

// Forecast handles GET /api/v1/analytics/forecast
func (h *Handler) Forecast(c *gin.Context) {
	var req transport.ForecastRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	days := req.Days
	if days == 0 {
		days = defaultForecastDays
	}

	types, err := parseTypes(req.Types)
	if httpkit.HandleError(c, err) {
		return
	}
	filter := domain.Filter{
		AdvisorKeys: splitCSV(req.Advisors),
		Types:       types,
	}

	results, err := h.svc.Forecast(c.Request.Context(), days, filter)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"horizonDays": days, "advisors": transport.ToForecastResponse(results)})
}

// Backcast handles GET /api/v1/analytics/backcast
func (h *Handler) Backcast(c *gin.Context) {
	var req transport.BackcastRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	types, err := parseTypes(req.Types)
	if httpkit.HandleError(c, err) {
		return
	}
	filter, _, err := buildFilter(req.From, req.To, req.Advisors, "")
	if httpkit.HandleError(c, err) {
		return
	}
	filter.Types = types

	results, err := h.svc.Backcast(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"advisors": transport.ToBackcastResponse(results)})
}

// buildFilter parses the shared window/advisor/type query parameters. The
// window end is pushed to end-of-day so a date-only "to" includes that day.
func buildFilter(from, to, advisors, rawType string) (domain.Filter, domain.AppointmentType, error) {
	fromDate, err := parseDate(from)
	if err != nil {
		return domain.Filter{}, "", apperr.BadRequest("invalid from date, expected YYYY-MM-DD")
	}
	toDate, err := parseDate(to)
	if err != nil {
		return domain.Filter{}, "", apperr.BadRequest("invalid to date, expected YYYY-MM-DD")
	}
	toDate = toDate.Add(24*time.Hour - time.Second)

	var appointmentType domain.AppointmentType
	if rawType != "" {
		appointmentType, err = domain.ParseAppointmentType(rawType)
		if err != nil {
			return domain.Filter{}, "", apperr.BadRequest(err.Error())
		}
	}

	return domain.Filter{
		From:        fromDate,
		To:          toDate,
		AdvisorKeys: splitCSV(advisors),
	}, appointmentType, nil
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(value))
}

func parseTypes(raw string) ([]domain.AppointmentType, error) {
	parts := splitCSV(raw)
	types := make([]domain.AppointmentType, 0, len(parts))
	for _, part := range parts {
		t, err := domain.ParseAppointmentType(part)
		if err != nil {
			return nil, apperr.BadRequest(err.Error())
		}
		types = append(types, t)
	}
	return types, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
