// Package analytics provides the reconciliation and aggregation domain module.
package analytics

import (
	"advisor_analytics_backend/internal/analytics/handler"
	"advisor_analytics_backend/internal/analytics/repository"
	"advisor_analytics_backend/internal/analytics/service"
	apphttp "advisor_analytics_backend/internal/http"
	"advisor_analytics_backend/platform/logger"
	"advisor_analytics_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the analytics domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new analytics module with all dependencies wired.
// cache may be nil when no redis instance is configured.
func NewModule(pool *pgxpool.Pool, cache service.StatsCache, toleranceDays int, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cache, toleranceDays, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Service exposes the engine service for other composition-root consumers.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the snapshot repository for the sync layer.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "analytics"
}

// RegisterRoutes registers the module's routes under /api/v1/analytics
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	analytics := ctx.V1.Group("/analytics")
	m.handler.RegisterRoutes(analytics)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
