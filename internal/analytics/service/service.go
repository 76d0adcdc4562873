// Package service orchestrates the reconciliation pipeline: snapshot
// fetches, matching, aggregation with tiered reconstruction, and the
// forecast/backcast projections.
package service

import (
	"context"
	"fmt"
	"time"

	"advisor_analytics_backend/internal/analytics/aggregation"
	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/identity"
	"advisor_analytics_backend/internal/analytics/matching"
	"advisor_analytics_backend/internal/analytics/projection"
	"advisor_analytics_backend/platform/apperr"
	"advisor_analytics_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// SnapshotStore provides the persisted source snapshots the engine runs
// over. Implemented by the analytics repository.
type SnapshotStore interface {
	ListEvents(ctx context.Context, from, to time.Time, appointmentType domain.AppointmentType) ([]domain.CalendarEvent, error)
	ListLatestActivities(ctx context.Context, from, to time.Time, appointmentType domain.AppointmentType) ([]domain.ActivityRecord, error)
	AdvisorCompletion(ctx context.Context, from, to time.Time, appointmentType domain.AppointmentType) ([]domain.AdvisorCompletion, error)
	ProviderBreakdown(ctx context.Context, from, to time.Time, appointmentType domain.AppointmentType) ([]domain.ProviderBreakdown, error)
}

// StatsCache caches computed stats views between sync runs. May be nil.
type StatsCache interface {
	GetStats(ctx context.Context, key string) (*StatsResult, bool)
	SetStats(ctx context.Context, key string, result *StatsResult)
}

// Insight is one derived warning surfaced next to the stats view.
type Insight struct {
	AdvisorKey  string `json:"advisorKey"`
	AdvisorName string `json:"advisorName"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
}

// StatsResult is the computed per-advisor stats view.
type StatsResult struct {
	Aggregates []domain.AdvisorAggregate `json:"aggregates"`
	Source     aggregation.Source        `json:"source"`
	Insights   []Insight                 `json:"insights"`
}

// CompletionRow is one advisor's completion-table entry.
type CompletionRow struct {
	AdvisorKey      string
	AdvisorName     string
	PlannedCount    int
	DocumentedCount int
	CompletionRate  int
	MissingCount    int
}

// Service is the engine entry point. Every method is a pure recompute over
// freshly loaded snapshots; nothing is mutated between calls.
type Service struct {
	store   SnapshotStore
	cache   StatsCache
	matcher *matching.Matcher
	log     *logger.Logger
	now     func() time.Time
}

// New creates the analytics service. cache may be nil to disable caching.
func New(store SnapshotStore, cache StatsCache, toleranceDays int, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		matcher: matching.New(toleranceDays),
		log:     log,
		now:     time.Now,
	}
}

// WithNow overrides the clock. Intended for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	s.matcher = s.matcher.WithNow(now)
	return s
}

// snapshots is one immutable input pair for a pipeline pass.
type snapshots struct {
	events     []domain.CalendarEvent
	activities []domain.ActivityRecord
}

// fetchSnapshots loads both source collections concurrently. A failed load
// is surfaced as an upstream error, never masked as an empty result.
func (s *Service) fetchSnapshots(ctx context.Context, f domain.Filter, appointmentType domain.AppointmentType) (snapshots, error) {
	var snap snapshots

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		events, err := s.store.ListEvents(gctx, f.From, f.To, appointmentType)
		if err != nil {
			return fmt.Errorf("load calendar events: %w", err)
		}
		snap.events = events
		return nil
	})
	g.Go(func() error {
		activities, err := s.store.ListLatestActivities(gctx, f.From, f.To, appointmentType)
		if err != nil {
			return fmt.Errorf("load activity records: %w", err)
		}
		snap.activities = activities
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshots{}, apperr.Upstream("snapshot load failed", err)
	}
	return snap, nil
}

// Matched returns one matched record per calendar event in the window.
func (s *Service) Matched(ctx context.Context, f domain.Filter, appointmentType domain.AppointmentType) ([]domain.MatchedRecord, error) {
	if err := validateWindow(f); err != nil {
		return nil, err
	}

	snap, err := s.fetchSnapshots(ctx, f, appointmentType)
	if err != nil {
		return nil, err
	}

	records, skipped := s.matcher.Match(snap.events, snap.activities)
	if skipped > 0 {
		s.log.MalformedRecord("calendar_events", "", fmt.Sprintf("%d events without start time excluded", skipped))
	}

	filtered := make([]domain.MatchedRecord, 0, len(records))
	for _, r := range records {
		if f.MatchesAdvisor(identity.FromEvent(r.Event).OwnerKey) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Stats computes the per-advisor aggregate view, reconstructing it from
// progressively weaker sources when the pre-computed aggregate is empty.
func (s *Service) Stats(ctx context.Context, f domain.Filter, appointmentType domain.AppointmentType) (*StatsResult, error) {
	if err := validateWindow(f); err != nil {
		return nil, err
	}

	cacheKey := statsCacheKey(f, appointmentType)
	if s.cache != nil {
		if cached, ok := s.cache.GetStats(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	snap, err := s.fetchSnapshots(ctx, f, appointmentType)
	if err != nil {
		return nil, err
	}

	records, skipped := s.matcher.Match(snap.events, snap.activities)
	if skipped > 0 {
		s.log.MalformedRecord("calendar_events", "", fmt.Sprintf("%d events without start time excluded", skipped))
	}

	primary, err := s.store.AdvisorCompletion(ctx, f.From, f.To, appointmentType)
	if err != nil {
		return nil, apperr.Upstream("advisor completion load failed", err)
	}

	var breakdown []domain.ProviderBreakdown
	if len(primary) == 0 {
		breakdown, err = s.store.ProviderBreakdown(ctx, f.From, f.To, appointmentType)
		if err != nil {
			return nil, apperr.Upstream("provider breakdown load failed", err)
		}
	}

	aggregates, source := aggregation.Synthesize(aggregation.Inputs{
		AppointmentType: appointmentType,
		Primary:         primary,
		Records:         records,
		Events:          snap.events,
		Breakdown:       breakdown,
	}, f)

	result := &StatsResult{
		Aggregates: aggregates,
		Source:     source,
		Insights:   buildInsights(aggregates),
	}

	if s.cache != nil {
		s.cache.SetStats(ctx, cacheKey, result)
	}
	return result, nil
}

// AdvisorCompletion returns the completion table for a window.
func (s *Service) AdvisorCompletion(ctx context.Context, f domain.Filter, appointmentType domain.AppointmentType) ([]CompletionRow, error) {
	if err := validateWindow(f); err != nil {
		return nil, err
	}

	primary, err := s.store.AdvisorCompletion(ctx, f.From, f.To, appointmentType)
	if err != nil {
		return nil, apperr.Upstream("advisor completion load failed", err)
	}

	rows := make([]CompletionRow, 0, len(primary))
	for _, row := range primary {
		if !f.MatchesAdvisor(row.AdvisorKey) {
			continue
		}
		rate, missing := aggregation.CompletionRate(row.PlannedCount, row.DocumentedCount)
		rows = append(rows, CompletionRow{
			AdvisorKey:      row.AdvisorKey,
			AdvisorName:     row.AdvisorName,
			PlannedCount:    row.PlannedCount,
			DocumentedCount: row.DocumentedCount,
			CompletionRate:  rate,
			MissingCount:    missing,
		})
	}
	return rows, nil
}

// Forecast projects the upcoming horizonDays of active events per advisor.
func (s *Service) Forecast(ctx context.Context, horizonDays int, f domain.Filter) ([]projection.ForecastResult, error) {
	if horizonDays < 1 {
		return nil, apperr.BadRequest("forecast horizon must be at least one day")
	}

	now := s.now()
	events, err := s.store.ListEvents(ctx, now, now.AddDate(0, 0, horizonDays), "")
	if err != nil {
		return nil, apperr.Upstream("snapshot load failed", err)
	}
	return projection.Forecast(events, now, horizonDays, f), nil
}

// Backcast derives historical held and documentation rates per advisor.
func (s *Service) Backcast(ctx context.Context, f domain.Filter) ([]projection.BackcastResult, error) {
	if err := validateWindow(f); err != nil {
		return nil, err
	}

	// The backcast spans every appointment type unless the filter narrows
	// it; snapshots are loaded once across types.
	snap, err := s.fetchSnapshots(ctx, f, "")
	if err != nil {
		return nil, err
	}

	records, skipped := s.matcher.Match(snap.events, snap.activities)
	if skipped > 0 {
		s.log.MalformedRecord("calendar_events", "", fmt.Sprintf("%d events without start time excluded", skipped))
	}

	return projection.Backcast(records, f.From, f.To, f), nil
}

// buildInsights derives the warning list shown next to the stats table.
func buildInsights(aggregates []domain.AdvisorAggregate) []Insight {
	insights := make([]Insight, 0)
	for _, a := range aggregates {
		switch a.Status {
		case domain.StatusMissingDocs:
			insights = append(insights, Insight{
				AdvisorKey:  a.AdvisorKey,
				AdvisorName: a.AdvisorName,
				Severity:    "warning",
				Message:     fmt.Sprintf("%s has documented only %d of %d planned meetings", a.AdvisorName, a.DocumentedCount, a.PlannedCount),
			})
		case domain.StatusHighNoShow:
			insights = append(insights, Insight{
				AdvisorKey:  a.AdvisorKey,
				AdvisorName: a.AdvisorName,
				Severity:    "warning",
				Message:     fmt.Sprintf("%s has an elevated no-show share across %d classified meetings", a.AdvisorName, a.TotalClassified),
			})
		}
	}
	return insights
}

func validateWindow(f domain.Filter) error {
	if f.From.IsZero() || f.To.IsZero() {
		return apperr.BadRequest("a date window is required")
	}
	if f.To.Before(f.From) {
		return apperr.BadRequest("window end precedes window start")
	}
	return nil
}

func statsCacheKey(f domain.Filter, appointmentType domain.AppointmentType) string {
	return fmt.Sprintf("stats:%s:%d:%d:%v", appointmentType, f.From.Unix(), f.To.Unix(), f.AdvisorKeys)
}
