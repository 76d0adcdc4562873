// Package sync keeps the local snapshots fresh: it pulls calendar events and
// CRM activities for a window, upserts them, and persists best-match links
// between the two collections.
package sync

import (
	"context"
	"fmt"
	"time"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/identity"
	"advisor_analytics_backend/internal/analytics/repository"
	"advisor_analytics_backend/platform/logger"
)

const (
	linkToleranceDays = 3
	// linkMinScore is the lowest proximity score that still persists a
	// link. Farther apart than half the tolerance means no link.
	linkMinScore = 0.5
)

// EventSource supplies calendar events for a window.
type EventSource interface {
	ListScheduledEvents(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error)
}

// ActivitySource supplies CRM activities per appointment type.
type ActivitySource interface {
	ListActivities(ctx context.Context, appointmentType domain.AppointmentType, from, to time.Time) ([]domain.ActivityRecord, error)
}

// Store is the snapshot persistence the sync writes through.
type Store interface {
	UpsertEvent(ctx context.Context, e domain.CalendarEvent) error
	UpsertActivity(ctx context.Context, a domain.ActivityRecord) error
	GetActivityByExternalID(ctx context.Context, externalID string) (*repository.ActivityRecord, error)
	ListUnlinkedEvents(ctx context.Context, appointmentType domain.AppointmentType, from, to time.Time) ([]domain.CalendarEvent, error)
	LinkEvent(ctx context.Context, externalEventID, externalActivityID string, confidence float64) error
	SetSyncState(ctx context.Context, appointmentType domain.AppointmentType, syncedAt, windowStart, windowEnd time.Time) error
}

// Invalidator drops cached computed views after a sync pass. May be nil.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Result summarizes one sync pass for one appointment type.
type Result struct {
	AppointmentType domain.AppointmentType
	Fetched         int
	Upserted        int
	Skipped         int
	Linked          int
}

// Service runs the snapshot sync.
type Service struct {
	events     EventSource
	activities ActivitySource
	store      Store
	cache      Invalidator
	log        *logger.Logger
	now        func() time.Time
}

// New creates the sync service. cache may be nil.
func New(events EventSource, activities ActivitySource, store Store, cache Invalidator, log *logger.Logger) *Service {
	return &Service{
		events:     events,
		activities: activities,
		store:      store,
		cache:      cache,
		log:        log,
		now:        time.Now,
	}
}

// WithNow overrides the clock. Intended for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run syncs every appointment type over the window and invalidates cached
// views once at the end. A failing type aborts the pass so the scheduler
// retries it whole.
func (s *Service) Run(ctx context.Context, from, to time.Time) ([]Result, error) {
	if err := s.syncEvents(ctx, from, to); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(domain.AllAppointmentTypes()))
	for _, appointmentType := range domain.AllAppointmentTypes() {
		result, err := s.SyncType(ctx, appointmentType, from, to)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return results, nil
}

// syncEvents pulls and upserts the provider's events once for the whole
// window; they are shared across appointment types.
func (s *Service) syncEvents(ctx context.Context, from, to time.Time) error {
	events, err := s.events.ListScheduledEvents(ctx, from, to)
	if err != nil {
		s.log.UpstreamError("scheduling", err)
		return err
	}

	for _, e := range events {
		if e.StartTime.IsZero() || e.ExternalEventID == "" {
			s.log.MalformedRecord("calendar_events", e.ExternalEventID, "missing start time or id")
			continue
		}
		e.Invitee.Phone = identity.NormalizePhone(e.Invitee.Phone)
		if err := s.store.UpsertEvent(ctx, e); err != nil {
			return fmt.Errorf("upsert event %s: %w", e.ExternalEventID, err)
		}
	}

	s.log.Info("calendar events synced", "count", len(events))
	return nil
}

// SyncType syncs one appointment type's activities and runs the linker.
func (s *Service) SyncType(ctx context.Context, appointmentType domain.AppointmentType, from, to time.Time) (*Result, error) {
	activities, err := s.activities.ListActivities(ctx, appointmentType, from, to)
	if err != nil {
		s.log.UpstreamError("crm", err)
		return nil, err
	}

	result := &Result{AppointmentType: appointmentType, Fetched: len(activities)}

	fresh := make([]domain.ActivityRecord, 0, len(activities))
	for _, a := range activities {
		if a.ID == "" || a.CreatedAt.IsZero() {
			s.log.MalformedRecord("activity_records", a.ID, "missing id or timestamp")
			continue
		}

		existing, err := s.store.GetActivityByExternalID(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil && unchanged(existing, a) {
			result.Skipped++
			continue
		}

		if err := s.store.UpsertActivity(ctx, a); err != nil {
			return nil, fmt.Errorf("upsert activity %s: %w", a.ID, err)
		}
		result.Upserted++
		fresh = append(fresh, a)
	}

	linked, err := s.linkActivities(ctx, appointmentType, fresh, from, to)
	if err != nil {
		return nil, err
	}
	result.Linked = linked

	if err := s.store.SetSyncState(ctx, appointmentType, s.now(), from, to); err != nil {
		return nil, err
	}

	s.log.SyncRun(string(appointmentType), result.Fetched, result.Upserted, result.Linked, result.Skipped)
	return result, nil
}

// linkActivities persists a link from each fresh activity to its closest
// matching unlinked event. Already-linked events are never contended.
func (s *Service) linkActivities(ctx context.Context, appointmentType domain.AppointmentType, fresh []domain.ActivityRecord, from, to time.Time) (int, error) {
	if len(fresh) == 0 {
		return 0, nil
	}

	candidates, err := s.store.ListUnlinkedEvents(ctx, appointmentType, from.AddDate(0, 0, -linkToleranceDays), to.AddDate(0, 0, linkToleranceDays))
	if err != nil {
		return 0, err
	}

	claimed := map[string]bool{}
	linked := 0

	for _, a := range fresh {
		best, score := findBestMatch(a, candidates, claimed)
		if best == "" || score <= linkMinScore {
			continue
		}
		if err := s.store.LinkEvent(ctx, best, a.ID, score); err != nil {
			return linked, err
		}
		claimed[best] = true
		linked++
	}

	return linked, nil
}

// findBestMatch scores unclaimed events by email equality and date
// proximity: score = 1 - days/tolerance, zero outside the tolerance.
func findBestMatch(a domain.ActivityRecord, candidates []domain.CalendarEvent, claimed map[string]bool) (string, float64) {
	activityKey := identity.FromActivity(a)
	if activityKey.Email == "" {
		return "", 0
	}

	bestID := ""
	bestScore := 0.0

	for _, e := range candidates {
		if claimed[e.ExternalEventID] {
			continue
		}
		if identity.FromEvent(e).Email != activityKey.Email {
			continue
		}

		days := e.StartTime.Sub(a.CreatedAt).Hours() / 24
		if days < 0 {
			days = -days
		}
		if days > linkToleranceDays {
			continue
		}

		score := 1.0 - days/linkToleranceDays
		if score > bestScore {
			bestID = e.ExternalEventID
			bestScore = score
		}
	}

	return bestID, bestScore
}

func unchanged(existing *repository.ActivityRecord, incoming domain.ActivityRecord) bool {
	return existing.Outcome == incoming.Outcome &&
		existing.ActivityDate.Equal(incoming.CreatedAt) &&
		existing.ExternalLeadID == incoming.ExternalLeadID
}
