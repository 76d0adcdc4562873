package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"advisor_analytics_backend/internal/analytics/aggregation"
	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/platform/apperr"
	"advisor_analytics_backend/platform/logger"
)

var svcNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	events     []domain.CalendarEvent
	activities []domain.ActivityRecord
	primary    []domain.AdvisorCompletion
	breakdown  []domain.ProviderBreakdown

	eventsErr     error
	activitiesErr error

	breakdownCalls int
}

func (f *fakeStore) ListEvents(context.Context, time.Time, time.Time, domain.AppointmentType) ([]domain.CalendarEvent, error) {
	return f.events, f.eventsErr
}

func (f *fakeStore) ListLatestActivities(context.Context, time.Time, time.Time, domain.AppointmentType) ([]domain.ActivityRecord, error) {
	return f.activities, f.activitiesErr
}

func (f *fakeStore) AdvisorCompletion(context.Context, time.Time, time.Time, domain.AppointmentType) ([]domain.AdvisorCompletion, error) {
	return f.primary, nil
}

func (f *fakeStore) ProviderBreakdown(context.Context, time.Time, time.Time, domain.AppointmentType) ([]domain.ProviderBreakdown, error) {
	f.breakdownCalls++
	return f.breakdown, nil
}

type fakeCache struct {
	entries map[string]*StatsResult
	sets    int
}

func (f *fakeCache) GetStats(_ context.Context, key string) (*StatsResult, bool) {
	result, ok := f.entries[key]
	return result, ok
}

func (f *fakeCache) SetStats(_ context.Context, key string, result *StatsResult) {
	if f.entries == nil {
		f.entries = map[string]*StatsResult{}
	}
	f.entries[key] = result
	f.sets++
}

func newTestService(store *fakeStore, cache StatsCache) *Service {
	return New(store, cache, 3, logger.New("development")).WithNow(func() time.Time { return svcNow })
}

func testFilter() domain.Filter {
	return domain.Filter{From: svcNow.AddDate(0, 0, -30), To: svcNow}
}

func storeEvent(owner, email string, start time.Time) domain.CalendarEvent {
	return domain.CalendarEvent{
		ID:              "ev-" + owner,
		ExternalEventID: "ev-" + owner,
		StartTime:       start,
		Status:          domain.EventStatusActive,
		Host:            domain.HostIdentity{OwnerID: owner, DisplayName: "Berater " + owner},
		Invitee:         domain.InviteeIdentity{Email: email},
	}
}

func TestMatchedRequiresWindow(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)

	_, err := svc.Matched(context.Background(), domain.Filter{}, domain.TypeFirstMeeting)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestMatchedSurfacesStoreFailureAsUpstream(t *testing.T) {
	store := &fakeStore{eventsErr: errors.New("connection refused")}
	svc := newTestService(store, nil)

	_, err := svc.Matched(context.Background(), testFilter(), domain.TypeFirstMeeting)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if apperr.GetKind(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream kind, got %v", err)
	}
}

func TestMatchedPairsEventWithActivity(t *testing.T) {
	start := svcNow.AddDate(0, 0, -5)
	store := &fakeStore{
		events: []domain.CalendarEvent{storeEvent("a1", "kunde@example.com", start)},
		activities: []domain.ActivityRecord{{
			ID:        "act1",
			CreatedAt: start.Add(12 * time.Hour),
			Outcome:   "stattgefunden",
			Owner:     domain.OwnerIdentity{Email: "kunde@example.com"},
		}},
	}
	svc := newTestService(store, nil)

	records, err := svc.Matched(context.Background(), testFilter(), domain.TypeFirstMeeting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Status != domain.MatchStatusMatched {
		t.Fatalf("expected one matched record, got %+v", records)
	}
}

func TestStatsUsesPrimarySourceWhenAvailable(t *testing.T) {
	store := &fakeStore{
		primary: []domain.AdvisorCompletion{
			{AdvisorKey: "a1", AdvisorName: "Berater a1", PlannedCount: 4, DocumentedCount: 4},
		},
		breakdown: []domain.ProviderBreakdown{{AdvisorKey: "a2", ScheduledCount: 1}},
	}
	svc := newTestService(store, nil)

	result, err := svc.Stats(context.Background(), testFilter(), domain.TypeFirstMeeting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != aggregation.SourcePrimary {
		t.Fatalf("expected primary source, got %s", result.Source)
	}
	if store.breakdownCalls != 0 {
		t.Fatal("breakdown should not be fetched when primary data exists")
	}
}

func TestStatsFallsBackToBreakdownWhenNothingElseExists(t *testing.T) {
	store := &fakeStore{
		breakdown: []domain.ProviderBreakdown{
			{AdvisorKey: "a1", AdvisorName: "Berater a1", ScheduledCount: 3},
		},
	}
	svc := newTestService(store, nil)

	result, err := svc.Stats(context.Background(), testFilter(), domain.TypeFirstMeeting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != aggregation.SourceBreakdown {
		t.Fatalf("expected breakdown source, got %s", result.Source)
	}
	if result.Aggregates[0].Status != domain.StatusPendingData {
		t.Fatalf("expected pending_data rows, got %s", result.Aggregates[0].Status)
	}
}

func TestStatsEmptyWindowReturnsEmptyNotError(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)

	result, err := svc.Stats(context.Background(), testFilter(), domain.TypeFirstMeeting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != aggregation.SourceEmpty || len(result.Aggregates) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestStatsBuildsInsightsForMissingDocs(t *testing.T) {
	store := &fakeStore{
		primary: []domain.AdvisorCompletion{
			{AdvisorKey: "a1", AdvisorName: "Berater a1", PlannedCount: 10, DocumentedCount: 2},
		},
	}
	svc := newTestService(store, nil)

	result, err := svc.Stats(context.Background(), testFilter(), domain.TypeFirstMeeting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Insights) != 1 {
		t.Fatalf("expected one insight, got %d", len(result.Insights))
	}
	if result.Insights[0].AdvisorKey != "a1" || result.Insights[0].Severity != "warning" {
		t.Fatalf("unexpected insight: %+v", result.Insights[0])
	}
}

func TestStatsReadsAndWritesCache(t *testing.T) {
	store := &fakeStore{
		primary: []domain.AdvisorCompletion{
			{AdvisorKey: "a1", AdvisorName: "Berater a1", PlannedCount: 2, DocumentedCount: 2},
		},
	}
	cache := &fakeCache{}
	svc := newTestService(store, cache)

	first, err := svc.Stats(context.Background(), testFilter(), domain.TypeFirstMeeting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}

	// Second call must be served from cache even if the store changes.
	store.primary = nil
	second, err := svc.Stats(context.Background(), testFilter(), domain.TypeFirstMeeting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Source != first.Source || len(second.Aggregates) != len(first.Aggregates) {
		t.Fatal("expected cached result to be returned")
	}
	if cache.sets != 1 {
		t.Fatalf("expected no second cache write, got %d", cache.sets)
	}
}

func TestForecastRejectsNonPositiveHorizon(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)

	_, err := svc.Forecast(context.Background(), 0, domain.Filter{})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestForecastGroupsUpcomingEvents(t *testing.T) {
	store := &fakeStore{
		events: []domain.CalendarEvent{
			storeEvent("a1", "kunde@example.com", svcNow.AddDate(0, 0, 3)),
		},
	}
	svc := newTestService(store, nil)

	results, err := svc.Forecast(context.Background(), 30, domain.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].TotalEvents != 1 {
		t.Fatalf("expected one forecast row, got %+v", results)
	}
}

func TestBackcastComputesRatesAcrossTypes(t *testing.T) {
	start := svcNow.AddDate(0, 0, -5)
	store := &fakeStore{
		events: []domain.CalendarEvent{storeEvent("a1", "kunde@example.com", start)},
		activities: []domain.ActivityRecord{{
			ID:        "act1",
			CreatedAt: start,
			Outcome:   "stattgefunden",
			Owner:     domain.OwnerIdentity{Email: "kunde@example.com"},
		}},
	}
	svc := newTestService(store, nil)

	results, err := svc.Backcast(context.Background(), testFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one backcast row, got %d", len(results))
	}
	if results[0].ActivityFilledRate != 100 || results[0].HeldRate != 100 {
		t.Fatalf("expected full rates, got %+v", results[0])
	}
}
