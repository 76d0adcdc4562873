package projection

import (
	"testing"
	"time"

	"advisor_analytics_backend/internal/analytics/domain"
)

var projNow = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

func futureEvent(owner string, daysAhead int, appointmentType domain.AppointmentType, value float64) domain.CalendarEvent {
	return domain.CalendarEvent{
		StartTime:        projNow.AddDate(0, 0, daysAhead),
		Status:           domain.EventStatusActive,
		Host:             domain.HostIdentity{OwnerID: owner, DisplayName: "Berater " + owner},
		AppointmentType:  appointmentType,
		OpportunityValue: value,
	}
}

func TestForecastGroupsUpcomingEventsByAdvisor(t *testing.T) {
	events := []domain.CalendarEvent{
		futureEvent("a1", 1, domain.TypeFirstMeeting, 1000),
		futureEvent("a1", 3, domain.TypeConceptMeeting, 2500),
		futureEvent("a1", 5, domain.TypeFirstMeeting, 0),
		futureEvent("a2", 2, domain.TypeFirstMeeting, 500),
	}

	results := Forecast(events, projNow, 30, domain.Filter{})
	if len(results) != 2 {
		t.Fatalf("expected 2 advisors, got %d", len(results))
	}

	a1 := results[0]
	if a1.AdvisorKey != "a1" {
		t.Fatalf("expected a1 first, got %s", a1.AdvisorKey)
	}
	if a1.TotalEvents != 3 {
		t.Fatalf("expected 3 events, got %d", a1.TotalEvents)
	}
	if a1.CountsByType[domain.TypeFirstMeeting] != 2 || a1.CountsByType[domain.TypeConceptMeeting] != 1 {
		t.Fatalf("unexpected type counts: %v", a1.CountsByType)
	}
	if a1.OpportunityValue != 3500 {
		t.Fatalf("expected opportunity value 3500, got %v", a1.OpportunityValue)
	}
	if a1.AvgPerDay != 0.1 {
		t.Fatalf("expected avg per day 0.1, got %v", a1.AvgPerDay)
	}
}

func TestForecastExcludesCanceledPastAndOutOfWindowEvents(t *testing.T) {
	canceled := futureEvent("a1", 2, domain.TypeFirstMeeting, 0)
	canceled.Status = domain.EventStatusCanceled
	events := []domain.CalendarEvent{
		canceled,
		futureEvent("a1", -1, domain.TypeFirstMeeting, 0),
		futureEvent("a1", 31, domain.TypeFirstMeeting, 0),
		futureEvent("a1", 10, domain.TypeFirstMeeting, 0),
	}

	results := Forecast(events, projNow, 30, domain.Filter{})
	if len(results) != 1 || results[0].TotalEvents != 1 {
		t.Fatalf("expected exactly one counted event, got %+v", results)
	}
}

func TestForecastAvgPerDayRoundsToOneDecimal(t *testing.T) {
	events := make([]domain.CalendarEvent, 0, 4)
	for i := 0; i < 4; i++ {
		events = append(events, futureEvent("a1", i+1, domain.TypeFirstMeeting, 0))
	}

	results := Forecast(events, projNow, 30, domain.Filter{})
	// 4 / 30 = 0.1333... rounds to 0.1
	if results[0].AvgPerDay != 0.1 {
		t.Fatalf("expected 0.1, got %v", results[0].AvgPerDay)
	}

	results = Forecast(events, projNow, 7, domain.Filter{})
	// 4 / 7 = 0.571... rounds to 0.6
	if results[0].AvgPerDay != 0.6 {
		t.Fatalf("expected 0.6, got %v", results[0].AvgPerDay)
	}
}

func pastRecord(owner string, daysAgo int, appointmentType domain.AppointmentType, outcome string) domain.MatchedRecord {
	r := domain.MatchedRecord{
		Event: domain.CalendarEvent{
			StartTime:       projNow.AddDate(0, 0, -daysAgo),
			Status:          domain.EventStatusActive,
			Host:            domain.HostIdentity{OwnerID: owner, DisplayName: "Berater " + owner},
			AppointmentType: appointmentType,
		},
		Status: domain.MatchStatusMissing,
	}
	if outcome != "" {
		r.Status = domain.MatchStatusMatched
		r.Activity = &domain.ActivityRecord{Outcome: outcome, CreatedAt: r.Event.StartTime}
	}
	return r
}

func TestBackcastComputesHeldAndFilledRates(t *testing.T) {
	from := projNow.AddDate(0, 0, -30)
	records := []domain.MatchedRecord{
		pastRecord("a1", 5, domain.TypeFirstMeeting, "stattgefunden"),
		pastRecord("a1", 10, domain.TypeFirstMeeting, "no-show"),
		pastRecord("a1", 15, domain.TypeFirstMeeting, ""),
	}

	results := Backcast(records, from, projNow, domain.Filter{})
	if len(results) != 1 {
		t.Fatalf("expected 1 advisor, got %d", len(results))
	}
	g := results[0]
	if g.TotalEvents != 3 {
		t.Fatalf("expected 3 events, got %d", g.TotalEvents)
	}
	if g.ActivityFilledCount != 2 || g.ActivityFilledRate != 67 {
		t.Fatalf("expected 2 filled at 67%%, got %d at %d%%", g.ActivityFilledCount, g.ActivityFilledRate)
	}
	if g.HeldCount != 1 || g.HeldRate != 33 {
		t.Fatalf("expected 1 held at 33%%, got %d at %d%%", g.HeldCount, g.HeldRate)
	}
	if g.FollowUpScheduledCount != g.HeldCount {
		t.Fatalf("follow-up proxy should track held count, got %d vs %d", g.FollowUpScheduledCount, g.HeldCount)
	}
}

func TestBackcastImplementationDecisionsCountAsHeld(t *testing.T) {
	from := projNow.AddDate(0, 0, -30)
	records := []domain.MatchedRecord{
		pastRecord("a1", 5, domain.TypeImplementation, "won"),
		pastRecord("a1", 6, domain.TypeImplementation, "lost"),
		pastRecord("a1", 7, domain.TypeImplementation, "verschoben"),
	}

	results := Backcast(records, from, projNow, domain.Filter{})
	if results[0].HeldCount != 2 {
		t.Fatalf("expected won and lost to count as held, got %d", results[0].HeldCount)
	}
}

func TestBackcastHonorsWindowAndTypeFilter(t *testing.T) {
	from := projNow.AddDate(0, 0, -7)
	records := []domain.MatchedRecord{
		pastRecord("a1", 3, domain.TypeFirstMeeting, "stattgefunden"),
		pastRecord("a1", 20, domain.TypeFirstMeeting, "stattgefunden"),
		pastRecord("a1", 2, domain.TypeConceptMeeting, "stattgefunden"),
	}

	results := Backcast(records, from, projNow, domain.Filter{Types: []domain.AppointmentType{domain.TypeFirstMeeting}})
	if len(results) != 1 || results[0].TotalEvents != 1 {
		t.Fatalf("expected one in-window first meeting, got %+v", results)
	}
}
