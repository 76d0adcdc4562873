package aggregation

import (
	"testing"
	"time"

	"advisor_analytics_backend/internal/analytics/domain"
)

func TestCompletionRateRoundsToNearestPercent(t *testing.T) {
	cases := []struct {
		planned, documented int
		wantRate, wantMiss  int
	}{
		{planned: 10, documented: 10, wantRate: 100, wantMiss: 0},
		{planned: 10, documented: 5, wantRate: 50, wantMiss: 5},
		{planned: 3, documented: 1, wantRate: 33, wantMiss: 2},
		{planned: 3, documented: 2, wantRate: 67, wantMiss: 1},
		{planned: 0, documented: 0, wantRate: 0, wantMiss: 0},
		{planned: 0, documented: 4, wantRate: 100, wantMiss: 0},
		{planned: 2, documented: 3, wantRate: 150, wantMiss: 0},
	}
	for _, c := range cases {
		rate, missing := CompletionRate(c.planned, c.documented)
		if rate != c.wantRate || missing != c.wantMiss {
			t.Fatalf("CompletionRate(%d, %d) = (%d, %d), want (%d, %d)",
				c.planned, c.documented, rate, missing, c.wantRate, c.wantMiss)
		}
	}
}

func TestStatusForDecisionTable(t *testing.T) {
	cases := []struct {
		name                 string
		rate, noShows, total int
		want                 domain.StatusIndicator
	}{
		{"low completion wins first", 49, 0, 10, domain.StatusMissingDocs},
		{"low completion beats high no-show", 10, 9, 10, domain.StatusMissingDocs},
		{"high no-show", 90, 3, 10, domain.StatusHighNoShow},
		{"moderate by no-show ratio", 90, 2, 10, domain.StatusModerate},
		{"moderate by completion", 79, 0, 10, domain.StatusModerate},
		{"good", 95, 1, 10, domain.StatusGood},
		{"boundary fifty is not missing docs", 50, 0, 10, domain.StatusModerate},
		{"boundary eighty is good", 80, 0, 10, domain.StatusGood},
		{"exactly twenty percent no-show is not high", 90, 2, 10, domain.StatusModerate},
		{"no classified outcomes never divides", 90, 0, 0, domain.StatusGood},
	}
	for _, c := range cases {
		if got := StatusFor(c.rate, c.noShows, c.total); got != c.want {
			t.Fatalf("%s: StatusFor(%d, %d, %d) = %s, want %s",
				c.name, c.rate, c.noShows, c.total, got, c.want)
		}
	}
}

func advisorEvent(owner string, status domain.EventStatus) domain.CalendarEvent {
	return domain.CalendarEvent{
		StartTime: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Status:    status,
		Host:      domain.HostIdentity{OwnerID: owner, DisplayName: "Berater " + owner},
	}
}

func matchedRecord(owner, outcome string) domain.MatchedRecord {
	r := domain.MatchedRecord{
		Event:  advisorEvent(owner, domain.EventStatusActive),
		Status: domain.MatchStatusMissing,
	}
	if outcome != "" {
		r.Status = domain.MatchStatusMatched
		r.Activity = &domain.ActivityRecord{Outcome: outcome}
	}
	return r
}

func TestFromMatchedCountsPlannedFromActiveEventsOnly(t *testing.T) {
	events := []domain.CalendarEvent{
		advisorEvent("a1", domain.EventStatusActive),
		advisorEvent("a1", domain.EventStatusActive),
		advisorEvent("a1", domain.EventStatusCanceled),
	}
	records := []domain.MatchedRecord{matchedRecord("a1", "stattgefunden")}

	aggregates := FromMatched(domain.TypeFirstMeeting, records, events, domain.Filter{})
	if len(aggregates) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggregates))
	}
	agg := aggregates[0]
	if agg.PlannedCount != 2 {
		t.Fatalf("expected 2 planned, got %d", agg.PlannedCount)
	}
	if agg.DocumentedCount != 1 {
		t.Fatalf("expected 1 documented, got %d", agg.DocumentedCount)
	}
	if agg.CompletionRate != 50 {
		t.Fatalf("expected rate 50, got %d", agg.CompletionRate)
	}
	if agg.OutcomeCounts[domain.BucketTookPlace] != 1 {
		t.Fatalf("expected one took_place, got %v", agg.OutcomeCounts)
	}
}

func TestFromMatchedKeepsUnrecognizedOutcomesInRawTotalOnly(t *testing.T) {
	records := []domain.MatchedRecord{
		matchedRecord("a1", "stattgefunden"),
		matchedRecord("a1", "etwas ganz anderes"),
	}

	aggregates := FromMatched(domain.TypeFirstMeeting, records, nil, domain.Filter{})
	agg := aggregates[0]
	if agg.TotalClassified != 2 {
		t.Fatalf("expected raw total 2, got %d", agg.TotalClassified)
	}
	sum := 0
	for _, count := range agg.OutcomeCounts {
		sum += count
	}
	if sum != 1 {
		t.Fatalf("expected 1 bucketed outcome, got %d", sum)
	}
}

func TestFromMatchedHonorsAdvisorFilter(t *testing.T) {
	records := []domain.MatchedRecord{
		matchedRecord("a1", "stattgefunden"),
		matchedRecord("a2", "stattgefunden"),
	}

	aggregates := FromMatched(domain.TypeFirstMeeting, records, nil, domain.Filter{AdvisorKeys: []string{"a2"}})
	if len(aggregates) != 1 || aggregates[0].AdvisorKey != "a2" {
		t.Fatalf("expected only a2, got %+v", aggregates)
	}
}

func TestFromPrimaryRaisesDocumentedToMatchedDerivedValue(t *testing.T) {
	primary := []domain.AdvisorCompletion{
		{AdvisorKey: "a1", AdvisorName: "Berater a1", PlannedCount: 5, DocumentedCount: 1},
	}
	records := []domain.MatchedRecord{
		matchedRecord("a1", "stattgefunden"),
		matchedRecord("a1", "no-show"),
		matchedRecord("a1", "verschoben"),
	}

	aggregates := FromPrimary(domain.TypeFirstMeeting, primary, records, domain.Filter{})
	agg := aggregates[0]
	if agg.DocumentedCount != 3 {
		t.Fatalf("expected documented raised to 3, got %d", agg.DocumentedCount)
	}
	if agg.PlannedCount != 5 {
		t.Fatalf("expected planned kept at 5, got %d", agg.PlannedCount)
	}
	if agg.OutcomeCounts[domain.BucketNoShow] != 1 {
		t.Fatalf("expected outcome buckets merged in, got %v", agg.OutcomeCounts)
	}
}

func TestFromPrimaryKeepsLargerUpstreamDocumentedCount(t *testing.T) {
	primary := []domain.AdvisorCompletion{
		{AdvisorKey: "a1", AdvisorName: "Berater a1", PlannedCount: 10, DocumentedCount: 8},
	}
	records := []domain.MatchedRecord{matchedRecord("a1", "stattgefunden")}

	aggregates := FromPrimary(domain.TypeFirstMeeting, primary, records, domain.Filter{})
	if aggregates[0].DocumentedCount != 8 {
		t.Fatalf("expected upstream 8 kept, got %d", aggregates[0].DocumentedCount)
	}
}

func TestFromBreakdownMarksEverythingPending(t *testing.T) {
	breakdown := []domain.ProviderBreakdown{
		{AdvisorKey: "a1", AdvisorName: "Berater a1", ScheduledCount: 7},
	}

	aggregates := FromBreakdown(breakdown, domain.Filter{})
	agg := aggregates[0]
	if agg.Status != domain.StatusPendingData {
		t.Fatalf("expected pending_data, got %s", agg.Status)
	}
	if agg.PlannedCount != 7 || agg.MissingCount != 7 || agg.DocumentedCount != 0 {
		t.Fatalf("unexpected counts: %+v", agg)
	}
}

func TestAggregatesSortedByNameThenKey(t *testing.T) {
	records := []domain.MatchedRecord{
		matchedRecord("z9", "stattgefunden"),
		matchedRecord("a1", "stattgefunden"),
	}

	aggregates := FromMatched(domain.TypeFirstMeeting, records, nil, domain.Filter{})
	if aggregates[0].AdvisorKey != "a1" || aggregates[1].AdvisorKey != "z9" {
		t.Fatalf("expected name ordering, got %s then %s", aggregates[0].AdvisorKey, aggregates[1].AdvisorKey)
	}
}
