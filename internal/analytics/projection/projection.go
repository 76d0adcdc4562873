// Package projection applies the advisor grouping machinery to a future
// window (forecast) or a historical window (backcast).
package projection

import (
	"math"
	"sort"
	"time"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/identity"
	"advisor_analytics_backend/internal/analytics/outcome"
)

// ForecastResult is one advisor's upcoming workload over the horizon.
type ForecastResult struct {
	AdvisorKey       string
	AdvisorName      string
	TotalEvents      int
	CountsByType     map[domain.AppointmentType]int
	OpportunityValue float64
	AvgPerDay        float64
}

// BackcastResult is one advisor's historical documentation record.
type BackcastResult struct {
	AdvisorKey  string
	AdvisorName string
	TotalEvents int
	HeldCount   int
	HeldRate    int
	// FollowUpScheduledCount proxies "a follow-up was booked" by "the
	// meeting took place". A known approximation, not a verified signal.
	FollowUpScheduledCount int
	FollowUpRate           int
	ActivityFilledCount    int
	ActivityFilledRate     int
}

// Forecast groups active events in [now, now + horizonDays] by advisor.
// Events outside the window, canceled events, and filtered-out advisors or
// types are excluded. AvgPerDay is rounded to one decimal.
func Forecast(events []domain.CalendarEvent, now time.Time, horizonDays int, f domain.Filter) []ForecastResult {
	if horizonDays < 1 {
		horizonDays = 1
	}
	end := now.AddDate(0, 0, horizonDays)

	type forecastGroup struct {
		result ForecastResult
	}
	groups := map[string]*forecastGroup{}

	for _, e := range events {
		if e.Status != domain.EventStatusActive || e.StartTime.IsZero() {
			continue
		}
		if e.StartTime.Before(now) || e.StartTime.After(end) {
			continue
		}
		if !f.MatchesType(e.AppointmentType) {
			continue
		}
		key := identity.FromEvent(e)
		if key.OwnerKey == "" || !f.MatchesAdvisor(key.OwnerKey) {
			continue
		}

		g, ok := groups[key.OwnerKey]
		if !ok {
			g = &forecastGroup{result: ForecastResult{
				AdvisorKey:   key.OwnerKey,
				AdvisorName:  key.OwnerName,
				CountsByType: map[domain.AppointmentType]int{},
			}}
			groups[key.OwnerKey] = g
		}
		g.result.TotalEvents++
		g.result.CountsByType[e.AppointmentType]++
		g.result.OpportunityValue += e.OpportunityValue
	}

	results := make([]ForecastResult, 0, len(groups))
	for _, g := range groups {
		g.result.AvgPerDay = roundOneDecimal(float64(g.result.TotalEvents) / float64(horizonDays))
		results = append(results, g.result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].AdvisorName != results[j].AdvisorName {
			return results[i].AdvisorName < results[j].AdvisorName
		}
		return results[i].AdvisorKey < results[j].AdvisorKey
	})
	return results
}

// Backcast groups matched records in [from, to] by advisor and derives held
// and documentation rates, all rounded to integer percent.
func Backcast(records []domain.MatchedRecord, from, to time.Time, f domain.Filter) []BackcastResult {
	groups := map[string]*BackcastResult{}

	for _, r := range records {
		e := r.Event
		if e.StartTime.IsZero() || e.StartTime.Before(from) || e.StartTime.After(to) {
			continue
		}
		if !f.MatchesType(e.AppointmentType) {
			continue
		}
		key := identity.FromEvent(e)
		if key.OwnerKey == "" || !f.MatchesAdvisor(key.OwnerKey) {
			continue
		}

		g, ok := groups[key.OwnerKey]
		if !ok {
			g = &BackcastResult{AdvisorKey: key.OwnerKey, AdvisorName: key.OwnerName}
			groups[key.OwnerKey] = g
		}
		g.TotalEvents++

		if r.Activity == nil || r.Activity.Outcome == "" {
			continue
		}
		g.ActivityFilledCount++

		bucket, ok := outcome.Classify(e.AppointmentType, r.Activity.Outcome)
		if ok && outcome.IsHeld(e.AppointmentType, bucket) {
			g.HeldCount++
			g.FollowUpScheduledCount++
		}
	}

	results := make([]BackcastResult, 0, len(groups))
	for _, g := range groups {
		if g.TotalEvents > 0 {
			g.HeldRate = roundPercent(g.HeldCount, g.TotalEvents)
			g.FollowUpRate = roundPercent(g.FollowUpScheduledCount, g.TotalEvents)
			g.ActivityFilledRate = roundPercent(g.ActivityFilledCount, g.TotalEvents)
		}
		results = append(results, *g)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].AdvisorName != results[j].AdvisorName {
			return results[i].AdvisorName < results[j].AdvisorName
		}
		return results[i].AdvisorKey < results[j].AdvisorKey
	})
	return results
}

func roundOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}

func roundPercent(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}
