// Package aggregation groups matched records by advisor and computes the
// per-advisor completion and outcome metrics behind the dashboard views.
package aggregation

import (
	"math"
	"sort"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/identity"
	"advisor_analytics_backend/internal/analytics/outcome"
)

const (
	minCompletionRate      = 50
	moderateCompletionRate = 80
	highNoShowRatio        = 0.20
	moderateNoShowRatio    = 0.10
)

// CompletionRate computes the documentation rate and missing count.
// Documented work without any planned events counts as fully satisfied, not
// as an error.
func CompletionRate(planned, documented int) (rate, missing int) {
	if planned > 0 {
		rate = int(math.Round(float64(documented) / float64(planned) * 100))
		missing = planned - documented
		if missing < 0 {
			missing = 0
		}
		return rate, missing
	}
	if documented > 0 {
		return 100, 0
	}
	return 0, 0
}

// StatusFor applies the advisor health decision table, first match wins.
// A zero classified total yields a zero no-show ratio, never a division
// error.
func StatusFor(completionRate, noShowCount, totalClassified int) domain.StatusIndicator {
	noShowRatio := 0.0
	if totalClassified > 0 {
		noShowRatio = float64(noShowCount) / float64(totalClassified)
	}

	switch {
	case completionRate < minCompletionRate:
		return domain.StatusMissingDocs
	case noShowRatio > highNoShowRatio:
		return domain.StatusHighNoShow
	case noShowRatio > moderateNoShowRatio || completionRate < moderateCompletionRate:
		return domain.StatusModerate
	default:
		return domain.StatusGood
	}
}

// group is one advisor's accumulator during a pass.
type group struct {
	key        string
	name       string
	planned    int
	documented int
	counts     map[domain.OutcomeBucket]int
	classified int
	noShows    int
}

// FromMatched rebuilds advisor aggregates from matched records plus the full
// event collection for planned counts. This is also the first reconstruction
// tier when the pre-computed completion source is empty.
func FromMatched(appointmentType domain.AppointmentType, records []domain.MatchedRecord, events []domain.CalendarEvent, f domain.Filter) []domain.AdvisorAggregate {
	groups := map[string]*group{}

	for _, e := range events {
		if e.Status != domain.EventStatusActive {
			continue
		}
		key := identity.FromEvent(e)
		if key.OwnerKey == "" || !f.MatchesAdvisor(key.OwnerKey) {
			continue
		}
		g := ensureGroup(groups, key.OwnerKey, key.OwnerName)
		g.planned++
	}

	for _, r := range records {
		key := identity.FromEvent(r.Event)
		if key.OwnerKey == "" || !f.MatchesAdvisor(key.OwnerKey) {
			continue
		}
		g := ensureGroup(groups, key.OwnerKey, key.OwnerName)
		if r.Status != domain.MatchStatusMatched || r.Activity == nil {
			continue
		}
		g.documented++
		g.classified++
		bucket, ok := outcome.Classify(appointmentType, r.Activity.Outcome)
		if !ok {
			// Unrecognized outcomes stay in the raw total only.
			continue
		}
		g.counts[bucket]++
		if bucket == domain.BucketNoShow {
			g.noShows++
		}
	}

	return finalize(groups)
}

// FromPrimary builds aggregates from the pre-computed completion source,
// enriched with outcome buckets from the matched pass. The documented count
// is raised to the matched-derived value when the matched pass saw more than
// the upstream aggregate did.
func FromPrimary(appointmentType domain.AppointmentType, primary []domain.AdvisorCompletion, records []domain.MatchedRecord, f domain.Filter) []domain.AdvisorAggregate {
	matched := FromMatched(appointmentType, records, nil, domain.Filter{})
	byKey := make(map[string]domain.AdvisorAggregate, len(matched))
	for _, m := range matched {
		byKey[m.AdvisorKey] = m
	}

	groups := map[string]*group{}
	for _, row := range primary {
		if row.AdvisorKey == "" || !f.MatchesAdvisor(row.AdvisorKey) {
			continue
		}
		g := ensureGroup(groups, row.AdvisorKey, row.AdvisorName)
		g.planned += row.PlannedCount
		g.documented += row.DocumentedCount

		if m, ok := byKey[row.AdvisorKey]; ok {
			if m.DocumentedCount > g.documented {
				g.documented = m.DocumentedCount
			}
			for bucket, count := range m.OutcomeCounts {
				g.counts[bucket] += count
				if bucket == domain.BucketNoShow {
					g.noShows += count
				}
			}
			g.classified += m.TotalClassified
		}
	}

	return finalize(groups)
}

// FromBreakdown builds placeholder aggregates from the scheduling provider's
// per-advisor counts alone. No documentation data exists on this path, so
// every row carries the pending-data marker.
func FromBreakdown(breakdown []domain.ProviderBreakdown, f domain.Filter) []domain.AdvisorAggregate {
	aggregates := make([]domain.AdvisorAggregate, 0, len(breakdown))
	for _, row := range breakdown {
		if row.AdvisorKey == "" || !f.MatchesAdvisor(row.AdvisorKey) {
			continue
		}
		aggregates = append(aggregates, domain.AdvisorAggregate{
			AdvisorKey:    row.AdvisorKey,
			AdvisorName:   row.AdvisorName,
			PlannedCount:  row.ScheduledCount,
			MissingCount:  row.ScheduledCount,
			OutcomeCounts: map[domain.OutcomeBucket]int{},
			Status:        domain.StatusPendingData,
		})
	}
	sortAggregates(aggregates)
	return aggregates
}

func ensureGroup(groups map[string]*group, key, name string) *group {
	g, ok := groups[key]
	if !ok {
		g = &group{key: key, name: name, counts: map[domain.OutcomeBucket]int{}}
		groups[key] = g
	}
	if g.name == "" {
		g.name = name
	}
	return g
}

func finalize(groups map[string]*group) []domain.AdvisorAggregate {
	aggregates := make([]domain.AdvisorAggregate, 0, len(groups))
	for _, g := range groups {
		rate, missing := CompletionRate(g.planned, g.documented)
		aggregates = append(aggregates, domain.AdvisorAggregate{
			AdvisorKey:      g.key,
			AdvisorName:     g.name,
			PlannedCount:    g.planned,
			DocumentedCount: g.documented,
			CompletionRate:  rate,
			MissingCount:    missing,
			OutcomeCounts:   g.counts,
			TotalClassified: g.classified,
			Status:          StatusFor(rate, g.noShows, g.classified),
		})
	}
	sortAggregates(aggregates)
	return aggregates
}

func sortAggregates(aggregates []domain.AdvisorAggregate) {
	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].AdvisorName != aggregates[j].AdvisorName {
			return aggregates[i].AdvisorName < aggregates[j].AdvisorName
		}
		return aggregates[i].AdvisorKey < aggregates[j].AdvisorKey
	})
}
