package aggregation

import (
	"advisor_analytics_backend/internal/analytics/domain"
)

// Source names which reconstruction path produced a result set.
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceMatched   Source = "matched"
	SourceBreakdown Source = "provider_breakdown"
	SourceEmpty     Source = "empty"
)

// Inputs carries everything one synthesis pass may draw on.
type Inputs struct {
	AppointmentType domain.AppointmentType
	Primary         []domain.AdvisorCompletion
	Records         []domain.MatchedRecord
	Events          []domain.CalendarEvent
	Breakdown       []domain.ProviderBreakdown
}

// Synthesize produces advisor aggregates from the strongest available
// source. Tiers are tried in order and the first non-empty result is
// returned verbatim; sources are never merged across tiers. An empty final
// result means "no data for this window", not a fault.
func Synthesize(in Inputs, f domain.Filter) ([]domain.AdvisorAggregate, Source) {
	if len(in.Primary) > 0 {
		if aggregates := FromPrimary(in.AppointmentType, in.Primary, in.Records, f); len(aggregates) > 0 {
			return aggregates, SourcePrimary
		}
	}

	if aggregates := FromMatched(in.AppointmentType, in.Records, in.Events, f); len(aggregates) > 0 {
		return aggregates, SourceMatched
	}

	if aggregates := FromBreakdown(in.Breakdown, f); len(aggregates) > 0 {
		return aggregates, SourceBreakdown
	}

	return []domain.AdvisorAggregate{}, SourceEmpty
}
