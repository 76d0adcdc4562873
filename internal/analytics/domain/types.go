// Package domain defines the core types of the reconciliation engine:
// calendar events from the scheduling provider, activity records from the
// CRM, and the derived match and aggregate shapes.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentType identifies one of the five meeting categories tracked by
// the sales dashboards. Values follow the CRM's activity type slugs.
type AppointmentType string

const (
	TypePrequalification AppointmentType = "vorqualifizierung"
	TypeFirstMeeting     AppointmentType = "erstgespraech"
	TypeConceptMeeting   AppointmentType = "konzeptgespraech"
	TypeImplementation   AppointmentType = "umsetzungsgespraech"
	TypeServiceMeeting   AppointmentType = "servicegespraech"
)

// AllAppointmentTypes returns the fixed set of tracked appointment types.
func AllAppointmentTypes() []AppointmentType {
	return []AppointmentType{
		TypePrequalification,
		TypeFirstMeeting,
		TypeConceptMeeting,
		TypeImplementation,
		TypeServiceMeeting,
	}
}

// ParseAppointmentType validates a raw type string.
func ParseAppointmentType(raw string) (AppointmentType, error) {
	t := AppointmentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllAppointmentTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown appointment type %q", raw)
}

// EventStatus is the scheduling provider's lifecycle status for an event.
type EventStatus string

const (
	EventStatusActive   EventStatus = "active"
	EventStatusCanceled EventStatus = "canceled"
)

// HostIdentity identifies the advisor hosting a calendar event.
type HostIdentity struct {
	DisplayName string
	OwnerID     string
	Email       string
}

// InviteeIdentity identifies the customer attending a calendar event.
type InviteeIdentity struct {
	DisplayName string
	Email       string
	Phone       string
}

// CalendarEvent is one scheduled meeting as supplied by the scheduling
// provider. Read-only to the engine and immutable within one aggregation
// pass.
type CalendarEvent struct {
	ID                   string
	ExternalEventID      string
	StartTime            time.Time
	Status               EventStatus
	Host                 HostIdentity
	Invitee              InviteeIdentity
	ExternalLeadID       string
	AppointmentType      AppointmentType
	AppointmentTypeLabel string
	DurationMinutes      int
	OpportunityValue     float64
}

// OwnerIdentity identifies the advisor who logged an activity record.
type OwnerIdentity struct {
	OwnerID     string
	Email       string
	DisplayName string
}

// ActivityRecord is one outcome entry logged against a lead in the CRM.
type ActivityRecord struct {
	ID              string
	ExternalLeadID  string
	AppointmentType AppointmentType
	CreatedAt       time.Time
	Outcome         string
	Owner           OwnerIdentity
}

// MatchStatus describes whether a calendar event found its activity record.
type MatchStatus string

const (
	// MatchStatusMatched means an activity record was found for the event.
	MatchStatusMatched MatchStatus = "matched"
	// MatchStatusMissing means the event is in the past with no record.
	MatchStatusMissing MatchStatus = "missing"
	// MatchStatusPending means the event is in the future with no record.
	MatchStatusPending MatchStatus = "pending"
)

// MatchedRecord pairs one calendar event with zero or one activity record.
// Derived, never persisted as an independent entity.
type MatchedRecord struct {
	Event    CalendarEvent
	Activity *ActivityRecord
	Status   MatchStatus
	// Confidence is a heuristic ordering signal in [0,1], only meaningful
	// when Status is matched. It never alters which match is chosen.
	Confidence float64
}

// OutcomeBucket is one slot of an appointment type's outcome taxonomy.
type OutcomeBucket string

const (
	BucketTookPlace         OutcomeBucket = "took_place"
	BucketNoShow            OutcomeBucket = "no_show"
	BucketCustomerCancelled OutcomeBucket = "customer_cancelled"
	BucketAdvisorCancelled  OutcomeBucket = "advisor_cancelled"
	BucketRescheduled       OutcomeBucket = "rescheduled"
	BucketWon               OutcomeBucket = "won"
	BucketLost              OutcomeBucket = "lost"
	BucketUndecided         OutcomeBucket = "undecided"
	BucketCrossSell         OutcomeBucket = "cross_sell_identified"
	BucketCancelled         OutcomeBucket = "cancelled"
	BucketQualified         OutcomeBucket = "qualified"
	BucketUnqualified       OutcomeBucket = "unqualified"
	BucketFollowUpNeeded    OutcomeBucket = "follow_up_needed"
	BucketNotReached        OutcomeBucket = "not_reached"
	BucketNoInterest        OutcomeBucket = "no_interest"
)

// StatusIndicator is the per-advisor documentation health signal.
type StatusIndicator string

const (
	StatusMissingDocs StatusIndicator = "missing_docs"
	StatusHighNoShow  StatusIndicator = "high_no_show"
	StatusModerate    StatusIndicator = "moderate"
	StatusGood        StatusIndicator = "good"
	// StatusPendingData marks aggregates rebuilt from the scheduling
	// provider's breakdown alone, where no documentation data exists yet.
	StatusPendingData StatusIndicator = "pending_data"
)

// AdvisorAggregate is one advisor's row in a computed dashboard view.
type AdvisorAggregate struct {
	AdvisorKey      string
	AdvisorName     string
	PlannedCount    int
	DocumentedCount int
	CompletionRate  int
	MissingCount    int
	OutcomeCounts   map[OutcomeBucket]int
	// TotalClassified counts every matched outcome, including ones no
	// taxonomy bucket recognized.
	TotalClassified int
	Status          StatusIndicator
}

// AdvisorCompletion is one row of the primary pre-computed per-advisor
// planned/documented aggregate consumed ahead of any reconstruction.
type AdvisorCompletion struct {
	AdvisorKey      string
	AdvisorName     string
	PlannedCount    int
	DocumentedCount int
}

// ProviderBreakdown is the scheduling provider's own per-advisor event
// count, the weakest reconstruction source.
type ProviderBreakdown struct {
	AdvisorKey     string
	AdvisorName    string
	ScheduledCount int
}

// Filter is the immutable parameter set of one engine pass. Recomputation
// is a pure function of (snapshots, filter).
type Filter struct {
	From        time.Time
	To          time.Time
	AdvisorKeys []string
	Types       []AppointmentType
}

// MatchesAdvisor reports whether the filter admits the given advisor key.
// An empty key list admits everyone.
func (f Filter) MatchesAdvisor(key string) bool {
	if len(f.AdvisorKeys) == 0 {
		return true
	}
	for _, k := range f.AdvisorKeys {
		if k == key {
			return true
		}
	}
	return false
}

// MatchesType reports whether the filter admits the given appointment type.
func (f Filter) MatchesType(t AppointmentType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, ft := range f.Types {
		if ft == t {
			return true
		}
	}
	return false
}
