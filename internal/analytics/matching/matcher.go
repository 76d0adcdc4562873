// Package matching pairs calendar events with CRM activity records using
// identity and temporal proximity.
package matching

import (
	"sort"
	"time"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/identity"
)

// DefaultToleranceDays is how far apart an event and its activity record may
// lie and still be considered the same meeting.
const DefaultToleranceDays = 3

const (
	emailBaseConfidence  = 0.9
	leadIDBaseConfidence = 0.6
	maxDatePenalty       = 0.3
)

// Matcher produces one MatchedRecord per calendar event. Selection is greedy
// per event: an email match beats a lead-id-only match, ties go to the
// smaller date distance. One activity record may end up referenced by more
// than one event under ambiguous inputs; the confidence score surfaces this,
// the matcher does not prevent it.
type Matcher struct {
	tolerance time.Duration
	now       func() time.Time
}

// New creates a matcher with the given tolerance in days. A non-positive
// value falls back to the default.
func New(toleranceDays int) *Matcher {
	if toleranceDays <= 0 {
		toleranceDays = DefaultToleranceDays
	}
	return &Matcher{
		tolerance: time.Duration(toleranceDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// WithNow overrides the clock used to decide missing vs pending. Intended
// for tests.
func (m *Matcher) WithNow(now func() time.Time) *Matcher {
	m.now = now
	return m
}

// Match runs the pairing pass over two immutable snapshots. Events with no
// usable timestamp are excluded from the output rather than failing the
// batch; the returned skip count lets callers emit a diagnostic.
func (m *Matcher) Match(events []domain.CalendarEvent, activities []domain.ActivityRecord) ([]domain.MatchedRecord, int) {
	now := m.now()

	// Stable activity order keeps the pass deterministic regardless of
	// snapshot order.
	candidates := make([]domain.ActivityRecord, 0, len(activities))
	for _, a := range activities {
		if a.CreatedAt.IsZero() {
			continue
		}
		candidates = append(candidates, a)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	records := make([]domain.MatchedRecord, 0, len(events))
	skipped := 0

	for _, event := range events {
		if event.StartTime.IsZero() {
			skipped++
			continue
		}
		records = append(records, m.matchOne(event, candidates, now))
	}

	return records, skipped
}

func (m *Matcher) matchOne(event domain.CalendarEvent, candidates []domain.ActivityRecord, now time.Time) domain.MatchedRecord {
	eventKey := identity.FromEvent(event)

	var (
		best         *domain.ActivityRecord
		bestByEmail  bool
		bestDistance time.Duration
	)

	for i := range candidates {
		a := &candidates[i]
		distance := absDuration(event.StartTime.Sub(a.CreatedAt))
		if distance > m.tolerance {
			continue
		}

		activityKey := identity.FromActivity(*a)
		emailMatch := eventKey.Email != "" && eventKey.Email == activityKey.Email
		leadIDMatch := eventKey.LeadID != "" && eventKey.LeadID == activityKey.LeadID
		if !emailMatch && !leadIDMatch {
			continue
		}

		if best == nil ||
			(emailMatch && !bestByEmail) ||
			(emailMatch == bestByEmail && distance < bestDistance) {
			best = a
			bestByEmail = emailMatch
			bestDistance = distance
		}
	}

	if best == nil {
		status := domain.MatchStatusPending
		if event.StartTime.Before(now) {
			status = domain.MatchStatusMissing
		}
		return domain.MatchedRecord{Event: event, Status: status}
	}

	activity := *best
	return domain.MatchedRecord{
		Event:      event,
		Activity:   &activity,
		Status:     domain.MatchStatusMatched,
		Confidence: m.confidence(bestByEmail, bestDistance),
	}
}

// confidence ranks a match for diagnostics: email matches start at 0.9,
// lead-id-only at 0.6, both decaying linearly by up to 0.3 toward the
// tolerance boundary.
func (m *Matcher) confidence(byEmail bool, distance time.Duration) float64 {
	base := leadIDBaseConfidence
	if byEmail {
		base = emailBaseConfidence
	}

	penalty := maxDatePenalty * (float64(distance) / float64(m.tolerance))
	score := base - penalty
	if score < 0 {
		score = 0
	}
	return score
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
