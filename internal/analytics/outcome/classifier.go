// Package outcome maps free-text CRM outcome values onto the fixed
// per-appointment-type taxonomies used by the dashboards.
package outcome

import (
	"strings"

	"advisor_analytics_backend/internal/analytics/domain"
)

// fragment is one containment rule: an outcome containing any of the phrases
// (case-insensitive) lands in the bucket. Rules are evaluated in order, first
// hit wins.
type fragment struct {
	bucket  domain.OutcomeBucket
	phrases []string
}

// Per-type fragment tables. Phrases follow the CRM's German outcome labels.
// Order matters where one label contains another ("unqualifiziert" must be
// tested before "qualifiziert").
var taxonomies = map[domain.AppointmentType][]fragment{
	domain.TypeFirstMeeting: {
		{domain.BucketTookPlace, []string{"stattgefunden"}},
		{domain.BucketNoShow, []string{"no-show", "no show"}},
		{domain.BucketCustomerCancelled, []string{"ausgefallen (kunde)", "ausgefallen kunde"}},
		{domain.BucketAdvisorCancelled, []string{"ausgefallen (berater)", "ausgefallen berater"}},
		{domain.BucketRescheduled, []string{"verschoben"}},
	},
	domain.TypeConceptMeeting: {
		{domain.BucketTookPlace, []string{"stattgefunden"}},
		{domain.BucketNoShow, []string{"no-show", "no show"}},
		{domain.BucketCustomerCancelled, []string{"ausgefallen (kunde)", "ausgefallen kunde"}},
		{domain.BucketAdvisorCancelled, []string{"ausgefallen (berater)", "ausgefallen berater"}},
		{domain.BucketRescheduled, []string{"verschoben"}},
	},
	domain.TypeImplementation: {
		{domain.BucketWon, []string{"won", "abgeschlossen"}},
		{domain.BucketLost, []string{"lost", "abgelehnt"}},
		{domain.BucketUndecided, []string{"bedenkzeit"}},
		{domain.BucketRescheduled, []string{"verschoben"}},
		{domain.BucketNoShow, []string{"no-show", "no show"}},
	},
	domain.TypeServiceMeeting: {
		{domain.BucketTookPlace, []string{"stattgefunden"}},
		{domain.BucketCrossSell, []string{"cross-sell", "cross sell"}},
		{domain.BucketCancelled, []string{"ausgefallen"}},
		{domain.BucketRescheduled, []string{"verschoben"}},
	},
	domain.TypePrequalification: {
		{domain.BucketUnqualified, []string{"unqualifiziert"}},
		{domain.BucketQualified, []string{"qualifiziert"}},
		{domain.BucketFollowUpNeeded, []string{"follow-up", "follow up"}},
		{domain.BucketNotReached, []string{"nicht erreicht"}},
		{domain.BucketNoInterest, []string{"kein interesse"}},
	},
}

// Buckets returns the taxonomy buckets for an appointment type in display
// order.
func Buckets(t domain.AppointmentType) []domain.OutcomeBucket {
	rules := taxonomies[t]
	buckets := make([]domain.OutcomeBucket, 0, len(rules))
	for _, rule := range rules {
		buckets = append(buckets, rule.bucket)
	}
	return buckets
}

// Classify resolves a raw outcome value to its taxonomy bucket. The second
// return is false when no fragment matches; such outcomes still count toward
// raw totals, callers must not drop them.
func Classify(t domain.AppointmentType, raw string) (domain.OutcomeBucket, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", false
	}

	for _, rule := range taxonomies[t] {
		if containsAny(value, rule.phrases) {
			return rule.bucket, true
		}
	}
	return "", false
}

// IsHeld reports whether a bucket counts as "the meeting took place" for the
// given type. Implementation meetings are held when they reached a decision.
func IsHeld(t domain.AppointmentType, b domain.OutcomeBucket) bool {
	switch t {
	case domain.TypeImplementation:
		return b == domain.BucketWon || b == domain.BucketLost || b == domain.BucketUndecided
	case domain.TypePrequalification:
		return b == domain.BucketQualified || b == domain.BucketUnqualified
	default:
		return b == domain.BucketTookPlace
	}
}

func containsAny(value string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(value, phrase) {
			return true
		}
	}
	return false
}
