// Package identity extracts comparable identities from calendar events and
// activity records. Matching relies on email and lead id only; display names
// are a last-resort grouping key and never used for event-activity pairing.
package identity

import (
	"strings"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/platform/phone"
)

// Key is the canonical identity tuple of one record. Empty strings stand in
// for absent fields.
type Key struct {
	Email    string
	LeadID   string
	OwnerKey string
	// OwnerName keeps the raw display name for presentation alongside the
	// grouping key.
	OwnerName string
}

// NormalizeEmail lowercases and trims an email for comparison.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizePhone formats an invitee phone number to E.164 so differently
// written numbers compare equal.
func NormalizePhone(raw string) string {
	return phone.NormalizeE164(raw)
}

// FromEvent derives the identity of a calendar event. The email is the
// invitee's (the customer who booked), the owner key identifies the hosting
// advisor.
func FromEvent(e domain.CalendarEvent) Key {
	return Key{
		Email:     NormalizeEmail(e.Invitee.Email),
		LeadID:    strings.TrimSpace(e.ExternalLeadID),
		OwnerKey:  ownerKey(e.Host.OwnerID, e.Host.Email, e.Host.DisplayName),
		OwnerName: strings.TrimSpace(e.Host.DisplayName),
	}
}

// FromActivity derives the identity of a CRM activity record. The email is
// the lead's contact email held by the record owner.
func FromActivity(a domain.ActivityRecord) Key {
	return Key{
		Email:     NormalizeEmail(a.Owner.Email),
		LeadID:    strings.TrimSpace(a.ExternalLeadID),
		OwnerKey:  ownerKey(a.Owner.OwnerID, a.Owner.Email, a.Owner.DisplayName),
		OwnerName: strings.TrimSpace(a.Owner.DisplayName),
	}
}

// ownerKey picks the best available advisor identifier: owner id, then
// email, then display name.
func ownerKey(ownerID, email, displayName string) string {
	if id := strings.TrimSpace(ownerID); id != "" {
		return id
	}
	if mail := NormalizeEmail(email); mail != "" {
		return mail
	}
	return strings.TrimSpace(displayName)
}
