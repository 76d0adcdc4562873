package identity

import (
	"testing"

	"advisor_analytics_backend/internal/analytics/domain"
)

func TestFromEventUsesInviteeEmailNotHostEmail(t *testing.T) {
	event := domain.CalendarEvent{
		Host:    domain.HostIdentity{DisplayName: "Max Berater", Email: "max@firma.de"},
		Invitee: domain.InviteeIdentity{DisplayName: "Kunde", Email: "  Kunde@Example.COM "},
	}

	key := FromEvent(event)
	if key.Email != "kunde@example.com" {
		t.Fatalf("expected normalized invitee email, got %q", key.Email)
	}
}

func TestOwnerKeyPrefersOwnerIDOverEmailOverName(t *testing.T) {
	event := domain.CalendarEvent{
		Host: domain.HostIdentity{DisplayName: "Max Berater", OwnerID: "user_42", Email: "max@firma.de"},
	}
	if key := FromEvent(event); key.OwnerKey != "user_42" {
		t.Fatalf("expected owner id as key, got %q", key.OwnerKey)
	}

	event.Host.OwnerID = ""
	if key := FromEvent(event); key.OwnerKey != "max@firma.de" {
		t.Fatalf("expected email fallback, got %q", key.OwnerKey)
	}

	event.Host.Email = ""
	if key := FromEvent(event); key.OwnerKey != "Max Berater" {
		t.Fatalf("expected display name fallback, got %q", key.OwnerKey)
	}
}

func TestFromActivityTrimsLeadID(t *testing.T) {
	activity := domain.ActivityRecord{
		ExternalLeadID: " lead_7 ",
		Owner:          domain.OwnerIdentity{Email: "Berater@Firma.DE"},
	}

	key := FromActivity(activity)
	if key.LeadID != "lead_7" {
		t.Fatalf("expected trimmed lead id, got %q", key.LeadID)
	}
	if key.Email != "berater@firma.de" {
		t.Fatalf("expected normalized email, got %q", key.Email)
	}
}
