package scheduling

import (
	"testing"

	"advisor_analytics_backend/internal/analytics/domain"
)

func TestClassifyLabelResolvesUmlautVariants(t *testing.T) {
	cases := map[string]domain.AppointmentType{
		"Erstgespräch 60 Minuten":   domain.TypeFirstMeeting,
		"erstgespraech":             domain.TypeFirstMeeting,
		"Konzeptgespräch":           domain.TypeConceptMeeting,
		"Umsetzungsgespräch online": domain.TypeImplementation,
		"Servicegespräch Bestand":   domain.TypeServiceMeeting,
		"Vorqualifizierung Telefon": domain.TypePrequalification,
	}
	for label, want := range cases {
		if got := classifyLabel(label); got != want {
			t.Fatalf("label %q: expected %s, got %s", label, want, got)
		}
	}
}

func TestClassifyLabelDefaultsToFirstMeeting(t *testing.T) {
	if got := classifyLabel("Kennenlernen"); got != domain.TypeFirstMeeting {
		t.Fatalf("expected first meeting default, got %s", got)
	}
}
