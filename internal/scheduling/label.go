package scheduling

import (
	"strings"

	"advisor_analytics_backend/internal/analytics/domain"
)

// labelFragments maps booking page names to appointment types. Fragments
// stop before the umlaut so "Erstgespräch" and "Erstgespraech" both
// resolve.
var labelFragments = []struct {
	fragment string
	t        domain.AppointmentType
}{
	{"erstgespr", domain.TypeFirstMeeting},
	{"konzept", domain.TypeConceptMeeting},
	{"umsetzung", domain.TypeImplementation},
	{"service", domain.TypeServiceMeeting},
	{"vorquali", domain.TypePrequalification},
}

// classifyLabel resolves a free-text booking page name to an appointment
// type. Unrecognized labels default to the first meeting type, the
// provider's dominant booking page.
func classifyLabel(label string) domain.AppointmentType {
	value := strings.ToLower(strings.TrimSpace(label))
	for _, entry := range labelFragments {
		if strings.Contains(value, entry.fragment) {
			return entry.t
		}
	}
	return domain.TypeFirstMeeting
}
