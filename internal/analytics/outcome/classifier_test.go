package outcome

import (
	"testing"

	"advisor_analytics_backend/internal/analytics/domain"
)

func TestClassifyIsCaseInsensitiveContainment(t *testing.T) {
	bucket, ok := Classify(domain.TypeFirstMeeting, "Termin hat STATTGEFUNDEN, Notizen folgen")
	if !ok {
		t.Fatal("expected outcome to classify")
	}
	if bucket != domain.BucketTookPlace {
		t.Fatalf("expected took_place, got %s", bucket)
	}
}

func TestClassifyUnqualifiedBeforeQualified(t *testing.T) {
	bucket, ok := Classify(domain.TypePrequalification, "Lead unqualifiziert")
	if !ok {
		t.Fatal("expected outcome to classify")
	}
	if bucket != domain.BucketUnqualified {
		t.Fatalf("expected unqualified, got %s", bucket)
	}

	bucket, ok = Classify(domain.TypePrequalification, "Lead qualifiziert")
	if !ok || bucket != domain.BucketQualified {
		t.Fatalf("expected qualified, got %s ok=%v", bucket, ok)
	}
}

func TestClassifyUnknownOutcomeReturnsFalse(t *testing.T) {
	if _, ok := Classify(domain.TypeFirstMeeting, "irgendwas anderes"); ok {
		t.Fatal("expected unknown outcome to not classify")
	}
	if _, ok := Classify(domain.TypeFirstMeeting, ""); ok {
		t.Fatal("expected empty outcome to not classify")
	}
}

func TestClassifyImplementationDecisions(t *testing.T) {
	cases := map[string]domain.OutcomeBucket{
		"Deal won":              domain.BucketWon,
		"Vertrag abgeschlossen": domain.BucketWon,
		"lost":                  domain.BucketLost,
		"Kunde hat Bedenkzeit":  domain.BucketUndecided,
		"Termin verschoben":     domain.BucketRescheduled,
		"No-Show ohne Absage":   domain.BucketNoShow,
	}
	for raw, want := range cases {
		bucket, ok := Classify(domain.TypeImplementation, raw)
		if !ok {
			t.Fatalf("expected %q to classify", raw)
		}
		if bucket != want {
			t.Fatalf("outcome %q: expected %s, got %s", raw, want, bucket)
		}
	}
}

func TestClassifyDistinguishesCancellationParties(t *testing.T) {
	bucket, _ := Classify(domain.TypeConceptMeeting, "Ausgefallen (Kunde)")
	if bucket != domain.BucketCustomerCancelled {
		t.Fatalf("expected customer_cancelled, got %s", bucket)
	}
	bucket, _ = Classify(domain.TypeConceptMeeting, "Ausgefallen (Berater)")
	if bucket != domain.BucketAdvisorCancelled {
		t.Fatalf("expected advisor_cancelled, got %s", bucket)
	}
}

func TestIsHeldVariesByAppointmentType(t *testing.T) {
	if !IsHeld(domain.TypeFirstMeeting, domain.BucketTookPlace) {
		t.Fatal("first meeting took_place should be held")
	}
	if IsHeld(domain.TypeFirstMeeting, domain.BucketNoShow) {
		t.Fatal("no_show should not be held")
	}
	if !IsHeld(domain.TypeImplementation, domain.BucketLost) {
		t.Fatal("implementation lost is still a held meeting")
	}
	if !IsHeld(domain.TypePrequalification, domain.BucketUnqualified) {
		t.Fatal("prequalification unqualified is still a held call")
	}
}

func TestBucketsReturnDisplayOrder(t *testing.T) {
	buckets := Buckets(domain.TypeServiceMeeting)
	want := []domain.OutcomeBucket{
		domain.BucketTookPlace,
		domain.BucketCrossSell,
		domain.BucketCancelled,
		domain.BucketRescheduled,
	}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(buckets))
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d: expected %s, got %s", i, want[i], buckets[i])
		}
	}
}
