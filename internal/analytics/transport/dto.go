package transport

import (
	"time"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/projection"
	"advisor_analytics_backend/internal/analytics/service"
)

// MatchedListRequest is the query parameters for listing matched records.
type MatchedListRequest struct {
	Type     string `form:"type" validate:"required,oneof=vorqualifizierung erstgespraech konzeptgespraech umsetzungsgespraech servicegespraech"`
	From     string `form:"from" validate:"required"` // ISO date
	To       string `form:"to" validate:"required"`   // ISO date
	Advisors string `form:"advisors"`                 // CSV of advisor keys
}

// StatsRequest is the query parameters for the advisor stats view.
type StatsRequest struct {
	Type     string `form:"type" validate:"required,oneof=vorqualifizierung erstgespraech konzeptgespraech umsetzungsgespraech servicegespraech"`
	From     string `form:"from" validate:"required"`
	To       string `form:"to" validate:"required"`
	Advisors string `form:"advisors"`
}

// CompletionRequest is the query parameters for the completion table.
type CompletionRequest struct {
	Type     string `form:"type" validate:"omitempty,oneof=vorqualifizierung erstgespraech konzeptgespraech umsetzungsgespraech servicegespraech"`
	From     string `form:"from" validate:"required"`
	To       string `form:"to" validate:"required"`
	Advisors string `form:"advisors"`
}

// ForecastRequest is the query parameters for the forecast view.
type ForecastRequest struct {
	Days     int    `form:"days" validate:"omitempty,min=1,max=365"`
	Types    string `form:"types"` // CSV of appointment types
	Advisors string `form:"advisors"`
}

// BackcastRequest is the query parameters for the backcast view.
type BackcastRequest struct {
	From     string `form:"from" validate:"required"`
	To       string `form:"to" validate:"required"`
	Types    string `form:"types"`
	Advisors string `form:"advisors"`
}

// ActivityResponse is the embedded activity in a matched record.
type ActivityResponse struct {
	ID             string    `json:"id"`
	ExternalLeadID string    `json:"externalLeadId,omitempty"`
	Outcome        string    `json:"outcome"`
	CreatedAt      time.Time `json:"createdAt"`
	OwnerName      string    `json:"ownerName,omitempty"`
	OwnerEmail     string    `json:"ownerEmail,omitempty"`
}

// MatchedRecordResponse is one event with its match result.
type MatchedRecordResponse struct {
	EventID         string            `json:"eventId"`
	ExternalEventID string            `json:"externalEventId"`
	StartTime       time.Time         `json:"startTime"`
	EventStatus     string            `json:"eventStatus"`
	AdvisorName     string            `json:"advisorName"`
	InviteeName     string            `json:"inviteeName"`
	InviteeEmail    string            `json:"inviteeEmail,omitempty"`
	MatchStatus     string            `json:"matchStatus"`
	Confidence      *float64          `json:"confidence,omitempty"`
	Activity        *ActivityResponse `json:"activity,omitempty"`
}

// AdvisorAggregateResponse is one advisor's stats row.
type AdvisorAggregateResponse struct {
	AdvisorKey      string         `json:"advisorKey"`
	AdvisorName     string         `json:"advisorName"`
	PlannedCount    int            `json:"plannedCount"`
	DocumentedCount int            `json:"documentedCount"`
	CompletionRate  int            `json:"completionRate"`
	MissingCount    int            `json:"missingCount"`
	OutcomeCounts   map[string]int `json:"outcomeCounts"`
	TotalClassified int            `json:"totalClassified"`
	Status          string         `json:"status"`
}

// StatsResponse is the advisor stats view.
type StatsResponse struct {
	Aggregates []AdvisorAggregateResponse `json:"aggregates"`
	Source     string                     `json:"source"`
	Insights   []service.Insight          `json:"insights"`
}

// CompletionRowResponse is one advisor's completion-table row.
type CompletionRowResponse struct {
	AdvisorKey      string `json:"advisorKey"`
	AdvisorName     string `json:"advisorName"`
	PlannedCount    int    `json:"plannedCount"`
	DocumentedCount int    `json:"documentedCount"`
	CompletionRate  int    `json:"completionRate"`
	MissingCount    int    `json:"missingCount"`
}

// ForecastResultResponse is one advisor's forecast row.
type ForecastResultResponse struct {
	AdvisorKey       string         `json:"advisorKey"`
	AdvisorName      string         `json:"advisorName"`
	TotalEvents      int            `json:"totalEvents"`
	CountsByType     map[string]int `json:"countsByType"`
	OpportunityValue float64        `json:"opportunityValue"`
	AvgPerDay        float64        `json:"avgPerDay"`
}

// BackcastResultResponse is one advisor's backcast row.
type BackcastResultResponse struct {
	AdvisorKey             string `json:"advisorKey"`
	AdvisorName            string `json:"advisorName"`
	TotalEvents            int    `json:"totalEvents"`
	HeldCount              int    `json:"heldCount"`
	HeldRate               int    `json:"heldRate"`
	FollowUpScheduledCount int    `json:"followUpScheduledCount"`
	FollowUpRate           int    `json:"followUpRate"`
	ActivityFilledCount    int    `json:"activityFilledCount"`
	ActivityFilledRate     int    `json:"activityFilledRate"`
}

// ToMatchedResponse maps a matched record to its response shape.
func ToMatchedResponse(r domain.MatchedRecord) MatchedRecordResponse {
	resp := MatchedRecordResponse{
		EventID:         r.Event.ID,
		ExternalEventID: r.Event.ExternalEventID,
		StartTime:       r.Event.StartTime,
		EventStatus:     string(r.Event.Status),
		AdvisorName:     r.Event.Host.DisplayName,
		InviteeName:     r.Event.Invitee.DisplayName,
		InviteeEmail:    r.Event.Invitee.Email,
		MatchStatus:     string(r.Status),
	}
	if r.Status == domain.MatchStatusMatched && r.Activity != nil {
		confidence := r.Confidence
		resp.Confidence = &confidence
		resp.Activity = &ActivityResponse{
			ID:             r.Activity.ID,
			ExternalLeadID: r.Activity.ExternalLeadID,
			Outcome:        r.Activity.Outcome,
			CreatedAt:      r.Activity.CreatedAt,
			OwnerName:      r.Activity.Owner.DisplayName,
			OwnerEmail:     r.Activity.Owner.Email,
		}
	}
	return resp
}

// ToStatsResponse maps a stats result to its response shape.
func ToStatsResponse(result *service.StatsResult) StatsResponse {
	aggregates := make([]AdvisorAggregateResponse, 0, len(result.Aggregates))
	for _, a := range result.Aggregates {
		counts := make(map[string]int, len(a.OutcomeCounts))
		for bucket, count := range a.OutcomeCounts {
			counts[string(bucket)] = count
		}
		aggregates = append(aggregates, AdvisorAggregateResponse{
			AdvisorKey:      a.AdvisorKey,
			AdvisorName:     a.AdvisorName,
			PlannedCount:    a.PlannedCount,
			DocumentedCount: a.DocumentedCount,
			CompletionRate:  a.CompletionRate,
			MissingCount:    a.MissingCount,
			OutcomeCounts:   counts,
			TotalClassified: a.TotalClassified,
			Status:          string(a.Status),
		})
	}
	return StatsResponse{
		Aggregates: aggregates,
		Source:     string(result.Source),
		Insights:   result.Insights,
	}
}

// ToForecastResponse maps forecast rows to their response shape.
func ToForecastResponse(results []projection.ForecastResult) []ForecastResultResponse {
	responses := make([]ForecastResultResponse, 0, len(results))
	for _, r := range results {
		counts := make(map[string]int, len(r.CountsByType))
		for t, count := range r.CountsByType {
			counts[string(t)] = count
		}
		responses = append(responses, ForecastResultResponse{
			AdvisorKey:       r.AdvisorKey,
			AdvisorName:      r.AdvisorName,
			TotalEvents:      r.TotalEvents,
			CountsByType:     counts,
			OpportunityValue: r.OpportunityValue,
			AvgPerDay:        r.AvgPerDay,
		})
	}
	return responses
}

// ToBackcastResponse maps backcast rows to their response shape.
func ToBackcastResponse(results []projection.BackcastResult) []BackcastResultResponse {
	responses := make([]BackcastResultResponse, 0, len(results))
	for _, r := range results {
		responses = append(responses, BackcastResultResponse{
			AdvisorKey:             r.AdvisorKey,
			AdvisorName:            r.AdvisorName,
			TotalEvents:            r.TotalEvents,
			HeldCount:              r.HeldCount,
			HeldRate:               r.HeldRate,
			FollowUpScheduledCount: r.FollowUpScheduledCount,
			FollowUpRate:           r.FollowUpRate,
			ActivityFilledCount:    r.ActivityFilledCount,
			ActivityFilledRate:     r.ActivityFilledRate,
		})
	}
	return responses
}
