// Package crm provides the HTTP client for the CRM's custom activity API.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/platform/apperr"
	"advisor_analytics_backend/platform/config"
	"advisor_analytics_backend/platform/logger"

	"golang.org/x/time/rate"
)

const pageLimit = 100

// activityTypeIDs maps appointment types to the CRM's custom activity type
// ids configured for this workspace.
var activityTypeIDs = map[domain.AppointmentType]string{
	domain.TypePrequalification: "actitype_vorqualifizierung",
	domain.TypeFirstMeeting:     "actitype_erstgespraech",
	domain.TypeConceptMeeting:   "actitype_konzeptgespraech",
	domain.TypeImplementation:   "actitype_umsetzungsgespraech",
	domain.TypeServiceMeeting:   "actitype_servicegespraech",
}

// Client is the HTTP client for the CRM activity API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	log        *logger.Logger
}

// New creates a new CRM client.
func New(cfg config.CRMConfig, log *logger.Logger) *Client {
	rps := cfg.GetCRMRequestsPerSecond()
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    cfg.GetCRMAPIBaseURL(),
		apiKey:     cfg.GetCRMAPIKey(),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		log:        log,
	}
}

// wire shapes of the CRM's custom activity endpoint.
type activitiesPage struct {
	Data    []wireActivity `json:"data"`
	HasMore bool           `json:"has_more"`
}

type wireActivity struct {
	ID           string    `json:"id"`
	LeadID       string    `json:"lead_id"`
	DateCreated  time.Time `json:"date_created"`
	Outcome      string    `json:"custom.ergebnis"`
	ContactEmail string    `json:"custom.kontakt_email"`
	CreatedByID  string    `json:"created_by"`
	CreatedBy    string    `json:"created_by_name"`
}

// ListActivities fetches every activity of one appointment type in the
// window, paging until the CRM reports no more data.
func (c *Client) ListActivities(ctx context.Context, appointmentType domain.AppointmentType, from, to time.Time) ([]domain.ActivityRecord, error) {
	typeID, ok := activityTypeIDs[appointmentType]
	if !ok {
		return nil, apperr.BadRequest(fmt.Sprintf("no CRM activity type for %q", appointmentType))
	}

	activities := make([]domain.ActivityRecord, 0)
	skip := 0

	for {
		page, err := c.fetchPage(ctx, typeID, from, to, skip)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Data {
			activities = append(activities, toDomain(raw, appointmentType))
		}

		if !page.HasMore {
			return activities, nil
		}
		skip += len(page.Data)
	}
}

func (c *Client) fetchPage(ctx context.Context, typeID string, from, to time.Time, skip int) (*activitiesPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("custom_activity_type_id", typeID)
	params.Set("date_created__gte", from.UTC().Format(time.RFC3339))
	params.Set("date_created__lte", to.UTC().Format(time.RFC3339))
	params.Set("_limit", fmt.Sprintf("%d", pageLimit))
	params.Set("_skip", fmt.Sprintf("%d", skip))

	reqURL := fmt.Sprintf("%s/activity/custom?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("crm unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Upstream(fmt.Sprintf("crm returned status %d", resp.StatusCode), nil)
	}

	var page activitiesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, apperr.Upstream("crm response malformed", err)
	}
	return &page, nil
}

func toDomain(raw wireActivity, appointmentType domain.AppointmentType) domain.ActivityRecord {
	return domain.ActivityRecord{
		ID:              raw.ID,
		ExternalLeadID:  raw.LeadID,
		AppointmentType: appointmentType,
		CreatedAt:       raw.DateCreated,
		Outcome:         raw.Outcome,
		Owner: domain.OwnerIdentity{
			OwnerID:     raw.CreatedByID,
			Email:       raw.ContactEmail,
			DisplayName: raw.CreatedBy,
		},
	}
}
