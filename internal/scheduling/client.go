// Package scheduling provides the HTTP client for the calendar booking
// provider's API. The provider is an opaque JSON source; a failed fetch is a
// typed upstream error and never an empty snapshot.
package scheduling

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

const pageSize = 100

// Client is the HTTP client for the scheduling provider API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	organization string
	limiter      *rate.Limiter
	log          *logger.Logger
}

// New creates a new scheduling provider client. The rate limiter honors the
// provider's published request budget.
func New(cfg config.SchedulingProviderConfig, log *logger.Logger) *Client {
	rps := cfg.GetSchedulingRequestsPerSecond()
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		baseURL:      cfg.GetSchedulingAPIBaseURL(),
		token:        cfg.GetSchedulingAPIToken(),
		organization: cfg.GetSchedulingOrganization(),
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		log:          log,
	}
}

// wire shapes of the provider's scheduled-events endpoint.
type eventsPage struct {
	Collection []wireEvent `json:"collection"`
	Pagination struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"pagination"`
}

type wireEvent struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	EventMemberships []struct {
		UserName  string `json:"user_name"`
		UserEmail string `json:"user_email"`
		User      string `json:"user"`
	} `json:"event_memberships"`
	Invitees struct {
		Collection []wireInvitee `json:"collection"`
	} `json:"invitees"`
	TrackingID       string  `json:"tracking_id"`
	OpportunityValue float64 `json:"opportunity_value"`
}

type wireInvitee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ListScheduledEvents fetches all events in the window, following page
// tokens until exhausted.
func (c *Client) ListScheduledEvents(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error) {
	events := make([]domain.CalendarEvent, 0)
	pageToken := ""

	for {
		page, err := c.fetchPage(ctx, from, to, pageToken)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Collection {
			events = append(events, c.toDomain(raw))
		}

		if page.Pagination.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.Pagination.NextPageToken
	}
}

func (c *Client) fetchPage(ctx context.Context, from, to time.Time, pageToken string) (*eventsPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("organization", c.organization)
	params.Set("min_start_time", from.UTC().Format(time.RFC3339))
	params.Set("max_start_time", to.UTC().Format(time.RFC3339))
	params.Set("count", fmt.Sprintf("%d", pageSize))
	if pageToken != "" {
		params.Set("page_token", pageToken)
	}

	reqURL := fmt.Sprintf("%s/scheduled_events?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream("scheduling provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Upstream(fmt.Sprintf("scheduling provider returned status %d", resp.StatusCode), nil)
	}

	var page eventsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, apperr.Upstream("scheduling provider response malformed", err)
	}
	return &page, nil
}

func (c *Client) toDomain(raw wireEvent) domain.CalendarEvent {
	event := domain.CalendarEvent{
		ID:                   raw.URI,
		ExternalEventID:      raw.URI,
		StartTime:            raw.StartTime,
		Status:               domain.EventStatus(raw.Status),
		ExternalLeadID:       raw.TrackingID,
		AppointmentTypeLabel: raw.Name,
		AppointmentType:      classifyLabel(raw.Name),
		OpportunityValue:     raw.OpportunityValue,
	}
	if !raw.EndTime.IsZero() && !raw.StartTime.IsZero() {
		event.DurationMinutes = int(raw.EndTime.Sub(raw.StartTime).Minutes())
	}
	if len(raw.EventMemberships) > 0 {
		host := raw.EventMemberships[0]
		event.Host = domain.HostIdentity{
			DisplayName: host.UserName,
			OwnerID:     host.User,
			Email:       host.UserEmail,
		}
	}
	if len(raw.Invitees.Collection) > 0 {
		invitee := raw.Invitees.Collection[0]
		event.Invitee = domain.InviteeIdentity{
			DisplayName: invitee.Name,
			Email:       invitee.Email,
			Phone:       invitee.Phone,
		}
	}
	return event
}
