// Package repository persists and queries the source snapshots: calendar
// events from the scheduling provider and activity records from the CRM.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"advisor_analytics_backend/internal/analytics/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CalendarEvent is the calendar_events database model.
type CalendarEvent struct {
	ID                   uuid.UUID  `db:"id"`
	ExternalEventID      string     `db:"external_event_id"`
	AppointmentType      string     `db:"appointment_type"`
	AppointmentTypeLabel string     `db:"appointment_type_label"`
	StartTime            time.Time  `db:"start_time"`
	Status               string     `db:"status"`
	HostName             string     `db:"host_name"`
	HostOwnerID          string     `db:"host_owner_id"`
	HostEmail            string     `db:"host_email"`
	InviteeName          string     `db:"invitee_name"`
	InviteeEmail         string     `db:"invitee_email"`
	InviteePhone         string     `db:"invitee_phone"`
	ExternalLeadID       string     `db:"external_lead_id"`
	DurationMinutes      int        `db:"duration_minutes"`
	OpportunityValue     float64    `db:"opportunity_value"`
	LinkedActivityID     *uuid.UUID `db:"linked_activity_id"`
	LinkConfidence       *float64   `db:"link_confidence"`
}

// ActivityRecord is the activity_records database model.
type ActivityRecord struct {
	ID                 uuid.UUID `db:"id"`
	ExternalActivityID string    `db:"external_activity_id"`
	ExternalLeadID     string    `db:"external_lead_id"`
	AppointmentType    string    `db:"appointment_type"`
	Outcome            string    `db:"outcome"`
	OwnerID            string    `db:"owner_id"`
	OwnerEmail         string    `db:"owner_email"`
	OwnerName          string    `db:"owner_name"`
	ActivityDate       time.Time `db:"activity_date"`
}

// SyncState tracks the last completed sync window per appointment type.
type SyncState struct {
	AppointmentType string
	LastSyncedAt    *time.Time
	WindowStart     *time.Time
	WindowEnd       *time.Time
}

// Repository provides database operations for analytics snapshots.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new analytics repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, external_event_id, appointment_type, appointment_type_label,
	start_time, status, host_name, host_owner_id, host_email,
	invitee_name, invitee_email, invitee_phone, external_lead_id,
	duration_minutes, opportunity_value, linked_activity_id, link_confidence`

// ListEvents returns events in [from, to], optionally restricted to one
// appointment type. Passing an empty type returns all types.
func (r *Repository) ListEvents(ctx context.Context, from, to time.Time, appointmentType domain.AppointmentType) ([]domain.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events
		WHERE start_time >= $1 AND start_time <= $2
		  AND ($3 = '' OR appointment_type = $3)
		ORDER BY start_time, external_event_id`, eventColumns)

	rows, err := r.pool.Query(ctx, query, from, to, string(appointmentType))
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.CalendarEvent, 0)
	for rows.Next() {
		var e CalendarEvent
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, toDomainEvent(e))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// ListLatestActivities returns the newest activity per (lead, appointment
// type) in the window. Older duplicates for the same lead are superseded,
// matching how the CRM treats re-logged outcomes.
func (r *Repository) ListLatestActivities(ctx context.Context, from, to time.Time, appointmentType domain.AppointmentType) ([]domain.ActivityRecord, error) {
	query := `SELECT id, external_activity_id, external_lead_id, appointment_type,
			outcome, owner_id, owner_email, owner_name, activity_date
		FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY external_lead_id, appointment_type
				ORDER BY activity_date DESC, external_activity_id DESC
			) AS rn
			FROM activity_records
			WHERE activity_date >= $1 AND activity_date <= $2
			  AND ($3 = '' OR appointment_type = $3)
		) deduped
		WHERE rn = 1 OR external_lead_id = ''
		ORDER BY activity_date, external_activity_id`

	rows, err := r.pool.Query(ctx, query, from, to, string(appointmentType))
	if err != nil {
		return nil, fmt.Errorf("failed to list activity records: %w", err)
	}
	defer rows.Close()

	activities := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		var a ActivityRecord
		if err := rows.Scan(&a.ID, &a.ExternalActivityID, &a.ExternalLeadID, &a.AppointmentType,
			&a.Outcome, &a.OwnerID, &a.OwnerEmail, &a.OwnerName, &a.ActivityDate); err != nil {
			return nil, err
		}
		activities = append(activities, toDomainActivity(a))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return activities, nil
}

// AdvisorCompletion computes the pre-aggregated planned/documented counts
// per advisor: planned from active events, documented from deduplicated
// activities, joined on the advisor key.
func (r *Repository) AdvisorCompletion(ctx context.Context, from, to time.Time, appointmentType domain.AppointmentType) ([]domain.AdvisorCompletion, error) {
	query := `WITH planned AS (
			SELECT COALESCE(NULLIF(host_owner_id, ''), NULLIF(lower(host_email), ''), host_name) AS advisor_key,
				MAX(host_name) AS advisor_name,
				COUNT(*) AS planned_count
			FROM calendar_events
			WHERE start_time >= $1 AND start_time <= $2
			  AND status = 'active'
			  AND ($3 = '' OR appointment_type = $3)
			GROUP BY 1
		), documented AS (
			SELECT COALESCE(NULLIF(owner_id, ''), NULLIF(lower(owner_email), ''), owner_name) AS advisor_key,
				MAX(owner_name) AS advisor_name,
				COUNT(*) AS documented_count
			FROM (
				SELECT *, ROW_NUMBER() OVER (
					PARTITION BY external_lead_id, appointment_type
					ORDER BY activity_date DESC, external_activity_id DESC
				) AS rn
				FROM activity_records
				WHERE activity_date >= $1 AND activity_date <= $2
				  AND ($3 = '' OR appointment_type = $3)
			) deduped
			WHERE rn = 1 OR external_lead_id = ''
			GROUP BY 1
		)
		SELECT COALESCE(p.advisor_key, d.advisor_key) AS advisor_key,
			COALESCE(p.advisor_name, d.advisor_name) AS advisor_name,
			COALESCE(p.planned_count, 0) AS planned_count,
			COALESCE(d.documented_count, 0) AS documented_count
		FROM planned p
		FULL OUTER JOIN documented d ON d.advisor_key = p.advisor_key
		WHERE COALESCE(p.advisor_key, d.advisor_key) IS NOT NULL
		  AND COALESCE(p.advisor_key, d.advisor_key) <> ''
		ORDER BY 2, 1`

	rows, err := r.pool.Query(ctx, query, from, to, string(appointmentType))
	if err != nil {
		return nil, fmt.Errorf("failed to compute advisor completion: %w", err)
	}
	defer rows.Close()

	completions := make([]domain.AdvisorCompletion, 0)
	for rows.Next() {
		var c domain.AdvisorCompletion
		if err := rows.Scan(&c.AdvisorKey, &c.AdvisorName, &c.PlannedCount, &c.DocumentedCount); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return completions, nil
}

// ProviderBreakdown returns the per-advisor scheduled event counts, the
// weakest reconstruction source.
func (r *Repository) ProviderBreakdown(ctx context.Context, from, to time.Time, appointmentType domain.AppointmentType) ([]domain.ProviderBreakdown, error) {
	query := `SELECT COALESCE(NULLIF(host_owner_id, ''), NULLIF(lower(host_email), ''), host_name) AS advisor_key,
			MAX(host_name) AS advisor_name,
			COUNT(*) AS scheduled_count
		FROM calendar_events
		WHERE start_time >= $1 AND start_time <= $2
		  AND status = 'active'
		  AND ($3 = '' OR appointment_type = $3)
		GROUP BY 1
		HAVING COALESCE(NULLIF(host_owner_id, ''), NULLIF(lower(host_email), ''), host_name) <> ''
		ORDER BY 2, 1`

	rows, err := r.pool.Query(ctx, query, from, to, string(appointmentType))
	if err != nil {
		return nil, fmt.Errorf("failed to compute provider breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make([]domain.ProviderBreakdown, 0)
	for rows.Next() {
		var b domain.ProviderBreakdown
		if err := rows.Scan(&b.AdvisorKey, &b.AdvisorName, &b.ScheduledCount); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return breakdown, nil
}

// GetActivityByExternalID loads one activity snapshot row, or nil when the
// record has not been synced yet.
func (r *Repository) GetActivityByExternalID(ctx context.Context, externalID string) (*ActivityRecord, error) {
	var a ActivityRecord
	query := `SELECT id, external_activity_id, external_lead_id, appointment_type,
			outcome, owner_id, owner_email, owner_name, activity_date
		FROM activity_records WHERE external_activity_id = $1`

	err := r.pool.QueryRow(ctx, query, externalID).Scan(&a.ID, &a.ExternalActivityID,
		&a.ExternalLeadID, &a.AppointmentType, &a.Outcome, &a.OwnerID, &a.OwnerEmail,
		&a.OwnerName, &a.ActivityDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load activity record: %w", err)
	}
	return &a, nil
}

// UpsertEvent inserts or refreshes one calendar event snapshot row.
func (r *Repository) UpsertEvent(ctx context.Context, e domain.CalendarEvent) error {
	query := `INSERT INTO calendar_events (
			external_event_id, appointment_type, appointment_type_label, start_time,
			status, host_name, host_owner_id, host_email, invitee_name, invitee_email,
			invitee_phone, external_lead_id, duration_minutes, opportunity_value, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (external_event_id) DO UPDATE SET
			appointment_type = EXCLUDED.appointment_type,
			appointment_type_label = EXCLUDED.appointment_type_label,
			start_time = EXCLUDED.start_time,
			status = EXCLUDED.status,
			host_name = EXCLUDED.host_name,
			host_owner_id = EXCLUDED.host_owner_id,
			host_email = EXCLUDED.host_email,
			invitee_name = EXCLUDED.invitee_name,
			invitee_email = EXCLUDED.invitee_email,
			invitee_phone = EXCLUDED.invitee_phone,
			external_lead_id = EXCLUDED.external_lead_id,
			duration_minutes = EXCLUDED.duration_minutes,
			opportunity_value = EXCLUDED.opportunity_value,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query,
		e.ExternalEventID, string(e.AppointmentType), e.AppointmentTypeLabel, e.StartTime,
		string(e.Status), e.Host.DisplayName, e.Host.OwnerID, e.Host.Email,
		e.Invitee.DisplayName, e.Invitee.Email, e.Invitee.Phone, e.ExternalLeadID,
		e.DurationMinutes, e.OpportunityValue,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert calendar event: %w", err)
	}
	return nil
}

// UpsertActivity inserts or refreshes one activity snapshot row.
func (r *Repository) UpsertActivity(ctx context.Context, a domain.ActivityRecord) error {
	query := `INSERT INTO activity_records (
			external_activity_id, external_lead_id, appointment_type, outcome,
			owner_id, owner_email, owner_name, activity_date, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (external_activity_id) DO UPDATE SET
			external_lead_id = EXCLUDED.external_lead_id,
			appointment_type = EXCLUDED.appointment_type,
			outcome = EXCLUDED.outcome,
			owner_id = EXCLUDED.owner_id,
			owner_email = EXCLUDED.owner_email,
			owner_name = EXCLUDED.owner_name,
			activity_date = EXCLUDED.activity_date,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.ExternalLeadID, string(a.AppointmentType), a.Outcome,
		a.Owner.OwnerID, a.Owner.Email, a.Owner.DisplayName, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert activity record: %w", err)
	}
	return nil
}

// ListUnlinkedEvents returns events of one type without a persisted activity
// link, candidates for the sync-time linker.
func (r *Repository) ListUnlinkedEvents(ctx context.Context, appointmentType domain.AppointmentType, from, to time.Time) ([]domain.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events
		WHERE appointment_type = $1
		  AND start_time >= $2 AND start_time <= $3
		  AND linked_activity_id IS NULL
		ORDER BY start_time, external_event_id`, eventColumns)

	rows, err := r.pool.Query(ctx, query, string(appointmentType), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.CalendarEvent, 0)
	for rows.Next() {
		var e CalendarEvent
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, toDomainEvent(e))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// LinkEvent persists a sync-time link between an event and the activity the
// linker chose for it.
func (r *Repository) LinkEvent(ctx context.Context, externalEventID, externalActivityID string, confidence float64) error {
	query := `UPDATE calendar_events
		SET linked_activity_id = (SELECT id FROM activity_records WHERE external_activity_id = $2),
			link_confidence = $3,
			updated_at = now()
		WHERE external_event_id = $1`

	tag, err := r.pool.Exec(ctx, query, externalEventID, externalActivityID, confidence)
	if err != nil {
		return fmt.Errorf("failed to link event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to link event: event %s not found", externalEventID)
	}
	return nil
}

// GetSyncState loads the sync cursor for one appointment type.
func (r *Repository) GetSyncState(ctx context.Context, appointmentType domain.AppointmentType) (*SyncState, error) {
	var state SyncState
	query := `SELECT appointment_type, last_synced_at, window_start, window_end
		FROM sync_state WHERE appointment_type = $1`

	err := r.pool.QueryRow(ctx, query, string(appointmentType)).Scan(
		&state.AppointmentType, &state.LastSyncedAt, &state.WindowStart, &state.WindowEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	return &state, nil
}

// SetSyncState records a completed sync pass for one appointment type.
func (r *Repository) SetSyncState(ctx context.Context, appointmentType domain.AppointmentType, syncedAt, windowStart, windowEnd time.Time) error {
	query := `INSERT INTO sync_state (appointment_type, last_synced_at, window_start, window_end, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (appointment_type) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query, string(appointmentType), syncedAt, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

func scanEvent(rows pgx.Rows, e *CalendarEvent) error {
	return rows.Scan(&e.ID, &e.ExternalEventID, &e.AppointmentType, &e.AppointmentTypeLabel,
		&e.StartTime, &e.Status, &e.HostName, &e.HostOwnerID, &e.HostEmail,
		&e.InviteeName, &e.InviteeEmail, &e.InviteePhone, &e.ExternalLeadID,
		&e.DurationMinutes, &e.OpportunityValue, &e.LinkedActivityID, &e.LinkConfidence)
}

func toDomainEvent(e CalendarEvent) domain.CalendarEvent {
	return domain.CalendarEvent{
		ID:                   e.ID.String(),
		ExternalEventID:      e.ExternalEventID,
		StartTime:            e.StartTime,
		Status:               domain.EventStatus(e.Status),
		Host:                 domain.HostIdentity{DisplayName: e.HostName, OwnerID: e.HostOwnerID, Email: e.HostEmail},
		Invitee:              domain.InviteeIdentity{DisplayName: e.InviteeName, Email: e.InviteeEmail, Phone: e.InviteePhone},
		ExternalLeadID:       e.ExternalLeadID,
		AppointmentType:      domain.AppointmentType(e.AppointmentType),
		AppointmentTypeLabel: e.AppointmentTypeLabel,
		DurationMinutes:      e.DurationMinutes,
		OpportunityValue:     e.OpportunityValue,
	}
}

func toDomainActivity(a ActivityRecord) domain.ActivityRecord {
	return domain.ActivityRecord{
		ID:              a.ExternalActivityID,
		ExternalLeadID:  a.ExternalLeadID,
		AppointmentType: domain.AppointmentType(a.AppointmentType),
		CreatedAt:       a.ActivityDate,
		Outcome:         a.Outcome,
		Owner:           domain.OwnerIdentity{OwnerID: a.OwnerID, Email: a.OwnerEmail, DisplayName: a.OwnerName},
	}
}
