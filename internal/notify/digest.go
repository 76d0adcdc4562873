// Package notify sends operational email digests about advisor performance.
package notify

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/service"
	"advisor_analytics_backend/platform/config"
	"advisor_analytics_backend/platform/logger"
)

var digestTemplate = template.Must(template.New("digest").Parse(`<!doctype html>
<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
<h2>Beraterauswertung {{.Date}}</h2>
{{if .Rows}}
<p>Die folgenden Berater haben unvollständige Dokumentationen oder auffällige No-Show-Quoten:</p>
<table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
<tr><th align="left">Berater</th><th align="left">Termintyp</th><th>Geplant</th><th>Dokumentiert</th><th>Quote</th><th align="left">Status</th></tr>
{{range .Rows}}
<tr><td>{{.AdvisorName}}</td><td>{{.AppointmentType}}</td><td align="center">{{.PlannedCount}}</td><td align="center">{{.DocumentedCount}}</td><td align="center">{{.CompletionRate}}%</td><td>{{.Status}}</td></tr>
{{end}}
</table>
{{else}}
<p>Alle Berater sind vollständig dokumentiert. Keine Auffälligkeiten.</p>
{{end}}
</body>
</html>`))

type digestRow struct {
	AdvisorName     string
	AppointmentType string
	PlannedCount    int
	DocumentedCount int
	CompletionRate  int
	Status          string
}

type digestData struct {
	Date string
	Rows []digestRow
}

// StatsProvider computes per-advisor stats for one appointment type.
type StatsProvider interface {
	Stats(ctx context.Context, f domain.Filter, appointmentType domain.AppointmentType) (*service.StatsResult, error)
}

// Digest assembles and sends the missing-docs summary email.
type Digest struct {
	stats      StatsProvider
	cfg        config.SMTPConfig
	recipients []string
	log        *logger.Logger
	now        func() time.Time
}

// NewDigest creates the digest sender.
func NewDigest(stats StatsProvider, cfg config.SMTPConfig, log *logger.Logger) *Digest {
	return &Digest{
		stats:      stats,
		cfg:        cfg,
		recipients: cfg.GetDigestRecipients(),
		log:        log,
		now:        time.Now,
	}
}

// Send computes the last 30 days of stats for every appointment type and
// mails the advisors flagged as missing docs or high no-show. No-ops when
// email is disabled or nothing is flagged.
func (d *Digest) Send(ctx context.Context) error {
	if !d.cfg.IsEmailEnabled() || len(d.recipients) == 0 {
		d.log.Info("digest skipped, email disabled or no recipients")
		return nil
	}

	now := d.now()
	from := now.AddDate(0, 0, -30)

	rows := make([]digestRow, 0)
	for _, appointmentType := range domain.AllAppointmentTypes() {
		result, err := d.stats.Stats(ctx, domain.Filter{From: from, To: now}, appointmentType)
		if err != nil {
			d.log.Error("digest stats failed", "appointment_type", appointmentType, "error", err)
			continue
		}
		for _, agg := range result.Aggregates {
			if agg.Status != domain.StatusMissingDocs && agg.Status != domain.StatusHighNoShow {
				continue
			}
			rows = append(rows, digestRow{
				AdvisorName:     agg.AdvisorName,
				AppointmentType: string(appointmentType),
				PlannedCount:    agg.PlannedCount,
				DocumentedCount: agg.DocumentedCount,
				CompletionRate:  agg.CompletionRate,
				Status:          string(agg.Status),
			})
		}
	}

	if len(rows) == 0 {
		d.log.Info("digest skipped, no advisors flagged")
		return nil
	}

	body, err := renderDigest(digestData{Date: now.Format("02.01.2006"), Rows: rows})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Beraterauswertung %s: %d Auffälligkeiten", now.Format("02.01.2006"), len(rows))
	if err := d.send(ctx, subject, body); err != nil {
		return err
	}

	d.log.Info("digest sent", "rows", len(rows), "recipients", len(d.recipients))
	return nil
}

func renderDigest(data digestData) (string, error) {
	var buf strings.Builder
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

func (d *Digest) send(ctx context.Context, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(d.cfg.GetEmailFromName(), d.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("digest from: %w", err)
	}
	if err := msg.To(d.recipients...); err != nil {
		return fmt.Errorf("digest to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(d.cfg.GetSMTPHost(),
		gomail.WithPort(d.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(d.cfg.GetSMTPUsername()),
		gomail.WithPassword(d.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("digest client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("digest send: %w", err)
	}
	return nil
}
