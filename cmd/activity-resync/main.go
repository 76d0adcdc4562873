// Command activity-resync re-pulls a historical window of CRM activities and
// calendar events, reruns the linker, and reports per-type counts. With
// --dry-run the upstream data is fetched and scored but nothing is written.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"advisor_analytics_backend/internal/analytics/cache"
	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/repository"
	"advisor_analytics_backend/internal/crm"
	"advisor_analytics_backend/internal/scheduling"
	appsync "advisor_analytics_backend/internal/sync"
	"advisor_analytics_backend/platform/config"
	"advisor_analytics_backend/platform/db"
	"advisor_analytics_backend/platform/logger"
)

const dateLayout = "2006-01-02"

func main() {
	var (
		typeFlag   = flag.String("type", "", "appointment type slug, empty for all types")
		fromFlag   = flag.String("from", "", "window start, YYYY-MM-DD (required)")
		toFlag     = flag.String("to", "", "window end, YYYY-MM-DD (required)")
		dryRunFlag = flag.Bool("dry-run", false, "fetch and score without writing")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	from, to, appointmentTypes, err := parseFlags(*typeFlag, *fromFlag, *toFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	if !cfg.IsSchedulingEnabled() || !cfg.IsCRMEnabled() {
		log.Error("scheduling provider and CRM credentials are required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)
	var store appsync.Store = repo
	if *dryRunFlag {
		log.Info("dry run, no writes will be performed")
		store = &dryRunStore{Store: repo}
	}

	var invalidator appsync.Invalidator
	if !*dryRunFlag && cfg.GetRedisURL() != "" {
		statsCache, err := cache.New(cfg.GetRedisURL(), cfg.GetStatsCacheTTL(), log)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		defer func() { _ = statsCache.Close() }()
		invalidator = statsCache
	}

	syncSvc := appsync.New(scheduling.New(cfg, log), crm.New(cfg, log), store, invalidator, log)

	log.Info("resync starting", "from", from.Format(dateLayout), "to", to.Format(dateLayout), "types", len(appointmentTypes))

	if len(appointmentTypes) == len(domain.AllAppointmentTypes()) {
		results, err := syncSvc.Run(ctx, from, to)
		if err != nil {
			log.Error("resync failed", "error", err)
			os.Exit(1)
		}
		report(results)
		return
	}

	results := make([]appsync.Result, 0, len(appointmentTypes))
	for _, appointmentType := range appointmentTypes {
		result, err := syncSvc.SyncType(ctx, appointmentType, from, to)
		if err != nil {
			log.Error("resync failed", "appointment_type", appointmentType, "error", err)
			os.Exit(1)
		}
		results = append(results, *result)
	}
	if invalidator != nil {
		invalidator.Invalidate(ctx)
	}
	report(results)
}

func parseFlags(typeFlag, fromFlag, toFlag string) (time.Time, time.Time, []domain.AppointmentType, error) {
	if fromFlag == "" || toFlag == "" {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("--from and --to are required")
	}

	from, err := time.Parse(dateLayout, fromFlag)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("invalid --from: %w", err)
	}
	to, err := time.Parse(dateLayout, toFlag)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("invalid --to: %w", err)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("--to must be after --from")
	}

	appointmentTypes := domain.AllAppointmentTypes()
	if typeFlag != "" {
		parsed, err := domain.ParseAppointmentType(typeFlag)
		if err != nil {
			return time.Time{}, time.Time{}, nil, err
		}
		appointmentTypes = []domain.AppointmentType{parsed}
	}

	return from, to, appointmentTypes, nil
}

func report(results []appsync.Result) {
	for _, r := range results {
		fmt.Printf("%-22s fetched=%d upserted=%d linked=%d skipped=%d\n",
			r.AppointmentType, r.Fetched, r.Upserted, r.Linked, r.Skipped)
	}
}

// dryRunStore passes reads through and swallows writes.
type dryRunStore struct {
	appsync.Store
}

func (d *dryRunStore) UpsertEvent(context.Context, domain.CalendarEvent) error { return nil }

func (d *dryRunStore) UpsertActivity(context.Context, domain.ActivityRecord) error { return nil }

func (d *dryRunStore) LinkEvent(context.Context, string, string, float64) error { return nil }

func (d *dryRunStore) SetSyncState(context.Context, domain.AppointmentType, time.Time, time.Time, time.Time) error {
	return nil
}
