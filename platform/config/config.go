// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and workers.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SchedulingProviderConfig provides settings for the external calendar
// booking provider API.
type SchedulingProviderConfig interface {
	GetSchedulingAPIBaseURL() string
	GetSchedulingAPIToken() string
	GetSchedulingOrganization() string
	GetSchedulingRequestsPerSecond() float64
	IsSchedulingEnabled() bool
}

// CRMConfig provides settings for the CRM activity API.
type CRMConfig interface {
	GetCRMAPIBaseURL() string
	GetCRMAPIKey() string
	GetCRMRequestsPerSecond() float64
	IsCRMEnabled() bool
}

// SyncConfig provides settings for the snapshot sync jobs.
type SyncConfig interface {
	GetSyncInterval() time.Duration
	GetSyncWindowDays() int
	GetDigestInterval() time.Duration
}

// AnalyticsConfig provides settings for the reconciliation engine.
type AnalyticsConfig interface {
	GetMatchToleranceDays() int
	GetStatsCacheTTL() time.Duration
}

// CacheConfig provides settings for the redis result cache.
type CacheConfig interface {
	GetRedisURL() string
	GetStatsCacheTTL() time.Duration
}

// SMTPConfig provides settings for digest email delivery.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetDigestRecipients() []string
	IsEmailEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	SchedulingAPIBaseURL   string
	SchedulingAPIToken     string
	SchedulingOrganization string
	SchedulingRPS          float64
	CRMAPIBaseURL          string
	CRMAPIKey              string
	CRMRPS                 float64
	SyncInterval           time.Duration
	SyncWindowDays         int
	DigestInterval         time.Duration
	MatchToleranceDays     int
	StatsCacheTTL          time.Duration
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
	DigestRecipients       []string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// SchedulingProviderConfig implementation
func (c *Config) GetSchedulingAPIBaseURL() string        { return c.SchedulingAPIBaseURL }
func (c *Config) GetSchedulingAPIToken() string          { return c.SchedulingAPIToken }
func (c *Config) GetSchedulingOrganization() string      { return c.SchedulingOrganization }
func (c *Config) GetSchedulingRequestsPerSecond() float64 { return c.SchedulingRPS }
func (c *Config) IsSchedulingEnabled() bool {
	return c.SchedulingAPIBaseURL != "" && c.SchedulingAPIToken != ""
}

// CRMConfig implementation
func (c *Config) GetCRMAPIBaseURL() string         { return c.CRMAPIBaseURL }
func (c *Config) GetCRMAPIKey() string             { return c.CRMAPIKey }
func (c *Config) GetCRMRequestsPerSecond() float64 { return c.CRMRPS }
func (c *Config) IsCRMEnabled() bool {
	return c.CRMAPIBaseURL != "" && c.CRMAPIKey != ""
}

// SyncConfig implementation
func (c *Config) GetSyncInterval() time.Duration   { return c.SyncInterval }
func (c *Config) GetSyncWindowDays() int           { return c.SyncWindowDays }
func (c *Config) GetDigestInterval() time.Duration { return c.DigestInterval }

// AnalyticsConfig implementation
func (c *Config) GetMatchToleranceDays() int        { return c.MatchToleranceDays }
func (c *Config) GetStatsCacheTTL() time.Duration   { return c.StatsCacheTTL }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string          { return c.SMTPHost }
func (c *Config) GetSMTPPort() int             { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string      { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string      { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string     { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string  { return c.EmailFromAddress }
func (c *Config) GetDigestRecipients() []string { return c.DigestRecipients }
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFromAddress != "" && len(c.DigestRecipients) > 0
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "analytics"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SchedulingAPIBaseURL:   getEnv("SCHEDULING_API_BASE_URL", ""),
		SchedulingAPIToken:     getEnv("SCHEDULING_API_TOKEN", ""),
		SchedulingOrganization: getEnv("SCHEDULING_ORGANIZATION", ""),
		SchedulingRPS:          mustFloat(getEnv("SCHEDULING_REQUESTS_PER_SECOND", "2")),
		CRMAPIBaseURL:          getEnv("CRM_API_BASE_URL", ""),
		CRMAPIKey:              getEnv("CRM_API_KEY", ""),
		CRMRPS:                 mustFloat(getEnv("CRM_REQUESTS_PER_SECOND", "2")),
		SyncInterval:           mustDuration(getEnv("SYNC_INTERVAL", "15m")),
		SyncWindowDays:         mustInt(getEnv("SYNC_WINDOW_DAYS", "60")),
		DigestInterval:         mustDuration(getEnv("DIGEST_INTERVAL", "24h")),
		MatchToleranceDays:     mustInt(getEnv("MATCH_TOLERANCE_DAYS", "3")),
		StatsCacheTTL:          mustDuration(getEnv("STATS_CACHE_TTL", "5m")),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "Advisor Analytics"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
		DigestRecipients:       splitCSV(getEnv("DIGEST_RECIPIENTS", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MatchToleranceDays < 1 {
		return nil, fmt.Errorf("MATCH_TOLERANCE_DAYS must be at least 1")
	}
	if cfg.SyncWindowDays < 1 {
		return nil, fmt.Errorf("SYNC_WINDOW_DAYS must be at least 1")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
