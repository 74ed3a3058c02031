package config

// AppName identifies the service in logs, telemetry and the CLI.
const AppName = "bikedash"

// AppVersion is set at build time with -ldflags "-X bikedash/internal/config.AppVersion=..."
var AppVersion = "dev"

// Endpoints
const (
	APIBasePath       = "/api"
	DashboardBasePath = "/api/dashboard"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
