// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP handlers and the rentals, analytics, exporter and
// charts packages so the handlers and the CLI share one code path.
//
// # Dataset lifecycle
//
// DashboardService owns the active dataset. Load reads it once at startup and
// any error is fatal to the caller. Reload is used by the file watcher and the
// reload endpoint: concurrent calls share one load and a failed reload keeps
// the previous dataset active. Subscribers registered with Subscribe learn
// about every reload outcome.
//
// # Queries
//
// Every view method takes a Query. Rows are filtered by date first and then
// by season. An unknown season or an inverted date range selects no rows;
// neither is an error.
//
//	q := services.Query{Season: "Panas"}
//	totals, err := svc.SeasonTotals(ctx, q)
//
// Views that need optional columns the dataset lacks fail with a
// *ColumnError matching ErrColumnUnavailable.
//
// # Health
//
// HealthService reports liveness unconditionally and readiness only once a
// dataset is loaded.
package services
