package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"bikedash/internal/analytics"
	apierrors "bikedash/internal/errors"
	"bikedash/internal/exporter"
	"bikedash/internal/middleware"
	"bikedash/internal/services"
)

// QueryParams are the selection parameters every view accepts
type QueryParams struct {
	Season string `query:"season" validate:"max=64"`
	Start  string `query:"start" validate:"date"`
	End    string `query:"end" validate:"date"`
}

// viewFunc computes one view and reports how many items it holds
type viewFunc func(ctx context.Context, q services.Query) (interface{}, int, error)

// DashboardHandler handles dashboard HTTP requests with RFC 7807 compliance
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetDashboard)
	r.Get("/meta", h.GetMeta)
	for view, fn := range h.views() {
		r.Get("/"+string(view), h.viewHandler(view, fn))
	}

	r.Get("/export/{table}", h.Export)
	r.Get("/charts/{chart}.png", h.Chart)
	r.Post("/reload", h.Reload)

	return r
}

func (h *DashboardHandler) views() map[analytics.View]viewFunc {
	s := h.service
	return map[analytics.View]viewFunc{
		analytics.ViewHourlyWorkday: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			rows, err := s.HourlyByWorkday(ctx, q)
			return rows, len(rows), err
		},
		analytics.ViewSeasons: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			rows, err := s.SeasonTotals(ctx, q)
			return rows, len(rows), err
		},
		analytics.ViewDaily: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			rows, err := s.Daily(ctx, q)
			return rows, len(rows), err
		},
		analytics.ViewMonthly: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			rows, err := s.Monthly(ctx, q)
			return rows, len(rows), err
		},
		analytics.ViewUserTypes: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			rows, err := s.UserTypes(ctx, q)
			return rows, len(rows), err
		},
		analytics.ViewHourly: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			rows, err := s.Hourly(ctx, q)
			return rows, len(rows), err
		},
		analytics.ViewSummary: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			m, err := s.Summary(ctx, q)
			return m, 1, err
		},
		analytics.ViewWeatherImpact: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			rows, err := s.WeatherImpact(ctx, q)
			return rows, len(rows), err
		},
		analytics.ViewCorrelation: func(ctx context.Context, q services.Query) (interface{}, int, error) {
			c, err := s.Correlation(ctx, q)
			return c, len(c.Fields), err
		},
	}
}

// parseQuery validates the selection parameters of r
func (h *DashboardHandler) parseQuery(r *http.Request) (services.Query, error) {
	values := r.URL.Query()
	params := QueryParams{
		Season: values.Get("season"),
		Start:  values.Get("start"),
		End:    values.Get("end"),
	}
	if err := h.validator.Struct(params); err != nil {
		return services.Query{}, err
	}

	q := services.Query{Season: params.Season}
	if params.Start != "" {
		start, _ := time.Parse(middleware.DateLayout, params.Start)
		q.Start = &start
	}
	if params.End != "" {
		end, _ := time.Parse(middleware.DateLayout, params.End)
		q.End = &end
	}
	return q, nil
}

func success(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  count,
	})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.DebugContext(r.Context(), "dashboard request failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	h.errorHandler.HandleError(w, r, err)
}

// GetMeta handles GET /api/dashboard/meta
func (h *DashboardHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Meta(r.Context())
	if err != nil {
		h.fail(w, r, "meta", err)
		return
	}
	success(w, r, meta, meta.Rows)
}

// GetDashboard handles GET /api/dashboard and returns every view at once
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.fail(w, r, "dashboard", err)
		return
	}

	dash, err := h.service.Dashboard(r.Context(), q)
	if err != nil {
		h.fail(w, r, "dashboard", err)
		return
	}
	success(w, r, dash, dash.Selection.Rows)
}

func (h *DashboardHandler) viewHandler(view analytics.View, fn viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := h.parseQuery(r)
		if err != nil {
			h.fail(w, r, string(view), err)
			return
		}

		data, count, err := fn(r.Context(), q)
		if err != nil {
			h.fail(w, r, string(view), err)
			return
		}
		success(w, r, data, count)
	}
}

// Export handles GET /api/dashboard/export/{table}?format=
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	format, err := exporter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, "export", err)
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.fail(w, r, "export", err)
		return
	}

	// buffer so failures still reach the client as problems
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, table, format, q); err != nil {
		h.fail(w, r, "export", err)
		return
	}

	filename := table + format.Extension()
	if analytics.View(table) == analytics.ViewAll {
		filename = "dashboard" + format.Extension()
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export", slog.String("error", err.Error()))
	}
}

// Chart handles GET /api/dashboard/charts/{chart}.png
func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	chart := chi.URLParam(r, "chart")

	q, err := h.parseQuery(r)
	if err != nil {
		h.fail(w, r, "chart", err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.Chart(r.Context(), &buf, chart, q); err != nil {
		h.fail(w, r, "chart", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write chart", slog.String("error", err.Error()))
	}
}

// Reload handles POST /api/dashboard/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Reload(r.Context())
	if err != nil {
		h.fail(w, r, "reload", err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset reloaded on request",
		slog.Int("rows", report.Rows))
	success(w, r, report, report.Rows)
}
