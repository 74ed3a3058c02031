package http

import (
	"errors"
	"net/http"

	apierrors "bikedash/internal/errors"
	"bikedash/internal/rentals"
	"bikedash/internal/services"
)

// RegisterErrorMappings teaches h the dashboard's domain errors.
func RegisterErrorMappings(h *apierrors.ErrorHandler) {
	h.Register(
		apierrors.Mapping{
			Target: rentals.ErrSchemaMismatch,
			Status: http.StatusUnprocessableEntity,
			Type:   apierrors.TypeSchemaMismatch,
			Title:  "Dataset Schema Mismatch",
			Extend: func(err error, problem *apierrors.ProblemDetails) {
				var schemaErr *rentals.SchemaError
				if errors.As(err, &schemaErr) {
					problem.WithExtension("profile", schemaErr.Profile)
					problem.WithExtension("missing_columns", schemaErr.Missing)
				}
			},
		},
		apierrors.Mapping{
			Target: rentals.ErrMalformedRows,
			Status: http.StatusUnprocessableEntity,
			Type:   apierrors.TypeMalformedRows,
			Title:  "Malformed Dataset Rows",
		},
		apierrors.Mapping{
			Target: rentals.ErrDatasetNotFound,
			Status: http.StatusServiceUnavailable,
			Type:   apierrors.TypeDatasetNotFound,
			Title:  "Dataset Not Found",
		},
		apierrors.Mapping{
			Target: services.ErrDatasetNotLoaded,
			Status: http.StatusServiceUnavailable,
			Type:   apierrors.TypeDatasetNotLoaded,
			Title:  "Dataset Not Loaded",
		},
		apierrors.Mapping{
			Target: services.ErrUnknownTable,
			Status: http.StatusNotFound,
			Type:   apierrors.TypeNotFound,
			Title:  "Unknown Table",
		},
		apierrors.Mapping{
			Target: services.ErrUnknownChart,
			Status: http.StatusNotFound,
			Type:   apierrors.TypeNotFound,
			Title:  "Unknown Chart",
		},
		apierrors.Mapping{
			Target: services.ErrUnsupportedFormat,
			Status: http.StatusBadRequest,
			Type:   apierrors.TypeUnsupportedFormat,
			Title:  "Unsupported Export Format",
		},
		apierrors.Mapping{
			Target: services.ErrColumnUnavailable,
			Status: http.StatusUnprocessableEntity,
			Type:   apierrors.TypeColumnUnavailable,
			Title:  "Column Unavailable",
			Extend: func(err error, problem *apierrors.ProblemDetails) {
				var colErr *services.ColumnError
				if errors.As(err, &colErr) {
					problem.WithExtension("view", colErr.View)
					problem.WithExtension("missing_columns", colErr.Missing)
				}
			},
		},
	)
}
