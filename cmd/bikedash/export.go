package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"bikedash/internal/charts"
	"bikedash/internal/exporter"
	"bikedash/internal/rentals"
	"bikedash/internal/services"
)

// loadService loads the configured dataset into a dashboard service
func (e *env) loadService(cmd *cobra.Command, renderer charts.Renderer) (*services.DashboardService, error) {
	svc := services.NewDashboardService(services.DashboardOptions{
		Path: e.paths.DatasetFile,
		Loader: rentals.NewLoader(rentals.Options{
			Profile:      e.cfg.Dataset.Profile,
			MaxRowErrors: e.cfg.Dataset.MaxRowErrors,
			Logger:       e.logger,
		}),
		Exporter: exporter.New(e.logger),
		Renderer: renderer,
		Logger:   e.logger,
	})
	if _, err := svc.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return svc, nil
}

func (e *env) outDir(flag string) string {
	if flag != "" {
		return flag
	}
	return e.paths.ExportsDir
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		q           queryFlags
		out         string
		format      string
		withRecords bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every dashboard table to files",
		Long: `Aggregates the selected rows and writes one file per table, or a single
dashboard.xlsx workbook with one sheet per table when --format is xlsx.
Tables whose source columns are absent from the dataset are skipped.`,
		Example: `  bikedash export --data all_data.csv --format parquet --season Summer
  bikedash export --format xlsx --start 2011-06-01 --end 2011-08-31 --out reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			query, err := q.query()
			if err != nil {
				return err
			}
			e, err := opts.load()
			if err != nil {
				return err
			}
			svc, err := e.loadService(cmd, charts.Renderer{})
			if err != nil {
				return err
			}

			paths, err := svc.ExportDir(cmd.Context(), e.outDir(out), f, query, withRecords)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			e.logger.Info("export complete", slog.Int("files", len(paths)), slog.String("format", string(f)))
			return nil
		},
	}

	q.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (defaults to the configured exports dir)")
	cmd.Flags().StringVarP(&format, "format", "f", string(exporter.FormatCSV), "csv, xlsx or parquet")
	cmd.Flags().BoolVar(&withRecords, "records", false, "also write the selected rows")
	return cmd
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		q             queryFlags
		out           string
		width, height float64
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every dashboard chart as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, err := q.query()
			if err != nil {
				return err
			}
			e, err := opts.load()
			if err != nil {
				return err
			}
			svc, err := e.loadService(cmd, charts.Renderer{Width: vg.Length(width), Height: vg.Length(height)})
			if err != nil {
				return err
			}

			paths, err := svc.RenderDir(cmd.Context(), e.outDir(out), query)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	q.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (defaults to the configured exports dir)")
	cmd.Flags().Float64Var(&width, "width", 0, "image width in points (0 uses the default)")
	cmd.Flags().Float64Var(&height, "height", 0, "image height in points (0 uses the default)")
	return cmd
}
