package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bikedash/internal/config"
	"bikedash/internal/infrastructure"
	"bikedash/internal/middleware"
	"bikedash/internal/services"
)

type rootOptions struct {
	configFile string
	logLevel   string
	dataFile   string
	profile    string
}

// env is what every offline command needs: configuration, resolved paths
// and a logger writing to stderr so stdout stays machine-readable.
type env struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Bike-rental dashboard server and dataset tools",
		Long: `bikedash loads an hourly bike-rental CSV and serves aggregated views of it
over HTTP, or writes the same views to files.

Configuration comes from environment variables (BIKEDASH_*, optionally via a
.env file), then a YAML file, then built-in defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	flags.StringVarP(&opts.dataFile, "data", "d", "", "dataset CSV (defaults to the configured dataset path)")
	flags.StringVar(&opts.profile, "profile", "", "column profile: auto, x, y or plain")

	cmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newExportCmd(opts),
		newRenderCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load() (*env, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if err := o.apply(cfg); err != nil {
		return nil, err
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		paths:  paths,
		logger: infrastructure.NewLogger(os.Stderr, cfg.Logging),
	}, nil
}

// apply layers the command-line overrides onto a loaded configuration
func (o *rootOptions) apply(cfg *config.Config) error {
	if o.dataFile != "" {
		cfg.Dataset.Path = o.dataFile
	}
	if o.profile != "" {
		cfg.Dataset.Profile = o.profile
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg.Validate()
}

func buildInfo() services.BuildInfo {
	return services.BuildInfo{
		Version:   config.AppVersion,
		BuildTime: buildTime,
		Commit:    commit,
	}
}

// queryFlags binds the selection flags shared by export and render
type queryFlags struct {
	season string
	start  string
	end    string
}

func (q *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.season, "season", "", `season name, or "All Season"`)
	cmd.Flags().StringVar(&q.start, "start", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.end, "end", "", "last day to include (YYYY-MM-DD)")
}

func (q *queryFlags) query() (services.Query, error) {
	out := services.Query{Season: q.season}
	var err error
	if out.Start, err = parseDay("start", q.start); err != nil {
		return out, err
	}
	if out.End, err = parseDay("end", q.end); err != nil {
		return out, err
	}
	return out, nil
}

func parseDay(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(middleware.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: want %s", flag, value, middleware.DateLayout)
	}
	return &t, nil
}
