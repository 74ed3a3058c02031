package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the resolved application paths
type Paths struct {
	BaseDir     string
	DataDir     string
	LogsDir     string
	ExportsDir  string
	DatasetFile string
	LogFile     string
}

// ResolvePaths turns the configured paths into absolute ones. Relative entries
// are joined onto Paths.BaseDir, or the working directory when that is empty.
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base dir: %w", err)
	}

	return &Paths{
		BaseDir:     base,
		DataDir:     resolve(base, c.Paths.DataDir),
		LogsDir:     resolve(base, c.Paths.LogsDir),
		ExportsDir:  resolve(base, c.Paths.ExportsDir),
		DatasetFile: resolve(base, c.Dataset.Path),
		LogFile:     resolve(base, c.Logging.FilePath),
	}, nil
}

func resolve(base, p string) string {
	if p == "" {
		return base
	}
	p = expandHome(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// EnsureDirectories creates the writable directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.LogsDir, p.ExportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ExportPath returns the path of a file inside the exports directory
func (p *Paths) ExportPath(name string) string {
	return filepath.Join(p.ExportsDir, filepath.Base(name))
}
