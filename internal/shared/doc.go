// Package shared holds helpers used by more than one bikedash package.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// structured log output and CSV fixture writers that build rental datasets
// inside t.TempDir().
package shared
