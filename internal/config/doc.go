// Package config loads bikedash configuration.
//
// Values come from, in order of precedence:
//
//  1. Environment variables prefixed BIKEDASH_ (a .env file in the working
//     directory is loaded first and never overrides real variables)
//  2. A YAML file: the path passed to Load, else bikedash.yaml or
//     configs/bikedash.yaml when present
//  3. The `default` struct tags
//
// Nested sections map onto underscored names:
//
//	BIKEDASH_SERVER_PORT=9090
//	BIKEDASH_DATASET_FILE=/srv/data/all_data.csv
//	BIKEDASH_DATASET_PROFILE=x
//	BIKEDASH_TELEMETRY_TRACE_EXPORTER=stdout
//
// envconfig also falls back to the unprefixed tag name, so a bare PORT is
// honoured when BIKEDASH_SERVER_PORT is unset.
//
// Load validates the result; Default returns the same values an empty
// environment would produce, for tests and tooling.
package config
