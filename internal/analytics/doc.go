// Package analytics filters rental records and folds them into the tables
// behind each dashboard chart.
//
// Every function is pure: inputs are never modified and empty input yields
// empty output. Ordering of every result is deterministic so tables can be
// exported and compared as is.
package analytics
