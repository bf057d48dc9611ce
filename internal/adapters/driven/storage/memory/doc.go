// Package memory provides in-memory implementations of the driven storage
// ports. cmd/adreports falls back to them when the sqlite file cannot be
// opened; history then lasts only for the process.
package memory
