// Package file provides the TOML configuration store kept at
// ~/.adreports/config.toml.
//
// Nested tables are flattened to dot keys on load ("schedules.daily.report")
// and nested again on save, so the file stays hand-editable.
package file
