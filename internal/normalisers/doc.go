// Package normalisers provides the Flattener implementations that turn nested
// API responses into single-level rows. Each flattener knows the response
// shape of one or more report sources.
//
// Flatteners are registered with the Registry at startup.
package normalisers
