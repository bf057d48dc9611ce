// Package services holds the report runner, batch processor and scheduler.
// They depend only on the driven ports; connectors and storage are
// injected by cmd/adreports.
package services
