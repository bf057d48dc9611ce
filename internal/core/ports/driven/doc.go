// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ReportSource: Streams raw API records from an ad or analytics platform
//   - Flattener: Turns one raw record into flat rows
//   - TableProcessor: Derives or drops columns on an assembled table
//   - RunStore: Run history persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SpreadsheetSink, TableSink, FileExporter: Report destinations
//   - Mailer, Notifier: Run summaries and failure alerts
//   - BatchJobService: Only needed for batch mutate jobs
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
