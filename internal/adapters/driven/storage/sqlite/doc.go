// Package sqlite persists report runs and schedules in a local SQLite
// database using the pure-Go modernc.org/sqlite driver.
//
// The database lives at ~/.adreports/data/adreports.db unless another data
// directory is given. Migrations in the migrations package are applied on
// open and recorded in schema_migrations.
//
// Times are stored as RFC3339 text in UTC. The Store hands out a RunStore
// and a SchedulerStore that share one connection pool.
package sqlite
