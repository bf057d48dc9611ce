// Package warehouse writes report tables to a SQL warehouse.
//
// Two drivers are supported: MySQL through go-sql-driver/mysql and
// PostgreSQL through pgx. Each write creates the table when missing,
// empties it and inserts every row inside one transaction, so readers
// never see a half-written table.
//
// Column types are inferred from the cells: a column holding only Int
// values becomes BIGINT, Int and Float become a double, Bool becomes
// BOOLEAN and anything else is stored as text.
package warehouse
