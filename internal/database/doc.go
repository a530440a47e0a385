// Package database provides SQLite-based storage for doughub.
//
// QuestionDB implements the persistence adapter used by the round-trip
// stage of the validation pipeline. It stores:
//   - Question records, keyed by their fixture-derived id
//   - Validation results for each fixture run, for history and regression review
//
// SQLite is accessed through modernc.org/sqlite, which is CGO-free. The
// database is a single file; WAL mode lets readers proceed while a batch
// writes results.
package database
