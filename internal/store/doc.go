// Package store provides SQLite-backed storage for testbench runs.
//
// The store is an append-only run log:
//   - Runs: one row per scenario run, with the scenario source so the run
//     can be replayed, and its outcome once finished
//   - Events: the run's trace, one row per testbench event
//
// # Ordering
//
// Events are keyed by (run_id, seq) and always read in seq order. Simulated
// time is stored but never used for ordering, so a reread trace hashes to the
// same digest as the one the harness produced.
//
// Run ids are UUIDv7 by default. They sort by creation time, and ListRuns
// orders by id with COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events cannot outlive their run
//
// Schema changes are applied through PRAGMA user_version migrations.
package store
