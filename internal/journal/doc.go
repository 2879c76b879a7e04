// Package journal records applied batches in SQLite.
//
// Every flushed batch becomes one row in batches plus one row per operation
// in batch_ops, carrying the outcome the store reported (applied or skipped
// with a reason). The item store itself is volatile, so the journal is
// transient too: the daemon wipes the database when it opens it and prunes
// it to the newest max_batches rows after every write.
//
// The schema version lives in PRAGMA user_version. Opening an existing
// database without a reset fails with ErrSchemaMismatch when it differs.
package journal
