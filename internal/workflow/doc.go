// Package workflow dispatches flushed queue batches to the item store.
//
// The Manager owns the coalescing queue and registers one handler per lane.
// Each handler tags the batch with an identifier, applies it to the store in
// a single pass, logs the summary (info) and every skipped operation (debug),
// records the batch in the journal, updates metrics, and publishes a
// BatchEvent to the Feed. Journal failures are logged as warnings and never
// hold up the apply.
//
// The fast lane carries select, deselect and reorder; the slow lane carries
// add. The two lanes flush on independent tickers, so a slow add never
// delays selection changes.
package workflow
