// Package queue coalesces item mutations into deduplicated, time-windowed
// batches.
//
// Every Operation maps to a dedup key and a lane. Adds travel the slow lane
// keyed by id; selects and deselects travel the fast lane keyed by type and
// id; all reorders share one fast-lane key so only the latest survives a
// window. Enqueueing an existing key replaces the earlier operation and moves
// it to the tail of the buffer.
//
// Each lane flushes on its own ticker. A flush swaps the lane buffer for an
// empty one under the queue lock and then runs the lane handler on the
// detached batch, so operations enqueued during a handler land in the next
// window. Stop cancels both tickers, waits for an in-flight flush, and drops
// whatever is still buffered.
package queue
