// Package items owns the identifier universe and the ordered selection.
//
// The Store is the single ground truth for which ids exist and which are
// selected. It applies flushed queue batches and answers paginated,
// filterable reads of the available and selected views. One RWMutex guards
// every field: applies hold the write lock for a whole batch so readers never
// observe a partially applied reorder.
//
// Universe enumeration follows insertion order: the initial range ascending,
// then added ids in the order their batches applied them. Pagination over the
// available view is therefore stable between mutations.
package items
