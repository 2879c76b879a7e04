package items_test

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"picker/internal/items"
	"picker/internal/queue"
)

func fast(ops ...queue.Operation) queue.Batch {
	return queue.Batch{Lane: queue.LaneFast, Operations: ops}
}

func slow(ops ...queue.Operation) queue.Batch {
	return queue.Batch{Lane: queue.LaneSlow, Operations: ops}
}

func sel(id int64) queue.Operation { return queue.Operation{Type: queue.OpSelect, ID: id} }

func desel(id int64) queue.Operation { return queue.Operation{Type: queue.OpDeselect, ID: id} }

func add(id int64) queue.Operation { return queue.Operation{Type: queue.OpAdd, ID: id} }

func reorder(ids ...int64) queue.Operation {
	return queue.Operation{Type: queue.OpReorder, Order: ids}
}

func selectedIDs(t *testing.T, store *items.Store) []int64 {
	t.Helper()
	return store.ListSelected(0, 1_000_000, "").Items
}

func assertPartition(t *testing.T, store *items.Store) {
	t.Helper()
	stats := store.Stats()
	available := store.ListAvailable(0, stats.Universe+1, "")
	selected := store.ListSelected(0, stats.Universe+1, "")
	if available.Total+selected.Total != stats.Universe {
		t.Fatalf("partition broken: available=%d selected=%d universe=%d", available.Total, selected.Total, stats.Universe)
	}
	seen := make(map[int64]struct{}, stats.Universe)
	for _, id := range available.Items {
		seen[id] = struct{}{}
	}
	for _, id := range selected.Items {
		if _, dup := seen[id]; dup {
			t.Fatalf("id %d is both available and selected", id)
		}
		if !store.Contains(id) {
			t.Fatalf("selected id %d not in universe", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != stats.Universe {
		t.Fatalf("expected %d distinct ids, got %d", stats.Universe, len(seen))
	}
}

func TestNewSeedsUniverse(t *testing.T) {
	store := items.New(5)
	stats := store.Stats()
	if stats != (items.Stats{Universe: 5, Selected: 0, Available: 5}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	page := store.ListAvailable(0, 10, "")
	if !reflect.DeepEqual(page.Items, []int64{1, 2, 3, 4, 5}) || page.Total != 5 {
		t.Fatalf("unexpected available page: %+v", page)
	}
}

func TestSelectAppendsAndSkips(t *testing.T) {
	store := items.New(10)
	result := store.ApplyFast(fast(sel(3), sel(1), sel(3), sel(99)))

	if got := selectedIDs(t, store); !reflect.DeepEqual(got, []int64{3, 1}) {
		t.Fatalf("unexpected selection: %v", got)
	}
	if result.Applied != 2 || result.Skipped != 2 {
		t.Fatalf("unexpected counts: applied=%d skipped=%d", result.Applied, result.Skipped)
	}
	if result.Outcomes[2].Reason != items.SkipAlreadySelected {
		t.Fatalf("expected already_selected, got %q", result.Outcomes[2].Reason)
	}
	if result.Outcomes[3].Reason != items.SkipUnknownID {
		t.Fatalf("expected unknown_id, got %q", result.Outcomes[3].Reason)
	}
	assertPartition(t, store)
}

func TestDeselectPreservesOrder(t *testing.T) {
	store := items.New(10)
	store.ApplyFast(fast(sel(4), sel(2), sel(7), sel(5)))

	result := store.ApplyFast(fast(desel(2), desel(9)))
	if got := selectedIDs(t, store); !reflect.DeepEqual(got, []int64{4, 7, 5}) {
		t.Fatalf("unexpected selection: %v", got)
	}
	if result.Outcomes[1].Reason != items.SkipNotSelected {
		t.Fatalf("expected not_selected, got %q", result.Outcomes[1].Reason)
	}
	assertPartition(t, store)
}

func TestSelectThenDeselectNetsToDeselected(t *testing.T) {
	store := items.New(10)
	store.ApplyFast(fast(sel(5), desel(5)))
	if store.IsSelected(5) {
		t.Fatal("expected 5 to remain unselected")
	}
	assertPartition(t, store)
}

func TestReorderIsFullReplace(t *testing.T) {
	store := items.New(10)
	store.ApplyFast(fast(sel(1), sel(2), sel(3), sel(4)))

	result := store.ApplyFast(fast(reorder(3, 1)))
	if got := selectedIDs(t, store); !reflect.DeepEqual(got, []int64{3, 1}) {
		t.Fatalf("unexpected selection: %v", got)
	}
	if !result.Outcomes[0].Applied {
		t.Fatal("expected reorder applied")
	}
	available := store.ListAvailable(0, 20, "")
	if !slices.Contains(available.Items, 2) || !slices.Contains(available.Items, 4) {
		t.Fatalf("expected 2 and 4 to be available again: %v", available.Items)
	}
	assertPartition(t, store)
}

func TestReorderFiltersStaleAndRepeatedIDs(t *testing.T) {
	store := items.New(10)
	store.ApplyFast(fast(sel(1), sel(2)))

	result := store.ApplyFast(fast(reorder(9, 1, 2, 1)))
	if got := selectedIDs(t, store); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("unexpected selection: %v", got)
	}
	if result.Outcomes[0].Dropped != 2 {
		t.Fatalf("expected 2 dropped ids, got %d", result.Outcomes[0].Dropped)
	}
	assertPartition(t, store)
}

func TestReorderEmptyClearsSelection(t *testing.T) {
	store := items.New(5)
	store.ApplyFast(fast(sel(1), sel(2)))
	store.ApplyFast(fast(reorder()))
	if got := store.Stats().Selected; got != 0 {
		t.Fatalf("expected empty selection, got %d", got)
	}
	assertPartition(t, store)
}

func TestApplySlowAddsIdempotently(t *testing.T) {
	store := items.New(3)
	result := store.ApplySlow(slow(add(10), add(2), add(10)))

	if result.Applied != 1 || result.Skipped != 2 {
		t.Fatalf("unexpected counts: applied=%d skipped=%d", result.Applied, result.Skipped)
	}
	if result.Outcomes[1].Reason != items.SkipAlreadyPresent {
		t.Fatalf("expected already_present, got %q", result.Outcomes[1].Reason)
	}
	page := store.ListAvailable(0, 10, "")
	if !reflect.DeepEqual(page.Items, []int64{1, 2, 3, 10}) {
		t.Fatalf("expected added id at the tail: %v", page.Items)
	}
	assertPartition(t, store)
}

func TestApplyResultCarriesStatsOfItsOwnBatch(t *testing.T) {
	store := items.New(5)
	result := store.ApplyFast(fast(sel(1), sel(2)))
	if result.Stats != (items.Stats{Universe: 5, Selected: 2, Available: 3}) {
		t.Fatalf("unexpected fast stats: %+v", result.Stats)
	}

	const writers = 50
	universes := make(chan int, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			universes <- store.ApplySlow(slow(add(id))).Stats.Universe
		}(int64(100 + i))
	}
	wg.Wait()
	close(universes)

	seen := make(map[int]bool, writers)
	for n := range universes {
		if seen[n] {
			t.Fatalf("two batches reported universe size %d", n)
		}
		seen[n] = true
	}
	for n := 6; n <= 5+writers; n++ {
		if !seen[n] {
			t.Fatalf("no batch reported universe size %d", n)
		}
	}
}

func TestApplySkipsOperationsOnWrongLane(t *testing.T) {
	store := items.New(3)
	slowResult := store.ApplySlow(slow(sel(1)))
	fastResult := store.ApplyFast(fast(add(9)))
	if slowResult.Outcomes[0].Reason != items.SkipWrongLane || fastResult.Outcomes[0].Reason != items.SkipWrongLane {
		t.Fatalf("expected wrong_lane skips, got %q and %q", slowResult.Outcomes[0].Reason, fastResult.Outcomes[0].Reason)
	}
	if store.Stats() != (items.Stats{Universe: 3, Available: 3}) {
		t.Fatalf("store changed: %+v", store.Stats())
	}
}

func TestPaginationIsStable(t *testing.T) {
	store := items.New(100)
	store.ApplyFast(fast(sel(3), sel(30), sel(31)))

	first := store.ListAvailable(0, 20, "")
	second := store.ListAvailable(20, 20, "")
	both := store.ListAvailable(0, 40, "")

	joined := append(append([]int64{}, first.Items...), second.Items...)
	if !reflect.DeepEqual(joined, both.Items) {
		t.Fatalf("pages do not concatenate:\n%v\n%v", joined, both.Items)
	}
	if first.Total != 97 || second.Total != 97 {
		t.Fatalf("unexpected totals: %d %d", first.Total, second.Total)
	}
}

func TestFilterMatchesDecimalSubstring(t *testing.T) {
	store := items.New(600)
	store.ApplyFast(fast(sel(120)))

	page := store.ListAvailable(0, 100, "12")
	for _, id := range page.Items {
		if !strings.Contains(strconv.FormatInt(id, 10), "12") {
			t.Fatalf("id %d does not match filter", id)
		}
		if id == 120 {
			t.Fatal("selected id leaked into available view")
		}
	}
	for _, want := range []int64{12, 112, 512} {
		if !slices.Contains(page.Items, want) {
			t.Fatalf("expected %d in filtered page: %v", want, page.Items)
		}
	}

	selected := store.ListSelected(0, 10, "12")
	if !reflect.DeepEqual(selected.Items, []int64{120}) || selected.Total != 1 {
		t.Fatalf("unexpected selected filter result: %+v", selected)
	}
}

func TestFilteredSelectedKeepsOrder(t *testing.T) {
	store := items.New(50)
	store.ApplyFast(fast(sel(21), sel(2), sel(12), sel(3), sel(22)))

	page := store.ListSelected(0, 10, "2")
	if !reflect.DeepEqual(page.Items, []int64{21, 2, 12, 22}) {
		t.Fatalf("filter reordered selection: %v", page.Items)
	}
	window := store.ListSelected(1, 2, "2")
	if !reflect.DeepEqual(window.Items, []int64{2, 12}) || window.Total != 4 {
		t.Fatalf("unexpected filtered window: %+v", window)
	}
}

func TestOutOfRangeOffsetsReturnEmpty(t *testing.T) {
	store := items.New(5)
	store.ApplyFast(fast(sel(1)))

	tests := []struct {
		name string
		page items.Page
		want int
	}{
		{"available", store.ListAvailable(50, 10, ""), 4},
		{"available filtered", store.ListAvailable(50, 10, "1"), 0},
		{"selected", store.ListSelected(5, 10, ""), 1},
		{"selected filtered", store.ListSelected(5, 10, "1"), 1},
	}
	for _, tc := range tests {
		if len(tc.page.Items) != 0 {
			t.Fatalf("%s: expected empty items, got %v", tc.name, tc.page.Items)
		}
		if tc.page.Items == nil {
			t.Fatalf("%s: expected non-nil empty slice", tc.name)
		}
		if tc.page.Total != tc.want {
			t.Fatalf("%s: expected total %d, got %d", tc.name, tc.want, tc.page.Total)
		}
	}
}

func TestNegativeWindowValuesAreClamped(t *testing.T) {
	store := items.New(5)
	page := store.ListAvailable(-3, 2, "")
	if !reflect.DeepEqual(page.Items, []int64{1, 2}) {
		t.Fatalf("unexpected page: %v", page.Items)
	}
	if got := store.ListSelected(0, -1, ""); len(got.Items) != 0 {
		t.Fatalf("expected empty page for negative limit, got %v", got.Items)
	}
}

func TestEndToEndSelectFromLargeUniverse(t *testing.T) {
	store := items.New(1_000_000)
	store.ApplyFast(fast(sel(5)))

	selected := store.ListSelected(0, 20, "")
	if !reflect.DeepEqual(selected.Items, []int64{5}) || selected.Total != 1 {
		t.Fatalf("unexpected selected page: %+v", selected)
	}
	matching := store.ListAvailable(0, 1_000_000, "5")
	if slices.Contains(matching.Items, 5) {
		t.Fatal("expected 5 to be excluded from available view")
	}
	if store.Stats().Available != 999_999 {
		t.Fatalf("unexpected available count: %d", store.Stats().Available)
	}
}

func TestConcurrentReadsDuringApply(t *testing.T) {
	store := items.New(1000)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			page := store.ListSelected(0, 1000, "")
			seen := make(map[int64]struct{}, len(page.Items))
			for _, id := range page.Items {
				if _, dup := seen[id]; dup {
					t.Errorf("duplicate %d in selection", id)
					return
				}
				seen[id] = struct{}{}
			}
		}
	}()

	for i := int64(1); i <= 200; i++ {
		store.ApplyFast(fast(sel(i), sel(i+1)))
		store.ApplyFast(fast(reorder(i+1, i, i-1)))
	}
	close(stop)
	wg.Wait()
	assertPartition(t, store)
}
