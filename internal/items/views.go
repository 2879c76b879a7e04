package items

import (
	"bytes"
	"strconv"
)

// Page is one window of a filtered view plus the filtered total.
type Page struct {
	Items []int64
	Total int
}

// ListAvailable pages through the universe minus the selection in universe
// order. filter is a substring match on the decimal id; empty means none.
func (s *Store) ListAvailable(offset, limit int, filter string) Page {
	offset, limit = clampWindow(offset, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter == "" {
		total := len(s.universe) - len(s.selected)
		items := make([]int64, 0, min(limit, max(total-offset, 0)))
		skipped := 0
		for _, id := range s.universe {
			if len(items) == limit {
				break
			}
			if s.selectedSet.Contains(id) {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			items = append(items, id)
		}
		return Page{Items: items, Total: total}
	}

	return collect(s.universe, offset, limit, newMatcher(filter), func(id int64) bool {
		return !s.selectedSet.Contains(id)
	})
}

// ListSelected pages through the selected sequence in its stored order.
func (s *Store) ListSelected(offset, limit int, filter string) Page {
	offset, limit = clampWindow(offset, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter == "" {
		total := len(s.selected)
		if offset >= total {
			return Page{Items: []int64{}, Total: total}
		}
		end := min(offset+limit, total)
		items := make([]int64, end-offset)
		copy(items, s.selected[offset:end])
		return Page{Items: items, Total: total}
	}

	return collect(s.selected, offset, limit, newMatcher(filter), nil)
}

func collect(ids []int64, offset, limit int, match *matcher, keep func(int64) bool) Page {
	items := make([]int64, 0, min(limit, 64))
	total := 0
	for _, id := range ids {
		if keep != nil && !keep(id) {
			continue
		}
		if !match.matches(id) {
			continue
		}
		if total >= offset && len(items) < limit {
			items = append(items, id)
		}
		total++
	}
	return Page{Items: items, Total: total}
}

type matcher struct {
	needle  []byte
	scratch []byte
}

func newMatcher(filter string) *matcher {
	return &matcher{needle: []byte(filter), scratch: make([]byte, 0, 20)}
}

func (m *matcher) matches(id int64) bool {
	m.scratch = strconv.AppendInt(m.scratch[:0], id, 10)
	return bytes.Contains(m.scratch, m.needle)
}

func clampWindow(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	return offset, limit
}
