package items

// Contains reports whether id is part of the universe.
func (s *Store) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.universeSet.Contains(id)
}

// IsSelected reports whether id is currently selected.
func (s *Store) IsSelected(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedSet.Contains(id)
}
