package serializer

// waiters reports how many callers hold or wait for id.
func (s *Serializer) waiters(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[id]; ok {
		return l.refs
	}
	return 0
}
