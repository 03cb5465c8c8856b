package store

// BuildCount reports how many materializations ran, for testing purposes.
func (s *Store) BuildCount() int64 { return s.builds.Load() }

// HitCount reports how many fast path returns happened, for testing purposes.
func (s *Store) HitCount() int64 { return s.hits.Load() }
