package gateway

import (
	"sync"
	"time"
)

// idSource hands out local record ids: the current Unix time in milliseconds,
// bumped when needed so ids never repeat within the process.
type idSource struct {
	now func() time.Time

	mu   sync.Mutex
	last int64
}

func (s *idSource) next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
