package redeploy

import (
	"sync"
	"time"
)

// Stamper hands out Unix-second timestamps that strictly increase, even when two
// redeploys start within the same second.
type Stamper struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

func (s *Stamper) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC().Unix()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts

	return ts
}
