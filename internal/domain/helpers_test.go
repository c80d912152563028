package domain

import (
	"fmt"
	"time"
)

// seqIDs issues predictable ids for tests.
type seqIDs struct {
	prefix string
	n      int
}

func (s *seqIDs) NewID() string {
	s.n++
	p := s.prefix
	if p == "" {
		p = "id"
	}
	return fmt.Sprintf("%s-%d", p, s.n)
}

// fixedClock pins Now to one instant.
type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func testData() GlobalData {
	ids := &seqIDs{}
	return DefaultData(ids)
}
