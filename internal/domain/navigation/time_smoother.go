package navigation

import "time"

// timeSmoother turns runs of identical or slightly out-of-order clock
// readings into distinct increasing timestamps
type timeSmoother struct {
	low, high time.Time
}

func (s *timeSmoother) smooth(t time.Time) time.Time {
	if !s.low.IsZero() && !t.Before(s.low) && !t.After(s.high) {
		s.high = s.high.Add(time.Microsecond)
		return s.high
	}
	s.low, s.high = t, t
	return t
}
