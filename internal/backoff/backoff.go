package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy names how the delay grows between attempts.
type Policy string

const (
	Fixed       Policy = "fixed"
	Linear      Policy = "linear"
	Exponential Policy = "exponential"
	EqualJitter Policy = "exp_equal_jitter"
	FullJitter  Policy = "exp_full_jitter"
)

// ParsePolicy maps a flag value onto a Policy. Unknown values fall back to FullJitter.
func ParsePolicy(s string) Policy {
	switch p := Policy(s); p {
	case Fixed, Linear, Exponential, EqualJitter, FullJitter:
		return p
	}
	return FullJitter
}

// Schedule computes wait times between polls of a remote resource.
type Schedule struct {
	Policy Policy
	Base   time.Duration
	Max    time.Duration
	rng    *rand.Rand
}

func NewSchedule(policy Policy, base, max time.Duration, rng *rand.Rand) *Schedule {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = base
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Schedule{Policy: policy, Base: base, Max: max, rng: rng}
}

// Delay returns the wait before attempt n (n >= 0).
func (s *Schedule) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	switch s.Policy {
	case Fixed:
		return min(s.Base, s.Max)
	case Linear:
		return min(s.Base*time.Duration(max(1, attempt)), s.Max)
	case Exponential:
		return s.grown(attempt)
	case EqualJitter:
		ceiling := s.grown(attempt)
		half := ceiling / 2
		return half + time.Duration(s.rng.Int63n(int64(ceiling-half)+1))
	default:
		ceiling := s.grown(attempt)
		if ceiling <= 0 {
			return 0
		}
		return time.Duration(s.rng.Int63n(int64(ceiling) + 1))
	}
}

func (s *Schedule) grown(attempt int) time.Duration {
	f := float64(s.Base) * math.Pow(2, float64(attempt))
	if f >= float64(s.Max) {
		return s.Max
	}
	return time.Duration(f)
}
