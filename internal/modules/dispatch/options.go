// README: Functional options for the dispatch service.
package dispatch

import (
	"time"

	"rideshare/internal/logger"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/notify"
	"rideshare/internal/modules/pricing"
)

type Option func(*Service)

func WithMatchingPolicy(p matching.Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

func WithFareCalculator(c pricing.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.fare = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithFanout(f *notify.Fanout) Option {
	return func(s *Service) {
		if f != nil {
			s.fanout = f
		}
	}
}
