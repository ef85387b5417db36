// README: Base fare calculator and the adjustment pipeline (surge, discount).
package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Base computes (base + distance*rate) * vehicle multiplier.
type Base struct {
	BaseFare  float64
	PerKmRate float64
}

func NewBase() Base {
	return Base{BaseFare: DefaultBaseFare, PerKmRate: DefaultPerKmRate}
}

func (b Base) Calculate(t Trip) float64 {
	multiplier := 1.0
	if t.RateCoefficient > 0 {
		multiplier = t.RateCoefficient / DefaultPerKmRate
	}
	return math.Max(0, (b.BaseFare+t.DistanceKm*b.PerKmRate)*multiplier)
}

func (Base) Description() string { return "Base Fare Calculator" }

// Adjustment transforms an upstream fare.
type Adjustment struct {
	Label string
	Apply func(fare float64) float64
}

func Surge(factor float64) Adjustment {
	return Adjustment{
		Label: "Surge Pricing",
		Apply: func(fare float64) float64 { return fare * factor },
	}
}

func Discount(fraction float64) Adjustment {
	return Adjustment{
		Label: "Discount Applied",
		Apply: func(fare float64) float64 { return fare * (1.0 - fraction) },
	}
}

// Chain applies adjustments in order on top of an inner calculator. The inner
// calculator may itself be a Chain.
type Chain struct {
	inner Calculator
	steps []Adjustment
}

func NewChain(inner Calculator, steps ...Adjustment) *Chain {
	return &Chain{inner: inner, steps: append([]Adjustment(nil), steps...)}
}

// With returns a new chain with extra steps; the receiver is left untouched.
func (c *Chain) With(steps ...Adjustment) *Chain {
	next := make([]Adjustment, 0, len(c.steps)+len(steps))
	next = append(next, c.steps...)
	next = append(next, steps...)
	return &Chain{inner: c.inner, steps: next}
}

func (c *Chain) Calculate(t Trip) float64 {
	fare := c.inner.Calculate(t)
	for _, s := range c.steps {
		fare = s.Apply(fare)
	}
	return math.Max(0, fare)
}

func (c *Chain) Description() string {
	var b strings.Builder
	b.WriteString(c.inner.Description())
	for _, s := range c.steps {
		b.WriteString(" + ")
		b.WriteString(s.Label)
	}
	return b.String()
}

// FromConfig builds the fare chain described by cfg. Base fare and rate are
// taken as given; zero surge or discount adds no step.
func FromConfig(cfg Config) (*Chain, error) {
	base := Base{BaseFare: cfg.BaseFare, PerKmRate: cfg.PerKmRate}
	if base.BaseFare < 0 || base.PerKmRate < 0 {
		return nil, fmt.Errorf("%w: base fare and rate must be >= 0", ErrInvalidAdjustment)
	}
	var steps []Adjustment
	switch {
	case cfg.Surge < 0:
		return nil, fmt.Errorf("%w: surge %.2f", ErrInvalidAdjustment, cfg.Surge)
	case cfg.Surge > 0:
		steps = append(steps, Surge(cfg.Surge))
	}
	switch {
	case cfg.Discount < 0 || cfg.Discount >= 1:
		return nil, fmt.Errorf("%w: discount %.2f not in [0, 1)", ErrInvalidAdjustment, cfg.Discount)
	case cfg.Discount > 0:
		steps = append(steps, Discount(cfg.Discount))
	}
	return NewChain(base, steps...), nil
}
