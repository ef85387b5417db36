// README: Prometheus sink counting lifecycle events and recording fares.
package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exports ride lifecycle counters. Registering twice on the same
// registry reuses the existing collectors.
type PromSink struct {
	statusChanges *prometheus.CounterVec
	assignments   *prometheus.CounterVec
	payments      *prometheus.CounterVec
	fares         prometheus.Histogram
}

func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rideshare_ride_status_changes_total",
		Help: "Number of ride status transitions by resulting status",
	}, []string{"status"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rideshare_driver_assignments_total",
		Help: "Number of drivers assigned to rides by vehicle class",
	}, []string{"vehicle_class"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rideshare_payments_total",
		Help: "Number of completed ride payments by vehicle class",
	}, []string{"vehicle_class"})
	fares := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rideshare_fare_amount",
		Help:    "Distribution of final ride fares",
		Buckets: []float64{25, 50, 75, 100, 150, 200, 300, 500},
	})

	var err error
	if statusChanges, err = registerCounterVec(reg, statusChanges); err != nil {
		return nil, err
	}
	if assignments, err = registerCounterVec(reg, assignments); err != nil {
		return nil, err
	}
	if payments, err = registerCounterVec(reg, payments); err != nil {
		return nil, err
	}
	if err := reg.Register(fares); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			fares = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	return &PromSink{statusChanges: statusChanges, assignments: assignments, payments: payments, fares: fares}, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

func (s *PromSink) OnStatusChanged(_ context.Context, e Event) error {
	s.statusChanges.WithLabelValues(string(e.Ride.Status)).Inc()
	return nil
}

func (s *PromSink) OnDriverAssigned(_ context.Context, e Event) error {
	s.assignments.WithLabelValues(string(e.Ride.VehicleClass)).Inc()
	return nil
}

func (s *PromSink) OnPaymentCompleted(_ context.Context, e Event) error {
	s.payments.WithLabelValues(string(e.Ride.VehicleClass)).Inc()
	s.fares.Observe(e.Ride.Fare)
	return nil
}
