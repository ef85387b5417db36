// README: Sink that writes one structured log line per lifecycle event.
package notify

import (
	"context"

	"rideshare/internal/logger"
)

type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) OnStatusChanged(_ context.Context, e Event) error {
	s.log.Debugw("ride status changed", fields(e))
	return nil
}

func (s *LogSink) OnDriverAssigned(_ context.Context, e Event) error {
	s.log.Infof("driver %s (%s) assigned to ride %s", e.Ride.DriverID, e.DriverName, e.Ride.ID)
	return nil
}

func (s *LogSink) OnPaymentCompleted(_ context.Context, e Event) error {
	s.log.Infof("payment of %.2f completed for ride %s (%s)", e.Ride.Fare, e.Ride.ID, e.FareDescription)
	return nil
}

func fields(e Event) map[string]any {
	return map[string]any{
		"event_id":  e.ID.String(),
		"ride_id":   string(e.Ride.ID),
		"status":    string(e.Ride.Status),
		"driver_id": string(e.Ride.DriverID),
	}
}
