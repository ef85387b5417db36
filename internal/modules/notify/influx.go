// README: Sink writing one time-series point per lifecycle event to InfluxDB.
package notify

import (
	"context"
	"fmt"
	"math"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const influxMeasurement = "ride_event"

// pointWriter is the subset of api.WriteAPIBlocking used here.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type InfluxSink struct {
	writer pointWriter
}

func NewInfluxSink(w pointWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

// Point renders e as a ride_event point stamped with the event time.
func Point(e Event) *write.Point {
	p := write.NewPointWithMeasurement(influxMeasurement).
		AddTag("kind", string(e.Kind)).
		AddTag("status", string(e.Ride.Status)).
		AddTag("vehicle_class", string(e.Ride.VehicleClass)).
		AddTag("ride_id", string(e.Ride.ID)).
		AddField("distance_km", round3(e.Ride.DistanceKm())).
		SetTime(e.At)
	if e.Ride.HasDriver() {
		p.AddTag("driver_id", string(e.Ride.DriverID))
	}
	if e.Kind == KindPaymentCompleted {
		p.AddField("fare", round3(e.Ride.Fare))
	}
	return p
}

func (s *InfluxSink) write(ctx context.Context, e Event) error {
	if err := s.writer.WritePoint(ctx, Point(e)); err != nil {
		return fmt.Errorf("influx write %s: %w", e.Kind, err)
	}
	return nil
}

func (s *InfluxSink) OnStatusChanged(ctx context.Context, e Event) error {
	return s.write(ctx, e)
}

func (s *InfluxSink) OnDriverAssigned(ctx context.Context, e Event) error {
	return s.write(ctx, e)
}

func (s *InfluxSink) OnPaymentCompleted(ctx context.Context, e Event) error {
	return s.write(ctx, e)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
