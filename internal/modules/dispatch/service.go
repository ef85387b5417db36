// README: Dispatch service coordinates riders, drivers, rides, matching, pricing and notifications.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rideshare/internal/logger"
	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/notify"
	"rideshare/internal/modules/pricing"
	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

// Service owns the registry, the ride table and the active policies. Every
// operation runs under one lock, so a driver can never be matched to two
// active rides. Events are delivered after the lock is released, in the order
// the state changes happened. Sinks may read the service but must not write to it.
type Service struct {
	mu sync.Mutex

	// batch n is delivered once batches 0..n-1 are done
	emitMu     sync.Mutex
	emitCond   *sync.Cond
	nextTicket uint64
	serving    uint64

	registry *fleet.Registry
	rides    map[types.ID]*ride.Ride
	order    []types.ID
	counter  int

	policy matching.Policy
	fare   pricing.Calculator
	fanout *notify.Fanout
	now    func() time.Time
	log    logger.Logger
}

func NewService(registry *fleet.Registry, opts ...Option) *Service {
	if registry == nil {
		registry = fleet.NewRegistry()
	}
	s := &Service{
		registry: registry,
		rides:    make(map[types.ID]*ride.Ride),
		policy:   matching.Nearest{},
		fare:     pricing.NewChain(pricing.NewBase()),
		now:      time.Now,
		log:      logger.NopLogger{},
	}
	s.emitCond = sync.NewCond(&s.emitMu)
	for _, opt := range opts {
		opt(s)
	}
	if s.fanout == nil {
		s.fanout = notify.NewFanout(s.log)
	}
	return s
}

// apply runs fn under the state lock and then delivers the events it produced.
// The delivery ticket is taken under mu, so ticket order is state-change order;
// mu is released before waiting for the turn.
func (s *Service) apply(ctx context.Context, fn func(now time.Time) ([]notify.Event, error)) error {
	s.mu.Lock()
	events, err := func() (ev []notify.Event, err error) {
		defer func() {
			if r := recover(); r != nil {
				s.mu.Unlock()
				panic(r)
			}
		}()
		return fn(s.now())
	}()
	if len(events) == 0 {
		s.mu.Unlock()
		return err
	}
	ticket := s.nextTicket
	s.nextTicket++
	s.mu.Unlock()

	s.deliver(ctx, ticket, events)
	return err
}

func (s *Service) deliver(ctx context.Context, ticket uint64, events []notify.Event) {
	s.emitMu.Lock()
	for s.serving != ticket {
		s.emitCond.Wait()
	}
	s.emitMu.Unlock()

	defer func() {
		s.emitMu.Lock()
		s.serving++
		s.emitCond.Broadcast()
		s.emitMu.Unlock()
	}()
	for _, e := range events {
		// sink failures are logged by the fan-out and never undo a state change
		_ = s.fanout.Emit(ctx, e)
	}
}

func (s *Service) RegisterRider(ctx context.Context, cmd RegisterRiderCommand) (fleet.Rider, error) {
	var out fleet.Rider
	err := s.apply(ctx, func(time.Time) ([]notify.Event, error) {
		rider := fleet.Rider{
			ID:      cmd.ID,
			Profile: fleet.Profile{Name: cmd.Name, Phone: cmd.Phone, Location: cmd.Location},
			Rating:  ratingOrDefault(cmd.Rating),
		}
		if err := s.registry.AddRider(rider); err != nil {
			return nil, err
		}
		out = rider
		s.log.Infof("rider %s registered", rider.ID)
		return nil, nil
	})
	return out, err
}

func (s *Service) RegisterDriver(ctx context.Context, cmd RegisterDriverCommand) (fleet.Driver, error) {
	var out fleet.Driver
	err := s.apply(ctx, func(time.Time) ([]notify.Event, error) {
		vehicleID := cmd.VehicleID
		if vehicleID == "" {
			vehicleID = "V_" + cmd.ID
		}
		v, err := fleet.NewVehicle(cmd.VehicleClass, vehicleID, cmd.Plate)
		if err != nil {
			return nil, err
		}
		d := fleet.Driver{
			ID:      cmd.ID,
			Profile: fleet.Profile{Name: cmd.Name, Phone: cmd.Phone, Location: cmd.Location},
			Rating:  ratingOrDefault(cmd.Rating),
			Status:  fleet.DriverAvailable,
			Vehicle: v,
		}
		if err := s.registry.AddDriver(d); err != nil {
			return nil, err
		}
		out = d
		s.log.Infof("driver %s registered with %s %s", d.ID, v.Class.Label(), v.ID)
		return nil, nil
	})
	return out, err
}

func (s *Service) Rider(ctx context.Context, id types.ID) (fleet.Rider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.registry.Rider(id)
	if err != nil {
		return fleet.Rider{}, err
	}
	cp := *r
	cp.History = append([]types.ID(nil), r.History...)
	return cp, nil
}

func (s *Service) Driver(ctx context.Context, id types.ID) (fleet.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.registry.Driver(id)
	if err != nil {
		return fleet.Driver{}, err
	}
	cp := *d
	cp.History = append([]types.ID(nil), d.History...)
	return cp, nil
}

// RequestRide matches a new ride to a driver. An unmatched request is not
// stored, though it still consumes a ride number.
func (s *Service) RequestRide(ctx context.Context, cmd RequestRideCommand) (ride.Ride, error) {
	if _, err := fleet.ParseVehicleClass(string(cmd.VehicleClass)); err != nil {
		return ride.Ride{}, err
	}
	if _, err := ride.ParseCategory(string(cmd.Category)); err != nil {
		return ride.Ride{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	var out ride.Ride
	err := s.apply(ctx, func(now time.Time) ([]notify.Event, error) {
		rider, err := s.registry.Rider(cmd.RiderID)
		if err != nil {
			return nil, err
		}
		s.counter++
		id := types.ID(fmt.Sprintf("%s%d", RideIDPrefix, s.counter))
		r := ride.New(id, rider.ID, cmd.Pickup, cmd.Dropoff, cmd.VehicleClass, cmd.Category, now)

		driverID, ok := s.policy.Select(s.registry.AvailableDrivers(), r.Clone())
		if !ok {
			s.log.Warnf("no %s driver available for ride %s", cmd.VehicleClass.Label(), id)
			return nil, fmt.Errorf("%w: %s for ride %s", ErrNoMatch, cmd.VehicleClass.Label(), id)
		}
		driver, err := s.registry.Driver(driverID)
		if err != nil || !driver.IsAvailable() || driver.Vehicle.Class != cmd.VehicleClass {
			s.log.Errorf("policy %s selected ineligible driver %s", s.policy.Name(), driverID)
			return nil, fmt.Errorf("%w: for ride %s", ErrNoMatch, id)
		}
		if err := r.AssignDriver(driver.ID); err != nil {
			return nil, err
		}
		driver.Status = fleet.DriverOnTrip
		s.rides[id] = r
		s.order = append(s.order, id)
		out = r.Clone()

		s.log.Infof("ride %s requested by %s matched to driver %s via %s", id, rider.ID, driver.ID, s.policy.Name())
		return []notify.Event{
			notify.NewEvent(notify.KindDriverAssigned, r, driver.Profile.Name, now),
			notify.NewEvent(notify.KindStatusChanged, r, driver.Profile.Name, now),
		}, nil
	})
	return out, err
}

// StartRide moves an assigned ride through en route into progress.
func (s *Service) StartRide(ctx context.Context, id types.ID) (ride.Ride, error) {
	var out ride.Ride
	err := s.apply(ctx, func(now time.Time) ([]notify.Event, error) {
		r, ok := s.rides[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRideNotFound, id)
		}
		if r.Status != ride.StatusDriverAssigned {
			return nil, fmt.Errorf("%w: cannot start ride %s in status %s", ErrInvalidState, id, r.Status)
		}
		name := s.driverName(r.DriverID)
		if err := r.MarkEnRoute(); err != nil {
			return nil, err
		}
		events := []notify.Event{notify.NewEvent(notify.KindStatusChanged, r, name, now)}
		if err := r.Begin(now); err != nil {
			return events, err
		}
		events = append(events, notify.NewEvent(notify.KindStatusChanged, r, name, now))
		out = r.Clone()
		s.log.Infof("ride %s started", id)
		return events, nil
	})
	return out, err
}

// CompleteRide prices the ride with the active fare calculator and releases the driver.
func (s *Service) CompleteRide(ctx context.Context, id types.ID) (ride.Ride, error) {
	var out ride.Ride
	err := s.apply(ctx, func(now time.Time) ([]notify.Event, error) {
		r, ok := s.rides[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRideNotFound, id)
		}
		if r.Status != ride.StatusInProgress {
			return nil, fmt.Errorf("%w: cannot complete ride %s in status %s", ErrInvalidState, id, r.Status)
		}
		driver, err := s.registry.Driver(r.DriverID)
		if err != nil {
			return nil, err
		}
		rider, err := s.registry.Rider(r.RiderID)
		if err != nil {
			return nil, err
		}

		fare := s.fare.Calculate(pricing.TripOf(r.Clone(), &driver.Vehicle))
		if err := r.Complete(now, fare); err != nil {
			return nil, err
		}
		driver.Status = fleet.DriverAvailable
		driver.History = append(driver.History, r.ID)
		rider.History = append(rider.History, r.ID)
		out = r.Clone()

		desc := s.fare.Description()
		s.log.Infof("ride %s completed, fare %.2f (%s)", id, fare, desc)
		paid := notify.NewEvent(notify.KindPaymentCompleted, r, driver.Profile.Name, now)
		paid.FareDescription = desc
		return []notify.Event{
			notify.NewEvent(notify.KindStatusChanged, r, driver.Profile.Name, now),
			paid,
		}, nil
	})
	return out, err
}

// CancelRide cancels a ride that has not finished and frees its driver.
func (s *Service) CancelRide(ctx context.Context, cmd CancelRideCommand) (ride.Ride, error) {
	var out ride.Ride
	err := s.apply(ctx, func(now time.Time) ([]notify.Event, error) {
		r, ok := s.rides[cmd.RideID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRideNotFound, cmd.RideID)
		}
		if err := r.Cancel(now, cmd.Reason); err != nil {
			return nil, err
		}
		if r.HasDriver() {
			if d, err := s.registry.Driver(r.DriverID); err == nil {
				d.Status = fleet.DriverAvailable
			}
		}
		out = r.Clone()
		s.log.Infof("ride %s cancelled: %s", r.ID, cmd.Reason)
		return []notify.Event{notify.NewEvent(notify.KindStatusChanged, r, s.driverName(r.DriverID), now)}, nil
	})
	return out, err
}

func (s *Service) GetRide(ctx context.Context, id types.ID) (ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok {
		return ride.Ride{}, fmt.Errorf("%w: %s", ErrRideNotFound, id)
	}
	return r.Clone(), nil
}

// ListRides returns every stored ride in request order.
func (s *Service) ListRides(ctx context.Context) []ride.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ride.Ride, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rides[id].Clone())
	}
	return out
}

// SetDriverStatus toggles a driver between available and offline. Trip status
// is owned by the ride lifecycle.
func (s *Service) SetDriverStatus(ctx context.Context, id types.ID, status fleet.DriverStatus) error {
	if _, err := fleet.ParseDriverStatus(string(status)); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return s.apply(ctx, func(time.Time) ([]notify.Event, error) {
		d, err := s.registry.Driver(id)
		if err != nil {
			return nil, err
		}
		if status == fleet.DriverOnTrip {
			return nil, fmt.Errorf("%w: drivers go on trip only through matching", ErrInvalidState)
		}
		if d.Status == fleet.DriverOnTrip {
			return nil, fmt.Errorf("%w: %s", ErrDriverBusy, id)
		}
		d.Status = status
		s.log.Infof("driver %s is now %s", id, status)
		return nil, nil
	})
}

func (s *Service) UpdateDriverLocation(ctx context.Context, id types.ID, p types.Point) error {
	return s.apply(ctx, func(time.Time) ([]notify.Event, error) {
		d, err := s.registry.Driver(id)
		if err != nil {
			return nil, err
		}
		d.Profile.Location = p
		s.log.Debugw("driver location updated", map[string]any{"driver_id": string(id), "lat": p.Lat, "lng": p.Lng})
		return nil, nil
	})
}

func (s *Service) SetMatchingPolicy(p matching.Policy) error {
	if p == nil {
		return fmt.Errorf("%w: nil matching policy", ErrBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
	s.log.Infof("matching policy set to %s", p.Name())
	return nil
}

func (s *Service) SetFareCalculator(c pricing.Calculator) error {
	if c == nil {
		return fmt.Errorf("%w: nil fare calculator", ErrBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fare = c
	s.log.Infof("fare calculator set to %s", c.Description())
	return nil
}

func (s *Service) RegisterSink(name string, sink notify.Sink) error {
	return s.fanout.Register(name, sink)
}

func (s *Service) UnregisterSink(name string) bool {
	return s.fanout.Unregister(name)
}

func (s *Service) Sinks() []string {
	return s.fanout.Names()
}

func (s *Service) Status(ctx context.Context) SystemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.registry.Counts()
	st := SystemStatus{
		Riders:           c.Riders,
		Drivers:          c.Drivers,
		AvailableDrivers: c.AvailableDrivers,
		Rides:            len(s.rides),
		MatchingPolicy:   s.policy.Name(),
		FareDescription:  s.fare.Description(),
	}
	for _, r := range s.rides {
		if r.IsActive() {
			st.ActiveRides++
		}
	}
	return st
}

func (s *Service) driverName(id types.ID) string {
	if id == "" {
		return ""
	}
	if d, err := s.registry.Driver(id); err == nil {
		return d.Profile.Name
	}
	return ""
}
