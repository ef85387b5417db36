package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/notify"
	"rideshare/internal/modules/pricing"
	"rideshare/internal/modules/ride"
	"rideshare/internal/types"
)

var (
	base    = types.Point{Lat: 12.9716, Lng: 77.5946, Label: "MG Road"}
	dropoff = types.Point{Lat: 13.0716, Lng: 77.5946, Label: "Hebbal"}
	t0      = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

// north returns a point km kilometres north of base.
func north(km float64) types.Point {
	return types.Point{Lat: base.Lat + km/111.195, Lng: base.Lng}
}

func rating(v float64) *float64 { return &v }

type eventLog struct {
	mu     sync.Mutex
	events []notify.Event
}

func (l *eventLog) record(_ context.Context, e notify.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) sink() notify.Sink {
	return notify.SinkFuncs{StatusChanged: l.record, DriverAssigned: l.record, PaymentCompleted: l.record}
}

func (l *eventLog) kinds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		out = append(out, string(e.Kind)+":"+string(e.Ride.Status))
	}
	return out
}

func (l *eventLog) reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

func newTestService(t *testing.T, opts ...Option) (*Service, *eventLog) {
	t.Helper()
	clock := t0
	opts = append([]Option{WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})}, opts...)
	s := NewService(fleet.NewRegistry(), opts...)
	log := &eventLog{}
	require.NoError(t, s.RegisterSink("test", log.sink()))
	return s, log
}

// seed registers the reference fleet: one rider and four drivers.
func seed(t *testing.T, s *Service) {
	t.Helper()
	ctx := context.Background()
	_, err := s.RegisterRider(ctx, RegisterRiderCommand{ID: "R001", Name: "Alice", Location: base})
	require.NoError(t, err)
	drivers := []RegisterDriverCommand{
		{ID: "D001", Name: "Bob", Location: north(3), Rating: rating(4.8), VehicleClass: fleet.VehicleSedan},
		{ID: "D002", Name: "Carol", Location: north(1), Rating: rating(4.9), VehicleClass: fleet.VehicleSedan},
		{ID: "D003", Name: "Dan", Location: north(5), Rating: rating(4.7), VehicleClass: fleet.VehicleSedan},
		{ID: "D004", Name: "Eve", Location: north(2), Rating: rating(4.5), VehicleClass: fleet.VehicleBike},
	}
	for _, d := range drivers {
		_, err := s.RegisterDriver(ctx, d)
		require.NoError(t, err)
	}
}

func request(class fleet.VehicleClass) RequestRideCommand {
	return RequestRideCommand{RiderID: "R001", Pickup: base, Dropoff: dropoff, VehicleClass: class}
}

func TestRequestRideNearest(t *testing.T) {
	s, log := newTestService(t)
	seed(t, s)

	r, err := s.RequestRide(context.Background(), request(fleet.VehicleSedan))
	require.NoError(t, err)
	assert.Equal(t, types.ID("RIDE_1"), r.ID)
	assert.Equal(t, types.ID("D002"), r.DriverID)
	assert.Equal(t, ride.StatusDriverAssigned, r.Status)
	assert.Equal(t, ride.CategoryNormal, r.Category)

	d, err := s.Driver(context.Background(), "D002")
	require.NoError(t, err)
	assert.Equal(t, fleet.DriverOnTrip, d.Status)
	assert.Equal(t, []string{"driver_assigned:driver_assigned", "status_changed:driver_assigned"}, log.kinds())
	assert.Equal(t, "Carol", log.events[0].DriverName)
}

func TestRequestRideHighestRated(t *testing.T) {
	s, _ := newTestService(t, WithMatchingPolicy(matching.HighestRated{}))
	seed(t, s)
	require.NoError(t, s.UpdateDriverLocation(context.Background(), "D002", north(50)))

	r, err := s.RequestRide(context.Background(), request(fleet.VehicleSedan))
	require.NoError(t, err)
	assert.Equal(t, types.ID("D002"), r.DriverID)
}

func TestRequestRideNoMatchLeavesTableUnchanged(t *testing.T) {
	s, log := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	_, err := s.RequestRide(ctx, request(fleet.VehicleSUV))
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Empty(t, s.ListRides(ctx))
	assert.Empty(t, log.kinds())
	_, err = s.GetRide(ctx, "RIDE_1")
	assert.ErrorIs(t, err, ErrRideNotFound)
	assert.Equal(t, 4, s.Status(ctx).AvailableDrivers)

	// the unmatched request still consumed a ride number
	r, err := s.RequestRide(ctx, request(fleet.VehicleBike))
	require.NoError(t, err)
	assert.Equal(t, types.ID("RIDE_2"), r.ID)
}

func TestRequestRideValidation(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	cmd := request(fleet.VehicleSedan)
	cmd.RiderID = "R404"
	_, err := s.RequestRide(ctx, cmd)
	assert.ErrorIs(t, err, ErrRiderNotFound)

	_, err = s.RequestRide(ctx, request("hovercraft"))
	assert.ErrorIs(t, err, fleet.ErrUnknownVehicleClass)

	cmd = request(fleet.VehicleSedan)
	cmd.Category = "luxury"
	_, err = s.RequestRide(ctx, cmd)
	assert.ErrorIs(t, err, ErrBadRequest)

	assert.Empty(t, s.ListRides(ctx))
	r, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
	require.NoError(t, err)
	assert.Equal(t, types.ID("RIDE_1"), r.ID)
}

func TestRideLifecycle(t *testing.T) {
	s, log := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	r, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
	require.NoError(t, err)
	log.reset()

	started, err := s.StartRide(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, []string{"status_changed:driver_en_route", "status_changed:in_progress"}, log.kinds())
	log.reset()

	done, err := s.CompleteRide(ctx, r.ID)
	require.NoError(t, err)
	want := (pricing.DefaultBaseFare + pricing.DefaultPerKmRate*base.DistanceKm(dropoff)) * 1.2
	assert.InDelta(t, want, done.Fare, 1e-9)
	assert.Equal(t, ride.StatusCompleted, done.Status)
	assert.Equal(t, []string{"status_changed:completed", "payment_completed:completed"}, log.kinds())
	assert.Equal(t, "Base Fare Calculator", log.events[1].FareDescription)

	d, err := s.Driver(ctx, "D002")
	require.NoError(t, err)
	assert.Equal(t, fleet.DriverAvailable, d.Status)
	assert.Equal(t, []types.ID{"RIDE_1"}, d.History)
	rider, err := s.Rider(ctx, "R001")
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"RIDE_1"}, rider.History)

	// completing again fails and does not touch histories
	_, err = s.CompleteRide(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	d, _ = s.Driver(ctx, "D002")
	rider, _ = s.Rider(ctx, "R001")
	assert.Len(t, d.History, 1)
	assert.Len(t, rider.History, 1)
}

func TestUnknownRideOperations(t *testing.T) {
	s, log := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	_, err := s.StartRide(ctx, "RIDE_9")
	assert.ErrorIs(t, err, ErrRideNotFound)
	_, err = s.CompleteRide(ctx, "RIDE_9")
	assert.ErrorIs(t, err, ErrRideNotFound)
	_, err = s.CancelRide(ctx, CancelRideCommand{RideID: "RIDE_9"})
	assert.ErrorIs(t, err, ErrRideNotFound)
	assert.Empty(t, log.kinds())
	assert.Equal(t, 4, s.Status(ctx).AvailableDrivers)
}

func TestInvalidTransitionsFailLoudly(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	r, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
	require.NoError(t, err)

	_, err = s.CompleteRide(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	got, _ := s.GetRide(ctx, r.ID)
	assert.Equal(t, ride.StatusDriverAssigned, got.Status)

	_, err = s.StartRide(ctx, r.ID)
	require.NoError(t, err)
	_, err = s.StartRide(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelRideReleasesDriver(t *testing.T) {
	s, log := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	r, err := s.RequestRide(ctx, request(fleet.VehicleBike))
	require.NoError(t, err)
	_, err = s.StartRide(ctx, r.ID)
	require.NoError(t, err)
	log.reset()

	cancelled, err := s.CancelRide(ctx, CancelRideCommand{RideID: r.ID, Reason: "rider no-show"})
	require.NoError(t, err)
	assert.Equal(t, ride.StatusCancelled, cancelled.Status)
	assert.Equal(t, "rider no-show", cancelled.CancelReason)
	assert.Equal(t, []string{"status_changed:cancelled"}, log.kinds())

	d, _ := s.Driver(ctx, "D004")
	assert.Equal(t, fleet.DriverAvailable, d.Status)
	assert.Empty(t, d.History)

	_, err = s.CancelRide(ctx, CancelRideCommand{RideID: r.ID})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSetDriverStatus(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.SetDriverStatus(ctx, "D004", fleet.DriverOffline))
	_, err := s.RequestRide(ctx, request(fleet.VehicleBike))
	assert.ErrorIs(t, err, ErrNoMatch)

	require.NoError(t, s.SetDriverStatus(ctx, "D004", fleet.DriverAvailable))
	r, err := s.RequestRide(ctx, request(fleet.VehicleBike))
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetDriverStatus(ctx, "D004", fleet.DriverOffline), ErrDriverBusy)
	assert.ErrorIs(t, s.SetDriverStatus(ctx, "D001", fleet.DriverOnTrip), ErrInvalidState)
	assert.ErrorIs(t, s.SetDriverStatus(ctx, "D404", fleet.DriverOffline), ErrDriverNotFound)
	assert.ErrorIs(t, s.SetDriverStatus(ctx, "D001", "napping"), ErrBadRequest)

	got, _ := s.GetRide(ctx, r.ID)
	assert.Equal(t, types.ID("D004"), got.DriverID)
}

func TestPolicySwapAffectsLaterRidesOnly(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	first, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
	require.NoError(t, err)
	_, err = s.StartRide(ctx, first.ID)
	require.NoError(t, err)
	done, err := s.CompleteRide(ctx, first.ID)
	require.NoError(t, err)

	require.NoError(t, s.SetMatchingPolicy(matching.HighestRated{}))
	require.NoError(t, s.SetFareCalculator(pricing.NewChain(pricing.NewBase(), pricing.Surge(2))))
	assert.Error(t, s.SetMatchingPolicy(nil))
	assert.Error(t, s.SetFareCalculator(nil))

	stored, _ := s.GetRide(ctx, first.ID)
	assert.Equal(t, done.Fare, stored.Fare)

	st := s.Status(ctx)
	assert.Equal(t, "Highest Rated Driver Strategy", st.MatchingPolicy)
	assert.Equal(t, "Base Fare Calculator + Surge Pricing", st.FareDescription)

	require.NoError(t, s.UpdateDriverLocation(ctx, "D002", north(40)))
	second, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
	require.NoError(t, err)
	assert.Equal(t, types.ID("D002"), second.DriverID)
	_, err = s.StartRide(ctx, second.ID)
	require.NoError(t, err)
	surged, err := s.CompleteRide(ctx, second.ID)
	require.NoError(t, err)
	assert.InDelta(t, done.Fare*2, surged.Fare, 1e-9)
}

func TestFareIsIdempotentForCompletedRide(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	r, _ := s.RequestRide(ctx, request(fleet.VehicleSedan))
	_, _ = s.StartRide(ctx, r.ID)
	done, err := s.CompleteRide(ctx, r.ID)
	require.NoError(t, err)

	d, _ := s.Driver(ctx, done.DriverID)
	calc := pricing.NewChain(pricing.NewBase())
	trip := pricing.TripOf(done, &d.Vehicle)
	assert.Equal(t, calc.Calculate(trip), calc.Calculate(trip))
	assert.Equal(t, done.Fare, calc.Calculate(trip))
}

func TestFailingSinkDoesNotBlockRide(t *testing.T) {
	s, log := newTestService(t)
	seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.RegisterSink("broken", notify.SinkFuncs{
		StatusChanged: func(context.Context, notify.Event) error { return errors.New("unreachable") },
		DriverAssigned: func(context.Context, notify.Event) error {
			panic("bad sink")
		},
	}))
	require.NoError(t, s.RegisterSink("late", notify.SinkFuncs{}))
	assert.Equal(t, []string{"test", "broken", "late"}, s.Sinks())

	r, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
	require.NoError(t, err)
	assert.Len(t, log.kinds(), 2)

	assert.True(t, s.UnregisterSink("broken"))
	assert.False(t, s.UnregisterSink("broken"))
	_, err = s.StartRide(ctx, r.ID)
	require.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	_, err := s.RegisterRider(ctx, RegisterRiderCommand{ID: "R001"})
	assert.ErrorIs(t, err, ErrDuplicateID)
	_, err = s.RegisterDriver(ctx, RegisterDriverCommand{ID: "D001", VehicleClass: fleet.VehicleSedan})
	assert.ErrorIs(t, err, ErrDuplicateID)
	_, err = s.RegisterDriver(ctx, RegisterDriverCommand{ID: "D009", VehicleClass: "tank"})
	assert.ErrorIs(t, err, fleet.ErrUnknownVehicleClass)
	_, err = s.RegisterRider(ctx, RegisterRiderCommand{ID: "R009", Rating: rating(7)})
	assert.ErrorIs(t, err, fleet.ErrInvalidRating)

	rider, err := s.RegisterRider(ctx, RegisterRiderCommand{ID: "R002", Name: "Zed"})
	require.NoError(t, err)
	assert.Equal(t, fleet.DefaultRating, rider.Rating)

	d, err := s.RegisterDriver(ctx, RegisterDriverCommand{ID: "D010", VehicleClass: fleet.VehicleAuto, Plate: "KA-01"})
	require.NoError(t, err)
	assert.Equal(t, types.ID("V_D010"), d.Vehicle.ID)
	assert.Equal(t, 3, d.Vehicle.Capacity)

	st := s.Status(ctx)
	assert.Equal(t, 2, st.Riders)
	assert.Equal(t, 5, st.Drivers)
}

// TestDriverOnTripIffActiveRide drives many concurrent requests and checks that
// no driver ends up on two active rides.
func TestDriverOnTripIffActiveRide(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	_, err := s.RegisterRider(ctx, RegisterRiderCommand{ID: "R001", Location: base})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.RegisterDriver(ctx, RegisterDriverCommand{
			ID: types.ID(fmt.Sprintf("D%03d", i)), Location: north(float64(i)), VehicleClass: fleet.VehicleSedan,
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
			if err != nil {
				return
			}
			if i%2 == 0 {
				_, _ = s.StartRide(ctx, r.ID)
				_, _ = s.CompleteRide(ctx, r.ID)
			}
		}()
	}
	wg.Wait()

	active := map[types.ID]int{}
	for _, r := range s.ListRides(ctx) {
		if r.IsActive() {
			active[r.DriverID]++
		}
	}
	for i := 0; i < 5; i++ {
		id := types.ID(fmt.Sprintf("D%03d", i))
		d, err := s.Driver(ctx, id)
		require.NoError(t, err)
		assert.LessOrEqual(t, active[id], 1, "driver %s double booked", id)
		assert.Equal(t, active[id] == 1, d.Status == fleet.DriverOnTrip, "driver %s status %s", id, d.Status)
	}
}

func TestListRidesInRequestOrder(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s)
	ctx := context.Background()
	for _, class := range []fleet.VehicleClass{fleet.VehicleSedan, fleet.VehicleBike, fleet.VehicleSedan} {
		_, err := s.RequestRide(ctx, request(class))
		require.NoError(t, err)
	}
	var ids []types.ID
	for _, r := range s.ListRides(ctx) {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []types.ID{"RIDE_1", "RIDE_2", "RIDE_3"}, ids)
	assert.Equal(t, 3, s.Status(ctx).ActiveRides)
}

// within fails the test when fn does not return in d.
func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not finish within %s", what, d)
	}
}

// waitForRide polls until id is stored, which means its request has changed
// state and is waiting for its events to be delivered.
func waitForRide(ctx context.Context, s *Service, id types.ID) {
	for {
		if _, err := s.GetRide(ctx, id); err == nil {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSinkCanReadServiceWhileRequestsQueue(t *testing.T) {
	s, log := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	var (
		once   sync.Once
		seenMu sync.Mutex
		seen   []types.ID
		second = make(chan error, 1)
	)
	require.NoError(t, s.RegisterSink("reader", notify.SinkFuncs{
		DriverAssigned: func(ctx context.Context, e notify.Event) error {
			once.Do(func() {
				go func() {
					_, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
					second <- err
				}()
				waitForRide(ctx, s, "RIDE_2")
			})
			r, err := s.GetRide(ctx, e.Ride.ID)
			if err != nil {
				return err
			}
			seenMu.Lock()
			seen = append(seen, r.ID)
			seenMu.Unlock()
			return nil
		},
	}))

	within(t, 3*time.Second, "concurrent requests with a reading sink", func() {
		_, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
		assert.NoError(t, err)
		assert.NoError(t, <-second)
	})

	assert.Equal(t, []types.ID{"RIDE_1", "RIDE_2"}, seen)
	log.mu.Lock()
	var order []types.ID
	for _, e := range log.events {
		order = append(order, e.Ride.ID)
	}
	log.mu.Unlock()
	assert.Equal(t, []types.ID{"RIDE_1", "RIDE_1", "RIDE_2", "RIDE_2"}, order)
}

func TestSlowSinkDoesNotBlockReads(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s)
	ctx := context.Background()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	require.NoError(t, s.RegisterSink("slow", notify.SinkFuncs{
		DriverAssigned: func(context.Context, notify.Event) error {
			select {
			case entered <- struct{}{}:
			default:
			}
			<-release
			return nil
		},
	}))

	first := make(chan error, 1)
	go func() {
		_, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
		first <- err
	}()
	<-entered
	second := make(chan error, 1)
	go func() {
		_, err := s.RequestRide(ctx, request(fleet.VehicleSedan))
		second <- err
	}()

	within(t, time.Second, "reads behind a slow sink", func() {
		waitForRide(ctx, s, "RIDE_2")
		assert.Equal(t, 2, s.Status(ctx).ActiveRides)
		_, err := s.Driver(ctx, "D001")
		assert.NoError(t, err)
	})

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
}
