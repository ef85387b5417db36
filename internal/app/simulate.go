// README: In-process replay of the reference dispatch scenarios.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"rideshare/internal/logger"
	"rideshare/internal/modules/dispatch"
	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/notify"
	"rideshare/internal/modules/pricing"
	"rideshare/internal/types"
)

func pt(lat, lng float64, label string) types.Point {
	return types.Point{Lat: lat, Lng: lng, Label: label}
}

func rate(v float64) *float64 { return &v }

var simDrivers = []dispatch.RegisterDriverCommand{
	{ID: "D001", Name: "Mohit Garg", Phone: "9876543210", Location: pt(19.0760, 72.8777, "Mumbai Central"),
		Rating: rate(4.8), VehicleClass: fleet.VehicleBike, VehicleID: "V001", Plate: "MH01AB1234"},
	{ID: "D002", Name: "Parmeshwar Rane", Phone: "9876543211", Location: pt(19.0896, 72.8656, "Dadar"),
		Rating: rate(4.9), VehicleClass: fleet.VehicleSedan, VehicleID: "V002", Plate: "MH01CD5678"},
	{ID: "D003", Name: "Atul Jain", Phone: "9876543212", Location: pt(19.1136, 72.8697, "Bandra"),
		Rating: rate(4.7), VehicleClass: fleet.VehicleSUV, VehicleID: "V003", Plate: "MH01EF9012"},
	{ID: "D004", Name: "Krishna Veerwal", Phone: "9876543213", Location: pt(19.0544, 72.8322, "Colaba"),
		Rating: rate(4.6), VehicleClass: fleet.VehicleAuto, VehicleID: "V004", Plate: "MH01GH3456"},
}

var simRiders = []dispatch.RegisterRiderCommand{
	{ID: "R001", Name: "Pratik Mandalkar", Phone: "9123456789", Location: pt(19.0728, 72.8826, "Fort"), Rating: rate(4.5)},
	{ID: "R002", Name: "Netra Mohekar", Phone: "9123456790", Location: pt(19.1197, 72.9073, "Andheri"), Rating: rate(4.7)},
}

// Simulate runs the five reference scenarios against a fresh service and writes
// the notifications and status reports to w.
func Simulate(ctx context.Context, w io.Writer, log logger.Logger) error {
	svc := dispatch.NewService(fleet.NewRegistry(), dispatch.WithLogger(log))
	if err := svc.RegisterSink("rider", notify.NewRiderNotifier(w)); err != nil {
		return err
	}
	if err := svc.RegisterSink("driver", notify.NewDriverNotifier(w)); err != nil {
		return err
	}

	fmt.Fprintln(w, "=== RIDESHARE SYSTEM SIMULATION ===")
	for _, d := range simDrivers {
		if _, err := svc.RegisterDriver(ctx, d); err != nil {
			return err
		}
	}
	for _, r := range simRiders {
		if _, err := svc.RegisterRider(ctx, r); err != nil {
			return err
		}
	}
	printStatus(w, svc.Status(ctx))

	fmt.Fprintln(w, "\n=== SCENARIO 1: Basic Ride Request (Nearest Driver Strategy) ===")
	if err := runRide(ctx, w, svc, dispatch.RequestRideCommand{
		RiderID: "R001", VehicleClass: fleet.VehicleSedan,
		Pickup: pt(19.0760, 72.8777, "Gateway of India"), Dropoff: pt(19.0896, 72.8656, "Dadar Station"),
	}); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n=== SCENARIO 2: Switching to Highest Rated Driver Strategy ===")
	if err := svc.SetMatchingPolicy(matching.HighestRated{}); err != nil {
		return err
	}
	if err := runRide(ctx, w, svc, dispatch.RequestRideCommand{
		RiderID: "R002", VehicleClass: fleet.VehicleSUV,
		Pickup: pt(19.1136, 72.8697, "Bandra West"), Dropoff: pt(19.0544, 72.8322, "Colaba Causeway"),
	}); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n=== SCENARIO 3: Surge Pricing ===")
	if err := svc.SetFareCalculator(pricing.NewChain(pricing.NewBase(), pricing.Surge(2.0))); err != nil {
		return err
	}
	if err := svc.SetMatchingPolicy(matching.Nearest{}); err != nil {
		return err
	}
	if err := runRide(ctx, w, svc, dispatch.RequestRideCommand{
		RiderID: "R001", VehicleClass: fleet.VehicleBike,
		Pickup: pt(19.0760, 72.8777, "CST Station"), Dropoff: pt(19.1197, 72.9073, "Andheri East"),
	}); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n=== SCENARIO 4: Discount Applied ===")
	if err := svc.SetFareCalculator(pricing.NewChain(pricing.NewBase(), pricing.Discount(0.15))); err != nil {
		return err
	}
	if err := runRide(ctx, w, svc, dispatch.RequestRideCommand{
		RiderID: "R002", VehicleClass: fleet.VehicleAuto,
		Pickup: pt(19.0544, 72.8322, "Marine Drive"), Dropoff: pt(19.0896, 72.8656, "Prabhadevi"),
	}); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n=== SCENARIO 5: No Available Driver ===")
	fmt.Fprintln(w, "Requesting ride with all drivers offline...")
	if err := setAll(ctx, svc, fleet.DriverOffline); err != nil {
		return err
	}
	if err := runRide(ctx, w, svc, dispatch.RequestRideCommand{
		RiderID: "R001", VehicleClass: fleet.VehicleSedan,
		Pickup: pt(19.0760, 72.8777, "Churchgate"), Dropoff: pt(19.1136, 72.8697, "Bandra"),
	}); err != nil {
		return err
	}
	if err := setAll(ctx, svc, fleet.DriverAvailable); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n=== FINAL SYSTEM STATUS ===")
	printStatus(w, svc.Status(ctx))
	fmt.Fprintln(w, "\n=== SIMULATION COMPLETED ===")
	return nil
}

// runRide requests, starts and completes one ride. A missing driver is reported,
// not returned.
func runRide(ctx context.Context, w io.Writer, svc *dispatch.Service, cmd dispatch.RequestRideCommand) error {
	r, err := svc.RequestRide(ctx, cmd)
	if errors.Is(err, dispatch.ErrNoMatch) {
		fmt.Fprintf(w, "No %s driver available for rider %s\n", cmd.VehicleClass.Label(), cmd.RiderID)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Ride %s requested by %s, driver %s assigned\n", r.ID, r.RiderID, r.DriverID)
	fmt.Fprintln(w, "\nStarting ride...")
	if _, err := svc.StartRide(ctx, r.ID); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nCompleting ride...")
	done, err := svc.CompleteRide(ctx, r.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Ride %s completed: %.2f km, fare $%.2f\n", done.ID, done.DistanceKm(), done.Fare)
	return nil
}

func setAll(ctx context.Context, svc *dispatch.Service, status fleet.DriverStatus) error {
	for _, d := range simDrivers {
		if err := svc.SetDriverStatus(ctx, d.ID, status); err != nil {
			return err
		}
	}
	return nil
}

func printStatus(w io.Writer, st dispatch.SystemStatus) {
	fmt.Fprintln(w, "\n=== SYSTEM STATUS ===")
	fmt.Fprintf(w, "Total Riders: %d\n", st.Riders)
	fmt.Fprintf(w, "Total Drivers: %d\n", st.Drivers)
	fmt.Fprintf(w, "Available Drivers: %d\n", st.AvailableDrivers)
	fmt.Fprintf(w, "Total Rides: %d\n", st.Rides)
	fmt.Fprintf(w, "Matching Strategy: %s\n", st.MatchingPolicy)
	fmt.Fprintf(w, "Fare Calculator: %s\n", st.FareDescription)
}
