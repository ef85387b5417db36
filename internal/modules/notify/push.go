// README: Sink sending FCM push messages to rider and driver topics.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"firebase.google.com/go/v4/messaging"

	"rideshare/internal/types"
)

// messenger is the subset of *messaging.Client used here.
type messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushSink addresses riders on topic rider_<id> and drivers on driver_<id>.
type PushSink struct {
	client messenger
}

func NewPushSink(client messenger) *PushSink { return &PushSink{client: client} }

func RiderTopic(id types.ID) string  { return "rider_" + string(id) }
func DriverTopic(id types.ID) string { return "driver_" + string(id) }

func (s *PushSink) send(ctx context.Context, topic, title, body string, e Event) error {
	msg := &messaging.Message{
		Topic: topic,
		Data: map[string]string{
			"type":    string(e.Kind),
			"ride_id": string(e.Ride.ID),
			"status":  string(e.Ride.Status),
			"fare":    strconv.FormatFloat(e.Ride.Fare, 'f', 2, 64),
		},
		Notification: &messaging.Notification{Title: title, Body: body},
		Android:      &messaging.AndroidConfig{Priority: "high"},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending FCM to topic %s: %w", topic, err)
	}
	return nil
}

func (s *PushSink) OnStatusChanged(ctx context.Context, e Event) error {
	body := fmt.Sprintf("Ride %s is now %s", e.Ride.ID, e.Ride.Status.Label())
	err := s.send(ctx, RiderTopic(e.Ride.RiderID), "Ride update", body, e)
	if e.Ride.HasDriver() {
		err = errors.Join(err, s.send(ctx, DriverTopic(e.Ride.DriverID), "Ride update", body, e))
	}
	return err
}

func (s *PushSink) OnDriverAssigned(ctx context.Context, e Event) error {
	return errors.Join(
		s.send(ctx, RiderTopic(e.Ride.RiderID), "Driver assigned",
			fmt.Sprintf("%s is on the way for ride %s", e.DriverName, e.Ride.ID), e),
		s.send(ctx, DriverTopic(e.Ride.DriverID), "New ride",
			fmt.Sprintf("You have been assigned to ride %s", e.Ride.ID), e),
	)
}

func (s *PushSink) OnPaymentCompleted(ctx context.Context, e Event) error {
	return errors.Join(
		s.send(ctx, RiderTopic(e.Ride.RiderID), "Payment completed",
			fmt.Sprintf("Payment of $%.2f completed for ride %s", e.Ride.Fare, e.Ride.ID), e),
		s.send(ctx, DriverTopic(e.Ride.DriverID), "Payment received",
			fmt.Sprintf("Payment received for ride %s", e.Ride.ID), e),
	)
}
