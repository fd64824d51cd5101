package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ms-booking/internal/config"
	"ms-booking/internal/kafka"
	"ms-booking/internal/models"
)

const (
	EventReservationCreated   = "ReservationCreated"
	EventReservationCancelled = "ReservationCancelled"
)

// Envelope wraps every booking domain event published to kafka.
type Envelope struct {
	EventID    string             `json:"event_id"`
	EventType  string             `json:"event_type"`
	OccurredAt time.Time          `json:"occurred_at"`
	Producer   string             `json:"producer"`
	Payload    models.Reservation `json:"payload"`
}

// Publisher emits reservation lifecycle events. Delivery is fire-and-forget
// from the booking engine's point of view.
type Publisher struct {
	Producer *kafka.Producer
	Topics   config.TopicConfig
}

func NewPublisher(producer *kafka.Producer, topics config.TopicConfig) *Publisher {
	return &Publisher{Producer: producer, Topics: topics}
}

func (p *Publisher) PublishReservationCreated(res models.Reservation) error {
	return p.publish(p.Topics.ReservationCreated, EventReservationCreated, res)
}

func (p *Publisher) PublishReservationCancelled(res models.Reservation) error {
	return p.publish(p.Topics.ReservationCancelled, EventReservationCancelled, res)
}

func (p *Publisher) publish(topic, eventType string, res models.Reservation) error {
	env := Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Producer:   "booking-service",
		Payload:    res,
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.Producer.Publish(context.Background(), topic, res.ReservationID, msg)
}
