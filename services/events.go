package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Josevinuez/trade-in-api/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Event types, also used as routing keys on the topic exchange
const (
	EventOrderSubmitted     = "order.submitted"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderUpdated       = "order.updated"
	EventOrderDeleted       = "order.deleted"
)

// OrderEvent is published after an order is created, changed or removed
type OrderEvent struct {
	ID             string             `json:"id"`
	Type           string             `json:"type"`
	OrderID        uint               `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	CustomerEmail  string             `json:"customer_email,omitempty"`
	Actor          string             `json:"actor"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// NewOrderEvent stamps an event id and time
func NewOrderEvent(eventType string, order *models.TradeInOrder, actor Actor) OrderEvent {
	event := OrderEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Actor:       actor.Label(),
		OccurredAt:  time.Now().UTC(),
	}
	if order.Customer != nil {
		event.CustomerEmail = order.Customer.Email
	}
	return event
}

// EventPublisher delivers order events to downstream consumers (customer notifications)
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// AMQPPublisher publishes events to a RabbitMQ topic exchange
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
}

var eventPublisherInstance EventPublisher

// NewAMQPPublisher dials RabbitMQ and declares the durable topic exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{conn: conn, exchange: exchange}, nil
}

// Publish sends the event with its type as routing key
func (p *AMQPPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx,
		p.exchange,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

// Close closes the RabbitMQ connection
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}

// LogPublisher only logs events; it is used when RabbitMQ is not configured
type LogPublisher struct{}

// Publish logs the event
func (LogPublisher) Publish(_ context.Context, event OrderEvent) error {
	log.Printf("[event] %s order=%s status=%s actor=%s", event.Type, event.OrderNumber, event.Status, event.Actor)
	return nil
}

// InitEventPublisher connects to RabbitMQ when url is set and falls back to logging otherwise
func InitEventPublisher(url, exchange string) (EventPublisher, error) {
	if url == "" {
		eventPublisherInstance = LogPublisher{}
		return eventPublisherInstance, nil
	}
	publisher, err := NewAMQPPublisher(url, exchange)
	if err != nil {
		return nil, err
	}
	eventPublisherInstance = publisher
	return eventPublisherInstance, nil
}

// GetEventPublisher returns the initialized publisher, or a LogPublisher
func GetEventPublisher() EventPublisher {
	if eventPublisherInstance == nil {
		return LogPublisher{}
	}
	return eventPublisherInstance
}

// SetEventPublisher sets the publisher instance (primarily for testing)
func SetEventPublisher(publisher EventPublisher) {
	eventPublisherInstance = publisher
}

// publishEvent never fails the caller: the database change is already committed
func publishEvent(ctx context.Context, publisher EventPublisher, event OrderEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Printf("warning: failed to publish %s for order %s: %v", event.Type, event.OrderNumber, err)
	}
}
