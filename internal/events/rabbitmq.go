package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// Exchange and queue names
const (
	StorefrontExchange = "storefront_exchange"

	OrderPlacedQueue = "order_placed_queue"
	OrderStatusQueue = "order_status_queue"
	PaymentQueue     = "payment_queue"
)

var queueBindings = map[string]string{
	OrderPlacedQueue: OrderPlacedRoutingKey,
	OrderStatusQueue: OrderStatusRoutingKey,
	PaymentQueue:     PaymentCompletedRoutingKey,
}

// AMQPPublisher publishes JSON events to a RabbitMQ topic exchange
type AMQPPublisher struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials with retry and declares the exchange, queues and bindings
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		retryTime := time.Duration(i*i)*time.Second + time.Second
		log.WithFields(log.Fields{
			"retry_in": retryTime.String(),
			"error":    err.Error(),
		}).Warn("Failed to connect to RabbitMQ, retrying")
		time.Sleep(retryTime)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel, StorefrontExchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.WithField("exchange", StorefrontExchange).Info("Connected to RabbitMQ")

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: StorefrontExchange,
	}, nil
}

func declareTopology(channel *amqp.Channel, exchange string) error {
	err := channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	for queueName, routingKey := range queueBindings {
		q, err := channel.QueueDeclare(
			queueName, // name
			true,      // durable
			false,     // delete when unused
			false,     // exclusive
			false,     // no-wait
			nil,       // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}

		if err := channel.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w", queueName, exchange, err)
		}
	}
	return nil
}

// EncodeMessage builds the persistent JSON publishing for payload
func EncodeMessage(payload interface{}, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Body:         body,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	msg, err := EncodeMessage(payload, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to exchange %s with routing key %s: %w",
			p.exchange, routingKey, err)
	}

	log.WithFields(log.Fields{
		"exchange":    p.exchange,
		"routing_key": routingKey,
	}).Debug("Published event")
	return nil
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
