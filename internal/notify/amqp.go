package notify

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

// AMQPNotifier publishes lifecycle events to a durable topic exchange with
// routing keys of the form "recruitment.test.<kind>".
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAMQPNotifier(amqpURL, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	return &AMQPNotifier{conn: conn, channel: ch, exchange: exchange}, nil
}

func (n *AMQPNotifier) Publish(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	routingKey := "recruitment.test." + string(event.Kind)
	err = n.channel.Publish(
		n.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   event.ID,
			Timestamp:   event.EmittedAt,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	log.Debug().Str("event_id", event.ID).Str("routing_key", routingKey).Msg("Lifecycle event published")
	return nil
}

func (n *AMQPNotifier) Close() error {
	if err := n.channel.Close(); err != nil {
		return err
	}
	return n.conn.Close()
}
