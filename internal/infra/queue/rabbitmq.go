package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const (
	// ExchangeName is a topic exchange; the routing key is the event type.
	ExchangeName = "ex.leads"
	DLXName      = "ex.leads.dlx"

	ConversionQueue = "q.lead-conversions"
	ConversionDLQ   = "q.lead-conversions.dlq"
	ConversionKey   = usecase.EventLeadConverted
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare topology: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func (r *RabbitMQ) Close() {
	if r.Ch != nil {
		r.Ch.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}

type topologyChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// setupTopology declares the lead exchange and the conversion queue. Messages
// rejected by the worker are dead-lettered to ConversionDLQ.
func setupTopology(ch topologyChannel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(ConversionDLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(ConversionDLQ, ConversionKey, DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": ConversionKey,
	}
	if _, err := ch.QueueDeclare(ConversionQueue, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(ConversionQueue, ConversionKey, ExchangeName, false, nil)
}
