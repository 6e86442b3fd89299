// Package publisher fans appended readings out to RabbitMQ as JSON
// events. Publishing is fire-and-forget: a slow or absent broker never
// blocks the logging path.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/healthvoice/healthlog/internal/domain"
	"github.com/healthvoice/healthlog/internal/logger"
)

const publishTimeout = 5 * time.Second

// ReadingEvent is the wire shape of one fan-out message.
type ReadingEvent struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recordedAt"`
}

// AMQPPublisher owns the broker connection and a mailbox goroutine
// that drains publishes sequentially.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	mailbox chan []byte
	wg      sync.WaitGroup
	once    sync.Once
}

// NewAMQPPublisher connects to the broker and declares the queue.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	p := &AMQPPublisher{
		conn:    conn,
		channel: channel,
		queue:   queue,
		mailbox: make(chan []byte, 64),
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

// PublishReading enqueues one reading event. When the mailbox is full
// the event is dropped with a warning rather than blocking the caller.
func (p *AMQPPublisher) PublishReading(reading domain.Reading) {
	meta := reading.Meta()
	event := ReadingEvent{
		ID:         meta.ID,
		Kind:       string(meta.Kind),
		Source:     string(meta.Source),
		RecordedAt: meta.RecordedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Warn("Failed to encode reading event", "error", err.Error())
		return
	}

	select {
	case p.mailbox <- data:
	default:
		logger.Warn("Reading event mailbox full, dropping event", "reading_id", meta.ID)
	}
}

func (p *AMQPPublisher) run() {
	defer p.wg.Done()
	for data := range p.mailbox {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.channel.PublishWithContext(ctx,
			"",      // exchange
			p.queue, // routing key
			false,   // mandatory
			false,   // immediate
			amqp.Publishing{
				ContentType: "application/json",
				Body:        data,
			})
		cancel()
		if err != nil {
			logger.Warn("Failed to publish reading event", "error", err.Error())
		}
	}
}

// Close drains the mailbox and shuts the connection down.
func (p *AMQPPublisher) Close() error {
	p.once.Do(func() { close(p.mailbox) })
	p.wg.Wait()
	if err := p.channel.Close(); err != nil {
		logger.Warn("Failed to close broker channel", "error", err.Error())
	}
	return p.conn.Close()
}
