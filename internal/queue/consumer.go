// Background consumers that listen to the domain event queues and
// append structured lines to files under logs/.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	bookingQueueName = "booking.confirmed"
	checkinQueueName = "checkin.recorded"
)

// StartBookingConsumer connects to RabbitMQ, declares the durable
// booking.confirmed queue and appends each message to
// logs/booking.log. It runs a reconnect loop with capped backoff and
// never returns under normal operation; failed messages are rejected
// without requeue so a poison message cannot wedge the queue.
func StartBookingConsumer() error {
	return runConsumer(bookingQueueName, handleBookingMessage)
}

// StartCheckInConsumer does the same for checkin.recorded, appending
// to logs/checkin.log.
func StartCheckInConsumer() error {
	return runConsumer(checkinQueueName, handleCheckInMessage)
}

func runConsumer(queueName string, handle func([]byte) error) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("%s-consumer: failed to dial broker: %v; retrying in %s", queueName, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, queueName, handle); err != nil {
			log.Printf("%s-consumer: consume loop ended: %v; reconnecting", queueName, err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, queueName string, handle func([]byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("%s-consumer: set QoS failed: %v", queueName, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			log.Printf("%s-consumer: handle message failed: %v", queueName, err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func appendLogLine(file, line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func handleBookingMessage(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | student_id=%d | instance_id=%d | studio=\"%s\" | class=\"%s\" | starts_at=%s | price=%d %s\n",
		ev.ConfirmedAt, ev.BookingID, ev.StudentID, ev.InstanceID, ev.StudioName, ev.ClassName, ev.StartsAt, ev.PriceCents, ev.Currency)
	return appendLogLine("booking.log", line)
}

func handleCheckInMessage(body []byte) error {
	var ev CheckInRecordedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Check-in recorded | checkin_id=%d | membership_id=%d | studio_id=%d | student=\"%s\" | method=%s\n",
		ev.RecordedAt, ev.CheckInID, ev.MembershipID, ev.StudioID, ev.StudentName, ev.Method)
	return appendLogLine("checkin.log", line)
}
