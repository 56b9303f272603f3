package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smartdoor/doorman/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	VisitorSubmitted = "visitor.submitted"
	VisitorDetected  = "visitor.detected"
	VisitorApproved  = "visitor.approved"
	VisitorRejected  = "visitor.rejected"
	AccessGranted    = "access.granted"
	AccessDenied     = "access.denied"

	// NotifySend carries outbound SMS/email work for the notify worker.
	NotifySend = "notify.send"
)

// Event payloads
type VisitorSubmittedEvent struct {
	FaceID      string    `json:"face_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	PhotoRef    string    `json:"photo_ref"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type VisitorDetectedEvent struct {
	FaceID     string    `json:"face_id"`
	PhotoRef   string    `json:"photo_ref"`
	DetectedAt time.Time `json:"detected_at"`
}

type VisitorDecidedEvent struct {
	FaceID    string    `json:"face_id"`
	Status    string    `json:"status"`
	DecidedAt time.Time `json:"decided_at"`
}

type AccessGrantedEvent struct {
	FaceID    string    `json:"face_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	GrantedAt time.Time `json:"granted_at"`
}

type AccessDeniedEvent struct {
	Code     string    `json:"code"`
	Reason   string    `json:"reason"`
	DeniedAt time.Time `json:"denied_at"`
}

type NotificationEvent struct {
	Kind      string `json:"kind"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// NopBus is an EventBus that drops everything. Used in tests and when NATS
// is not configured.
type NopBus struct{}

func (NopBus) Publish(context.Context, string, interface{}) error      { return nil }
func (NopBus) Subscribe(string, func(msg *Message)) error              { return nil }
func (NopBus) QueueSubscribe(string, string, func(msg *Message)) error { return nil }
func (NopBus) Close() error                                            { return nil }
