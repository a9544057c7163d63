// Package events announces domain changes to other services. Publishing is
// best effort: failures are logged and never surface to the request.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Subjects published by the service
const (
	SubjectPostCreated    = "concordance.posts.created"
	SubjectCommentCreated = "concordance.comments.created"
	SubjectFollowCreated  = "concordance.follows.created"
)

// Event is the JSON envelope of every message
type Event struct {
	Subject    string    `json:"subject"`
	ActorID    uint      `json:"actor_id"`
	TargetID   uint      `json:"target_id"`
	TargetType string    `json:"target_type"` // post, comment, user
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends events; implementations must not block the caller for long
type Publisher interface {
	Publish(evt Event)
	Close()
}

// NopPublisher drops every event. Used when NATS_URL is not set.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
func (NopPublisher) Close()        {}

// NatsPublisher publishes events on a NATS connection
type NatsPublisher struct {
	conn *nats.Conn
}

// NewNatsPublisher connects to url
func NewNatsPublisher(url string) (*NatsPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("concordance"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.WithError(err).Warn("NATS disconnected")
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	logrus.WithField("url", conn.ConnectedUrl()).Info("Connected to NATS")
	return &NatsPublisher{conn: conn}, nil
}

func (p *NatsPublisher) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		logrus.WithError(err).WithField("subject", evt.Subject).Error("Failed to encode event")
		return
	}
	if err := p.conn.Publish(evt.Subject, data); err != nil {
		logrus.WithError(err).WithField("subject", evt.Subject).Warn("Failed to publish event")
	}
}

// Close flushes pending messages and closes the connection
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Recorder keeps published events in memory, for tests
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *Recorder) Close() {}

// Subjects lists the subjects recorded so far, in order
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Subject
	}
	return out
}
