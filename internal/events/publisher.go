// Package events publishes analysis lifecycle events to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectAnalysisCompleted is the default subject for AnalysisCompleted.
const SubjectAnalysisCompleted = "textwingman.analysis.completed"

// AnalysisCompleted is emitted after every full analysis. It carries scores
// and the chosen move, never transcript text.
type AnalysisCompleted struct {
	AnalysisID  string    `json:"analysis_id"`
	ContextTag  string    `json:"context_tag"`
	Messages    int       `json:"messages"`
	HealthScore int       `json:"health_score"`
	RiskScore   int       `json:"risk_score"`
	RiskTier    string    `json:"risk_tier"`
	Momentum    string    `json:"momentum"`
	Balance     string    `json:"balance"`
	MoveEnergy  string    `json:"move_energy"`
	SafeDefault bool      `json:"safe_default"`
	LatencyMs   int64     `json:"latency_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher sends JSON events.
type Publisher interface {
	Publish(subject string, data any) error
	Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(string, any) error { return nil }
func (Noop) Close() {}

// Client is a NATS backed Publisher.
type Client struct {
	conn *nats.Conn
}

// Connect dials url. The connection keeps retrying in the background, so a
// NATS server that starts later is picked up without a restart.
func Connect(url, token string) (*Client, error) {
	opts := []nats.Option{
		nats.Name("textwingman"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[events] nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("[events] nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{conn: nc}, nil
}

// New returns a connected Client, or Noop when url is empty.
func New(url, token string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	client, err := Connect(url, token)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	c.conn.Close()
}
