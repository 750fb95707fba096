package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject prefixes the subjects NATSSink publishes on; the entity
// type is appended ("backoffice.audit.orders").
const DefaultSubject = "backoffice.audit"

// NATSSink publishes JSON-encoded events to NATS.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to url with automatic reconnection.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("backoffice-audit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: nc, subject: subject}, nil
}

func (s *NATSSink) Record(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}
	return s.conn.Publish(s.subject+"."+ev.EntityType, data)
}

func (s *NATSSink) Close() error {
	s.conn.Close()
	return nil
}
