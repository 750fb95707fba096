// Package audit delivers one structured event per logical admin action.
// Delivery is best effort: a failing sink never rolls back business data.
package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/utils"

	"github.com/google/uuid"
)

// Event is one audit record.
type Event struct {
	ID         string    `json:"id"`
	ActorID    domain.ID `json:"actorId"`
	EntityType string    `json:"entityType"`
	EntityID   domain.ID `json:"entityId"`
	Action     string    `json:"action"`
	Message    string    `json:"message"`
	OldState   string    `json:"oldState,omitempty"`
	NewState   string    `json:"newState,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Emit stamps ev and hands it to sink. Errors are logged, not returned.
func Emit(ctx context.Context, sink Sink, ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if sink == nil {
		return ev
	}
	if err := sink.Record(ctx, ev); err != nil {
		utils.LogEvent(ev.RequestID, "audit", "record_failed",
			fmt.Sprintf("entity=%s id=%d action=%s err=%v", ev.EntityType, ev.EntityID, ev.Action, err))
	}
	return ev
}

// LogSink writes events to the process log.
type LogSink struct{}

func (LogSink) Record(_ context.Context, ev Event) error {
	msg := fmt.Sprintf("actor=%d entity=%s id=%d %s", ev.ActorID, ev.EntityType, ev.EntityID, ev.Message)
	if ev.OldState != "" || ev.NewState != "" {
		msg += fmt.Sprintf(" state=%s->%s", ev.OldState, ev.NewState)
	}
	utils.LogEvent(ev.RequestID, "audit", ev.Action, msg)
	return nil
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Record(ctx context.Context, ev Event) error {
	var errs []string
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("audit: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
