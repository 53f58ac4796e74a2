package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEvent struct {
	id         string
	calendarID string
	details    EventDetails
}

// MemoryProvider keeps events in process. It backs local runs without
// Google credentials and tests.
type MemoryProvider struct {
	mu     sync.Mutex
	events []memoryEvent
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

func (p *MemoryProvider) CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range p.events {
		if ev.calendarID != calendarID {
			continue
		}
		if start.Before(ev.details.End) && ev.details.Start.Before(end) {
			return false, nil
		}
	}
	return true, nil
}

func (p *MemoryProvider) CreateEvent(ctx context.Context, calendarID string, ev EventDetails) (CreatedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	p.events = append(p.events, memoryEvent{id: id, calendarID: calendarID, details: ev})
	created := CreatedEvent{ID: id}
	if ev.WithMeeting {
		created.MeetingURL = "https://meet.example.com/" + id[:8]
	}
	return created, nil
}

func (p *MemoryProvider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ev := range p.events {
		if ev.id == eventID && ev.calendarID == calendarID {
			p.events = append(p.events[:i], p.events[i+1:]...)
			return nil
		}
	}
	return ErrEventNotFound
}

// Len returns how many events are stored.
func (p *MemoryProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
