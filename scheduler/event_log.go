package scheduler

import (
	"log"
	"sync"

	"plantprice/models"
)

// EventLog drains orchestrator events into a bounded in-memory log
type EventLog struct {
	source   <-chan models.BatchEvent
	capacity int

	mu     sync.RWMutex
	events []models.BatchEvent

	stopChan chan bool
	done     chan struct{}
}

func NewEventLog(source <-chan models.BatchEvent, capacity int) *EventLog {
	if capacity <= 0 {
		capacity = 500
	}
	return &EventLog{
		source:   source,
		capacity: capacity,
		stopChan: make(chan bool),
		done:     make(chan struct{}),
	}
}

// Start consumes events until Stop or until the source is closed
func (el *EventLog) Start() {
	log.Println("🔄 Starting event log...")

	go func() {
		defer close(el.done)
		for {
			select {
			case ev, ok := <-el.source:
				if !ok {
					return
				}
				el.Append(ev)
			case <-el.stopChan:
				log.Println("🛑 Event log stopped")
				return
			}
		}
	}()
}

// Stop stops the consumer and waits for it to exit
func (el *EventLog) Stop() {
	close(el.stopChan)
	<-el.done
}

// Append records ev, dropping the oldest entry when full
func (el *EventLog) Append(ev models.BatchEvent) {
	el.mu.Lock()
	defer el.mu.Unlock()

	if len(el.events) >= el.capacity {
		copy(el.events, el.events[1:])
		el.events = el.events[:len(el.events)-1]
	}
	el.events = append(el.events, ev)
}

// After returns the events with a sequence number greater than seq
func (el *EventLog) After(seq int) []models.BatchEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	out := []models.BatchEvent{}
	for _, ev := range el.events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}
