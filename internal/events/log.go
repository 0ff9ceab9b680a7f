package events

import (
	"sync"
	"time"
)

// Recorder receives emitted records. Services depend on this interface so the
// API layer can fan records out to the archive and the websocket hub.
type Recorder interface {
	Record(typ Type, principal string, ref uint64, fields map[string]interface{}) Event
}

// Log is the in-memory append-only event log with per-type and per-principal
// indexes for retrieval.
type Log struct {
	mu          sync.RWMutex
	all         []Event
	byType      map[Type][]int
	byPrincipal map[string][]int
	sinks       []func(Event)
}

func NewLog() *Log {
	return &Log{
		byType:      make(map[Type][]int),
		byPrincipal: make(map[string][]int),
	}
}

// Subscribe registers a sink invoked synchronously for every appended record.
// Sinks must not call back into the log.
func (l *Log) Subscribe(sink func(Event)) {
	l.mu.Lock()
	l.sinks = append(l.sinks, sink)
	l.mu.Unlock()
}

func (l *Log) Record(typ Type, principal string, ref uint64, fields map[string]interface{}) Event {
	l.mu.Lock()
	ev := Event{
		ID:        uint64(len(l.all) + 1),
		Type:      typ,
		Principal: principal,
		Ref:       ref,
		At:        time.Now().UTC(),
		Fields:    fields,
	}
	idx := len(l.all)
	l.all = append(l.all, ev)
	l.byType[typ] = append(l.byType[typ], idx)
	l.byPrincipal[principal] = append(l.byPrincipal[principal], idx)
	sinks := l.sinks
	l.mu.Unlock()

	for _, sink := range sinks {
		sink(ev)
	}
	return ev
}

// ByType returns all records of typ in append order.
func (l *Log) ByType(typ Type) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(l.byType[typ])
}

// ByPrincipal returns all records indexed under principal in append order.
func (l *Log) ByPrincipal(principal string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(l.byPrincipal[principal])
}

// All returns every record in append order.
func (l *Log) All() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.all))
	copy(out, l.all)
	return out
}

func (l *Log) collect(idxs []int) []Event {
	out := make([]Event, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, l.all[i])
	}
	return out
}
