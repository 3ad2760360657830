package server

import (
	"context"
	"sync"
	"time"
)

const (
	RealtimeEventDrawsChanged = "draws-changed"
	realtimeEventHeartbeat    = "heartbeat"
	realtimeSourceBackend     = "lotostats-backend"
	realtimeAllCategories     = "*"
)

// RealtimeMessage announces that the stored draws of a category changed.
type RealtimeMessage struct {
	Category  string
	EventType string
	Source    string
	Inserted  int
	Records   int
	Timestamp time.Time
}

// RealtimeDispatcher fans change messages out to per-category subscribers.
// Subscribers registered without a category receive every message.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

func (d *RealtimeDispatcher) Subscribe(ctx context.Context, category string) (<-chan RealtimeMessage, func()) {
	key := category
	if key == "" {
		key = realtimeAllCategories
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(key, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(key, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers message without blocking; a subscriber with a full buffer
// misses it.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.Category == "" || message.EventType == "" {
		return
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	if message.Source == "" {
		message.Source = realtimeSourceBackend
	}
	d.mu.RLock()
	copies := make([]*realtimeSubscriber, 0, len(d.subscribers[message.Category])+len(d.subscribers[realtimeAllCategories]))
	for _, subscriber := range d.subscribers[message.Category] {
		copies = append(copies, subscriber)
	}
	for _, subscriber := range d.subscribers[realtimeAllCategories] {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// PublishChange announces a change of category caused by source.
func (d *RealtimeDispatcher) PublishChange(category, source string, inserted, records int) {
	d.Publish(RealtimeMessage{
		Category:  category,
		EventType: RealtimeEventDrawsChanged,
		Source:    source,
		Inserted:  inserted,
		Records:   records,
	})
}

func (d *RealtimeDispatcher) subscriberCount(category string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[category])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(key string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[key]; !ok {
		d.subscribers[key] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[key][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(key string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[key]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, key)
		}
	}
	d.mu.Unlock()
}
