// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package events fans pipeline snapshots out to subscribers such as the
// server-sent events stream.
package events

import (
	"context"
	"sync"

	"github.com/pdiddy/veriviz/pkg/types"
)

// bufferSize is the per-subscriber channel capacity.
const bufferSize = 16

// Broker delivers each published snapshot to every live subscriber.
// Publish never blocks: a subscriber whose buffer is full loses its oldest
// pending snapshot, so the newest state always gets through.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan types.Snapshot]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: map[chan types.Snapshot]struct{}{},
	}
}

// Subscribe registers a subscriber until ctx is done, at which point the
// returned channel is closed.
func (b *Broker) Subscribe(ctx context.Context) <-chan types.Snapshot {
	ch := make(chan types.Snapshot, bufferSize)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Subscribers returns the number of live subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish sends snap to every subscriber. Each subscriber receives its own
// copy.
func (b *Broker) Publish(snap types.Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		deliver(ch, snap.Clone())
	}
}

// deliver sends snap, dropping the oldest buffered value when ch is full.
func deliver(ch chan types.Snapshot, snap types.Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
