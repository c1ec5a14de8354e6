package core

import (
	"hash/fnv"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const socketRegistryShards = 32

// DeliverOutcome reports what happened to a delivery attempt. NotFound is a
// deliberate no-op outcome: callbacks may legitimately race ahead of
// connection setup, and clients may disconnect mid-pipeline.
type DeliverOutcome int

const (
	DeliverOutcomeDelivered DeliverOutcome = iota
	DeliverOutcomeNotFound
)

// SocketSession is the connection task's half of a registered entry: the id
// it round-trips through the provider and the receive side of its channel.
// The registry keeps the send side and is the only party that closes it.
type SocketSession struct {
	ID      string
	Owner   string
	Receive <-chan SocketMessage
}

type socketEntry struct {
	id        string
	owner     string
	sender    chan SocketMessage
	createdAt time.Time
}

type socketShard struct {
	mu      sync.Mutex
	entries map[string]*socketEntry
}

// SocketRegistry is a sharded concurrent map from correlation id to a live
// outbound channel. It is the only mutable shared state in the subsystem and
// it is process-local: the connection-accept path and the callback path must
// land on the same instance for a given id.
type SocketRegistry struct {
	shards [socketRegistryShards]socketShard
	buffer int
	now    func() time.Time
}

func NewSocketRegistry(buffer int) *SocketRegistry {
	if buffer < 2 {
		buffer = DefaultSocketBuffer
	}
	registry := &SocketRegistry{
		buffer: buffer,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for i := range registry.shards {
		registry.shards[i].entries = map[string]*socketEntry{}
	}
	return registry
}

func (r *SocketRegistry) shardFor(id string) *socketShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &r.shards[h.Sum32()%socketRegistryShards]
}

// Register inserts a new entry and returns the session handle. A duplicate id
// is rejected rather than overwritten: a silent overwrite would let a second
// registration steal delivery for an in-flight id.
func (r *SocketRegistry) Register(id, owner string) (SocketSession, error) {
	if err := ValidateCorrelationID(id); err != nil {
		return SocketSession{}, err
	}
	shard := r.shardFor(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, exists := shard.entries[id]; exists {
		return SocketSession{}, newBridgeError(
			"core: correlation id already registered",
			goerrors.CategoryConflict, BridgeErrorDuplicateCallback,
		)
	}
	entry := &socketEntry{
		id:        id,
		owner:     owner,
		sender:    make(chan SocketMessage, r.buffer),
		createdAt: r.now(),
	}
	shard.entries[id] = entry
	return SocketSession{ID: id, Owner: owner, Receive: entry.sender}, nil
}

// Deliver sends one message to the id's channel. A Close message is terminal:
// the entry is removed atomically with the send so no later caller can
// observe or re-deliver to it. A full buffer counts as NotFound and retires
// the entry, matching closed-channel semantics.
func (r *SocketRegistry) Deliver(id string, msg SocketMessage) DeliverOutcome {
	shard := r.shardFor(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[id]
	if !ok {
		return DeliverOutcomeNotFound
	}
	if !trySend(entry.sender, msg) {
		delete(shard.entries, id)
		close(entry.sender)
		return DeliverOutcomeNotFound
	}
	if msg.Kind == SocketMessageClose {
		delete(shard.entries, id)
		close(entry.sender)
	}
	return DeliverOutcomeDelivered
}

// DeliverTerminal performs exactly-once terminal delivery: the payload Text
// followed by Close, sent under one shard lock, with the entry removed before
// the lock is released.
func (r *SocketRegistry) DeliverTerminal(id, payload string) DeliverOutcome {
	shard := r.shardFor(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[id]
	if !ok {
		return DeliverOutcomeNotFound
	}
	delete(shard.entries, id)
	defer close(entry.sender)

	if !trySend(entry.sender, TextMessage(payload)) {
		return DeliverOutcomeNotFound
	}
	trySend(entry.sender, CloseMessage())
	return DeliverOutcomeDelivered
}

// Owner reports the user associated with a registered id without consuming
// the entry.
func (r *SocketRegistry) Owner(id string) (string, bool) {
	shard := r.shardFor(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	entry, ok := shard.entries[id]
	if !ok {
		return "", false
	}
	return entry.owner, true
}

// Release drops an entry whose underlying connection was observed closed.
func (r *SocketRegistry) Release(id string) {
	shard := r.shardFor(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	entry, ok := shard.entries[id]
	if !ok {
		return
	}
	delete(shard.entries, id)
	close(entry.sender)
}

// Sweep removes every entry older than the cutoff and closes its channel,
// which signals the owning connection to shut down if it is still alive.
func (r *SocketRegistry) Sweep(olderThan time.Duration) int {
	cutoff := r.now().Add(-olderThan)
	evicted := 0
	for i := range r.shards {
		shard := &r.shards[i]
		shard.mu.Lock()
		for id, entry := range shard.entries {
			if entry.createdAt.Before(cutoff) {
				delete(shard.entries, id)
				close(entry.sender)
				evicted++
			}
		}
		shard.mu.Unlock()
	}
	return evicted
}

// Len reports the number of live entries across all shards.
func (r *SocketRegistry) Len() int {
	total := 0
	for i := range r.shards {
		shard := &r.shards[i]
		shard.mu.Lock()
		total += len(shard.entries)
		shard.mu.Unlock()
	}
	return total
}

// trySend never blocks: terminal delivery must not stall the orchestrator on
// a slow or dead consumer.
func trySend(ch chan SocketMessage, msg SocketMessage) bool {
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
