package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

func mustRegister(t *testing.T, registry *SocketRegistry, id, owner string) SocketSession {
	t.Helper()
	session, err := registry.Register(id, owner)
	if err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return session
}

func TestSocketRegistry_RegisterRejectsDuplicateID(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	mustRegister(t, registry, "duplicate_id_1", "")

	if _, err := registry.Register("duplicate_id_1", ""); err == nil {
		t.Fatalf("expected duplicate registration to be rejected")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected a single live entry, got %d", registry.Len())
	}
}

func TestSocketRegistry_RegisterRejectsMalformedID(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	cases := []string{"", "short", "has space in it", "bad$chars!"}
	for _, id := range cases {
		if _, err := registry.Register(id, ""); err == nil {
			t.Fatalf("expected registration of %q to be rejected", id)
		}
	}
}

func TestSocketRegistry_DeliverTerminalExactlyOnce(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	session := mustRegister(t, registry, "terminal_once_1", "")

	if outcome := registry.DeliverTerminal(session.ID, `{"ok":true}`); outcome != DeliverOutcomeDelivered {
		t.Fatalf("expected first terminal delivery to succeed, got %v", outcome)
	}
	if outcome := registry.DeliverTerminal(session.ID, `{"ok":false}`); outcome != DeliverOutcomeNotFound {
		t.Fatalf("expected second terminal delivery to be not found, got %v", outcome)
	}

	text, ok := <-session.Receive
	if !ok || text.Kind != SocketMessageText || text.Payload != `{"ok":true}` {
		t.Fatalf("expected text payload first, got %+v ok=%v", text, ok)
	}
	closeMsg, ok := <-session.Receive
	if !ok || closeMsg.Kind != SocketMessageClose {
		t.Fatalf("expected close message second, got %+v ok=%v", closeMsg, ok)
	}
	if _, ok := <-session.Receive; ok {
		t.Fatalf("expected channel to be closed after terminal delivery")
	}
}

func TestSocketRegistry_DeliverToUnknownIDIsNoOp(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	if outcome := registry.Deliver("never_registered_id", TextMessage("hello")); outcome != DeliverOutcomeNotFound {
		t.Fatalf("expected not found, got %v", outcome)
	}
	if outcome := registry.DeliverTerminal("never_registered_id", "payload"); outcome != DeliverOutcomeNotFound {
		t.Fatalf("expected terminal not found, got %v", outcome)
	}
}

func TestSocketRegistry_CloseMessageRetiresEntry(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	session := mustRegister(t, registry, "close_retires_1", "")

	if outcome := registry.Deliver(session.ID, CloseMessage()); outcome != DeliverOutcomeDelivered {
		t.Fatalf("expected close delivery to succeed, got %v", outcome)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected entry to be retired after close")
	}
	if outcome := registry.Deliver(session.ID, TextMessage("late")); outcome != DeliverOutcomeNotFound {
		t.Fatalf("expected delivery after close to be not found, got %v", outcome)
	}
}

func TestSocketRegistry_FullBufferCountsAsNotFound(t *testing.T) {
	registry := NewSocketRegistry(2)
	session := mustRegister(t, registry, "full_buffer_1", "")

	registry.Deliver(session.ID, TextMessage("one"))
	registry.Deliver(session.ID, TextMessage("two"))
	if outcome := registry.Deliver(session.ID, TextMessage("three")); outcome != DeliverOutcomeNotFound {
		t.Fatalf("expected full buffer to count as not found, got %v", outcome)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected entry to be retired after overflow")
	}
}

func TestSocketRegistry_ConcurrentSessionsNoCrossTalk(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	const sessions = 64

	type delivery struct {
		ID string `json:"id"`
	}

	handles := make([]SocketSession, 0, sessions)
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("concurrent_session_%02d", i)
		handles = append(handles, mustRegister(t, registry, id, ""))
	}

	var wg sync.WaitGroup
	for _, session := range handles {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			payload, _ := json.Marshal(delivery{ID: id})
			registry.DeliverTerminal(id, string(payload))
		}(session.ID)
	}
	wg.Wait()

	for _, session := range handles {
		text, ok := <-session.Receive
		if !ok {
			t.Fatalf("session %s: expected a text message", session.ID)
		}
		var got delivery
		if err := json.Unmarshal([]byte(text.Payload), &got); err != nil {
			t.Fatalf("session %s: unmarshal payload: %v", session.ID, err)
		}
		if got.ID != session.ID {
			t.Fatalf("session %s received payload for %s", session.ID, got.ID)
		}
	}
	if registry.Len() != 0 {
		t.Fatalf("expected all entries retired, got %d", registry.Len())
	}
}

func TestSocketRegistry_ReleaseUnknownIDIsSafe(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	registry.Release("never_registered_id")
	registry.Release("")
}

func TestSocketRegistry_SweepEvictsOnlyExpiredEntries(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }

	old := mustRegister(t, registry, "sweep_old_entry_1", "")
	now = now.Add(45 * time.Minute)
	fresh := mustRegister(t, registry, "sweep_fresh_entry", "")

	evicted := registry.Sweep(30 * time.Minute)
	if evicted != 1 {
		t.Fatalf("expected 1 evicted entry, got %d", evicted)
	}
	if _, ok := <-old.Receive; ok {
		t.Fatalf("expected evicted session channel to be closed")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected the fresh entry to survive, got %d entries", registry.Len())
	}
	if _, found := registry.Owner(fresh.ID); !found {
		t.Fatalf("expected fresh entry to remain registered")
	}
}

func TestSocketRegistry_OwnerRoundTrip(t *testing.T) {
	registry := NewSocketRegistry(DefaultSocketBuffer)
	mustRegister(t, registry, "owner_round_trip", "user-42")

	owner, ok := registry.Owner("owner_round_trip")
	if !ok || owner != "user-42" {
		t.Fatalf("expected owner user-42, got %q ok=%v", owner, ok)
	}
	if _, ok := registry.Owner("missing_entry_id"); ok {
		t.Fatalf("expected missing id to report no owner")
	}
}
