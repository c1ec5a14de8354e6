package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultClaimLedgerTTL = 5 * time.Minute
const defaultClaimLedgerMaxEntries = 8192

// MemoryClaimLedger is the in-process ClaimLedger. The first caller to Claim
// a key wins until the claim's TTL lapses; a bounded entry count keeps an
// attacker replaying callbacks from growing memory without bound.
type MemoryClaimLedger struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	maxEntries int
	entries    map[string]time.Time
	Now        func() time.Time
}

func NewMemoryClaimLedger(defaultTTL time.Duration) *MemoryClaimLedger {
	return NewMemoryClaimLedgerWithLimits(defaultTTL, defaultClaimLedgerMaxEntries)
}

func NewMemoryClaimLedgerWithLimits(defaultTTL time.Duration, maxEntries int) *MemoryClaimLedger {
	if defaultTTL <= 0 {
		defaultTTL = defaultClaimLedgerTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultClaimLedgerMaxEntries
	}
	return &MemoryClaimLedger{
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		entries:    map[string]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryClaimLedger) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("core: claim ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("core: claim key is required")
	}
	if ttl <= 0 {
		ttl = l.defaultTTL
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneExpiredLocked(now)
	if expiresAt, ok := l.entries[key]; ok {
		if now.Before(expiresAt) {
			return false, nil
		}
		delete(l.entries, key)
	}
	l.enforceCapacityLocked(1)
	l.entries[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryClaimLedger) PurgeExpired(_ context.Context) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("core: claim ledger is not configured")
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for key, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, key)
			pruned++
		}
	}
	return pruned, nil
}

func (l *MemoryClaimLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *MemoryClaimLedger) pruneExpiredLocked(now time.Time) {
	for key, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, key)
		}
	}
}

func (l *MemoryClaimLedger) enforceCapacityLocked(incoming int) {
	if l.maxEntries <= 0 {
		return
	}
	target := l.maxEntries - incoming
	if target < 0 {
		target = 0
	}
	for len(l.entries) > target {
		l.evictOldestLocked()
	}
}

func (l *MemoryClaimLedger) evictOldestLocked() {
	var oldestKey string
	var oldestExpiry time.Time
	for key, expiry := range l.entries {
		if oldestKey == "" || expiry.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = expiry
		}
	}
	if oldestKey != "" {
		delete(l.entries, oldestKey)
	}
}

var _ ClaimLedger = (*MemoryClaimLedger)(nil)
