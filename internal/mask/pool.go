// Package mask implements the per-group mask allocator: a pool of emoji
// masks handed out to members, unique within one group at one instant,
// with pinned-mask override and inactivity-based recycling.
package mask

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
)

// ErrNotAvailable is raised when the candidate mask set is empty because
// the universe is exhausted by concurrently live members.
var ErrNotAvailable = fmt.Errorf("mask: no mask currently available")

// ErrInUse is raised when a pinned-mask candidate is already held or
// pinned by another member of the same group.
var ErrInUse = fmt.Errorf("mask: that mask is already in use")

// DefaultUniverse is the default mask universe: a broad set of distinct
// single-grapheme emoji, wide enough that exhaustion is rare in practice
// but still reachable (and tested) for small groups.
var DefaultUniverse = []string{
	"😀", "😂", "😎", "🤖", "👻", "🐼", "🦊", "🐸", "🐵", "🐯",
	"🦁", "🐶", "🐱", "🐨", "🐷", "🐙", "🦄", "🐝", "🦋", "🐢",
	"🍕", "🍩", "🎃", "🎈", "🎲", "🚀", "🛸", "⚡", "🔥", "🌊",
}

type slot struct {
	mask     string
	lastSeen time.Time
}

// Pool is a per-group mask allocator. The zero value is not usable; use
// NewPool. Pool is safe for concurrent use; callers serialize on an
// internal mutex.
type Pool struct {
	mu       sync.Mutex
	universe []string
	ttl      time.Duration
	held     map[uuid.UUID]*slot
	pinned   map[uuid.UUID]string
}

// NewPool builds a Pool over universe with the given recycle TTL. A
// non-positive ttl disables recycling: held masks never expire on their
// own and are only released via Release.
func NewPool(universe []string, ttl time.Duration) *Pool {
	if len(universe) == 0 {
		universe = DefaultUniverse
	}
	return &Pool{
		universe: universe,
		ttl:      ttl,
		held:     make(map[uuid.UUID]*slot),
		pinned:   make(map[uuid.UUID]string),
	}
}

// Entry is a previously persisted mask assignment used to rebuild the
// pool's state at startup, so masks do not change across restarts.
type Entry struct {
	MemberID uuid.UUID
	Mask     string
	Pinned   bool
	LastSeen time.Time
}

// Restore seeds the pool from persisted entries. It replaces any state
// for the listed members and is intended to run once, before the group's
// bot starts handling updates.
func (p *Pool) Restore(entries []Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range entries {
		if e.Pinned {
			p.pinned[e.MemberID] = e.Mask
			delete(p.held, e.MemberID)
			continue
		}
		p.held[e.MemberID] = &slot{mask: e.Mask, lastSeen: e.LastSeen}
	}
}

// SetPinned fixes memberID's mask, bypassing rotation. It is returned on
// every non-renewing GetMask call until ClearPinned is called. A mask
// currently held or pinned by another member is rejected with ErrInUse,
// keeping live masks pairwise distinct within the group.
func (p *Pool) SetPinned(memberID uuid.UUID, m string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, s := range p.held {
		if id != memberID && s.mask == m {
			return ErrInUse
		}
	}
	for id, pm := range p.pinned {
		if id != memberID && pm == m {
			return ErrInUse
		}
	}
	p.pinned[memberID] = m
	delete(p.held, memberID)
	return nil
}

// ClearPinned removes memberID's pinned mask, returning it to rotation.
func (p *Pool) ClearPinned(memberID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pinned, memberID)
}

// Release frees memberID's held mask immediately, e.g. on kick/ban/leave,
// so the mask becomes available to other members right away.
func (p *Pool) Release(memberID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.held, memberID)
	delete(p.pinned, memberID)
}

// GetMask returns memberID's current mask, allocating one when needed.
// A pinned mask always wins unless renew is set; renew forces a fresh
// allocation even when an unexpired mask is held. created reports
// whether a fresh mask was allocated this call.
func (p *Pool) GetMask(memberID uuid.UUID, renew bool) (created bool, m string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()

	if !renew {
		if pm, ok := p.pinned[memberID]; ok {
			return false, pm, nil
		}
		if s, ok := p.held[memberID]; ok {
			s.lastSeen = now
			return false, s.mask, nil
		}
	} else {
		delete(p.held, memberID)
	}

	p.evictStale(now, memberID)

	candidate, ok := p.pickCandidate()
	if !ok {
		return false, "", ErrNotAvailable
	}

	p.held[memberID] = &slot{mask: candidate, lastSeen: now}
	return true, candidate, nil
}

// evictStale recycles masks belonging to members whose last pool
// activity predates the TTL. memberID is never evicted against itself
// since it is about to be reassigned.
func (p *Pool) evictStale(now time.Time, except uuid.UUID) {
	if p.ttl <= 0 {
		return
	}
	for id, s := range p.held {
		if id == except {
			continue
		}
		if now.Sub(s.lastSeen) > p.ttl {
			delete(p.held, id)
		}
	}
}

func (p *Pool) pickCandidate() (string, bool) {
	taken := make(map[string]bool, len(p.held)+len(p.pinned))
	for _, s := range p.held {
		taken[s.mask] = true
	}
	for _, m := range p.pinned {
		taken[m] = true
	}

	var free []string
	for _, m := range p.universe {
		if !taken[m] {
			free = append(free, m)
		}
	}
	if len(free) == 0 {
		return "", false
	}
	return free[rand.IntN(len(free))], true
}

// ValidatePinnable reports whether s is an acceptable /setmask candidate:
// not empty, at most 4 runes, and at most 2 cells of display width. It
// does not segment graphemes, so two narrow characters such as "ab" also
// pass.
func ValidatePinnable(s string) error {
	if s == "" {
		return fmt.Errorf("mask: empty")
	}
	if utf8.RuneCountInString(s) > 4 {
		return fmt.Errorf("mask: must be a single emoji")
	}
	if runewidth.StringWidth(s) > 2 {
		return fmt.Errorf("mask: must be a single emoji")
	}
	return nil
}
