package mask

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Mask exhaustion: universe size = 3 and 3 live members
// already hold masks. A fourth member requests a mask → ErrNotAvailable.
func TestGetMask_ExhaustionRaisesErrNotAvailable(t *testing.T) {
	pool := NewPool([]string{"🅰", "🅱", "🆎"}, 0)

	for i := 0; i < 3; i++ {
		if _, _, err := pool.GetMask(uuid.New(), false); err != nil {
			t.Fatalf("unexpected error allocating member %d: %v", i, err)
		}
	}

	_, _, err := pool.GetMask(uuid.New(), false)
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}
}

// Within one group at one instant, masks of distinct
// members with live masks are pairwise distinct.
func TestGetMask_Uniqueness(t *testing.T) {
	pool := NewPool(DefaultUniverse, 0)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		_, m, err := pool.GetMask(uuid.New(), false)
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		if seen[m] {
			t.Fatalf("mask %q allocated twice", m)
		}
		seen[m] = true
	}
}

func TestGetMask_RepeatedCallsReturnSameMaskUntilRenew(t *testing.T) {
	pool := NewPool(DefaultUniverse, time.Hour)
	id := uuid.New()

	created, m1, err := pool.GetMask(id, false)
	if err != nil || !created {
		t.Fatalf("first allocation: created=%v err=%v", created, err)
	}
	created, m2, err := pool.GetMask(id, false)
	if err != nil || created {
		t.Fatalf("second call should reuse mask: created=%v err=%v", created, err)
	}
	if m1 != m2 {
		t.Fatalf("expected same mask, got %q then %q", m1, m2)
	}

	created, m3, err := pool.GetMask(id, true)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if !created {
		t.Fatalf("renew should always allocate fresh")
	}
	_ = m3
}

func TestGetMask_PinnedBypassesRotationUntilRenew(t *testing.T) {
	pool := NewPool(DefaultUniverse, 0)
	id := uuid.New()
	if err := pool.SetPinned(id, "🐼"); err != nil {
		t.Fatalf("pin: %v", err)
	}

	_, m, err := pool.GetMask(id, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m != "🐼" {
		t.Fatalf("expected pinned mask, got %q", m)
	}

	// /change forces renew=true, which bypasses the pin and allocates fresh.
	created, m2, err := pool.GetMask(id, true)
	if err != nil || !created {
		t.Fatalf("renew over pin: created=%v err=%v", created, err)
	}
	if m2 == "🐼" {
		// Extremely unlikely collision with a 30-emoji universe but not
		// impossible; the important invariant is that renew=true does
		// not short-circuit through the pinned map.
		t.Logf("renew happened to reselect the same emoji")
	}
}

func TestGetMask_RecyclesStaleHolderOnExhaustion(t *testing.T) {
	pool := NewPool([]string{"🅰", "🅱"}, time.Millisecond)

	stale := uuid.New()
	if _, _, err := pool.GetMask(stale, false); err != nil {
		t.Fatalf("allocate stale: %v", err)
	}
	if _, _, err := pool.GetMask(uuid.New(), false); err != nil {
		t.Fatalf("allocate second: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	// Universe is full, but `stale` has been inactive past the TTL, so a
	// third member should still be able to allocate by recycling it.
	if _, _, err := pool.GetMask(uuid.New(), false); err != nil {
		t.Fatalf("expected recycling to free a slot, got %v", err)
	}
}

// A pinned-mask candidate already held or pinned by someone else in the
// group is rejected, keeping live masks pairwise distinct.
func TestSetPinned_RejectsTakenMask(t *testing.T) {
	pool := NewPool([]string{"🅰", "🅱"}, 0)

	holder := uuid.New()
	_, held, err := pool.GetMask(holder, false)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if err := pool.SetPinned(uuid.New(), held); !errors.Is(err, ErrInUse) {
		t.Fatalf("pinning a held mask: err = %v, want ErrInUse", err)
	}

	pinner := uuid.New()
	if err := pool.SetPinned(pinner, "🅱"); err != nil {
		t.Fatalf("pin free mask: %v", err)
	}
	if err := pool.SetPinned(uuid.New(), "🅱"); !errors.Is(err, ErrInUse) {
		t.Fatalf("pinning an already-pinned mask: err = %v, want ErrInUse", err)
	}

	// Re-pinning your own mask is not a conflict.
	if err := pool.SetPinned(pinner, "🅱"); err != nil {
		t.Fatalf("re-pin own mask: %v", err)
	}
}

// Restored assignments behave as if they had been allocated in this
// process: the member keeps their mask, and it stays out of rotation.
func TestRestore_RehydratesHeldAndPinnedMasks(t *testing.T) {
	pool := NewPool([]string{"🅰", "🅱", "🆎"}, 0)
	held := uuid.New()
	pinned := uuid.New()

	pool.Restore([]Entry{
		{MemberID: held, Mask: "🅰", LastSeen: time.Now()},
		{MemberID: pinned, Mask: "🅱", Pinned: true},
	})

	if _, m, err := pool.GetMask(held, false); err != nil || m != "🅰" {
		t.Fatalf("held mask = %q err=%v, want 🅰", m, err)
	}
	if _, m, err := pool.GetMask(pinned, false); err != nil || m != "🅱" {
		t.Fatalf("pinned mask = %q err=%v, want 🅱", m, err)
	}

	// Only 🆎 is left for a new member.
	_, m, err := pool.GetMask(uuid.New(), false)
	if err != nil || m != "🆎" {
		t.Fatalf("fresh allocation = %q err=%v, want 🆎", m, err)
	}
}

func TestValidatePinnable(t *testing.T) {
	if err := ValidatePinnable(""); err == nil {
		t.Fatalf("expected error for empty mask")
	}
	if err := ValidatePinnable("hello"); err == nil {
		t.Fatalf("expected error for multi-character mask")
	}
	if err := ValidatePinnable("🐼"); err != nil {
		t.Fatalf("expected emoji to validate, got %v", err)
	}
}
