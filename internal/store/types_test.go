package store

import (
	"testing"
	"time"
)

func TestBanMask_SetHasClear(t *testing.T) {
	var m BanMask
	m = m.Set(BanReceive).Set(BanMedia)
	if !m.Has(BanReceive) || !m.Has(BanMedia) {
		t.Fatalf("expected RECEIVE and MEDIA set, got %b", m)
	}
	if m.Has(BanMessage) {
		t.Fatalf("MESSAGE should not be set")
	}
	m = m.Clear(BanReceive)
	if m.Has(BanReceive) {
		t.Fatalf("RECEIVE should be cleared")
	}
}

func TestCode_Usable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		code Code
		want bool
	}{
		{"unlimited", Code{}, true},
		{"uses remaining", Code{MaxUses: 3, Uses: 2}, true},
		{"uses exhausted", Code{MaxUses: 3, Uses: 3}, false},
		{"expired", Code{ExpiresAt: &past}, false},
		{"not yet expired", Code{ExpiresAt: &future}, true},
		{"expired with uses remaining", Code{MaxUses: 5, Uses: 0, ExpiresAt: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.Usable(now); got != tt.want {
				t.Fatalf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBan_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	if (Ban{}).Expired(now) {
		t.Fatalf("permanent ban must never expire")
	}
	if !(Ban{ExpiresAt: &past}).Expired(now) {
		t.Fatalf("lapsed ban should report expired")
	}
}
