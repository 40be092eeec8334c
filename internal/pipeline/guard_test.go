package pipeline

import (
	"testing"
	"time"
)

func TestMemoryLockerExclusion(t *testing.T) {
	l := NewMemoryLocker()

	if !l.Acquire("processing_INV-1", time.Minute) {
		t.Fatal("first acquire must succeed")
	}
	if l.Acquire("processing_INV-1", time.Minute) {
		t.Error("second acquire of a held key must fail")
	}
	if !l.Acquire("processing_INV-2", time.Minute) {
		t.Error("unrelated key must stay acquirable")
	}
}

func TestMemoryLockerRelease(t *testing.T) {
	l := NewMemoryLocker()

	l.Acquire("k", time.Minute)
	l.Release("k")

	if !l.Acquire("k", time.Minute) {
		t.Error("released key must be acquirable again")
	}
}

func TestMemoryLockerTTLExpiry(t *testing.T) {
	l := NewMemoryLocker()

	l.Acquire("k", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if !l.Acquire("k", time.Minute) {
		t.Error("expired key must be acquirable")
	}
}
