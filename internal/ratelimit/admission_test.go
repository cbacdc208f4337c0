package ratelimit

import "testing"

func TestCheckAdmitsUnderMinuteLimit(t *testing.T) {
	l := newTestLimiter(3, 100)
	clock := 1000.0
	l.now = func() float64 { return clock }

	for i := 0; i < 3; i++ {
		d := l.Check("user-a", "free")
		if !d.Admitted {
			t.Fatalf("request %d: expected admit, got reject", i)
		}
		clock += 1
	}
}

func TestCheckRejectsOverMinuteLimit(t *testing.T) {
	l := newTestLimiter(2, 100)
	clock := 1000.0
	l.now = func() float64 { return clock }

	l.Check("user-a", "free")
	l.Check("user-a", "free")
	d := l.Check("user-a", "free")

	if d.Admitted {
		t.Fatal("expected third request to be rejected under a 2/min cap")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %d", d.RetryAfter)
	}
	if d.Status.MinuteRemaining != 0 {
		t.Fatalf("MinuteRemaining = %d, want 0", d.Status.MinuteRemaining)
	}
}

func TestCheckRejectsOverHourLimit(t *testing.T) {
	l := newTestLimiter(1000, 2)
	clock := 1000.0
	l.now = func() float64 { return clock }

	l.Check("user-a", "free")
	clock += 70 // outside the minute window, still within the hour window
	l.now = func() float64 { return clock }
	l.Check("user-a", "free")

	clock += 1
	l.now = func() float64 { return clock }
	d := l.Check("user-a", "free")

	if d.Admitted {
		t.Fatal("expected third request to be rejected under a 2/hr cap")
	}
	if d.Status.HourRemaining != 0 {
		t.Fatalf("HourRemaining = %d, want 0", d.Status.HourRemaining)
	}
}

func TestCheckEvictsEntriesOlderThanAnHour(t *testing.T) {
	l := newTestLimiter(10, 1)
	clock := 1000.0
	l.now = func() float64 { return clock }

	l.Check("user-a", "free") // fills the 1/hr cap

	clock += 3601 // the one entry ages out of the hour window
	l.now = func() float64 { return clock }

	d := l.Check("user-a", "free")
	if !d.Admitted {
		t.Fatal("expected admission after the hour-stale entry was evicted")
	}
}

func TestRejectionDoesNotMutateHistory(t *testing.T) {
	l := newTestLimiter(1, 100)
	clock := 1000.0
	l.now = func() float64 { return clock }

	l.Check("user-a", "free")
	l.Check("user-a", "free") // rejected, must not append

	l.mu.Lock()
	n := len(l.history["user-a"])
	l.mu.Unlock()

	if n != 1 {
		t.Fatalf("history length = %d, want 1 (rejection must not append)", n)
	}
}

func TestPeekDoesNotMutate(t *testing.T) {
	l := newTestLimiter(5, 100)
	clock := 1000.0
	l.now = func() float64 { return clock }

	l.Check("user-a", "free")
	before := l.Peek("user-a", "free")
	after := l.Peek("user-a", "free")

	if before != after {
		t.Fatalf("Peek mutated state: before=%+v after=%+v", before, after)
	}
	if before.MinuteRemaining != 4 {
		t.Fatalf("MinuteRemaining = %d, want 4", before.MinuteRemaining)
	}
}

func TestMinuteCheckRunsAfterHourEviction(t *testing.T) {
	// An entry older than the hour window must not count toward the minute
	// window either — eviction happens first, unconditionally.
	l := newTestLimiter(1, 100)
	clock := 1000.0
	l.now = func() float64 { return clock }

	l.Check("user-a", "free")

	clock += 3601
	l.now = func() float64 { return clock }

	d := l.Check("user-a", "free")
	if !d.Admitted {
		t.Fatal("expected admission once the stale entry aged past the hour window")
	}
}
