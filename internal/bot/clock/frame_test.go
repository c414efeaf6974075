package clock

import "testing"

func TestFrameStartsAtOne(t *testing.T) {
	var f Frame
	if f.Count() != 0 {
		t.Fatalf("zero Frame count=%d", f.Count())
	}
	if got := f.Tick(); got != 1 {
		t.Fatalf("first Tick=%d want 1", got)
	}
}

func TestFrameDue(t *testing.T) {
	var f Frame
	var turns, attacks []int64
	for i := 0; i < 120; i++ {
		f.Tick()
		if f.Due(60) {
			turns = append(turns, f.Count())
		}
		if f.Due(10) {
			attacks = append(attacks, f.Count())
		}
	}
	if len(turns) != 2 || turns[0] != 60 || turns[1] != 120 {
		t.Fatalf("turn frames=%v want [60 120]", turns)
	}
	if len(attacks) != 12 || attacks[0] != 10 {
		t.Fatalf("attack frames=%v", attacks)
	}
}

func TestFrameDueNonPositiveRate(t *testing.T) {
	var f Frame
	f.Tick()
	for _, r := range []int{0, -1} {
		if f.Due(r) {
			t.Fatalf("Due(%d) should never be true", r)
		}
	}
	if !f.Due(1) {
		t.Fatalf("Due(1) should always be true")
	}
}
