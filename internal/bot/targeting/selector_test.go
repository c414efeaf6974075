package targeting

import (
	"math/rand"
	"testing"

	"arenabot.ai/internal/protocol"
)

func snapWith(self protocol.ShipID, ids ...protocol.ShipID) protocol.Snapshot {
	ships := map[protocol.ShipID]protocol.Ship{}
	for i, id := range ids {
		ships[id] = protocol.Ship{ID: id, X: float64(i), Y: float64(2 * i)}
	}
	return protocol.Snapshot{Self: self, Ships: ships}
}

func TestSelectorStaysOnStableShipSet(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)), PolicyRandom, 3)
	snap := snapWith("1", "1", "2", "3", "4", "5")

	first, ok, changed := s.Update(snap)
	if !ok || !changed {
		t.Fatalf("expected a fresh target: ok=%v changed=%v", ok, changed)
	}
	if first.Ship.ID == "1" {
		t.Fatalf("selected self")
	}
	for i := 0; i < 200; i++ {
		got, ok, changed := s.Update(snap)
		if !ok || changed || got.Ship.ID != first.Ship.ID || got.Offset != first.Offset {
			t.Fatalf("tick %d: target moved from %+v to %+v (changed=%v)", i, first, got, changed)
		}
	}
}

func TestSelectorReselectsWhenTargetVanishes(t *testing.T) {
	s := New(rand.New(rand.NewSource(7)), PolicyRandom, 3)
	snap := snapWith("1", "1", "2", "3")
	first, _, _ := s.Update(snap)

	delete(snap.Ships, first.Ship.ID)
	got, ok, changed := s.Update(snap)
	if !ok || !changed {
		t.Fatalf("expected reselection: ok=%v changed=%v", ok, changed)
	}
	if got.Ship.ID == first.Ship.ID || got.Ship.ID == "1" {
		t.Fatalf("reselected %q", got.Ship.ID)
	}
}

func TestSelectorOnlySelf(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)), PolicyRandom, 3)
	if _, ok, _ := s.Update(snapWith("1", "1")); ok {
		t.Fatalf("expected NoTarget with only self present")
	}
	if _, _, tracking := s.Current(); tracking {
		t.Fatalf("expected NoTarget state")
	}
}

func TestSelectorResetsWhenSelfDead(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)), PolicyRandom, 3)
	s.Update(snapWith("1", "1", "2"))
	if _, ok, _ := s.Update(snapWith("1", "2", "3")); ok {
		t.Fatalf("expected no target while self is absent")
	}
	if _, _, tracking := s.Current(); tracking {
		t.Fatalf("expected reset to NoTarget")
	}
}

func TestSelectorOffsetBounds(t *testing.T) {
	s := New(rand.New(rand.NewSource(42)), PolicyRandom, 3)
	seen := map[float64]bool{}
	for i := 0; i < 500; i++ {
		s.Reset()
		tg, ok, _ := s.Update(snapWith("1", "1", "2"))
		if !ok {
			t.Fatalf("expected target")
		}
		for _, v := range []float64{tg.Offset.X, tg.Offset.Y} {
			if v < -3 || v > 3 || v != float64(int(v)) {
				t.Fatalf("offset %v outside integer range [-3,3]", v)
			}
			seen[v] = true
		}
	}
	if len(seen) != 7 {
		t.Fatalf("expected all 7 offsets to appear, saw %v", seen)
	}
}

func TestSelectorSeededReproducible(t *testing.T) {
	snap := snapWith("1", "1", "2", "3", "4", "5", "6")
	a := New(rand.New(rand.NewSource(99)), PolicyRandom, 3)
	b := New(rand.New(rand.NewSource(99)), PolicyRandom, 3)
	for i := 0; i < 20; i++ {
		ta, _, _ := a.Update(snap)
		tb, _, _ := b.Update(snap)
		if ta != tb {
			t.Fatalf("round %d: %+v != %+v", i, ta, tb)
		}
		a.Reset()
		b.Reset()
	}
}

func TestSelectorFirstPolicy(t *testing.T) {
	s := New(rand.New(rand.NewSource(1)), PolicyFirst, 3)
	tg, ok, _ := s.Update(snapWith("2", "10", "2", "9"))
	if !ok || tg.Ship.ID != "9" {
		t.Fatalf("first policy picked %+v, want ship 9", tg)
	}
	if tg.Offset != (Offset{Y: FirstOffsetY}) {
		t.Fatalf("first policy offset=%+v", tg.Offset)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyRandom {
		t.Fatalf("empty policy: %v %v", p, err)
	}
	if _, err := ParsePolicy("nearest"); err == nil {
		t.Fatalf("expected unknown policy rejected")
	}
}
