package protocol

import (
	"errors"
	"testing"
)

const sampleFrame = `[3,
 {"3":{"x":4.0,"y":5.0,"current_angle":0.1,"hp":100.0,"angle":0.1,"shape":0,"v":0.2},
  "12":{"x":1.5,"y":2.5,"current_angle":3.0,"hp":60.0,"angle":3.0,"shape":0,"v":0.2},
  "7":{"x":9.0,"y":9.0,"angle":-1.0}},
 {"4":{"ship_id":7,"x":1.0,"y":2.0,"angle":3.1,"v":0.2,"ttl":0.9,"hp":10.0},
  "10":{"ship_id":3,"x":6.0,"y":2.0,"angle":0.0,"v":0.2,"ttl":0.5,"hp":10.0}},
 [[0,0,0],[0,-4,3],[7,0,-10]],
 [[7,3,55.5],[3,12]]]`

func TestDecodeSnapshot_ReferenceFrame(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(sampleFrame))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if snap.Self != "3" {
		t.Fatalf("self=%q want 3", snap.Self)
	}
	self, ok := snap.SelfShip()
	if !ok || self.X != 4 || self.Y != 5 || self.Heading != 0.1 {
		t.Fatalf("self ship mismatch: ok=%v %+v", ok, self)
	}
	if got := snap.OtherIDs(); len(got) != 2 || got[0] != "7" || got[1] != "12" {
		t.Fatalf("other ids=%v want [7 12]", got)
	}
	if len(snap.Bullets) != 2 || snap.Bullets[0].ID != "4" || snap.Bullets[1].ID != "10" {
		t.Fatalf("bullets=%+v", snap.Bullets)
	}
	if snap.Grid.Width() != 3 || snap.Grid.Height() != 3 {
		t.Fatalf("grid %dx%d want 3x3", snap.Grid.Width(), snap.Grid.Height())
	}
	if v := snap.Grid.At(1, 1); v != -4 {
		t.Fatalf("At(1,1)=%d want -4", v)
	}
	if len(snap.KillFeed) != 2 {
		t.Fatalf("killfeed len=%d want 2", len(snap.KillFeed))
	}
	if k := snap.KillFeed[0]; k.Attacker != "7" || k.Victim != "3" || k.RemainingHP != 55.5 {
		t.Fatalf("killfeed[0]=%+v", k)
	}
	if k := snap.KillFeed[1]; k.Attacker != "3" || k.Victim != "12" || k.RemainingHP != 0 {
		t.Fatalf("killfeed[1]=%+v", k)
	}
}

func TestDecodeSnapshot_BulletArray(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`[1,{},[{"x":1,"y":1,"angle":0}],[],[]]`))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(snap.Bullets) != 1 {
		t.Fatalf("bullets=%d want 1", len(snap.Bullets))
	}
	if _, ok := snap.SelfShip(); ok {
		t.Fatalf("self should be absent")
	}
	if !snap.Grid.Empty() {
		t.Fatalf("expected empty grid")
	}
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"x":`,
		"object envelope": `{"self":1}`,
		"four elements":   `[1,{},[],[]]`,
		"six elements":    `[1,{},[],[],[],[]]`,
		"null ships":      `[1,null,[],[],[]]`,
		"string self":     `["1",{},[],[],[]]`,
		"float self":      `[1.5,{},[],[],[]]`,
		"ship missing y":  `[1,{"1":{"x":0,"angle":0}},[],[],[]]`,
		"ship not object": `[1,{"1":5},[],[],[]]`,
		"ship key text":   `[1,{"abc":{"x":0,"y":0,"angle":0}},[],[],[]]`,
		"bullets number":  `[1,{},5,[],[]]`,
		"ragged grid":     `[1,{},[],[[0,0],[0]],[]]`,
		"float cell":      `[1,{},[],[[0.5]],[]]`,
		"killfeed short":  `[1,{},[],[],[[1]]]`,
		"killfeed object": `[1,{},[],[],{}]`,
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			snap, err := DecodeSnapshot([]byte(frame))
			if err == nil {
				t.Fatalf("expected error for %s", frame)
			}
			if !errors.Is(err, ErrMalformedSnapshot) {
				t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
			}
			if snap.Ships != nil || snap.Self != "" {
				t.Fatalf("partial snapshot returned: %+v", snap)
			}
		})
	}
}

func TestGridWrap(t *testing.T) {
	g, err := NewGrid([][]int32{
		{1, 2, 3},
		{4, 5, 6},
	})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	cases := []struct {
		row, col int
		want     int32
	}{
		{0, 0, 1},
		{-1, 0, 4},
		{0, -1, 3},
		{2, 3, 1},
		{-3, -4, 6},
		{5, 7, 5},
	}
	for _, c := range cases {
		if got := g.At(c.row, c.col); got != c.want {
			t.Fatalf("At(%d,%d)=%d want %d", c.row, c.col, got, c.want)
		}
	}
}
