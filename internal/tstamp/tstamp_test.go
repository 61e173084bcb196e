package tstamp

import "testing"

func TestNewNormalizesRemainder(t *testing.T) {
	got := New(1, Beat+100)
	want := Tstamp{Beats: 2, Rem: 100}
	if got != want {
		t.Fatalf("New(1, Beat+100) = %+v, want %+v", got, want)
	}

	got = New(1, -100)
	want = Tstamp{Beats: 0, Rem: Beat - 100}
	if got != want {
		t.Fatalf("New(1, -100) = %+v, want %+v", got, want)
	}
}

func TestAddSub(t *testing.T) {
	a := New(1, Beat/2)
	b := New(0, Beat/2)
	sum := a.Add(b)
	if sum != New(2, 0) {
		t.Fatalf("a+b = %+v, want %+v", sum, New(2, 0))
	}
	diff := sum.Sub(a)
	if diff != b {
		t.Fatalf("sum-a = %+v, want %+v", diff, b)
	}
}

func TestCmp(t *testing.T) {
	cases := []struct {
		a, b Tstamp
		want int
	}{
		{New(1, 0), New(2, 0), -1},
		{New(2, 0), New(1, 0), 1},
		{New(1, 5), New(1, 5), 0},
		{New(1, 5), New(1, 6), -1},
	}
	for _, c := range cases {
		if got := c.a.Cmp(c.b); got != c.want {
			t.Errorf("%v.Cmp(%v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestToFramesFromFramesRoundTrip(t *testing.T) {
	tempo := 120.0
	rate := int32(48000)
	ts := New(4, 0) // 4 beats at 120bpm = 2 seconds
	frames := ToFrames(ts, tempo, rate)
	if frames != 96000 {
		t.Fatalf("ToFrames = %d, want 96000", frames)
	}
	back := FromFrames(frames, tempo, rate)
	if back.Cmp(ts) != 0 {
		t.Fatalf("round trip = %+v, want %+v", back, ts)
	}
}

func TestMin(t *testing.T) {
	a, b := New(1, 0), New(2, 0)
	if Min(a, b) != a {
		t.Fatalf("Min(a,b) should be a")
	}
	if Min(b, a) != a {
		t.Fatalf("Min(b,a) should be a")
	}
}

func TestPositionIsPatternPlayback(t *testing.T) {
	p := Position{Track: -1, System: -1}
	if !p.IsPatternPlayback() {
		t.Fatal("expected pattern-playback position")
	}
	p2 := Position{Track: 0, System: 0}
	if p2.IsPatternPlayback() {
		t.Fatal("expected normal position")
	}
}
