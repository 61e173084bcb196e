package voice

import "testing"

type fakeVoiceState struct {
	active bool
}

func (s *fakeVoiceState) Active() bool     { return s.active }
func (s *fakeVoiceState) SetActive(b bool) { s.active = b }

func TestGetVoiceFillsFreeSlotsFirst(t *testing.T) {
	p := NewPool(3)
	g := p.NewGroupID()
	v := p.GetVoice(g)
	if v == nil {
		t.Fatal("expected a free voice")
	}
	if v.Priority != New {
		t.Fatalf("priority = %v, want New", v.Priority)
	}
	if v.GroupID != g {
		t.Fatalf("group = %d, want %d", v.GroupID, g)
	}
}

func TestGetVoiceReturnsNilOnEmptyPool(t *testing.T) {
	p := NewPool(0)
	if v := p.GetVoice(p.NewGroupID()); v != nil {
		t.Fatal("expected nil from a zero-size pool")
	}
}

func TestGetVoiceStealsWholeGroup(t *testing.T) {
	p := NewPool(2)
	g1 := p.NewGroupID()

	v1 := p.GetVoice(g1)
	v1.State = &fakeVoiceState{active: true}
	v2 := p.GetVoice(g1)
	v2.State = &fakeVoiceState{active: true}

	// Both slots now belong to g1. A second group must steal one of
	// them, which evicts the entire g1 group atomically.
	g2 := p.NewGroupID()
	v3 := p.GetVoice(g2)
	if v3 == nil {
		t.Fatal("expected stolen voice")
	}

	// Every remaining voice should either belong to g2 or be free; none
	// may still claim g1 in isolation.
	for i := range p.voices {
		if p.voices[i].GroupID == g1 {
			t.Fatalf("voice %d still belongs to evicted group %d", i, g1)
		}
	}
}

func TestGetVoicePrefersLowestPriority(t *testing.T) {
	p := NewPool(2)
	gBG := p.NewGroupID()
	vBG := p.GetVoice(gBG)
	p.Release(vBG) // FG(new) -> BG

	gFG := p.NewGroupID()
	vFG := p.GetVoice(gFG)
	_ = vFG // now New

	gSteal := p.NewGroupID()
	stolen := p.GetVoice(gSteal)
	if stolen != vBG {
		t.Fatal("expected the BG (lower-priority) voice to be stolen first")
	}
}

func TestSortGroupsSinksFreeSlotsAndGroupsIteration(t *testing.T) {
	p := NewPool(5)
	gA := p.NewGroupID()
	gB := p.NewGroupID()

	p.GetVoice(gA)
	p.GetVoice(gB)
	p.GetVoice(gA)
	// two slots remain free

	p.SortGroups()
	p.StartGroupIteration()

	seen := map[uint64]int{}
	for {
		grp, ok := p.GetNextGroup()
		if !ok {
			break
		}
		seen[grp.GroupID] = len(grp.Voices)
	}

	if seen[gA] != 2 {
		t.Fatalf("group A size = %d, want 2", seen[gA])
	}
	if seen[gB] != 1 {
		t.Fatalf("group B size = %d, want 1", seen[gB])
	}
}

func TestReserveWorkBuffersPointsEachVoice(t *testing.T) {
	p := NewPool(2)
	p.ReserveWorkBuffers(64)
	for i := range p.voices {
		if p.voices[i].scratch == nil {
			t.Fatalf("voice %d has no scratch buffer", i)
		}
		if p.voices[i].scratch.Size() != 64 {
			t.Fatalf("voice %d scratch size = %d, want 64", i, p.voices[i].scratch.Size())
		}
	}
}

func TestResizeGrowPreservesExistingVoicesAndScratch(t *testing.T) {
	p := NewPool(1)
	p.ReserveWorkBuffers(32)
	g := p.NewGroupID()
	v := p.GetVoice(g)
	v.State = &fakeVoiceState{active: true}

	p.Resize(3)
	if p.Size() != 3 {
		t.Fatalf("size = %d, want 3", p.Size())
	}
	if p.voices[0].GroupID != g {
		t.Fatal("existing voice lost its group on grow")
	}
	if p.voices[2].scratch == nil || p.voices[2].scratch.Size() != 32 {
		t.Fatal("newly grown voice did not get a scratch buffer")
	}
}

func TestNewGroupIDMonotonicNonzero(t *testing.T) {
	p := NewPool(0)
	ids := map[uint64]bool{}
	for i := 0; i < 10; i++ {
		id := p.NewGroupID()
		if id == 0 {
			t.Fatal("group id must be nonzero")
		}
		if ids[id] {
			t.Fatal("group id repeated")
		}
		ids[id] = true
	}
}
