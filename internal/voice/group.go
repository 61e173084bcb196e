package voice

import "math"

// Group is one contiguous run of same-group voices yielded by grouped
// iteration: all processors realizing a single note within one audio
// unit's voice rendering.
type Group struct {
	GroupID uint64
	Voices  []*Voice
}

// SortGroups performs a stable insertion sort of the pool's slots by
// group id, treating 0 (free) as the maximum key so inactive voices sink
// to the bottom and grouped iteration can stop at the first free slot.
func (p *Pool) SortGroups() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 1; i < len(p.voices); i++ {
		key := p.voices[i]
		j := i - 1
		for j >= 0 && sortKey(p.voices[j].GroupID) > sortKey(key.GroupID) {
			p.voices[j+1] = p.voices[j]
			j--
		}
		p.voices[j+1] = key
	}
}

func sortKey(groupID uint64) uint64 {
	if groupID == 0 {
		return math.MaxUint64
	}
	return groupID
}

// StartGroupIteration resets the pool's iteration cursor to the
// beginning. Call SortGroups first so same-group voices are contiguous.
func (p *Pool) StartGroupIteration() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.iterIdx = 0
}

// GetNextGroup yields the next contiguous run of same-group voices, or
// (Group{}, false) once the free-slot tail is reached. Safe for
// concurrent callers: each call under the pool mutex claims a disjoint
// run before releasing it, which is exactly what renders a whole voice
// group on one worker without ever splitting it across two.
func (p *Pool) GetNextGroup() (Group, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.iterIdx >= len(p.voices) || p.voices[p.iterIdx].GroupID == 0 {
		return Group{}, false
	}

	start := p.iterIdx
	gid := p.voices[start].GroupID
	end := start
	for end < len(p.voices) && p.voices[end].GroupID == gid {
		end++
	}
	p.iterIdx = end

	voices := make([]*Voice, 0, end-start)
	for i := start; i < end; i++ {
		voices = append(voices, &p.voices[i])
	}
	return Group{GroupID: gid, Voices: voices}, true
}
