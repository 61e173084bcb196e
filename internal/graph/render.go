package graph

import "github.com/kunquat-go/synthcore/internal/workbuf"

// ClearMixed zeros every device's mixed-signal input buffers for
// [start, stop), on the given render thread. Called once per render
// chunk before Mix, per spec §4.2 step 2 / §4.9 step c.
func (c *Connections) ClearMixed(states *StateArena, thread, start, stop int) {
	for id := range c.nodes {
		states.For(id).Thread(thread).ClearMixedBuffers(start, stop)
	}
}

// MixMixed walks the graph depth-first from root, rendering each device's
// mixed-signal output and pushing it into every connected receiver's
// input buffer, per spec §4.2 step 3 ("DFS from the root"). Unlike Clear,
// which visits every node, a device with no path to root (e.g. an audio
// unit not wired to anything) is never reached and never rendered here.
func (c *Connections) MixMixed(states *StateArena, thread, start, stop int, tempo float64) {
	if _, ok := c.nodes[RootID]; !ok {
		return
	}
	c.mixNode(RootID, states, thread, start, stop, tempo)
}

func (c *Connections) mixNode(id NodeID, states *StateArena, thread, start, stop int, tempo float64) {
	ts := states.For(id).Thread(thread)
	if ts.color == colorVisited {
		return
	}
	ts.color = colorReached

	n := c.nodes[id]

	// Recurse into senders first so their outputs are ready to read.
	for port, senders := range n.inputs {
		_ = port
		for _, s := range senders {
			c.mixNode(s.Node, states, thread, start, stop, tempo)
		}
	}

	dev := n.device
	switch {
	case dev.Kind == KindAudioUnit && dev.Bypass:
		bypassCopy(n, ts, start, stop)
	case dev.Impl != nil:
		dev.Impl.RenderMixed(ts, start, stop, tempo)
		ts.hasMixedAudio = true
	}

	// Send-side: push this node's freshly rendered outputs into every
	// connected receiver's input buffer, mix-accumulating on fan-out.
	for port, receivers := range n.outputs {
		out := ts.mixedOut[port]
		if out == nil || !out.IsValid() {
			continue
		}
		for _, r := range receivers {
			recvTS := states.For(r.Node).Thread(thread)
			in := recvTS.MixedIn(r.Port)
			workbuf.Mix(in, out, start, stop)
			in.MarkValid()
			recvTS.markInputConnected(r.Port)
		}
	}

	ts.color = colorVisited
}

// bypassCopy implements spec §4.2 "Bypass": an audio unit in bypass mode
// copies its receive ports directly to its send ports, skipping its
// interior graph entirely.
func bypassCopy(n *node, ts *ThreadState, start, stop int) {
	count := n.device.PortCount(PortOut)
	for port := 0; port < count; port++ {
		in := ts.mixedIn[port]
		out := ts.MixedOut(port)
		if in == nil || !in.IsValid() {
			out.Clear(start, stop)
			out.Invalidate()
			continue
		}
		workbuf.Copy(out, in, start, stop)
		out.MarkValid()
	}
	ts.hasMixedAudio = true
}
