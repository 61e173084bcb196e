package graph

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when a proposed edge set contains a cycle.
var ErrCycle = errors.New("graph contains a cycle")

// Edge is one parsed connection: sender_path/out_NN -> receiver_path/in_NN.
type Edge struct {
	Sender   PortRef
	Receiver PortRef
}

// color is the DFS three-coloring state used for cycle detection at build
// time (spec §4.2 validation step 3). Unrelated to the render-time walk's
// memoization color, which lives on ThreadState and is reset every Clear.
type color int

const (
	white color = iota // NEW: not yet visited
	gray               // REACHED: on the current DFS stack
	black              // VISITED: fully explored, no cycle found through it
)

// node is one entry in the Connections graph: a Device plus its fan-in
// (the "who feeds me" transpose storage described in spec §4.2) and a
// derived fan-out index used by the render-time mix step.
type node struct {
	id     NodeID
	device *Device
	// inputs[port] lists the senders feeding receive port `port`, in no
	// particular order (multiple senders to one port is legal fan-in).
	inputs map[int][]PortRef
	// outputs[port] lists the receivers fed by send port `port`, derived
	// from the full edge set during Build so the mix step can push a
	// sender's freshly rendered output straight to every receiver.
	outputs map[int][]PortRef
}

// Connections is the validated, acyclic device graph: a keyed tree of
// device nodes whose primary storage is the transpose of the musical
// signal flow (each node knows who feeds it), per spec §4.2/§9.
type Connections struct {
	nodes map[NodeID]*node
	order []NodeID // topological order, senders before receivers
}

// Build validates a parsed edge list against a device table and returns
// the resulting Connections graph, or an error if validation fails. The
// validation order matches spec §4.2: (1) parse — done by the caller via
// ParsePortRef before Build is called; (2) port existence; (3) acyclicity.
func Build(devices map[NodeID]*Device, edges []Edge) (*Connections, error) {
	c := &Connections{nodes: make(map[NodeID]*node, len(devices))}

	for id, dev := range devices {
		c.nodes[id] = &node{
			id:      id,
			device:  dev,
			inputs:  make(map[int][]PortRef),
			outputs: make(map[int][]PortRef),
		}
	}

	for _, e := range edges {
		if err := c.validatePortExistence(e); err != nil {
			return nil, err
		}
		recv := c.nodes[e.Receiver.Node]
		recv.inputs[e.Receiver.Port] = append(recv.inputs[e.Receiver.Port], e.Sender)

		send := c.nodes[e.Sender.Node]
		send.outputs[e.Sender.Port] = append(send.outputs[e.Sender.Port], e.Receiver)
	}

	if err := c.checkAcyclic(); err != nil {
		return nil, err
	}

	c.order = c.topoOrder()

	return c, nil
}

func (c *Connections) validatePortExistence(e Edge) error {
	send, ok := c.nodes[e.Sender.Node]
	if !ok {
		return fmt.Errorf("graph: unknown sender device %q", e.Sender.Node)
	}
	if !send.device.HasPort(PortOut, e.Sender.Port) {
		return fmt.Errorf("graph: %s has no output port %d", e.Sender.Node, e.Sender.Port)
	}
	recv, ok := c.nodes[e.Receiver.Node]
	if !ok {
		return fmt.Errorf("graph: unknown receiver device %q", e.Receiver.Node)
	}
	if !recv.device.HasPort(PortIn, e.Receiver.Port) {
		return fmt.Errorf("graph: %s has no input port %d", e.Receiver.Node, e.Receiver.Port)
	}
	return nil
}

// checkAcyclic runs DFS three-coloring over the fan-in ("who feeds me")
// edges starting from every node (the graph need not be rooted at a
// single node for this check — an audio unit interior and the master
// graph are both validated the same way). A back edge (reaching a gray
// node) is a cycle.
func (c *Connections) checkAcyclic() error {
	colors := make(map[NodeID]color, len(c.nodes))
	for id := range c.nodes {
		colors[id] = white
	}

	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		colors[id] = gray
		for _, senders := range c.nodes[id].inputs {
			for _, s := range senders {
				switch colors[s.Node] {
				case gray:
					return fmt.Errorf("%w: back edge into %s", ErrCycle, s.Node)
				case white:
					if err := visit(s.Node); err != nil {
						return err
					}
				}
			}
		}
		colors[id] = black
		return nil
	}

	for id := range c.nodes {
		if colors[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// topoOrder returns a render-friendly node order (senders before
// receivers) via a postorder DFS over the fan-in edges. The actual render
// walk is recursive and does not depend on this order for correctness.
func (c *Connections) topoOrder() []NodeID {
	visited := make(map[NodeID]bool, len(c.nodes))
	var postorder []NodeID

	var visit func(id NodeID)
	visit = func(id NodeID) {
		visited[id] = true
		for _, senders := range c.nodes[id].inputs {
			for _, s := range senders {
				if !visited[s.Node] {
					visit(s.Node)
				}
			}
		}
		postorder = append(postorder, id)
	}

	for id := range c.nodes {
		if !visited[id] {
			visit(id)
		}
	}

	return postorder
}

// Order returns the render-friendly node order computed at Build time.
func (c *Connections) Order() []NodeID {
	return append([]NodeID(nil), c.order...)
}

// NodeCount returns the number of devices in the graph, for metrics (spec
// §2 component D / internal/metrics.GraphProvider).
func (c *Connections) NodeCount() int {
	return len(c.nodes)
}

// Device returns the Device for id, or nil if id is not part of this
// graph.
func (c *Connections) Device(id NodeID) *Device {
	n, ok := c.nodes[id]
	if !ok {
		return nil
	}
	return n.device
}

// Senders returns the (node, port) pairs feeding receive port `port` of
// device id.
func (c *Connections) Senders(id NodeID, port int) []PortRef {
	n, ok := c.nodes[id]
	if !ok {
		return nil
	}
	return n.inputs[port]
}

// Receivers returns the (node, port) pairs fed by send port `port` of
// device id.
func (c *Connections) Receivers(id NodeID, port int) []PortRef {
	n, ok := c.nodes[id]
	if !ok {
		return nil
	}
	return n.outputs[port]
}

// InputConnected reports whether receive port `port` of device id has at
// least one sender.
func (c *Connections) InputConnected(id NodeID, port int) bool {
	return len(c.Senders(id, port)) > 0
}
