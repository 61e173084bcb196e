package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID identifies one device within a Connections graph: "root",
// "au_00", or "au_00/proc_03". It doubles as the device's path for
// logging and for module key addressing.
type NodeID string

// RootID is the fixed identifier of the graph root (the master device).
const RootID NodeID = "root"

// PortRef is a parsed "<node>/<in|out>_NN" reference, as used in a
// Connections edge endpoint.
type PortRef struct {
	Node NodeID
	Dir  PortDir
	Port int
}

// ParsePortRef parses one endpoint of a connection edge, e.g.
// "au_00/out_02", "au_00/proc_01/in_00", or "root/in_00". The grammar is
// `(root | au_XX | au_XX/proc_XX)/(in|out)_NN` with two-digit hex indices,
// matching the original module file format (spec §6).
func ParsePortRef(path string) (PortRef, error) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return PortRef{}, fmt.Errorf("graph: malformed path %q: missing port suffix", path)
	}
	nodePart, portPart := path[:idx], path[idx+1:]

	dir, num, err := parsePort(portPart)
	if err != nil {
		return PortRef{}, fmt.Errorf("graph: malformed path %q: %w", path, err)
	}

	if err := validateNodePath(nodePart); err != nil {
		return PortRef{}, fmt.Errorf("graph: malformed path %q: %w", path, err)
	}

	return PortRef{Node: NodeID(nodePart), Dir: dir, Port: num}, nil
}

func parsePort(s string) (PortDir, int, error) {
	var dir PortDir
	var rest string
	switch {
	case strings.HasPrefix(s, "in_"):
		dir, rest = PortIn, s[3:]
	case strings.HasPrefix(s, "out_"):
		dir, rest = PortOut, s[4:]
	default:
		return 0, 0, fmt.Errorf("unrecognized port component %q", s)
	}
	n, err := strconv.ParseUint(rest, 16, 8)
	if err != nil || len(rest) != 2 {
		return 0, 0, fmt.Errorf("invalid port index %q", rest)
	}
	return dir, int(n), nil
}

// validateNodePath checks the node-path grammar: root | au_XX |
// au_XX/proc_XX, each index two hex digits.
func validateNodePath(p string) error {
	if p == string(RootID) {
		return nil
	}
	parts := strings.Split(p, "/")
	switch len(parts) {
	case 1:
		return validateIndexedSegment(parts[0], "au_")
	case 2:
		if err := validateIndexedSegment(parts[0], "au_"); err != nil {
			return err
		}
		return validateIndexedSegment(parts[1], "proc_")
	default:
		return fmt.Errorf("unrecognized node path %q", p)
	}
}

func validateIndexedSegment(seg, prefix string) error {
	if !strings.HasPrefix(seg, prefix) {
		return fmt.Errorf("segment %q must start with %q", seg, prefix)
	}
	idx := seg[len(prefix):]
	if _, err := strconv.ParseUint(idx, 16, 8); err != nil || len(idx) != 2 {
		return fmt.Errorf("segment %q has an invalid index", seg)
	}
	return nil
}
