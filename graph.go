package phenotree

import (
	"encoding/json"
	"fmt"
)

// Role is the node type understood by the canvas renderer.
type Role string

const (
	RoleStart        Role = "input"
	RoleIntermediate Role = "phenological"
	RoleEnd          Role = "output"
)

// Shape bounds for a non-empty graph.
const (
	MinNodes = 4
	MaxNodes = 6

	// MaxDescription is the description length the backend is asked to stay under.
	MaxDescription = 100

	// Layout constants for the zigzag: odd sequence positions sit in the left
	// column, even ones in the right, each row YStep below the previous.
	ColumnOdd  = 150
	ColumnEven = 350
	YStep      = 100
)

// Graph is an ordered sequence of stages and the transitions between them.
// The zero value is not the empty sentinel; use Empty.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one stage of the depicted progression.
type Node struct {
	ID       string    `json:"id"`
	Role     Role      `json:"type"`
	Position Position  `json:"position"`
	Data     StageData `json:"data"`
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StageData is the payload rendered inside a stage node.
type StageData struct {
	Label       string `json:"label"`
	Stage       string `json:"stage"`
	Description string `json:"description"`
	Timing      string `json:"timing"`
}

// Edge is a directed transition between two stages.
type Edge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Animated bool   `json:"animated"`
	Label    string `json:"label"`
}

// Empty returns the "no diagram yet" sentinel.
func Empty() Graph {
	return Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// IsEmpty reports whether g has no nodes.
func (g Graph) IsEmpty() bool {
	return len(g.Nodes) == 0
}

// Clone returns a deep copy of g. Nil slices come back as empty slices so the
// copy always encodes as arrays.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	return out
}

// MarshalJSON encodes nil slices as [] so a zero Graph never persists as null.
func (g Graph) MarshalJSON() ([]byte, error) {
	type plain Graph
	p := plain(g)
	if p.Nodes == nil {
		p.Nodes = []Node{}
	}
	if p.Edges == nil {
		p.Edges = []Edge{}
	}
	return json.Marshal(p)
}

// ValidateGraph checks the shape invariants of a graph: both lists present,
// and a non-empty node list holds 4 to 6 nodes opening with a start node and
// closing with an end node. The empty sentinel always passes. Field contents
// are not inspected.
func ValidateGraph(g *Graph) error {
	if g == nil {
		return fmt.Errorf("%w: graph is nil", ErrInvalidGraph)
	}
	if g.Nodes == nil {
		return fmt.Errorf("%w: nodes is not a list", ErrInvalidGraph)
	}
	if g.Edges == nil {
		return fmt.Errorf("%w: edges is not a list", ErrInvalidGraph)
	}
	return checkBounds(len(g.Nodes), func(i int) Role { return g.Nodes[i].Role })
}

// CheckBounds applies the node-count and boundary-role rules to a sequence of
// n roles. It is shared by ValidateGraph and the response validator, which
// runs it on decoded backend output before a Graph exists.
func CheckBounds(roles []Role) error {
	return checkBounds(len(roles), func(i int) Role { return roles[i] })
}

func checkBounds(n int, role func(int) Role) error {
	if n == 0 {
		return nil
	}
	if n < MinNodes || n > MaxNodes {
		return fmt.Errorf("%w: %d nodes, want %d-%d", ErrInvalidGraph, n, MinNodes, MaxNodes)
	}
	if r := role(0); r != RoleStart {
		return fmt.Errorf("%w: first node is %q, want %q", ErrInvalidGraph, r, RoleStart)
	}
	if r := role(n - 1); r != RoleEnd {
		return fmt.Errorf("%w: last node is %q, want %q", ErrInvalidGraph, r, RoleEnd)
	}
	return nil
}

// NodeID returns the conventional id of the node at 1-based sequence index i.
func NodeID(i int) string {
	return fmt.Sprintf("n%d", i)
}

// EdgeID returns the conventional id of the edge joining sequence indexes
// src and dst.
func EdgeID(src, dst int) string {
	return fmt.Sprintf("e%d-%d", src, dst)
}

// Layout returns the zigzag position of the node at 1-based sequence index i.
func Layout(i int) Position {
	x := float64(ColumnEven)
	if i%2 == 1 {
		x = ColumnOdd
	}
	return Position{X: x, Y: float64((i - 1) * YStep)}
}

// RoleAt returns the role a node at 1-based index i takes in a graph of n nodes.
func RoleAt(i, n int) Role {
	switch i {
	case 1:
		return RoleStart
	case n:
		return RoleEnd
	default:
		return RoleIntermediate
	}
}

// Stage describes one stage for NewPath.
type Stage struct {
	StageData
	// Transition labels the edge leaving this stage; ignored on the last one.
	Transition string
}

// NewPath lays out stages as a conventional path graph: ids n1..nk, roles by
// position, zigzag layout and animated e{i}-{i+1} edges.
func NewPath(stages []Stage) Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(stages)),
		Edges: make([]Edge, 0, len(stages)),
	}
	for i, s := range stages {
		idx := i + 1
		g.Nodes = append(g.Nodes, Node{
			ID:       NodeID(idx),
			Role:     RoleAt(idx, len(stages)),
			Position: Layout(idx),
			Data:     s.StageData,
		})
		if idx < len(stages) {
			g.Edges = append(g.Edges, Edge{
				ID:       EdgeID(idx, idx+1),
				Source:   NodeID(idx),
				Target:   NodeID(idx + 1),
				Animated: true,
				Label:    s.Transition,
			})
		}
	}
	return g
}
