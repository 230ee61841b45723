// Package response validates raw backend output against the tree contract and
// classifies it as a conversational reply or a replacement graph.
//
// Only the shape is enforced here: the text must be one JSON object, the node
// and edge lists must be arrays, and a non-empty node list must hold 4 to 6
// nodes running from an "input" node to an "output" node. Field contents such
// as description length, positions or edge wiring are asked of the backend in
// the prompt and passed through untouched.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meikuraledutech/phenotree"
)

// Kind tells the two outcome branches apart.
type Kind int

const (
	Conversational Kind = iota + 1
	GraphOutcome
)

func (k Kind) String() string {
	switch k {
	case Conversational:
		return "conversational"
	case GraphOutcome:
		return "graph"
	default:
		return "unknown"
	}
}

// Outcome is a validated backend reply. Message is set for Conversational,
// Graph for GraphOutcome.
type Outcome struct {
	Kind    Kind
	Message string
	Graph   phenotree.Graph
}

// envelope keeps every top-level field raw so each one is checked explicitly.
type envelope struct {
	ConversationalResponse json.RawMessage `json:"conversationalResponse"`
	Nodes                  json.RawMessage `json:"nodes"`
	Edges                  json.RawMessage `json:"edges"`
}

// Validate parses raw backend text. Errors wrap phenotree.ErrMalformedOutput
// or phenotree.ErrInvalidTreeShape.
func Validate(raw string) (Outcome, error) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return Outcome{}, fmt.Errorf("%w: truncated or not a JSON object", phenotree.ErrMalformedOutput)
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", phenotree.ErrMalformedOutput, err)
	}

	if msg, ok := conversational(env.ConversationalResponse); ok {
		return Outcome{Kind: Conversational, Message: msg}, nil
	}

	if !isArray(env.Nodes) {
		return Outcome{}, fmt.Errorf("%w: nodes is not an array", phenotree.ErrInvalidTreeShape)
	}
	if !isArray(env.Edges) {
		return Outcome{}, fmt.Errorf("%w: edges is not an array", phenotree.ErrInvalidTreeShape)
	}

	g := phenotree.Empty()
	if err := json.Unmarshal(env.Nodes, &g.Nodes); err != nil {
		return Outcome{}, fmt.Errorf("%w: decode nodes: %v", phenotree.ErrInvalidTreeShape, err)
	}
	if err := json.Unmarshal(env.Edges, &g.Edges); err != nil {
		return Outcome{}, fmt.Errorf("%w: decode edges: %v", phenotree.ErrInvalidTreeShape, err)
	}

	roles := make([]phenotree.Role, len(g.Nodes))
	for i, n := range g.Nodes {
		roles[i] = n.Role
	}
	if err := phenotree.CheckBounds(roles); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", phenotree.ErrInvalidTreeShape, err)
	}

	return Outcome{Kind: GraphOutcome, Graph: g}, nil
}

// conversational reports whether the field holds a non-empty string.
// Any other JSON type counts as absent.
func conversational(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, s != ""
}

func isArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}
