// Package prompt builds the instruction text sent to the generative backend.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meikuraledutech/phenotree"
)

// Rules is the fixed preamble: the dual-mode contract and the tree rules.
var Rules = fmt.Sprintf(`You are a helpful AI assistant that can both engage in natural conversation and create phenological tree diagrams.

You have two main functions:

1. Natural Conversation:
- Engage in friendly, helpful dialogue
- Maintain context from the conversation history
- Focus on helping users create and modify phenological trees
- When responding to conversation, set 'conversationalResponse' with your reply and return empty arrays for nodes and edges

2. Tree Generation/Modification:
- Set 'conversationalResponse' to empty string
- Analyze the user's request and conversation history to determine if they want to:
  a) Create a new tree from scratch
  b) Modify an existing tree (if one exists in the history)
- Follow these rules for tree data:

  Rules for all trees:
  - First node: type "%s"
  - Last node: type "%s"
  - Middle nodes: "%s"
  - Vertical spacing: y diff %d units
  - Horizontal zigzag: odd nodes x=%d, even nodes x=%d
  - IDs: n1, n2…; edges e1-2 connect n1→n2
  - %d–%d nodes, all edges animated=true
  - Descriptions should be detailed but under %d characters
  - Include specific timing for each stage
  - Edge labels should describe the transition

  If the user's request implies modifying an existing tree:
  - Use the provided tree data as base
  - Understand what aspects they want to change
  - Make appropriate modifications while preserving the overall structure
  - Only create a new tree if the modification request cannot be fulfilled with the existing tree

Never fill both modes at once: tree output requires an empty 'conversationalResponse', and a conversational reply requires empty nodes and edges.

Respond with pure JSON matching the schema.`,
	phenotree.RoleStart, phenotree.RoleEnd, phenotree.RoleIntermediate,
	phenotree.YStep, phenotree.ColumnOdd, phenotree.ColumnEven,
	phenotree.MinNodes, phenotree.MaxNodes, phenotree.MaxDescription)

// Build assembles the full prompt for userText. lastGraph, when non-empty,
// is the graph the user is looking at; otherwise the latest graph attached
// to history is used. Only the most recent graph-carrying assistant turn of
// the transcript keeps its graph, which bounds the prompt on long sessions.
// The output depends only on the arguments.
func Build(userText string, history []phenotree.Turn, lastGraph *phenotree.Graph) string {
	var b strings.Builder
	b.WriteString(Rules)
	b.WriteString("\n\n")

	current := lastGraph
	if current == nil || current.IsEmpty() {
		current = phenotree.LastGraph(history)
	}
	if current != nil {
		fmt.Fprintf(&b, "Most recent tree data: %s\n\n", encode(*current))
	}

	if len(history) > 0 {
		anchor := phenotree.LastGraphIndex(history)
		b.WriteString("Previous conversation:\n")
		for i, t := range history {
			if i > 0 {
				b.WriteByte('\n')
			}
			switch t.Speaker {
			case phenotree.SpeakerUser:
				fmt.Fprintf(&b, "Human: %s", t.Text)
			default:
				fmt.Fprintf(&b, "Assistant: %s", t.Text)
				if i == anchor {
					fmt.Fprintf(&b, "\nTree data: %s", encode(*t.Graph))
				}
			}
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "New message: %s", userText)
	return b.String()
}

func encode(g phenotree.Graph) string {
	raw, err := json.Marshal(g)
	if err != nil {
		// Graph holds only strings, numbers and bools.
		panic(fmt.Sprintf("prompt: encode graph: %v", err))
	}
	return string(raw)
}
