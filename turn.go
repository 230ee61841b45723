package phenotree

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of the conversation log.
// Graph is set only on assistant turns that produced a new graph.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	Graph   *Graph  `json:"graph,omitempty"`
}

// UserTurn builds a user turn.
func UserTurn(text string) Turn {
	return Turn{Speaker: SpeakerUser, Text: text}
}

// AssistantTurn builds an assistant turn; g may be nil for conversational replies.
func AssistantTurn(text string, g *Graph) Turn {
	return Turn{Speaker: SpeakerAssistant, Text: text, Graph: g}
}

// LastGraphIndex returns the index of the latest assistant turn carrying a
// graph, or -1.
func LastGraphIndex(history []Turn) int {
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		if t.Speaker == SpeakerAssistant && t.Graph != nil {
			return i
		}
	}
	return -1
}

// LastGraph returns the graph of the latest graph-producing assistant turn,
// or nil when the conversation has none.
func LastGraph(history []Turn) *Graph {
	if i := LastGraphIndex(history); i >= 0 {
		return history[i].Graph
	}
	return nil
}

// CloneHistory copies a history so the caller may not alias the owner's turns
// or their attached graphs.
func CloneHistory(history []Turn) []Turn {
	out := make([]Turn, len(history))
	for i, t := range history {
		out[i] = t
		if t.Graph != nil {
			g := t.Graph.Clone()
			out[i].Graph = &g
		}
	}
	return out
}
