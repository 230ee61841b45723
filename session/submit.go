package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/metrics"
	"github.com/meikuraledutech/phenotree/prompt"
	"github.com/meikuraledutech/phenotree/response"
	"go.uber.org/zap"
)

// Greeting opens an empty conversation.
const Greeting = "Hello! I can help you create phenological trees. Try one of these:"

// Submit runs one conversational turn for text and returns the assistant
// turn that was appended. Backend and validation failures do not surface as
// errors: they produce the canned failure turn. Errors are returned only for
// rejected submissions (ErrEmptyMessage, ErrBusy) and for replies discarded
// by a Reset (ErrStaleResponse).
func (s *Session) Submit(ctx context.Context, text string) (phenotree.Turn, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" {
		s.mu.Unlock()
		s.metrics.SubmissionRejected("empty")
		return phenotree.Turn{}, phenotree.ErrEmptyMessage
	}
	if s.state == Awaiting {
		s.mu.Unlock()
		s.metrics.SubmissionRejected("busy")
		return phenotree.Turn{}, phenotree.ErrBusy
	}

	prior := phenotree.CloneHistory(s.history)
	var edited *phenotree.Graph
	if s.canvasEdited {
		g := s.graph.Clone()
		edited = &g
	}
	s.history = append(s.history, phenotree.UserTurn(text))
	s.draft = ""
	s.state = Awaiting
	gen := s.generation
	s.saveHistoryLocked(ctx)
	s.mu.Unlock()

	start := time.Now()
	raw, err := s.backend.Complete(ctx, prompt.Build(text, prior, edited))
	s.metrics.ObserveBackend(time.Since(start))

	var out response.Outcome
	if err == nil {
		out, err = response.Validate(raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle

	if gen != s.generation {
		s.logger.Info("discarding reply that predates a reset")
		s.metrics.TurnCompleted(metrics.OutcomeStale)
		return phenotree.Turn{}, phenotree.ErrStaleResponse
	}

	if err == nil && out.Kind == response.GraphOutcome && out.Graph.IsEmpty() {
		err = fmt.Errorf("%w: graph outcome without nodes", phenotree.ErrInvalidTreeShape)
	}
	if err != nil {
		s.logger.Warn("turn failed", zap.Error(err), zap.Int("raw_len", len(raw)))
		turn := phenotree.AssistantTurn(FailureMessage(), nil)
		s.appendLocked(ctx, turn)
		s.metrics.TurnCompleted(metrics.OutcomeFailed)
		return turn, nil
	}

	if out.Kind == response.Conversational {
		turn := phenotree.AssistantTurn(out.Message, nil)
		s.appendLocked(ctx, turn)
		s.metrics.TurnCompleted(metrics.OutcomeConversational)
		return turn, nil
	}

	s.graph = out.Graph.Clone()
	s.canvasEdited = false
	s.saveGraphLocked(ctx)

	attached := s.graph.Clone()
	turn := phenotree.AssistantTurn(Summary(s.graph), &attached)
	s.appendLocked(ctx, turn)
	s.canvas.Render(s.graph.Clone())
	s.metrics.TurnCompleted(metrics.OutcomeGraph)
	s.logger.Info("graph replaced", zap.Int("nodes", len(s.graph.Nodes)), zap.Int("edges", len(s.graph.Edges)))
	shown := s.graph.Clone()
	return phenotree.AssistantTurn(turn.Text, &shown), nil
}

func (s *Session) appendLocked(ctx context.Context, turn phenotree.Turn) {
	s.history = append(s.history, turn)
	s.saveHistoryLocked(ctx)
}

// Summary describes a freshly generated graph. g must have at least one node.
func Summary(g phenotree.Graph) string {
	first := g.Nodes[0].Data.Label
	last := g.Nodes[len(g.Nodes)-1].Data.Label

	lines := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		lines[i] = fmt.Sprintf("- %s (%s)", n.Data.Label, n.Data.Timing)
	}

	return fmt.Sprintf("I've created a new phenological tree with %d stages showing the progression from \"%s\" to \"%s\".\n\nKey stages include:\n%s\n\nLet me know if you'd like any adjustments!",
		len(g.Nodes), first, last, strings.Join(lines, "\n"))
}

// FailureMessage is the assistant reply for a turn that produced nothing
// usable.
func FailureMessage() string {
	lines := make([]string, len(prompt.ShortExamples))
	for i, ex := range prompt.ShortExamples {
		lines[i] = fmt.Sprintf("%d. \"%s\"", i+1, ex)
	}
	return "I had trouble generating the tree. Please try one of these example prompts:\n\n" + strings.Join(lines, "\n")
}
