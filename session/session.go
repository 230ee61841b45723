// Package session is the conversation orchestrator. A Session is the
// application context of one user: it owns the graph, the chat history, the
// chat panel position and the turn state, and it is the only writer of the
// persisted slots.
//
// Turns are taken one at a time. Submit blocks for the whole backend call;
// a second Submit while one is in flight is rejected with phenotree.ErrBusy
// rather than queued. The Session lock is never held across the backend call,
// so Snapshot, Reset and canvas edits stay responsive while a turn is pending.
//
// A Reset while a turn is pending bumps the session generation. When the
// pending reply arrives it is dropped instead of repopulating the cleared
// session.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/metrics"
	"github.com/meikuraledutech/phenotree/prompt"
	"go.uber.org/zap"
)

// ErrNoSuchExample is returned by SelectExample for an out-of-range index.
var ErrNoSuchExample = errors.New("session: no such example prompt")

// TurnState is Idle or Awaiting.
type TurnState int

const (
	Idle TurnState = iota
	Awaiting
)

func (s TurnState) String() string {
	if s == Awaiting {
		return "awaiting"
	}
	return "idle"
}

// Backend produces the complete raw reply for a prompt. *llm.Service
// satisfies it.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Canvas renders full graph snapshots. Render is called with the Session
// lock held and must not call back into the Session.
type Canvas interface {
	Render(g phenotree.Graph)
}

// CanvasFunc adapts a function to Canvas.
type CanvasFunc func(phenotree.Graph)

// Render calls f(g).
func (f CanvasFunc) Render(g phenotree.Graph) { f(g) }

// Deps are the collaborators of a Session. Logger, Metrics and Canvas are
// optional.
type Deps struct {
	Store   phenotree.Store
	Backend Backend
	Canvas  Canvas
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Session is one user's editor state.
type Session struct {
	mu sync.Mutex

	persist *phenotree.Persistence
	backend Backend
	canvas  Canvas
	logger  *zap.Logger
	metrics *metrics.Collector

	history      []phenotree.Turn
	graph        phenotree.Graph
	canvasEdited bool
	panel        Panel
	draft        string
	state        TurnState
	generation   uint64
	persistErr   error
}

// Open restores a session from the store. Unreadable slots fall back to
// their defaults; the failure is logged and kept in LastPersistError.
func Open(ctx context.Context, deps Deps) (*Session, error) {
	if deps.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if deps.Backend == nil {
		return nil, errors.New("session: backend is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	canvas := deps.Canvas
	if canvas == nil {
		canvas = CanvasFunc(func(phenotree.Graph) {})
	}

	s := &Session{
		persist: phenotree.NewPersistence(deps.Store),
		backend: deps.Backend,
		canvas:  canvas,
		logger:  logger,
		metrics: deps.Metrics,
	}

	history, err := s.persist.LoadHistory(ctx)
	s.noteLoad(phenotree.KeyHistory, err)
	graph, err := s.persist.LoadGraph(ctx)
	s.noteLoad(phenotree.KeyGraph, err)
	pos, err := s.persist.LoadPosition(ctx)
	s.noteLoad(phenotree.KeyPosition, err)

	s.history = history
	s.graph = graph
	s.canvasEdited = editedSince(graph, history)
	s.panel = Panel{Position: pos, Expanded: true}

	s.logger.Info("session opened",
		zap.Int("turns", len(history)),
		zap.Int("nodes", len(graph.Nodes)))
	s.canvas.Render(s.graph.Clone())
	return s, nil
}

// State is a read-only copy of the session.
type State struct {
	History []phenotree.Turn `json:"history"`
	Graph   phenotree.Graph  `json:"graph"`
	Panel   Panel            `json:"panel"`
	Draft   string           `json:"draft"`
	Busy    bool             `json:"busy"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		History: phenotree.CloneHistory(s.history),
		Graph:   s.graph.Clone(),
		Panel:   s.panel,
		Draft:   s.draft,
		Busy:    s.state == Awaiting,
	}
}

// TurnState returns the current turn state.
func (s *Session) TurnState() TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastPersistError returns the most recent snapshot failure, or nil.
// In-memory state stays authoritative when a write fails.
func (s *Session) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Draft returns the pending input text.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft replaces the pending input text.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// SelectExample copies example prompt i into the draft without submitting it.
func (s *Session) SelectExample(i int) (string, error) {
	if i < 0 || i >= len(prompt.Examples) {
		return "", ErrNoSuchExample
	}
	text := prompt.Examples[i]
	s.SetDraft(text)
	return text, nil
}

// ApplyCanvasEdit accepts g, as reported by the canvas after a drag or
// connect, as the authoritative graph. It is persisted and rendered but not
// added to the chat history; the next prompt carries it as the current tree,
// also after the session is reopened.
func (s *Session) ApplyCanvasEdit(ctx context.Context, g phenotree.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = g.Clone()
	s.canvasEdited = true
	s.saveGraphLocked(ctx)
	s.canvas.Render(s.graph.Clone())
	s.metrics.CanvasEdited()
}

// editedSince reports whether g was changed on the canvas after the latest
// graph the backend produced.
func editedSince(g phenotree.Graph, history []phenotree.Turn) bool {
	if g.IsEmpty() {
		return false
	}
	last := phenotree.LastGraph(history)
	return last == nil || !cmp.Equal(g, *last, cmpopts.EquateEmpty())
}

// Reset clears history, graph, draft and panel position, in memory and in
// the store, and renders the empty graph. It requires confirmed; without it
// nothing changes. A pending turn keeps running but its reply is discarded.
func (s *Session) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return phenotree.ErrNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = []phenotree.Turn{}
	s.graph = phenotree.Empty()
	s.canvasEdited = false
	s.draft = ""
	s.panel.Position = phenotree.DefaultPanelPosition
	s.generation++

	if err := s.persist.Clear(context.WithoutCancel(ctx)); err != nil {
		s.persistFailed("all", err)
	}
	s.canvas.Render(phenotree.Empty())
	s.metrics.ResetDone()
	s.logger.Info("session reset", zap.Bool("turn_pending", s.state == Awaiting))
	return nil
}

func (s *Session) noteLoad(slot string, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("could not restore slot, using default", zap.String("slot", slot), zap.Error(err))
	s.metrics.PersistFailed(slot)
	s.persistErr = err
}

func (s *Session) persistFailed(slot string, err error) {
	s.logger.Error("snapshot write failed", zap.String("slot", slot), zap.Error(err))
	s.metrics.PersistFailed(slot)
	s.persistErr = err
}

func (s *Session) saveHistoryLocked(ctx context.Context) {
	if err := s.persist.SaveHistory(context.WithoutCancel(ctx), s.history); err != nil {
		s.persistFailed(phenotree.KeyHistory, err)
	}
}

func (s *Session) saveGraphLocked(ctx context.Context) {
	if err := s.persist.SaveGraph(context.WithoutCancel(ctx), s.graph); err != nil {
		s.persistFailed(phenotree.KeyGraph, err)
	}
}

func (s *Session) savePositionLocked(ctx context.Context) {
	if err := s.persist.SavePosition(context.WithoutCancel(ctx), s.panel.Position); err != nil {
		s.persistFailed(phenotree.KeyPosition, err)
	}
}
