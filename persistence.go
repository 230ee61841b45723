package phenotree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultPanelPosition is where the chat panel sits before it was ever moved.
var DefaultPanelPosition = Position{X: 20, Y: 20}

// Persistence reads and writes the three session slots through a Store,
// encoding each as JSON. Absent slots decode to their defaults.
type Persistence struct {
	store Store
}

// NewPersistence wraps s.
func NewPersistence(s Store) *Persistence {
	return &Persistence{store: s}
}

// LoadHistory returns the saved conversation, or an empty one.
func (p *Persistence) LoadHistory(ctx context.Context) ([]Turn, error) {
	history := []Turn{}
	ok, err := p.load(ctx, KeyHistory, &history)
	if err != nil || !ok {
		return []Turn{}, err
	}
	if history == nil {
		history = []Turn{}
	}
	return history, nil
}

// SaveHistory overwrites the conversation slot.
func (p *Persistence) SaveHistory(ctx context.Context, history []Turn) error {
	if history == nil {
		history = []Turn{}
	}
	return p.save(ctx, KeyHistory, history)
}

// LoadGraph returns the saved graph, or the empty sentinel.
func (p *Persistence) LoadGraph(ctx context.Context) (Graph, error) {
	var g Graph
	ok, err := p.load(ctx, KeyGraph, &g)
	if err != nil || !ok {
		return Empty(), err
	}
	return g.Clone(), nil
}

// SaveGraph overwrites the graph slot.
func (p *Persistence) SaveGraph(ctx context.Context, g Graph) error {
	return p.save(ctx, KeyGraph, g)
}

// LoadPosition returns the saved panel position, or DefaultPanelPosition.
func (p *Persistence) LoadPosition(ctx context.Context) (Position, error) {
	var pos Position
	ok, err := p.load(ctx, KeyPosition, &pos)
	if err != nil || !ok {
		return DefaultPanelPosition, err
	}
	return pos, nil
}

// SavePosition overwrites the panel position slot.
func (p *Persistence) SavePosition(ctx context.Context, pos Position) error {
	return p.save(ctx, KeyPosition, pos)
}

// Clear removes all three slots. Every removal is attempted; the errors are
// joined.
func (p *Persistence) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyHistory, KeyGraph, KeyPosition} {
		if err := p.store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("phenotree: remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Persistence) load(ctx context.Context, key string, v any) (bool, error) {
	raw, err := p.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("phenotree: get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("phenotree: decode %s: %w", key, err)
	}
	return true, nil
}

func (p *Persistence) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("phenotree: encode %s: %w", key, err)
	}
	if err := p.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("phenotree: set %s: %w", key, err)
	}
	return nil
}
