package session

import (
	"context"

	"github.com/meikuraledutech/phenotree"
)

// ExpandedHeight is the height of the expanded chat panel.
const ExpandedHeight = 600

// Size is a width and height in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Panel is the floating chat panel: its top-left corner and whether it is
// expanded.
type Panel struct {
	Position phenotree.Position `json:"position"`
	Expanded bool               `json:"expanded"`
}

// Clamp keeps a box of size box with top-left corner pos inside viewport.
// When the box is larger than the viewport it is pinned to the top-left edge.
func Clamp(pos phenotree.Position, viewport, box Size) phenotree.Position {
	return phenotree.Position{
		X: max(0, min(pos.X, viewport.Width-box.Width)),
		Y: max(0, min(pos.Y, viewport.Height-box.Height)),
	}
}

// MovePanel moves the panel to pos, clamped to the viewport, and persists
// the result.
func (s *Session) MovePanel(ctx context.Context, pos phenotree.Position, viewport, box Size) phenotree.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.panel.Position = Clamp(pos, viewport, box)
	s.savePositionLocked(ctx)
	return s.panel.Position
}

// ResizeViewport re-clamps the panel after the viewport changed size. The
// position is persisted only when it moved.
func (s *Session) ResizeViewport(ctx context.Context, viewport, box Size) phenotree.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Clamp(s.panel.Position, viewport, box)
	if next != s.panel.Position {
		s.panel.Position = next
		s.savePositionLocked(ctx)
	}
	return s.panel.Position
}

// ToggleExpanded flips the panel between expanded and collapsed. Expanding a
// panel whose top edge would push it past the bottom of the viewport lifts it
// to fit, but never above y=20.
func (s *Session) ToggleExpanded(ctx context.Context, viewport Size) Panel {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.panel.Expanded = !s.panel.Expanded
	if s.panel.Expanded {
		limit := viewport.Height - ExpandedHeight
		if s.panel.Position.Y > limit {
			s.panel.Position.Y = max(phenotree.DefaultPanelPosition.Y, limit)
		}
	}
	s.savePositionLocked(ctx)
	return s.panel
}
