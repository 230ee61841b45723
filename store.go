package phenotree

import (
	"context"
	"errors"
)

var (
	ErrInvalidGraph     = errors.New("phenotree: invalid graph shape")
	ErrMalformedOutput  = errors.New("phenotree: malformed backend output")
	ErrInvalidTreeShape = errors.New("phenotree: backend returned an invalid tree")
	ErrBackend          = errors.New("phenotree: backend call failed")
	ErrBusy             = errors.New("phenotree: a turn is already in flight")
	ErrEmptyMessage     = errors.New("phenotree: message is empty")
	ErrNotConfirmed     = errors.New("phenotree: reset not confirmed")
	ErrStaleResponse    = errors.New("phenotree: response arrived after a reset")
	ErrNotFound         = errors.New("phenotree: key not found")
)

// Storage keys of the three persisted slots.
const (
	KeyHistory  = "phenological_chat_history"
	KeyGraph    = "phenological_tree_data"
	KeyPosition = "phenological_chat_position"
)

// Store is an opaque key-value capability. Values are stored as given;
// no validation happens at this layer.
type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the whole value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove is a no-op for an absent key.
	Remove(ctx context.Context, key string) error
}
