package features

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

// Static is a map-backed Supplier, mostly for tests and batch imports.
type Static struct {
	kind Kind
	mu   sync.RWMutex
	vecs map[int64]apptype.FeatureVector
}

// NewStatic returns an empty Static supplier of the given kind.
func NewStatic(kind Kind) *Static {
	return &Static{kind: kind, vecs: make(map[int64]apptype.FeatureVector)}
}

func (s *Static) Kind() Kind { return s.kind }

// Set stores a copy of v for id.
func (s *Static) Set(id int64, v apptype.FeatureVector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vecs[id] = slices.Clone(v)
}

func (s *Static) Vector(_ context.Context, id int64) (apptype.FeatureVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vecs[id]
	if !ok || len(v) == 0 {
		return nil, fmt.Errorf("%s for profile %d: %w", s.kind, id, ErrUnavailable)
	}
	return slices.Clone(v), nil
}
