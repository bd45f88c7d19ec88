package connstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

// Memory is an in-process Store ordered by canonical pair key.
type Memory struct {
	mu    sync.RWMutex
	tree  *btree.BTreeG[apptype.Connection]
	adj   map[int64]map[int64]struct{}
	clock func() time.Time
}

func pairLess(x, y apptype.Connection) bool {
	if x.UserA != y.UserA {
		return x.UserA < y.UserA
	}
	return x.UserB < y.UserB
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tree:  btree.NewBTreeG[apptype.Connection](pairLess),
		adj:   make(map[int64]map[int64]struct{}),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// Upsert replaces the record for the pair {a, b}.
func (m *Memory) Upsert(ctx context.Context, a, b int64, res apptype.SimilarityResult, opts ...UpsertOption) (apptype.Connection, error) {
	lo, hi, err := CanonicalPair(a, b)
	if err != nil {
		return apptype.Connection{}, err
	}
	o, err := ApplyOptions(opts...)
	if err != nil {
		return apptype.Connection{}, err
	}
	conn := apptype.Connection{
		UserA:                 lo,
		UserB:                 hi,
		Result:                res,
		Type:                  o.Type,
		PredictedRelationship: o.PredictedRelationship,
		UpdatedAt:             m.clock(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if o.KeepReview {
		if prev, ok := m.tree.Get(conn); ok {
			conn.Type = prev.Type
			conn.PredictedRelationship = prev.PredictedRelationship
		}
	}
	m.tree.Set(conn)
	m.link(lo, hi)
	m.link(hi, lo)
	return conn, nil
}

func (m *Memory) link(from, to int64) {
	set, ok := m.adj[from]
	if !ok {
		set = make(map[int64]struct{})
		m.adj[from] = set
	}
	set[to] = struct{}{}
}

// Get returns the connection for {a, b} or nil if none is stored.
func (m *Memory) Get(ctx context.Context, a, b int64) (*apptype.Connection, error) {
	lo, hi, err := CanonicalPair(a, b)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.tree.Get(apptype.Connection{UserA: lo, UserB: hi})
	if !ok {
		return nil, nil
	}
	return &conn, nil
}

// NeighborsOf returns connections touching id with overall score >= minScore.
func (m *Memory) NeighborsOf(ctx context.Context, id int64, minScore float64) ([]apptype.Connection, error) {
	m.mu.RLock()
	out := make([]apptype.Connection, 0, len(m.adj[id]))
	for other := range m.adj[id] {
		lo, hi := id, other
		if lo > hi {
			lo, hi = hi, lo
		}
		conn, ok := m.tree.Get(apptype.Connection{UserA: lo, UserB: hi})
		if ok && conn.Result.OverallScore >= minScore {
			out = append(out, conn)
		}
	}
	m.mu.RUnlock()
	SortForProfile(out, id)
	return out, nil
}

// TopMatches is NeighborsOf truncated to limit.
func (m *Memory) TopMatches(ctx context.Context, id int64, minScore float64, limit int) ([]apptype.Connection, error) {
	conns, err := m.NeighborsOf(ctx, id, minScore)
	if err != nil {
		return nil, err
	}
	return Truncate(conns, limit), nil
}

// SetConnectionType records a review decision for an existing pair.
func (m *Memory) SetConnectionType(ctx context.Context, a, b int64, t apptype.ConnectionType) (apptype.Connection, error) {
	lo, hi, err := CanonicalPair(a, b)
	if err != nil {
		return apptype.Connection{}, err
	}
	if !t.Valid() {
		return apptype.Connection{}, fmt.Errorf("%w: unknown connection type %q", ErrInvalidInput, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.tree.Get(apptype.Connection{UserA: lo, UserB: hi})
	if !ok {
		return apptype.Connection{}, fmt.Errorf("connection %d-%d: %w", lo, hi, ErrNotFound)
	}
	conn.Type = t
	conn.UpdatedAt = m.clock()
	m.tree.Set(conn)
	return conn, nil
}

// Stats summarizes stored connections.
func (m *Memory) Stats(ctx context.Context) (apptype.ConnectionStats, error) {
	stats := apptype.ConnectionStats{ByType: make(map[apptype.ConnectionType]int)}
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.tree.Scan(func(c apptype.Connection) bool {
		stats.TotalConnections++
		if c.Result.OverallScore >= HighConfidenceScore {
			stats.HighConfidenceMatches++
		}
		stats.ByType[c.Type]++
		return true
	})
	return stats, nil
}

// Len returns the number of stored pairs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

var _ Store = (*Memory)(nil)
