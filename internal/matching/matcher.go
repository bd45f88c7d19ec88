// Package matching runs a profile against the registry and records the
// resulting connections.
package matching

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/features"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/similarity"
)

// DefaultCandidates bounds how many ANN neighbours a run compares.
const DefaultCandidates = 50

// Registry is the profile lookup the matcher reads from.
type Registry interface {
	GetProfile(ctx context.Context, id int64) (apptype.Profile, error)
	ListProfiles(ctx context.Context) ([]apptype.Profile, error)
}

// Options tune a single Run.
type Options struct {
	// Candidates caps ANN candidates; <= 0 uses DefaultCandidates.
	Candidates int
	// MinStoreScore is the overall score a result needs to be stored.
	MinStoreScore float64
}

// Matcher selects candidates for a profile, compares them and upserts the results.
type Matcher struct {
	registry  Registry
	store     connstore.Store
	cmp       *similarity.Comparator
	suppliers []features.Supplier
	index     *faceIndex
}

// New returns a Matcher. suppliers fill vectors missing from registered profiles.
func New(registry Registry, store connstore.Store, cmp *similarity.Comparator, suppliers ...features.Supplier) *Matcher {
	return &Matcher{
		registry:  registry,
		store:     store,
		cmp:       cmp,
		suppliers: suppliers,
		index:     newFaceIndex(),
	}
}

// Index adds or replaces p's face descriptor in the candidate index.
func (m *Matcher) Index(p apptype.Profile) {
	m.index.add(p.ID, p.FaceDescriptor)
}

// Forget drops id from the candidate index.
func (m *Matcher) Forget(id int64) {
	m.index.remove(id)
}

// Indexed reports how many face descriptors are indexed.
func (m *Matcher) Indexed() int {
	return m.index.len()
}

// Rebuild indexes every registered profile.
func (m *Matcher) Rebuild(ctx context.Context) error {
	profiles, err := m.registry.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	for _, p := range profiles {
		p, err = features.Resolve(ctx, p, m.suppliers...)
		if err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}
		m.Index(p)
	}
	return nil
}

// Run compares profile id against its candidates, stores every result scoring
// at least opts.MinStoreScore and returns the stored connections ranked by
// score. Candidates come from the face index; a profile without a face
// descriptor, or one with nothing comparable indexed, is compared against
// every registered profile. Existing review state on a pair is preserved.
func (m *Matcher) Run(ctx context.Context, id int64, opts Options) ([]apptype.Connection, error) {
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultCandidates
	}
	subject, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	candidates, err := m.candidates(ctx, subject, opts.Candidates)
	if err != nil {
		return nil, err
	}
	metrics.Default().ObserveMatchCandidates(len(candidates))

	conns := make([]apptype.Connection, 0, len(candidates))
	for _, other := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := m.cmp.Compare(subject, other)
		if err != nil {
			return nil, fmt.Errorf("compare %d with %d: %w", subject.ID, other.ID, err)
		}
		metrics.Default().ObserveComparison(string(res.Confidence))
		if res.OverallScore < opts.MinStoreScore {
			continue
		}
		conn, err := m.store.Upsert(ctx, subject.ID, other.ID, res, connstore.KeepReview())
		if err != nil {
			return nil, fmt.Errorf("store %d-%d: %w", subject.ID, other.ID, err)
		}
		conns = append(conns, conn)
	}
	connstore.SortForProfile(conns, subject.ID)
	return conns, nil
}

func (m *Matcher) load(ctx context.Context, id int64) (apptype.Profile, error) {
	p, err := m.registry.GetProfile(ctx, id)
	if err != nil {
		return p, err
	}
	return features.Resolve(ctx, p, m.suppliers...)
}

func (m *Matcher) candidates(ctx context.Context, subject apptype.Profile, k int) ([]apptype.Profile, error) {
	if ids, ok := m.index.search(subject.ID, subject.FaceDescriptor, k); ok {
		out := make([]apptype.Profile, 0, len(ids))
		for _, id := range ids {
			p, err := m.load(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("load candidate %d: %w", id, err)
			}
			out = append(out, p)
		}
		return out, nil
	}

	all, err := m.registry.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	out := make([]apptype.Profile, 0, len(all))
	for _, p := range all {
		if p.ID == subject.ID {
			continue
		}
		p, err = features.Resolve(ctx, p, m.suppliers...)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
