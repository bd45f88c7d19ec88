package matching

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/features"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/similarity"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mapRegistry map[int64]apptype.Profile

func (m mapRegistry) GetProfile(_ context.Context, id int64) (apptype.Profile, error) {
	p, ok := m[id]
	if !ok {
		return apptype.Profile{}, fmt.Errorf("profile %d: %w", id, connstore.ErrNotFound)
	}
	return p, nil
}

func (m mapRegistry) ListProfiles(context.Context) ([]apptype.Profile, error) {
	out := make([]apptype.Profile, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func person(id int64, first, last string, face apptype.FeatureVector) apptype.Profile {
	return apptype.Profile{
		ID:             id,
		Identity:       apptype.IdentityAttributes{FirstName: first, LastName: last},
		FaceDescriptor: face,
	}
}

func newTestMatcher(reg mapRegistry, store connstore.Store, suppliers ...features.Supplier) *Matcher {
	return New(reg, store, similarity.NewComparator(func() time.Time { return fixedNow }), suppliers...)
}

func TestRunComparesEveryProfileWithoutIndex(t *testing.T) {
	reg := mapRegistry{
		1: person(1, "Ana", "Silva", nil),
		2: person(2, "Ana", "Silva", nil),
		3: person(3, "Zed", "Quux", nil),
	}
	store := connstore.NewMemory()
	m := newTestMatcher(reg, store)

	conns, err := m.Run(context.Background(), 1, Options{})
	require.NoError(t, err)
	require.Len(t, conns, 2)
	// identical names rank first
	assert.Equal(t, int64(2), conns[0].Counterpart(1))
	assert.Greater(t, conns[0].Result.OverallScore, conns[1].Result.OverallScore)
	assert.Equal(t, 2, store.Len())
}

func TestRunMinStoreScoreFilters(t *testing.T) {
	reg := mapRegistry{
		1: person(1, "Ana", "Silva", nil),
		2: person(2, "Ana", "Silva", nil),
		3: person(3, "Zed", "Quux", nil),
	}
	store := connstore.NewMemory()
	conns, err := newTestMatcher(reg, store).Run(context.Background(), 1, Options{MinStoreScore: 0.05})
	require.NoError(t, err)
	// identical names give information 1 and overall 0.3; the stranger stays near 0
	require.Len(t, conns, 1)
	assert.Equal(t, int64(2), conns[0].Counterpart(1))
	assert.Equal(t, 1, store.Len())
}

func TestRunIsIdempotentAndKeepsReview(t *testing.T) {
	reg := mapRegistry{
		1: person(1, "Ana", "Silva", apptype.FeatureVector{0, 0, 0}),
		2: person(2, "Ana", "Silva", apptype.FeatureVector{0, 0, 1}),
	}
	store := connstore.NewMemory()
	m := newTestMatcher(reg, store)
	ctx := context.Background()

	first, err := m.Run(ctx, 1, Options{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = store.SetConnectionType(ctx, 1, 2, apptype.ConnectionVerified)
	require.NoError(t, err)

	second, err := m.Run(ctx, 2, Options{})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, apptype.ConnectionVerified, second[0].Type)
	assert.InDelta(t, first[0].Result.OverallScore, second[0].Result.OverallScore, 1e-12)
}

// reviewingStore records a verification on an existing pair just before each
// write reaches the underlying store, as a concurrent reviewer would.
type reviewingStore struct {
	connstore.Store
	reviewed int
}

func (s *reviewingStore) Upsert(ctx context.Context, a, b int64, res apptype.SimilarityResult, opts ...connstore.UpsertOption) (apptype.Connection, error) {
	if _, err := s.Store.SetConnectionType(ctx, a, b, apptype.ConnectionVerified); err == nil {
		s.reviewed++
	}
	return s.Store.Upsert(ctx, a, b, res, opts...)
}

func TestRunKeepsReviewLandingBeforeWrite(t *testing.T) {
	reg := mapRegistry{
		1: person(1, "Ana", "Silva", apptype.FeatureVector{0, 0, 0}),
		2: person(2, "Ana", "Silva", apptype.FeatureVector{0, 0, 1}),
	}
	inner := connstore.NewMemory()
	store := &reviewingStore{Store: inner}
	m := newTestMatcher(reg, store)
	ctx := context.Background()

	first, err := m.Run(ctx, 1, Options{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, apptype.ConnectionPotential, first[0].Type)
	assert.Zero(t, store.reviewed)

	second, err := m.Run(ctx, 1, Options{})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, store.reviewed)
	assert.Equal(t, apptype.ConnectionVerified, second[0].Type)

	got, err := inner.Get(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, apptype.ConnectionVerified, got.Type)
}

func TestRunUsesIndexCandidates(t *testing.T) {
	reg := mapRegistry{}
	store := connstore.NewMemory()
	m := newTestMatcher(reg, store)
	for i := int64(1); i <= 20; i++ {
		p := person(i, "P", fmt.Sprint(i), apptype.FeatureVector{float64(i), 0})
		reg[i] = p
		m.Index(p)
	}
	assert.Equal(t, 20, m.Indexed())

	conns, err := m.Run(context.Background(), 10, Options{Candidates: 2})
	require.NoError(t, err)
	require.NotEmpty(t, conns)
	assert.LessOrEqual(t, len(conns), 2)
	for _, c := range conns {
		assert.True(t, c.Touches(10))
		assert.NotEqual(t, c.UserA, c.UserB)
	}
}

func TestRunFallsBackWhenNoComparableDescriptor(t *testing.T) {
	reg := mapRegistry{
		1: person(1, "A", "B", apptype.FeatureVector{1, 2, 3}),
		2: person(2, "A", "B", apptype.FeatureVector{1, 2}),
		3: person(3, "A", "C", nil),
	}
	m := newTestMatcher(reg, connstore.NewMemory())
	require.NoError(t, m.Rebuild(context.Background()))
	assert.Equal(t, 2, m.Indexed())

	conns, err := m.Run(context.Background(), 1, Options{})
	require.NoError(t, err)
	assert.Len(t, conns, 2)
}

func TestRunResolvesSuppliedVectors(t *testing.T) {
	reg := mapRegistry{
		1: person(1, "", "", nil),
		2: person(2, "", "", nil),
	}
	faces := features.NewStatic(features.Face)
	faces.Set(1, apptype.FeatureVector{0.5, 0.5})
	faces.Set(2, apptype.FeatureVector{0.5, 0.5})

	conns, err := newTestMatcher(reg, connstore.NewMemory(), faces).Run(context.Background(), 1, Options{})
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.InDelta(t, 1.0, conns[0].Result.FacialScore, 1e-12)
}

func TestRunUnknownProfile(t *testing.T) {
	_, err := newTestMatcher(mapRegistry{}, connstore.NewMemory()).Run(context.Background(), 9, Options{})
	assert.ErrorIs(t, err, connstore.ErrNotFound)
}

func TestIndexReplaceAndForget(t *testing.T) {
	m := newTestMatcher(mapRegistry{}, connstore.NewMemory())
	m.Index(person(1, "", "", apptype.FeatureVector{1, 0}))
	m.Index(person(2, "", "", apptype.FeatureVector{0, 1}))
	m.Index(person(1, "", "", apptype.FeatureVector{1, 0, 0}))
	assert.Equal(t, 2, m.Indexed())

	ids, ok := m.index.search(3, apptype.FeatureVector{1, 0, 0}, 5)
	require.True(t, ok)
	assert.Equal(t, []int64{1}, ids)

	m.Forget(1)
	_, ok = m.index.search(3, apptype.FeatureVector{1, 0, 0}, 5)
	assert.False(t, ok)
	m.Index(person(2, "", "", nil))
	assert.Equal(t, 0, m.Indexed())
}
