// Package storetest runs the connection store contract against any implementation.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
)

// Factory returns an empty store; cleanup is registered on t.
type Factory func(t *testing.T) connstore.Store

var computedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// Result builds a SimilarityResult whose category scores all equal score.
func Result(score float64) apptype.SimilarityResult {
	return apptype.SimilarityResult{
		FacialScore:      score,
		VoiceScore:       score,
		InformationScore: score,
		OverallScore:     score,
		Confidence:       confidenceFor(score),
		ComputedAt:       computedAt,
	}
}

func confidenceFor(s float64) apptype.ConfidenceTier {
	switch {
	case s >= 0.8:
		return apptype.ConfidenceHigh
	case s >= 0.6:
		return apptype.ConfidenceMedium
	}
	return apptype.ConfidenceLow
}

// Run exercises the contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("UpsertCanonicalizesAndReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, err := s.Upsert(ctx, 3, 7, Result(0.4), connstore.WithPredictedRelationship("cousin"))
		require.NoError(t, err)
		assert.Equal(t, int64(3), first.UserA)
		assert.Equal(t, int64(7), first.UserB)
		assert.Equal(t, apptype.ConnectionPotential, first.Type)

		second, err := s.Upsert(ctx, 7, 3, Result(0.9), connstore.WithConnectionType(apptype.ConnectionVerified))
		require.NoError(t, err)
		assert.Equal(t, int64(3), second.UserA)

		got, err := s.Get(ctx, 3, 7)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, Result(0.9), got.Result)
		assert.Equal(t, apptype.ConnectionVerified, got.Type)
		// full replacement: the earlier label does not survive
		assert.Empty(t, got.PredictedRelationship)

		rev, err := s.Get(ctx, 7, 3)
		require.NoError(t, err)
		assert.Equal(t, got, rev)

		n3, err := s.NeighborsOf(ctx, 3, 0)
		require.NoError(t, err)
		assert.Len(t, n3, 1)
		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalConnections)
	})

	t.Run("GetAbsent", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Get(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RejectsInvalidInput", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Upsert(ctx, 5, 5, Result(0.5))
		assert.ErrorIs(t, err, connstore.ErrInvalidInput)
		_, err = s.Upsert(ctx, 1, 2, Result(0.5), connstore.WithConnectionType("maybe"))
		assert.ErrorIs(t, err, connstore.ErrInvalidInput)
		_, err = s.Get(ctx, 4, 4)
		assert.ErrorIs(t, err, connstore.ErrInvalidInput)
	})

	t.Run("NeighborsOrderingAndThreshold", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustUpsert(t, s, 10, 4, 0.7)
		mustUpsert(t, s, 10, 12, 0.9)
		mustUpsert(t, s, 2, 10, 0.7)
		mustUpsert(t, s, 10, 11, 0.3)
		mustUpsert(t, s, 4, 12, 0.99) // does not touch 10

		conns, err := s.NeighborsOf(ctx, 10, 0.5)
		require.NoError(t, err)
		require.Len(t, conns, 3)
		assert.Equal(t, []int64{12, 2, 4}, counterparts(conns, 10))

		all, err := s.NeighborsOf(ctx, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{12, 2, 4, 11}, counterparts(all, 10))

		top, err := s.TopMatches(ctx, 10, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{12, 2}, counterparts(top, 10))

		unlimited, err := s.TopMatches(ctx, 10, 0.5, 0)
		require.NoError(t, err)
		assert.Len(t, unlimited, 3)

		none, err := s.NeighborsOf(ctx, 99, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("SetConnectionType", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.SetConnectionType(ctx, 1, 2, apptype.ConnectionVerified)
		assert.ErrorIs(t, err, connstore.ErrNotFound)

		mustUpsert(t, s, 2, 1, 0.85)
		conn, err := s.SetConnectionType(ctx, 2, 1, apptype.ConnectionRejected)
		require.NoError(t, err)
		assert.Equal(t, apptype.ConnectionRejected, conn.Type)

		got, err := s.Get(ctx, 1, 2)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, apptype.ConnectionRejected, got.Type)
		assert.Equal(t, Result(0.85), got.Result)

		_, err = s.SetConnectionType(ctx, 1, 2, "unknown")
		assert.ErrorIs(t, err, connstore.ErrInvalidInput)
	})

	t.Run("KeepReview", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		fresh, err := s.Upsert(ctx, 4, 2, Result(0.5), connstore.KeepReview(),
			connstore.WithConnectionType(apptype.ConnectionRejected))
		require.NoError(t, err)
		// nothing stored yet, so the given options apply
		assert.Equal(t, apptype.ConnectionRejected, fresh.Type)

		_, err = s.Upsert(ctx, 2, 4, Result(0.5), connstore.WithPredictedRelationship("sibling"))
		require.NoError(t, err)
		_, err = s.SetConnectionType(ctx, 2, 4, apptype.ConnectionVerified)
		require.NoError(t, err)

		kept, err := s.Upsert(ctx, 4, 2, Result(0.7), connstore.KeepReview())
		require.NoError(t, err)
		assert.Equal(t, apptype.ConnectionVerified, kept.Type)
		assert.Equal(t, "sibling", kept.PredictedRelationship)
		assert.Equal(t, Result(0.7), kept.Result)

		got, err := s.Get(ctx, 2, 4)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, apptype.ConnectionVerified, got.Type)
		assert.Equal(t, "sibling", got.PredictedRelationship)
		assert.Equal(t, Result(0.7), got.Result)
	})

	t.Run("Stats", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustUpsert(t, s, 1, 2, 0.95)
		mustUpsert(t, s, 1, 3, 0.8)
		mustUpsert(t, s, 2, 3, 0.2)
		_, err := s.SetConnectionType(ctx, 1, 2, apptype.ConnectionVerified)
		require.NoError(t, err)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalConnections)
		assert.Equal(t, 2, stats.HighConfidenceMatches)
		assert.Equal(t, 1, stats.ByType[apptype.ConnectionVerified])
		assert.Equal(t, 2, stats.ByType[apptype.ConnectionPotential])
	})

	t.Run("ConcurrentUpsertsLastWriterWins", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		scores := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
		var wg sync.WaitGroup
		for i, sc := range scores {
			wg.Add(1)
			go func(i int, sc float64) {
				defer wg.Done()
				a, b := int64(20), int64(21)
				if i%2 == 1 {
					a, b = b, a
				}
				_, err := s.Upsert(ctx, a, b, Result(sc))
				assert.NoError(t, err)
			}(i, sc)
		}
		wg.Wait()

		got, err := s.Get(ctx, 21, 20)
		require.NoError(t, err)
		require.NotNil(t, got)
		// every field comes from the same write
		assert.Equal(t, Result(got.Result.OverallScore), got.Result)
		assert.Contains(t, scores, got.Result.OverallScore)

		conns, err := s.NeighborsOf(ctx, 20, 0)
		require.NoError(t, err)
		assert.Len(t, conns, 1)
	})
}

func mustUpsert(t *testing.T, s connstore.Store, a, b int64, score float64) {
	t.Helper()
	_, err := s.Upsert(context.Background(), a, b, Result(score))
	require.NoError(t, err)
}

func counterparts(conns []apptype.Connection, id int64) []int64 {
	out := make([]int64, len(conns))
	for i, c := range conns {
		out[i] = c.Counterpart(id)
	}
	return out
}
