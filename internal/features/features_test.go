package features

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
)

type mapRegistry map[int64]apptype.Profile

func (m mapRegistry) GetProfile(_ context.Context, id int64) (apptype.Profile, error) {
	p, ok := m[id]
	if !ok {
		return apptype.Profile{}, fmt.Errorf("profile %d: %w", id, connstore.ErrNotFound)
	}
	return p, nil
}

type brokenSupplier struct{ err error }

func (b brokenSupplier) Kind() Kind { return Voice }
func (b brokenSupplier) Vector(context.Context, int64) (apptype.FeatureVector, error) {
	return nil, b.err
}

func TestStaticSupplier(t *testing.T) {
	s := NewStatic(Face)
	src := apptype.FeatureVector{1, 2}
	s.Set(7, src)
	src[0] = 99

	v, err := s.Vector(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, apptype.FeatureVector{1, 2}, v)

	_, err = s.Vector(context.Background(), 8)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestProfilesSupplier(t *testing.T) {
	reg := mapRegistry{
		1: {ID: 1, FaceDescriptor: apptype.FeatureVector{0.1}, VoicePrint: apptype.FeatureVector{0.2, 0.3}},
		2: {ID: 2},
	}
	ctx := context.Background()

	face, err := NewProfiles(Face, reg).Vector(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, apptype.FeatureVector{0.1}, face)

	voice, err := NewProfiles(Voice, reg).Vector(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, apptype.FeatureVector{0.2, 0.3}, voice)

	_, err = NewProfiles(Voice, reg).Vector(ctx, 2)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = NewProfiles(Face, reg).Vector(ctx, 3)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResolveFillsOnlyMissingVectors(t *testing.T) {
	faces := NewStatic(Face)
	faces.Set(1, apptype.FeatureVector{9, 9})
	voices := NewStatic(Voice)
	voices.Set(1, apptype.FeatureVector{0.5})

	p := apptype.Profile{ID: 1, FaceDescriptor: apptype.FeatureVector{1, 1}}
	got, err := Resolve(context.Background(), p, faces, voices)
	require.NoError(t, err)
	assert.Equal(t, apptype.FeatureVector{1, 1}, got.FaceDescriptor)
	assert.Equal(t, apptype.FeatureVector{0.5}, got.VoicePrint)
}

func TestResolveFallsThroughUnavailable(t *testing.T) {
	empty := NewStatic(Voice)
	backup := NewStatic(Voice)
	backup.Set(4, apptype.FeatureVector{0.25})

	got, err := Resolve(context.Background(), apptype.Profile{ID: 4}, empty, nil, backup)
	require.NoError(t, err)
	assert.Equal(t, apptype.FeatureVector{0.25}, got.VoicePrint)
	assert.Nil(t, got.FaceDescriptor)

	none, err := Resolve(context.Background(), apptype.Profile{ID: 5}, empty)
	require.NoError(t, err)
	assert.Nil(t, none.VoicePrint)
}

func TestResolvePropagatesSupplierFailure(t *testing.T) {
	cause := errors.New("backend down")
	_, err := Resolve(context.Background(), apptype.Profile{ID: 1}, brokenSupplier{err: cause})
	assert.ErrorIs(t, err, cause)
}

func TestWrapToDims(t *testing.T) {
	s := NewStatic(Face)
	s.Set(1, apptype.FeatureVector{1, 2, 3})
	ctx := context.Background()

	assert.Same(t, s, WrapToDims(s, 0, "").(*Static))

	_, err := WrapToDims(s, 2, "").Vector(ctx, 1)
	assert.ErrorIs(t, err, ErrUnavailable)

	v, err := WrapToDims(s, 2, "truncate").Vector(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, apptype.FeatureVector{1, 2}, v)

	v, err = WrapToDims(s, 5, "PAD").Vector(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, apptype.FeatureVector{1, 2, 3, 0, 0}, v)

	_, err = WrapToDims(s, 2, "pad").Vector(ctx, 1)
	assert.ErrorIs(t, err, ErrUnavailable)

	v, err = WrapToDims(s, 3, "strict").Vector(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, v, 3)
	assert.Equal(t, Face, WrapToDims(s, 3, "").Kind())
}
