package connstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore/storetest"
)

func TestMemoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) connstore.Store {
		return connstore.NewMemory()
	})
}

func TestCanonicalPair(t *testing.T) {
	a, b, err := connstore.CanonicalPair(7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(7), b)

	_, _, err = connstore.CanonicalPair(-1, -1)
	assert.ErrorIs(t, err, connstore.ErrInvalidInput)
}

func TestApplyOptionsDefaults(t *testing.T) {
	o, err := connstore.ApplyOptions()
	require.NoError(t, err)
	assert.Equal(t, apptype.ConnectionPotential, o.Type)

	o, err = connstore.ApplyOptions(connstore.WithConnectionType(""), connstore.WithPredictedRelationship("sibling"))
	require.NoError(t, err)
	assert.Equal(t, apptype.ConnectionPotential, o.Type)
	assert.Equal(t, "sibling", o.PredictedRelationship)
}

func TestMemoryLen(t *testing.T) {
	m := connstore.NewMemory()
	for i := int64(1); i <= 4; i++ {
		_, err := m.Upsert(t.Context(), 0, i, storetest.Result(0.5))
		require.NoError(t, err)
		_, err = m.Upsert(t.Context(), i, 0, storetest.Result(0.6))
		require.NoError(t, err)
	}
	assert.Equal(t, 4, m.Len())
}
