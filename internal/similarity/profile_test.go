package similarity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func descriptor(n int, seed float64) apptype.FeatureVector {
	v := make(apptype.FeatureVector, n)
	for i := range v {
		v[i] = math.Sin(seed+float64(i)) * 0.1
	}
	return v
}

func TestCompare_IdenticalProfiles(t *testing.T) {
	face := descriptor(128, 1)
	voice := descriptor(64, 2)
	mk := func(id int64) apptype.Profile {
		return apptype.Profile{
			ID: id,
			Identity: apptype.IdentityAttributes{
				FirstName:    "Amina",
				LastName:     "Hassan",
				PlaceOfBirth: "Aleppo",
				DateOfBirth:  date(1984, 3, 9),
			},
			FaceDescriptor: append(apptype.FeatureVector(nil), face...),
			VoicePrint:     append(apptype.FeatureVector(nil), voice...),
		}
	}

	res, err := NewComparator(fixedClock).Compare(mk(1), mk(2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.FacialScore)
	assert.InDelta(t, 1.0, res.VoiceScore, 1e-9)
	assert.InDelta(t, 1.0, res.InformationScore, 1e-9)
	assert.InDelta(t, 1.0, res.OverallScore, 1e-9)
	assert.Equal(t, apptype.ConfidenceHigh, res.Confidence)
	assert.Equal(t, fixedNow, res.ComputedAt)
}

func TestCompare_PlaceAndAgeOnly(t *testing.T) {
	a := apptype.Profile{ID: 1, Identity: apptype.IdentityAttributes{
		FirstName: "Amina", LastName: "Hassan", PlaceOfBirth: "Aleppo", DateOfBirth: date(1946, 1, 1),
	}}
	b := apptype.Profile{ID: 2, Identity: apptype.IdentityAttributes{
		FirstName: "Yusuf", LastName: "Karimi", PlaceOfBirth: "aleppo", DateOfBirth: date(1986, 1, 1),
	}}

	res, err := NewComparator(fixedClock).Compare(a, b)
	require.NoError(t, err)

	name := EditDistanceSimilarity("Amina Hassan", "Yusuf Karimi")
	want := (0.30*name + 0.20*1.0 + 0.15*0.2) / (0.30 + 0.20 + 0.15)

	assert.Equal(t, 0.0, res.FacialScore)
	assert.Equal(t, 0.0, res.VoiceScore)
	assert.InDelta(t, want, res.InformationScore, 1e-12)
	assert.InDelta(t, 0.3*want, res.OverallScore, 1e-12)
	assert.Equal(t, apptype.ConfidenceLow, res.Confidence)
}

func TestCompare_AbsentNamesStillCountNameWeight(t *testing.T) {
	a := apptype.Profile{ID: 1, Identity: apptype.IdentityAttributes{Languages: []string{"ar"}}}
	b := apptype.Profile{ID: 2, Identity: apptype.IdentityAttributes{Languages: []string{"ar"}}}

	res, err := NewComparator(fixedClock).Compare(a, b)
	require.NoError(t, err)
	// name contributes 0 over weight .30, languages 1 over weight .10
	assert.InDelta(t, 0.10/0.40, res.InformationScore, 1e-12)
}

func TestCompare_EmptyProfiles(t *testing.T) {
	res, err := NewComparator(fixedClock).Compare(apptype.Profile{ID: 1}, apptype.Profile{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.OverallScore)
	assert.Equal(t, apptype.ConfidenceLow, res.Confidence)
}

func TestCompare_Symmetric(t *testing.T) {
	a := apptype.Profile{
		ID: 3,
		Identity: apptype.IdentityAttributes{
			FirstName: "Omar", LastName: "Haddad", PlaceOfBirth: "Homs", DateOfBirth: date(1970, 2, 2),
			Languages:     []string{"ar", "en"},
			FamilyMembers: []apptype.FamilyMember{{Name: "Rana Haddad", Relationship: "sister"}},
		},
		FaceDescriptor: descriptor(16, 0.3),
		VoicePrint:     descriptor(8, 0.7),
	}
	b := apptype.Profile{
		ID: 7,
		Identity: apptype.IdentityAttributes{
			FirstName: "Rana", LastName: "Hadad", PlaceOfBirth: "Hims", DateOfBirth: date(1975, 8, 8),
			Languages:     []string{"ar", "de"},
			FamilyMembers: []apptype.FamilyMember{{Name: "Omar Haddad", Relationship: "brother"}},
		},
		FaceDescriptor: descriptor(16, 0.9),
		VoicePrint:     descriptor(8, 0.1),
	}
	c := NewComparator(fixedClock)
	ab, err := c.Compare(a, b)
	require.NoError(t, err)
	ba, err := c.Compare(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	again, err := c.Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, ab, again)
}

func TestCompare_MismatchedVectorsDegrade(t *testing.T) {
	a := apptype.Profile{ID: 1, FaceDescriptor: descriptor(128, 1), VoicePrint: descriptor(10, 1)}
	b := apptype.Profile{ID: 2, FaceDescriptor: descriptor(64, 1), VoicePrint: descriptor(12, 1)}
	res, err := NewComparator(fixedClock).Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.FacialScore)
	assert.Equal(t, 0.0, res.VoiceScore)
}

func TestCompare_LargeFiniteVoicePrintsScoreFinite(t *testing.T) {
	a := apptype.Profile{ID: 1, VoicePrint: apptype.FeatureVector{1e200, 1e200}}
	b := apptype.Profile{ID: 2, VoicePrint: apptype.FeatureVector{1e200, 1e200}}
	res, err := NewComparator(fixedClock).Compare(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.VoiceScore, 1e-9)
	assert.False(t, math.IsNaN(res.OverallScore))
	assert.GreaterOrEqual(t, res.OverallScore, 0.0)
	assert.LessOrEqual(t, res.OverallScore, 1.0)
}

func TestCompare_NonFiniteIsInvalidInput(t *testing.T) {
	bad := apptype.Profile{ID: 1, FaceDescriptor: apptype.FeatureVector{0.1, math.NaN()}}
	good := apptype.Profile{ID: 2, FaceDescriptor: apptype.FeatureVector{0.1, 0.2}}

	_, err := NewComparator(fixedClock).Compare(bad, good)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewComparator(fixedClock).Compare(good, apptype.Profile{ID: 3, VoicePrint: apptype.FeatureVector{math.Inf(1)}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, apptype.ConfidenceHigh, Confidence(0.9, 0.8, 0.85))
	assert.Equal(t, apptype.ConfidenceMedium, Confidence(0.9, 0.9, 0.3))
	assert.Equal(t, apptype.ConfidenceLow, Confidence(1, 0, 0.5))
}

func TestZeroComparatorUsesWallClock(t *testing.T) {
	var c Comparator
	before := time.Now().UTC()
	res, err := c.Compare(apptype.Profile{ID: 1}, apptype.Profile{ID: 2})
	require.NoError(t, err)
	assert.False(t, res.ComputedAt.Before(before))
}
