package similarity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestEuclideanSimilarity(t *testing.T) {
	a := apptype.FeatureVector{0.1, 0.2, 0.3}
	assert.Equal(t, 1.0, EuclideanSimilarity(a, a))

	// distance 5 -> 0.5
	assert.InDelta(t, 0.5, EuclideanSimilarity(apptype.FeatureVector{0, 0}, apptype.FeatureVector{3, 4}), 1e-12)
	// distance beyond the scale clamps to 0
	assert.Equal(t, 0.0, EuclideanSimilarity(apptype.FeatureVector{0}, apptype.FeatureVector{25}))

	assert.Equal(t, 0.0, EuclideanSimilarity(a, apptype.FeatureVector{0.1, 0.2}))
	assert.Equal(t, 0.0, EuclideanSimilarity(nil, a))
	assert.Equal(t, 0.0, EuclideanSimilarity(nil, nil))
}

func TestCosineSimilarity(t *testing.T) {
	a := apptype.FeatureVector{1, 2, 3}
	b := apptype.FeatureVector{-2, 0.5, 4}
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-12)
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))

	// opposite direction clamps to 0 rather than -1
	assert.Equal(t, 0.0, CosineSimilarity(apptype.FeatureVector{1, 0}, apptype.FeatureVector{-1, 0}))
	// orthogonal
	assert.InDelta(t, 0.0, CosineSimilarity(apptype.FeatureVector{1, 0}, apptype.FeatureVector{0, 1}), 1e-12)

	assert.Equal(t, 0.0, CosineSimilarity(apptype.FeatureVector{0, 0}, apptype.FeatureVector{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(a, apptype.FeatureVector{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity(a, nil))
}

func TestEditDistanceSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, EditDistanceSimilarity("Amina Hassan", "amina hassan"))
	// kitten/sitting: distance 3, max length 7
	assert.InDelta(t, 1-3.0/7.0, EditDistanceSimilarity("kitten", "sitting"), 1e-12)
	assert.Equal(t, EditDistanceSimilarity("Aleppo", "Alepo"), EditDistanceSimilarity("Alepo", "Aleppo"))
	assert.Equal(t, 0.0, EditDistanceSimilarity("", "abc"))
	assert.Equal(t, 0.0, EditDistanceSimilarity("abc", ""))
	assert.Equal(t, 0.0, EditDistanceSimilarity("abc", "xyz"))
	// multi-byte runes count as single characters
	assert.InDelta(t, 1-1.0/5.0, EditDistanceSimilarity("Zoë A", "Zoe A"), 1e-12)
}

func TestSetOverlapSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, SetOverlapSimilarity([]string{"ar", "en"}, []string{"en", "ar"}))
	assert.InDelta(t, 1.0/3.0, SetOverlapSimilarity([]string{"ar", "en"}, []string{"en", "fr"}), 1e-12)
	// duplicates do not inflate the intersection
	assert.InDelta(t, 1.0/3.0, SetOverlapSimilarity([]string{"ar", "en", "en"}, []string{"en", "fr", "en"}), 1e-12)
	assert.Equal(t, 0.0, SetOverlapSimilarity(nil, []string{"en"}))
	assert.Equal(t, 0.0, SetOverlapSimilarity([]string{"en"}, []string{}))
}

func TestAgeSimilarity(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.0, AgeSimilarity(date(1980, 1, 1), date(1980, 12, 31), now))
	assert.InDelta(t, 0.2, AgeSimilarity(date(1950, 5, 5), date(1990, 5, 5), now), 1e-12)
	assert.InDelta(t, 0.2, AgeSimilarity(date(1990, 5, 5), date(1950, 5, 5), now), 1e-12)
	assert.Equal(t, 0.0, AgeSimilarity(date(1900, 1, 1), date(2000, 1, 1), now))
	assert.Equal(t, 0.0, AgeSimilarity(nil, date(2000, 1, 1), now))
}

func TestBestPairwiseNameSimilarity(t *testing.T) {
	a := []apptype.FamilyMember{{Name: "Omar", Relationship: "brother"}, {Name: ""}, {Name: "Layla"}}
	b := []apptype.FamilyMember{{Name: "Leila", Relationship: "sister"}, {Name: "omar"}}
	assert.Equal(t, 1.0, BestPairwiseNameSimilarity(a, b))
	assert.Equal(t, BestPairwiseNameSimilarity(a, b), BestPairwiseNameSimilarity(b, a))
	assert.Equal(t, 0.0, BestPairwiseNameSimilarity(nil, b))
	assert.Equal(t, 0.0, BestPairwiseNameSimilarity([]apptype.FamilyMember{{Name: ""}}, b))
}

func TestMetricsStayInUnitRange(t *testing.T) {
	vecs := []apptype.FeatureVector{
		{0, 0, 0}, {1, 1, 1}, {-3, 4, 0.5}, {1e6, -1e6, 2}, {0.001, 0.002, 0.003},
		{1e200, 1e200, 1e200}, {-1e300, 1e300, 5}, {5e-324, 5e-324, 0},
	}
	for _, a := range vecs {
		for _, b := range vecs {
			for _, s := range []float64{EuclideanSimilarity(a, b), CosineSimilarity(a, b)} {
				assert.False(t, math.IsNaN(s))
				assert.GreaterOrEqual(t, s, 0.0)
				assert.LessOrEqual(t, s, 1.0)
			}
		}
	}
}

func TestCosineSimilarityExtremeMagnitudes(t *testing.T) {
	huge := apptype.FeatureVector{1e200, 1e200}
	assert.InDelta(t, 1.0, CosineSimilarity(huge, huge), 1e-12)
	assert.InDelta(t, 1.0, CosineSimilarity(huge, apptype.FeatureVector{1, 1}), 1e-12)
	assert.InDelta(t, 0.0, CosineSimilarity(huge, apptype.FeatureVector{1e200, -1e200}), 1e-12)

	tiny := apptype.FeatureVector{5e-324, 5e-324}
	assert.InDelta(t, 1.0, CosineSimilarity(tiny, tiny), 1e-12)

	assert.Equal(t, 0.0, CosineSimilarity(apptype.FeatureVector{math.Inf(1), 1}, huge))
	assert.Equal(t, 0.0, CosineSimilarity(apptype.FeatureVector{math.NaN(), 1}, huge))
}
