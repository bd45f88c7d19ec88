// Package similarity scores how alike two registered profiles are.
//
// The metric functions in this file are pure and total: missing or incomparable
// inputs yield 0, never an error.
package similarity

import (
	"math"
	"time"

	"golang.org/x/text/cases"
	"gonum.org/v1/gonum/floats"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

// euclideanScale is the distance at which face similarity reaches 0. Callers
// must supply descriptors on a scale where this is meaningful.
const euclideanScale = 10.0

// ageScale is the age gap (years) at which age similarity reaches 0; it spans
// parent/child generations.
const ageScale = 50.0

// EuclideanSimilarity maps the Euclidean distance between a and b to [0,1].
func EuclideanSimilarity(a, b apptype.FeatureVector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	d := floats.Distance(a, b, 2)
	if math.IsNaN(d) {
		return 0
	}
	return math.Max(0, 1-d/euclideanScale)
}

// CosineSimilarity returns the cosine of the angle between a and b, with
// negative values clamped to 0.
func CosineSimilarity(a, b apptype.FeatureVector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	ua, ub := unit(a), unit(b)
	if ua == nil || ub == nil {
		return 0
	}
	// the dot of unit vectors cannot overflow, unlike the raw dot and norm product
	s := floats.Dot(ua, ub)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	// rounding can push identical vectors a hair past 1
	return math.Min(1, math.Max(0, s))
}

// unit returns v scaled to length 1, or nil for a zero or non-finite vector.
// v is first divided by its largest magnitude so the norm stays finite.
func unit(v apptype.FeatureVector) []float64 {
	peak := 0.0
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		peak = math.Max(peak, math.Abs(x))
	}
	if peak == 0 {
		return nil
	}
	u := make([]float64, len(v))
	for i, x := range v {
		u[i] = x / peak
	}
	n := floats.Norm(u, 2)
	if n == 0 {
		return nil
	}
	floats.Scale(1/n, u)
	return u
}

// EditDistanceSimilarity is 1 - levenshtein/maxLen over case-folded runes.
func EditDistanceSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0
	}
	r1 := []rune(fold(s1))
	r2 := []rune(fold(s2))
	maxLen := max(len(r1), len(r2))
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein(r1, r2))/float64(maxLen)
}

// SetOverlapSimilarity is the Jaccard index of the distinct elements of a and b.
func SetOverlapSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for s := range setA {
		union[s] = struct{}{}
	}
	inter := 0
	seenB := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := seenB[s]; dup {
			continue
		}
		seenB[s] = struct{}{}
		if _, ok := setA[s]; ok {
			inter++
		}
		union[s] = struct{}{}
	}
	return float64(inter) / float64(len(union))
}

// AgeSimilarity compares the ages implied by two birth dates as of now.
// Ages are whole calendar years.
func AgeSimilarity(a, b *time.Time, now time.Time) float64 {
	if a == nil || b == nil {
		return 0
	}
	ageA := now.Year() - a.Year()
	ageB := now.Year() - b.Year()
	diff := ageA - ageB
	if diff < 0 {
		diff = -diff
	}
	return math.Max(0, 1-float64(diff)/ageScale)
}

// BestPairwiseNameSimilarity returns the best edit-distance similarity among
// all cross pairs of non-empty names.
func BestPairwiseNameSimilarity(a, b []apptype.FamilyMember) float64 {
	best := 0.0
	for _, ma := range a {
		if ma.Name == "" {
			continue
		}
		for _, mb := range b {
			if mb.Name == "" {
				continue
			}
			if s := EditDistanceSimilarity(ma.Name, mb.Name); s > best {
				best = s
			}
		}
	}
	return best
}

// fold lowercases s for caseless comparison. Casers are stateful, so one is
// built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
