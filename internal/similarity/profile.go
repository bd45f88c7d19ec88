package similarity

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

// ErrInvalidInput reports structurally malformed input, e.g. non-finite vector values.
var ErrInvalidInput = errors.New("invalid input")

// Category weights of the overall score.
const (
	facialWeight      = 0.4
	voiceWeight       = 0.3
	informationWeight = 0.3
)

// Sub-factor weights of the information score.
const (
	nameWeight     = 0.30
	placeWeight    = 0.20
	ageWeight      = 0.15
	languageWeight = 0.10
	familyWeight   = 0.25
)

// Comparator computes SimilarityResults. The zero value is usable and reads the wall clock.
type Comparator struct {
	// Now supplies the reference time for ages and ComputedAt.
	Now func() time.Time
}

// NewComparator returns a Comparator using the given clock; nil means time.Now in UTC.
func NewComparator(now func() time.Time) *Comparator {
	return &Comparator{Now: now}
}

func (c *Comparator) now() time.Time {
	if c == nil || c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

// Compare scores profiles a and b. Missing data lowers the affected score to 0;
// only malformed vectors produce an error.
func (c *Comparator) Compare(a, b apptype.Profile) (apptype.SimilarityResult, error) {
	if err := Validate(a); err != nil {
		return apptype.SimilarityResult{}, err
	}
	if err := Validate(b); err != nil {
		return apptype.SimilarityResult{}, err
	}
	now := c.now()

	facial := EuclideanSimilarity(a.FaceDescriptor, b.FaceDescriptor)
	voice := CosineSimilarity(a.VoicePrint, b.VoicePrint)
	info := InformationSimilarity(a.Identity, b.Identity, now)

	return apptype.SimilarityResult{
		FacialScore:      facial,
		VoiceScore:       voice,
		InformationScore: info,
		OverallScore:     facialWeight*facial + voiceWeight*voice + informationWeight*info,
		Confidence:       Confidence(facial, voice, info),
		ComputedAt:       now,
	}, nil
}

// InformationSimilarity aggregates the identity sub-factors both sides supply,
// normalized by the weights actually included. The name is always included.
func InformationSimilarity(a, b apptype.IdentityAttributes, now time.Time) float64 {
	score := nameWeight * EditDistanceSimilarity(a.FullName(), b.FullName())
	total := nameWeight

	if a.PlaceOfBirth != "" && b.PlaceOfBirth != "" {
		score += placeWeight * placeSimilarity(a.PlaceOfBirth, b.PlaceOfBirth)
		total += placeWeight
	}
	if a.DateOfBirth != nil && b.DateOfBirth != nil {
		score += ageWeight * AgeSimilarity(a.DateOfBirth, b.DateOfBirth, now)
		total += ageWeight
	}
	if len(a.Languages) > 0 && len(b.Languages) > 0 {
		score += languageWeight * SetOverlapSimilarity(a.Languages, b.Languages)
		total += languageWeight
	}
	if len(a.FamilyMembers) > 0 && len(b.FamilyMembers) > 0 {
		score += familyWeight * BestPairwiseNameSimilarity(a.FamilyMembers, b.FamilyMembers)
		total += familyWeight
	}
	return score / total
}

func placeSimilarity(a, b string) float64 {
	if fold(a) == fold(b) {
		return 1
	}
	return EditDistanceSimilarity(a, b)
}

// Confidence buckets the plain mean of the three category scores.
func Confidence(facial, voice, info float64) apptype.ConfidenceTier {
	avg := (facial + voice + info) / 3
	switch {
	case avg >= 0.8:
		return apptype.ConfidenceHigh
	case avg >= 0.6:
		return apptype.ConfidenceMedium
	default:
		return apptype.ConfidenceLow
	}
}

// Validate rejects profiles whose vectors hold NaN or infinite values.
func Validate(p apptype.Profile) error {
	if err := validateVector(p.FaceDescriptor); err != nil {
		return fmt.Errorf("profile %d face descriptor: %w", p.ID, err)
	}
	if err := validateVector(p.VoicePrint); err != nil {
		return fmt.Errorf("profile %d voice print: %w", p.ID, err)
	}
	return nil
}

func validateVector(v apptype.FeatureVector) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
	}
	return nil
}
