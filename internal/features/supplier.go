// Package features supplies face descriptors and voice prints for profiles.
// Extraction from raw media happens elsewhere; suppliers only hand out
// vectors that already exist.
package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

// ErrUnavailable means the supplier has no vector for the profile. Scoring
// treats it as missing data, never as a failure.
var ErrUnavailable = errors.New("feature vector unavailable")

// Kind names the modality a Supplier serves.
type Kind string

const (
	Face  Kind = "face"
	Voice Kind = "voice"
)

// Supplier returns one modality's vector for a profile.
// Implementations should be concurrency-safe.
type Supplier interface {
	Kind() Kind
	Vector(ctx context.Context, profileID int64) (apptype.FeatureVector, error)
}

// Resolve fills the vectors p is missing from the first supplier of the
// matching kind that has one. Vectors already on p are kept.
func Resolve(ctx context.Context, p apptype.Profile, suppliers ...Supplier) (apptype.Profile, error) {
	for _, s := range suppliers {
		if s == nil {
			continue
		}
		var dst *apptype.FeatureVector
		switch s.Kind() {
		case Face:
			dst = &p.FaceDescriptor
		case Voice:
			dst = &p.VoicePrint
		default:
			return p, fmt.Errorf("unknown feature kind %q", s.Kind())
		}
		if len(*dst) > 0 {
			continue
		}
		v, err := s.Vector(ctx, p.ID)
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		if err != nil {
			return p, fmt.Errorf("resolve %s vector for profile %d: %w", s.Kind(), p.ID, err)
		}
		*dst = v
	}
	return p, nil
}
