package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
)

// ProfileGetter is the lookup the Profiles supplier needs from a registry.
type ProfileGetter interface {
	GetProfile(ctx context.Context, id int64) (apptype.Profile, error)
}

// Profiles serves vectors stored on registered profiles.
type Profiles struct {
	kind     Kind
	registry ProfileGetter
}

// NewProfiles returns a Supplier reading kind vectors from registry.
func NewProfiles(kind Kind, registry ProfileGetter) *Profiles {
	return &Profiles{kind: kind, registry: registry}
}

func (p *Profiles) Kind() Kind { return p.kind }

func (p *Profiles) Vector(ctx context.Context, id int64) (apptype.FeatureVector, error) {
	prof, err := p.registry.GetProfile(ctx, id)
	if errors.Is(err, connstore.ErrNotFound) {
		return nil, fmt.Errorf("profile %d: %w", id, ErrUnavailable)
	}
	if err != nil {
		return nil, err
	}
	v := prof.FaceDescriptor
	if p.kind == Voice {
		v = prof.VoicePrint
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%s for profile %d: %w", p.kind, id, ErrUnavailable)
	}
	return v, nil
}
