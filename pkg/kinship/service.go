// Package kinship is the library-first API of the matching engine: profile
// registration, pairwise comparison, matching runs and connection graph
// queries over a libSQL database, without MCP transport.
package kinship

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/connstore"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/database"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/features"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/graph"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/matching"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/similarity"
)

// Re-exported sentinels so callers need not import internal packages.
var (
	ErrInvalidInput     = connstore.ErrInvalidInput
	ErrNotFound         = connstore.ErrNotFound
	ErrStoreUnavailable = connstore.ErrStoreUnavailable
)

// Service composes the registry, comparator, matcher and graph expander.
type Service struct {
	db        *database.DBManager
	featureDB *database.DBManager
	cmp       *similarity.Comparator
	matcher   *matching.Matcher
	expander  *graph.Expander
	suppliers []features.Supplier
	cfg       Config
}

// NewService opens the configured database(s) and indexes the registered
// face descriptors.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	var dbCfg *database.Config
	if cfg.URL != "" {
		dbCfg = cfg.toInternal()
	}
	dm, err := database.NewDBManager(dbCfg)
	if err != nil {
		return nil, err
	}
	var featureDB *database.DBManager
	if cfg.FeaturesURL != "" {
		featureDB, err = database.NewDBManager(cfg.featuresInternal())
		if err != nil {
			_ = dm.Close()
			return nil, fmt.Errorf("open features database: %w", err)
		}
	}
	s := newService(dm, featureDB, *cfg)
	if err := s.matcher.Rebuild(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func newService(dm, featureDB *database.DBManager, cfg Config) *Service {
	var suppliers []features.Supplier
	if featureDB != nil {
		suppliers = append(suppliers,
			features.WrapToDims(features.NewProfiles(features.Face, featureDB), cfg.FaceDims, cfg.DimsMode),
			features.WrapToDims(features.NewProfiles(features.Voice, featureDB), cfg.VoiceDims, cfg.DimsMode),
		)
	}
	for _, sup := range cfg.Suppliers {
		dims := cfg.FaceDims
		if sup.Kind() == features.Voice {
			dims = cfg.VoiceDims
		}
		suppliers = append(suppliers, features.WrapToDims(sup, dims, cfg.DimsMode))
	}
	cmp := similarity.NewComparator(cfg.Now)
	return &Service{
		db:        dm,
		featureDB: featureDB,
		cmp:       cmp,
		matcher:   matching.New(dm, dm, cmp, suppliers...),
		expander:  graph.NewExpander(dm),
		suppliers: suppliers,
		cfg:       cfg,
	}
}

// Close releases resources.
func (s *Service) Close() error {
	var errs []error
	if s.featureDB != nil {
		errs = append(errs, s.featureDB.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Ping checks the registry database.
func (s *Service) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// PoolStats reports the registry pool's in-use and idle connections.
func (s *Service) PoolStats() (inUse, idle int) { return s.db.PoolStats() }

// RegisterProfile stores p (inserting when p.ID is zero) and indexes its
// face descriptor. Descriptors are coerced to the configured dimensions.
func (s *Service) RegisterProfile(ctx context.Context, p apptype.Profile) (apptype.Profile, error) {
	face, ok := features.Adapt(p.FaceDescriptor, s.cfg.FaceDims, s.cfg.DimsMode)
	if !ok {
		return p, fmt.Errorf("%w: face descriptor has %d dims, want %d", ErrInvalidInput, len(p.FaceDescriptor), s.cfg.FaceDims)
	}
	voice, ok := features.Adapt(p.VoicePrint, s.cfg.VoiceDims, s.cfg.DimsMode)
	if !ok {
		return p, fmt.Errorf("%w: voice print has %d dims, want %d", ErrInvalidInput, len(p.VoicePrint), s.cfg.VoiceDims)
	}
	p.FaceDescriptor, p.VoicePrint = face, voice
	saved, err := s.db.SaveProfile(ctx, p)
	if err != nil {
		return saved, err
	}
	resolved, err := features.Resolve(ctx, saved, s.suppliers...)
	if err != nil {
		return saved, err
	}
	s.matcher.Index(resolved)
	return saved, nil
}

// GetProfile loads a registered profile.
func (s *Service) GetProfile(ctx context.Context, id int64) (apptype.Profile, error) {
	return s.db.GetProfile(ctx, id)
}

// ListProfiles returns every registered profile.
func (s *Service) ListProfiles(ctx context.Context) ([]apptype.Profile, error) {
	return s.db.ListProfiles(ctx)
}

// SearchQuery selects profiles for SearchProfiles. Zero fields do not filter.
type SearchQuery struct {
	// Text is matched against names, place of birth and last known location.
	Text string
	// BirthYear keeps profiles born in that year.
	BirthYear int
	// Age keeps profiles born in the current year minus Age. It is ignored
	// when BirthYear is set.
	Age *int
	// Limit defaults to 10.
	Limit  int
	Offset int
}

// SearchProfiles finds profiles by text, birth year or age.
func (s *Service) SearchProfiles(ctx context.Context, q SearchQuery) ([]apptype.Profile, error) {
	dq := database.ProfileQuery{Text: q.Text, BirthYear: q.BirthYear, Limit: q.Limit, Offset: q.Offset}
	if dq.BirthYear == 0 && q.Age != nil {
		if *q.Age < 0 {
			return nil, fmt.Errorf("%w: age %d", ErrInvalidInput, *q.Age)
		}
		dq.BirthYear = s.now().Year() - *q.Age
		if dq.BirthYear <= 0 {
			return nil, fmt.Errorf("%w: age %d", ErrInvalidInput, *q.Age)
		}
	}
	return s.db.SearchProfiles(ctx, dq)
}

func (s *Service) now() time.Time {
	if s.cfg.Now != nil {
		return s.cfg.Now()
	}
	return time.Now().UTC()
}

// DeleteProfile removes a profile with its connections.
func (s *Service) DeleteProfile(ctx context.Context, id int64) error {
	if err := s.db.DeleteProfile(ctx, id); err != nil {
		return err
	}
	s.matcher.Forget(id)
	return nil
}

// Compare scores two registered profiles without storing the result.
func (s *Service) Compare(ctx context.Context, a, b int64) (apptype.SimilarityResult, error) {
	if a == b {
		return apptype.SimilarityResult{}, fmt.Errorf("%w: cannot compare profile %d with itself", ErrInvalidInput, a)
	}
	pa, err := s.resolved(ctx, a)
	if err != nil {
		return apptype.SimilarityResult{}, err
	}
	pb, err := s.resolved(ctx, b)
	if err != nil {
		return apptype.SimilarityResult{}, err
	}
	res, err := s.cmp.Compare(pa, pb)
	if err != nil {
		return res, err
	}
	metrics.Default().ObserveComparison(string(res.Confidence))
	return res, nil
}

// CompareAndStore scores two registered profiles and upserts the connection.
func (s *Service) CompareAndStore(ctx context.Context, a, b int64, opts ...connstore.UpsertOption) (apptype.Connection, error) {
	res, err := s.Compare(ctx, a, b)
	if err != nil {
		return apptype.Connection{}, err
	}
	return s.db.Upsert(ctx, a, b, res, opts...)
}

func (s *Service) resolved(ctx context.Context, id int64) (apptype.Profile, error) {
	p, err := s.db.GetProfile(ctx, id)
	if err != nil {
		return p, err
	}
	return features.Resolve(ctx, p, s.suppliers...)
}

// MatchOptions overrides the configured matching parameters for one run.
type MatchOptions struct {
	// Candidates <= 0 takes the configured value.
	Candidates int
	// MinStoreScore in [0,1]; nil takes the configured value, so an explicit
	// 0 stores every compared candidate.
	MinStoreScore *float64
}

// RunMatching compares id against its candidates and stores the results.
func (s *Service) RunMatching(ctx context.Context, id int64, opts MatchOptions) ([]apptype.Connection, error) {
	run := matching.Options{Candidates: opts.Candidates, MinStoreScore: s.cfg.MinStoreScore}
	if run.Candidates <= 0 {
		run.Candidates = s.cfg.Candidates
	}
	if opts.MinStoreScore != nil {
		v := *opts.MinStoreScore
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, fmt.Errorf("%w: min store score %v is outside [0,1]", ErrInvalidInput, v)
		}
		run.MinStoreScore = v
	}
	return s.matcher.Run(ctx, id, run)
}

// TopMatches lists id's best connections scoring at least minScore.
func (s *Service) TopMatches(ctx context.Context, id int64, minScore float64, limit int) ([]apptype.Connection, error) {
	return s.db.TopMatches(ctx, id, minScore, limit)
}

// ConnectionGraph expands the connection graph around root.
func (s *Service) ConnectionGraph(ctx context.Context, root int64, minScore float64, maxDepth int) (apptype.GraphView, error) {
	return s.expander.Expand(ctx, root, minScore, maxDepth)
}

// SetConnectionType records a human review decision on a stored pair.
func (s *Service) SetConnectionType(ctx context.Context, a, b int64, t apptype.ConnectionType) (apptype.Connection, error) {
	return s.db.SetConnectionType(ctx, a, b, t)
}

// Stats summarizes stored connections.
func (s *Service) Stats(ctx context.Context) (apptype.ConnectionStats, error) {
	return s.db.Stats(ctx)
}

// IndexedFaces reports how many face descriptors the matcher has indexed.
func (s *Service) IndexedFaces() int { return s.matcher.Indexed() }
