// Package connstore defines the connection store contract shared by the
// durable libSQL store and the in-memory store.
package connstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/similarity"
)

var (
	// ErrStoreUnavailable wraps failures of the backing store. Callers own retries.
	ErrStoreUnavailable = errors.New("connection store unavailable")
	// ErrNotFound is returned when an operation requires an existing record.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is the same sentinel the comparator uses.
	ErrInvalidInput = similarity.ErrInvalidInput
)

// Store persists at most one Connection per unordered pair of profile IDs.
type Store interface {
	Upsert(ctx context.Context, a, b int64, res apptype.SimilarityResult, opts ...UpsertOption) (apptype.Connection, error)
	Get(ctx context.Context, a, b int64) (*apptype.Connection, error)
	NeighborsOf(ctx context.Context, id int64, minScore float64) ([]apptype.Connection, error)
	TopMatches(ctx context.Context, id int64, minScore float64, limit int) ([]apptype.Connection, error)
	SetConnectionType(ctx context.Context, a, b int64, t apptype.ConnectionType) (apptype.Connection, error)
	Stats(ctx context.Context) (apptype.ConnectionStats, error)
}

// UpsertOptions carries the optional human-facing fields of a connection.
type UpsertOptions struct {
	Type                  apptype.ConnectionType
	PredictedRelationship string
	// KeepReview makes an existing record's type and predicted relationship
	// win over Type and PredictedRelationship. The store reads them under the
	// same per-pair lock as the write.
	KeepReview bool
}

// UpsertOption mutates UpsertOptions.
type UpsertOption func(*UpsertOptions)

// WithConnectionType sets the review state; the default is potential.
func WithConnectionType(t apptype.ConnectionType) UpsertOption {
	return func(o *UpsertOptions) { o.Type = t }
}

// WithPredictedRelationship sets the predicted relationship label.
func WithPredictedRelationship(rel string) UpsertOption {
	return func(o *UpsertOptions) { o.PredictedRelationship = rel }
}

// KeepReview preserves the review state of an already stored pair, so a
// re-score never undoes a concurrent SetConnectionType.
func KeepReview() UpsertOption {
	return func(o *UpsertOptions) { o.KeepReview = true }
}

// ApplyOptions resolves opts over the defaults and validates them.
func ApplyOptions(opts ...UpsertOption) (UpsertOptions, error) {
	o := UpsertOptions{Type: apptype.ConnectionPotential}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Type == "" {
		o.Type = apptype.ConnectionPotential
	}
	if !o.Type.Valid() {
		return o, fmt.Errorf("%w: unknown connection type %q", ErrInvalidInput, o.Type)
	}
	return o, nil
}

// CanonicalPair orders a and b so the smaller ID comes first. Self pairs are invalid.
func CanonicalPair(a, b int64) (int64, int64, error) {
	if a == b {
		return 0, 0, fmt.Errorf("%w: cannot connect profile %d to itself", ErrInvalidInput, a)
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}

// SortForProfile orders conns by descending overall score, then ascending
// counterpart ID relative to id.
func SortForProfile(conns []apptype.Connection, id int64) {
	slices.SortFunc(conns, func(x, y apptype.Connection) int {
		if c := cmp.Compare(y.Result.OverallScore, x.Result.OverallScore); c != 0 {
			return c
		}
		return cmp.Compare(x.Counterpart(id), y.Counterpart(id))
	})
}

// Truncate applies a result limit; limit <= 0 means unlimited.
func Truncate(conns []apptype.Connection, limit int) []apptype.Connection {
	if limit > 0 && len(conns) > limit {
		return conns[:limit]
	}
	return conns
}

// HighConfidenceScore is the overall score at which a match counts as high confidence in stats.
const HighConfidenceScore = 0.8
