package kinship

import (
	"time"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/database"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/features"
)

// Config exposes a stable wrapper for the engine configuration in package mode.
// Database fields map directly to internal/database.Config.
type Config struct {
	URL            string
	AuthToken      string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int

	// FeaturesURL optionally names a second libSQL database whose profiles
	// supply face and voice vectors missing from the main registry.
	FeaturesURL       string
	FeaturesAuthToken string

	// Candidates and MinStoreScore tune RunMatching.
	Candidates    int
	MinStoreScore float64

	// FaceDims and VoiceDims fix descriptor lengths; 0 accepts any length.
	FaceDims  int
	VoiceDims int
	// DimsMode is strict, truncate, pad or pad_or_truncate.
	DimsMode string

	// Suppliers add vector sources beyond the registry.
	Suppliers []features.Supplier

	// Now overrides the clock used for ages and timestamps.
	Now func() time.Time
}

func (c *Config) toInternal() *database.Config {
	return &database.Config{
		URL:            c.URL,
		AuthToken:      c.AuthToken,
		MaxOpenConns:   c.MaxOpenConns,
		MaxIdleConns:   c.MaxIdleConns,
		ConnMaxIdleSec: c.ConnMaxIdleSec,
		ConnMaxLifeSec: c.ConnMaxLifeSec,
	}
}

func (c *Config) featuresInternal() *database.Config {
	return &database.Config{
		URL:            c.FeaturesURL,
		AuthToken:      c.FeaturesAuthToken,
		MaxOpenConns:   c.MaxOpenConns,
		MaxIdleConns:   c.MaxIdleConns,
		ConnMaxIdleSec: c.ConnMaxIdleSec,
		ConnMaxLifeSec: c.ConnMaxLifeSec,
	}
}
